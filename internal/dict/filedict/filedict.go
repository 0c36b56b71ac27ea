package filedict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/indexcache"
)

type row struct {
	Norm       string
	Word       string
	Definition string
}

type index struct {
	Rows []row
}

// Dictionary is an in-memory word list sorted by normalized headword. The
// local id of an entry is its position in that order.
type Dictionary struct {
	id       string
	name     string
	caseFold bool
	rows     []row
}

// New builds a dictionary from entries; entry ids are ignored.
func New(id, name string, entries []dict.Entry, caseFold bool) *Dictionary {
	return &Dictionary{id: id, name: name, caseFold: caseFold, rows: buildRows(entries, caseFold)}
}

// Load reads a tsv, json or dsl file. An empty typ is detected from the
// extension.
func Load(id, name, path, typ, delimiter string, caseFold bool) (*Dictionary, error) {
	if id == "" || name == "" {
		return nil, errors.New("id and name are required")
	}
	kind, err := kindOf(typ, path)
	if err != nil {
		return nil, err
	}
	if kind == "tsv" {
		if delimiter == "" {
			delimiter = "\t"
		}
		// The cache must not serve an index split on another delimiter.
		kind = "tsv" + strconv.Quote(delimiter)
	}

	sources := []string{path}
	if idx, ok, err := indexcache.Load[index](kind, sources, caseFold); err == nil && ok {
		return &Dictionary{id: id, name: name, caseFold: caseFold, rows: idx.Rows}, nil
	}

	entries, err := parseFile(path, kind, delimiter)
	if err != nil {
		return nil, err
	}
	d := New(id, name, entries, caseFold)
	_ = indexcache.Save(kind, sources, caseFold, &index{Rows: d.rows})
	return d, nil
}

func kindOf(typ, path string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "tsv", "tab", "txt":
		return "tsv", nil
	case "json":
		return "json", nil
	case "dsl":
		return "dsl", nil
	case "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return "json", nil
		case ".dsl":
			return "dsl", nil
		default:
			return "tsv", nil
		}
	default:
		return "", errors.New("unsupported dictionary type: " + typ)
	}
}

func parseFile(path, kind, delimiter string) ([]dict.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch {
	case kind == "json":
		return parseJSON(f)
	case kind == "dsl":
		return parseDSL(f)
	default:
		return parseTSV(f, delimiter)
	}
}

func buildRows(entries []dict.Entry, caseFold bool) []row {
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		word := strings.TrimSpace(e.Word)
		def := strings.TrimSpace(e.Definition)
		if word == "" || def == "" {
			continue
		}
		rows = append(rows, row{Norm: dict.Normalize(word, caseFold), Word: word, Definition: def})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Norm < rows[j].Norm
	})
	return rows
}

func (d *Dictionary) ID() string {
	return d.id
}

func (d *Dictionary) Name() string {
	return d.name
}

func (d *Dictionary) Len() int {
	return len(d.rows)
}

func (d *Dictionary) Match(_ context.Context, term string, limit int) ([]dict.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	pfx := dict.Normalize(term, d.caseFold)
	i := sort.Search(len(d.rows), func(i int) bool {
		return d.rows[i].Norm >= pfx
	})
	out := make([]dict.Entry, 0, min(limit, len(d.rows)-i))
	for ; i < len(d.rows) && len(out) < limit; i++ {
		if !strings.HasPrefix(d.rows[i].Norm, pfx) {
			break
		}
		out = append(out, d.entry(i))
	}
	return out, nil
}

func (d *Dictionary) Entry(_ context.Context, id string) (dict.Entry, error) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(d.rows) {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, dict.ErrNotFound)
	}
	return d.entry(i), nil
}

// Entries returns every entry in index order.
func (d *Dictionary) Entries() []dict.Entry {
	out := make([]dict.Entry, 0, len(d.rows))
	for i := range d.rows {
		out = append(out, d.entry(i))
	}
	return out
}

func (d *Dictionary) entry(i int) dict.Entry {
	r := d.rows[i]
	return dict.Entry{ID: strconv.Itoa(i), Word: r.Word, Definition: r.Definition}
}
