package stardict

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	gd "github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/indexcache"

	std "github.com/ianlewis/go-stardict"
	"github.com/ianlewis/go-stardict/dict"
	"github.com/ianlewis/go-stardict/idx"
	"github.com/k3a/html2text"
)

const cacheKind = "stardict"

type entry struct {
	Word   string
	Offset uint64
	Size   uint32
}

// cachedIndex keeps entries in file order; Order lists entry positions sorted
// by normalized headword and Norms holds the matching keys.
type cachedIndex struct {
	Entries []entry
	Order   []int
	Norms   []string
}

type Dictionary struct {
	id       string
	name     string
	caseFold bool
	dict     *dict.Dict
	index    *cachedIndex
}

func Load(id, name, ifoPath string, caseFold bool) (*Dictionary, error) {
	sd, err := std.Open(ifoPath, nil)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = sd.Bookname()
	}
	d, err := sd.Dict()
	if err != nil {
		return nil, err
	}

	sources := sourceFiles(ifoPath)
	if cached, ok, err := indexcache.Load[cachedIndex](cacheKind, sources, caseFold); err == nil && ok {
		return &Dictionary{id: id, name: name, caseFold: caseFold, dict: d, index: cached}, nil
	}

	sc, err := sd.IndexScanner()
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	ix := &cachedIndex{Entries: make([]entry, 0, 1024)}
	for sc.Scan() {
		w := sc.Word()
		ix.Entries = append(ix.Entries, entry{Word: w.Word, Offset: w.Offset, Size: w.Size})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	ix.sort(caseFold)

	_ = indexcache.Save(cacheKind, sources, caseFold, ix)

	return &Dictionary{id: id, name: name, caseFold: caseFold, dict: d, index: ix}, nil
}

func (ix *cachedIndex) sort(caseFold bool) {
	ix.Order = make([]int, len(ix.Entries))
	norms := make([]string, len(ix.Entries))
	for i, e := range ix.Entries {
		ix.Order[i] = i
		norms[i] = gd.Normalize(e.Word, caseFold)
	}
	sort.SliceStable(ix.Order, func(a, b int) bool {
		return norms[ix.Order[a]] < norms[ix.Order[b]]
	})
	ix.Norms = make([]string, len(ix.Order))
	for i, pos := range ix.Order {
		ix.Norms[i] = norms[pos]
	}
}

func (d *Dictionary) ID() string {
	return d.id
}

func (d *Dictionary) Name() string {
	return d.name
}

func (d *Dictionary) Match(ctx context.Context, term string, limit int) ([]gd.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	pfx := gd.Normalize(term, d.caseFold)
	norms := d.index.Norms
	i := sort.Search(len(norms), func(i int) bool {
		return norms[i] >= pfx
	})
	out := make([]gd.Entry, 0, limit)
	for ; i < len(norms) && len(out) < limit; i++ {
		if !strings.HasPrefix(norms[i], pfx) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := d.read(d.index.Order[i])
		if err != nil {
			return nil, err
		}
		if e.Definition == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *Dictionary) Entry(_ context.Context, id string) (gd.Entry, error) {
	pos, err := strconv.Atoi(id)
	if err != nil || pos < 0 || pos >= len(d.index.Entries) {
		return gd.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, gd.ErrNotFound)
	}
	return d.read(pos)
}

func (d *Dictionary) read(pos int) (gd.Entry, error) {
	e := d.index.Entries[pos]
	w, err := d.dict.Word(&idx.Word{Word: e.Word, Offset: e.Offset, Size: e.Size})
	if err != nil {
		return gd.Entry{}, fmt.Errorf("read %q from %s: %w", e.Word, d.id, err)
	}
	return gd.Entry{ID: strconv.Itoa(pos), Word: e.Word, Definition: dataToText(w.Data)}, nil
}

func dataToText(data []*dict.Data) string {
	parts := make([]string, 0, len(data))
	for _, d := range data {
		if s := strings.TrimSpace(renderData(d)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func renderData(d *dict.Data) string {
	switch d.Type {
	case dict.UTFTextType, dict.LocaleTextType, dict.WordNetType, dict.MediaWikiType:
		return normalizeNewlines(string(d.Data))
	case dict.PhoneticType, dict.YinBiaoOrKataType:
		return "[" + strings.TrimSpace(string(d.Data)) + "]"
	case dict.HTMLType, dict.PangoTextType, dict.XDXFType, dict.PowerWordType:
		return html2text.HTML2Text(string(d.Data))
	default:
		// Sounds, pictures and resource lists carry no text.
		return ""
	}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// sourceFiles lists the .ifo file plus whichever .idx and .dict variants sit
// next to it.
func sourceFiles(ifoPath string) []string {
	paths := []string{ifoPath}
	base := strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))
	if p, ok := firstExisting(base, ".idx", ".idx.gz", ".idx.dz", ".IDX", ".IDX.gz", ".IDX.dz"); ok {
		paths = append(paths, p)
	}
	if p, ok := firstExisting(base, ".dict", ".dict.dz", ".DICT", ".DICT.dz"); ok {
		paths = append(paths, p)
	}
	return paths
}

func firstExisting(base string, exts ...string) (string, bool) {
	for _, e := range exts {
		p := base + e
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
