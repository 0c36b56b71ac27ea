package mdict

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ChaosNyaruko/ondict/decoder"
	"github.com/k3a/html2text"
	"golang.org/x/text/encoding/unicode"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/indexcache"
)

const cacheKind = "mdict"

type wordEntry struct {
	Word    string
	Norm    string
	Offsets []int
}

type cachedIndex struct {
	Entries []wordEntry
}

// Dictionary serves an MDX file. Entries are sorted by normalized headword;
// a local id is "<entry>.<offset>" since one headword may own several articles.
type Dictionary struct {
	id        string
	name      string
	caseFold  bool
	mdx       *decoder.MDict
	utf16     bool
	entries   []wordEntry
	normIndex map[string][]int
}

func Load(id, name, path string, caseFold bool) (*Dictionary, error) {
	md := &decoder.MDict{}
	if err := md.Decode(path, false); err != nil {
		return nil, err
	}
	if name == "" {
		name = id
	}

	d := &Dictionary{
		id:       id,
		name:     name,
		caseFold: caseFold,
		mdx:      md,
		utf16:    strings.EqualFold(mdictEncoding(md), "UTF-16"),
	}

	sources := []string{path}
	if cached, ok, err := indexcache.Load[cachedIndex](cacheKind, sources, caseFold); err == nil && ok {
		d.setEntries(cached.Entries)
		return d, nil
	}

	_ = md.Keys() // populates the unexported keymap
	keymap := mdictKeyMap(md)
	entries := make([]wordEntry, 0, len(keymap))
	for word, offs := range keymap {
		o := make([]int, 0, len(offs))
		for _, v := range offs {
			o = append(o, int(v))
		}
		entries = append(entries, wordEntry{Word: word, Norm: dict.Normalize(word, caseFold), Offsets: o})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Norm == entries[j].Norm {
			return entries[i].Word < entries[j].Word
		}
		return entries[i].Norm < entries[j].Norm
	})
	d.setEntries(entries)

	_ = indexcache.Save(cacheKind, sources, caseFold, &cachedIndex{Entries: entries})
	return d, nil
}

func (d *Dictionary) setEntries(entries []wordEntry) {
	d.entries = entries
	d.normIndex = make(map[string][]int, len(entries))
	for i, e := range entries {
		d.normIndex[e.Norm] = append(d.normIndex[e.Norm], i)
	}
}

func (d *Dictionary) ID() string {
	return d.id
}

func (d *Dictionary) Name() string {
	return d.name
}

func (d *Dictionary) Match(ctx context.Context, term string, limit int) ([]dict.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	pfx := dict.Normalize(term, d.caseFold)
	i := sort.Search(len(d.entries), func(i int) bool {
		return d.entries[i].Norm >= pfx
	})
	out := make([]dict.Entry, 0, limit)
	seen := make(map[string]bool)
	for ; i < len(d.entries) && len(out) < limit; i++ {
		if !strings.HasPrefix(d.entries[i].Norm, pfx) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for k := range d.entries[i].Offsets {
			e, ok := d.resolve(i, k, map[string]bool{d.entries[i].Norm: true})
			if !ok || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (d *Dictionary) Entry(_ context.Context, id string) (dict.Entry, error) {
	pos, k, ok := parseLocalID(id)
	if !ok || pos >= len(d.entries) || k >= len(d.entries[pos].Offsets) {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, dict.ErrNotFound)
	}
	e, ok := d.resolve(pos, k, map[string]bool{d.entries[pos].Norm: true})
	if !ok {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, dict.ErrNotFound)
	}
	return e, nil
}

// resolve reads one article and follows @@@LINK= redirects; visited guards
// against redirect cycles.
func (d *Dictionary) resolve(pos, k int, visited map[string]bool) (dict.Entry, bool) {
	we := d.entries[pos]
	raw := d.decode(d.mdx.ReadAtOffset(we.Offsets[k]))
	if target := parseRedirect(raw); target != "" {
		norm := dict.Normalize(target, d.caseFold)
		if visited[norm] {
			return dict.Entry{}, false
		}
		visited[norm] = true
		for _, p := range d.normIndex[norm] {
			for k2 := range d.entries[p].Offsets {
				if e, ok := d.resolve(p, k2, visited); ok {
					return e, true
				}
			}
		}
		return dict.Entry{}, false
	}
	def := strings.TrimSpace(html2text.HTML2Text(strings.TrimRight(raw, "\x00")))
	if def == "" {
		return dict.Entry{}, false
	}
	return dict.Entry{ID: localID(pos, k), Word: we.Word, Definition: def}, true
}

func (d *Dictionary) decode(b []byte) string {
	if d.utf16 {
		return decodeUTF16(b)
	}
	return string(b)
}

func decodeUTF16(b []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

func localID(pos, k int) string {
	return strconv.Itoa(pos) + "." + strconv.Itoa(k)
}

func parseLocalID(id string) (pos, k int, ok bool) {
	a, b, found := strings.Cut(id, ".")
	if !found {
		return 0, 0, false
	}
	pos, err1 := strconv.Atoi(a)
	k, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || pos < 0 || k < 0 {
		return 0, 0, false
	}
	return pos, k, true
}

// ondict keeps the encoding and key map unexported.
func mdictEncoding(m *decoder.MDict) string {
	v := reflect.ValueOf(m).Elem().FieldByName("encoding")
	if v.IsValid() && v.Kind() == reflect.String {
		return v.String()
	}
	return "UTF-8"
}

func mdictKeyMap(m *decoder.MDict) map[string][]uint64 {
	v := reflect.ValueOf(m).Elem().FieldByName("keymap")
	if !v.IsValid() || v.IsNil() {
		return nil
	}
	out := make(map[string][]uint64)
	for _, k := range v.MapKeys() {
		vals := v.MapIndex(k)
		offs := make([]uint64, 0, vals.Len())
		for i := 0; i < vals.Len(); i++ {
			offs = append(offs, vals.Index(i).Uint())
		}
		out[k.String()] = offs
	}
	return out
}

func parseRedirect(raw string) string {
	if !strings.HasPrefix(raw, "@@@LINK=") {
		return ""
	}
	target := strings.TrimPrefix(raw, "@@@LINK=")
	target = strings.TrimRight(target, "\x00")
	return strings.TrimSpace(strings.TrimRight(target, "\r\n"))
}
