// Package indexcache persists prebuilt dictionary indexes next to their
// source files. A cached index is reused only while the version, the
// case-folding mode and the size and mtime of every source file still match.
package indexcache

import (
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
)

const currentVersion = 2

type sourceSig struct {
	Path  string
	Size  int64
	Mtime int64
}

type header struct {
	Version  int
	Kind     string
	CaseFold bool
	Sources  []sourceSig
}

// Path returns the cache file for a primary source file.
func Path(primary string) string {
	return primary + ".dictd.idx"
}

// Load decodes the index of kind built from sources. sources[0] names the
// cache file. A stale or missing cache is reported as ok=false, err=nil.
func Load[T any](kind string, sources []string, caseFold bool) (*T, bool, error) {
	if len(sources) == 0 {
		return nil, false, errors.New("indexcache: no sources")
	}
	f, err := os.Open(Path(sources[0]))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, false, err
	}
	if h.Version != currentVersion || h.Kind != kind || h.CaseFold != caseFold {
		return nil, false, nil
	}
	sigs, err := signatures(sources)
	if err != nil {
		return nil, false, nil
	}
	if !sameSources(h.Sources, sigs) {
		return nil, false, nil
	}
	var payload T
	if err := dec.Decode(&payload); err != nil {
		return nil, false, err
	}
	return &payload, true, nil
}

// Save writes the index atomically through a temp file and rename.
func Save[T any](kind string, sources []string, caseFold bool, payload *T) error {
	if len(sources) == 0 {
		return errors.New("indexcache: no sources")
	}
	sigs, err := signatures(sources)
	if err != nil {
		return err
	}
	idxPath := Path(sources[0])
	tmp, err := os.CreateTemp(filepath.Dir(idxPath), filepath.Base(idxPath)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	enc := gob.NewEncoder(tmp)
	h := header{Version: currentVersion, Kind: kind, CaseFold: caseFold, Sources: sigs}
	if err := enc.Encode(&h); err != nil {
		return fail(err)
	}
	if err := enc.Encode(payload); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, idxPath); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func signatures(paths []string) ([]sourceSig, error) {
	out := make([]sourceSig, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		info, err := os.Stat(clean)
		if err != nil {
			return nil, err
		}
		out = append(out, sourceSig{Path: clean, Size: info.Size(), Mtime: info.ModTime().UnixNano()})
	}
	return out, nil
}

func sameSources(a, b []sourceSig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
