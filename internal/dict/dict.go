package dict

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// Entry is one result row. ID is opaque to callers: dictionaries hand out
// local ids and the service rewrites them into global ones.
type Entry struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type Dictionary interface {
	ID() string
	Name() string
	// Match returns entries whose headword starts with term, exact matches
	// first. A dictionary with no matches returns an empty slice.
	Match(ctx context.Context, term string, limit int) ([]Entry, error)
	// Entry returns the entry with the given local id or ErrNotFound.
	Entry(ctx context.Context, id string) (Entry, error)
}

// Fold trims s and applies Unicode case folding. A Caser keeps state, so
// each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// EqualFold reports whether a and b are the same query: equal after case
// folding, surrounding whitespace included.
func EqualFold(a, b string) bool {
	return cases.Fold().String(a) == cases.Fold().String(b)
}

// Normalize returns the index key of a headword.
func Normalize(s string, caseFold bool) string {
	if caseFold {
		return Fold(s)
	}
	return strings.TrimSpace(s)
}

const idSep = ":"

// GlobalID joins a dictionary id and a local entry id.
func GlobalID(dictID, localID string) string {
	return dictID + idSep + localID
}

// SplitID is the inverse of GlobalID.
func SplitID(id string) (dictID, localID string, ok bool) {
	dictID, localID, ok = strings.Cut(id, idSep)
	if !ok || dictID == "" || localID == "" {
		return "", "", false
	}
	return dictID, localID, true
}
