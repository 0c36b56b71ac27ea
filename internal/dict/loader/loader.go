package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sagerenn/dictd/internal/config"
	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/dict/filedict"
	"github.com/sagerenn/dictd/internal/dict/mdict"
	"github.com/sagerenn/dictd/internal/dict/sqlitedict"
	"github.com/sagerenn/dictd/internal/dict/stardict"
)

type Result struct {
	Dicts []dict.Dictionary
	Errs  []error
}

// LoadAll opens every configured dictionary. A dictionary that fails to load
// is reported in Errs and skipped.
func LoadAll(ctx context.Context, dicts []config.DictConfig) Result {
	res := Result{Dicts: make([]dict.Dictionary, 0, len(dicts))}
	for _, d := range dicts {
		loaded, err := Load(ctx, d)
		if err != nil {
			res.Errs = append(res.Errs, fmt.Errorf("load %s: %w", d.ID, err))
			continue
		}
		res.Dicts = append(res.Dicts, loaded)
	}
	return res
}

func Load(ctx context.Context, d config.DictConfig) (dict.Dictionary, error) {
	if strings.TrimSpace(d.Path) == "" {
		return nil, fmt.Errorf("dictionary %q missing path", d.ID)
	}
	if strings.TrimSpace(d.ID) == "" {
		return nil, fmt.Errorf("dictionary entry missing id for path %q", d.Path)
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = d.ID
	}
	typ := strings.ToLower(strings.TrimSpace(d.Type))
	if typ == "" {
		typ = DetectType(d.Path)
	}
	switch typ {
	case "tsv", "tab", "txt", "json", "dsl":
		return filedict.Load(d.ID, name, d.Path, typ, d.Delimiter, d.CaseFold)
	case "stardict", "ifo":
		return stardict.Load(d.ID, name, d.Path, d.CaseFold)
	case "mdict", "mdx":
		return mdict.Load(d.ID, name, d.Path, d.CaseFold)
	case "sqlite", "db":
		return sqlitedict.Open(ctx, d.ID, name, d.Path)
	default:
		return nil, fmt.Errorf("unsupported dictionary type: %q", typ)
	}
}

func DetectType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ifo":
		return "stardict"
	case ".mdx":
		return "mdict"
	case ".dsl":
		return "dsl"
	case ".json":
		return "json"
	case ".tsv", ".txt":
		return "tsv"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return ""
	}
}
