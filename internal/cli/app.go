package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/sagerenn/dictd/internal/config"
	"github.com/sagerenn/dictd/internal/dict/loader"
	"github.com/sagerenn/dictd/internal/dict/registry"
	"github.com/sagerenn/dictd/internal/observability"
	"github.com/sagerenn/dictd/internal/service"
)

type app struct {
	log *observability.Logger
	reg *registry.Registry
	svc *service.Service
}

// newApp loads every configured dictionary. Dictionaries that fail to load
// are logged and skipped.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	log := observability.NewWithWriter(logOut, cfg.Log.Level, cfg.Log.Format)

	res := loader.LoadAll(ctx, cfg.Dictionaries)
	for _, err := range res.Errs {
		log.ErrorContext(ctx, "dictionary load error", slog.String("error", err.Error()))
	}
	reg := registry.New()
	if err := reg.AddAll(res.Dicts); err != nil {
		_ = reg.Close()
		return nil, err
	}
	log.InfoContext(ctx, "dictionaries loaded", slog.Int("count", len(res.Dicts)))

	svc := service.New(reg, service.Options{
		Limit:     cfg.Search.Limit,
		CacheSize: cfg.Search.CacheSize,
		CacheTTL:  cfg.Search.CacheTTL,
	}, log.Logger)
	return &app{log: log, reg: reg, svc: svc}, nil
}

func (a *app) Close() error {
	return a.reg.Close()
}
