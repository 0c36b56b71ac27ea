package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sagerenn/dictd/internal/cache"
	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/dict/registry"
)

type Options struct {
	Limit     int
	CacheSize int
	CacheTTL  time.Duration
}

// Service is the word store every session queries: it fans a term out to all
// registered dictionaries and resolves global entry ids.
type Service struct {
	log   *slog.Logger
	reg   *registry.Registry
	limit int
	cache *cache.Cache[string, []dict.Entry]
	group singleflight.Group
}

func New(reg *registry.Registry, opts Options, logger *slog.Logger) *Service {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return &Service{
		log:   logger.With("component", "service"),
		reg:   reg,
		limit: opts.Limit,
		cache: cache.New[string, []dict.Entry](opts.CacheSize, opts.CacheTTL),
	}
}

// Lookup returns the entries whose headword starts with term, in registry
// order, at most Options.Limit of them. An empty term yields an empty,
// non-nil result. A term nothing matches yields nil.
func (s *Service) Lookup(ctx context.Context, term string) ([]dict.Entry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []dict.Entry{}, nil
	}
	key := dict.Fold(term)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	// The shared lookup outlives any single caller; each caller still
	// honours its own context.
	ch := s.group.DoChan(key, func() (any, error) {
		res, err := s.lookup(context.WithoutCancel(ctx), term)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]dict.Entry), nil
	}
}

func (s *Service) lookup(ctx context.Context, term string) ([]dict.Entry, error) {
	dicts := s.reg.List()
	var (
		out  []dict.Entry
		errs []error
	)
	for _, d := range dicts {
		if len(out) >= s.limit {
			break
		}
		entries, err := d.Match(ctx, term, s.limit-len(out))
		if err != nil {
			s.log.WarnContext(ctx, "dictionary lookup failed",
				slog.String("dict", d.ID()),
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", d.ID(), err))
			continue
		}
		for _, e := range entries {
			e.ID = dict.GlobalID(d.ID(), e.ID)
			out = append(out, e)
		}
	}
	if len(dicts) > 0 && len(errs) == len(dicts) {
		return nil, fmt.Errorf("lookup %q: %w", term, errors.Join(errs...))
	}
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out, nil
}

// Fetch runs one background lookup for a dispatcher.
func (s *Service) Fetch(ctx context.Context, query string) ([]dict.Entry, error) {
	s.log.DebugContext(ctx, "fetch running in background", slog.String("query", query))
	return s.Lookup(ctx, query)
}

// Word resolves a global entry id.
func (s *Service) Word(ctx context.Context, id string) (dict.Entry, error) {
	dictID, localID, ok := dict.SplitID(id)
	if !ok {
		return dict.Entry{}, fmt.Errorf("word %q: %w", id, dict.ErrNotFound)
	}
	d, ok := s.reg.Get(dictID)
	if !ok {
		return dict.Entry{}, fmt.Errorf("dictionary %q: %w", dictID, dict.ErrNotFound)
	}
	e, err := d.Entry(ctx, localID)
	if err != nil {
		return dict.Entry{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Service) List() []dict.Dictionary {
	return s.reg.List()
}
