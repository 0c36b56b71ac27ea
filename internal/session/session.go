// Package session couples a dispatcher and a presenter behind one event loop.
// The loop goroutine is the only one that touches the presenter.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sagerenn/dictd/internal/dispatch"
	"github.com/sagerenn/dictd/internal/present"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
)

type Session struct {
	id   string
	log  *slog.Logger
	disp *dispatch.Dispatcher
	pres *present.Presenter

	results chan dispatch.Result
	calls   chan func()
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	// owned by the loop
	waiters []chan present.View
}

func New(id string, fetcher dispatch.Fetcher, logger *slog.Logger) *Session {
	logger = logger.With("session_id", id)
	results := make(chan dispatch.Result)
	s := &Session{
		id:      id,
		log:     logger.With("component", "session"),
		disp:    dispatch.New(fetcher, results, logger),
		pres:    present.New(),
		results: results,
		calls:   make(chan func()),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case res := <-s.results:
			s.present(res)
		case fn := <-s.calls:
			fn()
		case <-s.quit:
			s.pres.Reset()
			s.waiters = nil
			s.log.Debug("session closed, rows released")
			return
		}
	}
}

func (s *Session) present(res dispatch.Result) {
	if !s.disp.Current(res) {
		s.log.Debug("ignoring stale result", slog.String("query", res.Query), slog.Uint64("seq", res.Seq))
		return
	}
	s.pres.OnFetchComplete(res.Query, res.Rows)
	v := s.pres.View()
	for _, w := range s.waiters {
		w <- v
	}
	s.waiters = nil
}

// do runs fn on the loop and returns once it has finished.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.calls <- call:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Submit hands query to the dispatcher and returns the Loading view.
func (s *Session) Submit(ctx context.Context, query string) (present.View, dispatch.Outcome, error) {
	var (
		v       present.View
		outcome dispatch.Outcome
	)
	err := s.do(ctx, func() {
		s.pres.Begin(query)
		outcome = s.disp.Submit(query)
		v = s.pres.View()
	})
	if err != nil {
		return present.View{}, 0, err
	}
	s.log.InfoContext(ctx, "query submitted", slog.String("query", query), slog.String("outcome", outcome.String()))
	return v, outcome, nil
}

// Await blocks until the presenter is displaying a result.
func (s *Session) Await(ctx context.Context) (present.View, error) {
	ch := make(chan present.View, 1)
	err := s.do(ctx, func() {
		if s.pres.State() == present.Displaying {
			ch <- s.pres.View()
			return
		}
		s.waiters = append(s.waiters, ch)
	})
	if err != nil {
		return present.View{}, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-s.done:
		return present.View{}, ErrClosed
	case <-ctx.Done():
		return present.View{}, ctx.Err()
	}
}

// Query submits query and waits for its result.
func (s *Session) Query(ctx context.Context, query string) (present.View, error) {
	if _, _, err := s.Submit(ctx, query); err != nil {
		return present.View{}, err
	}
	return s.Await(ctx)
}

func (s *Session) View(ctx context.Context) (present.View, error) {
	var v present.View
	if err := s.do(ctx, func() { v = s.pres.View() }); err != nil {
		return present.View{}, err
	}
	return v, nil
}

func (s *Session) Select(ctx context.Context, pos int) (present.Navigation, error) {
	var (
		nav    present.Navigation
		selErr error
	)
	if err := s.do(ctx, func() { nav, selErr = s.pres.Select(pos) }); err != nil {
		return present.Navigation{}, err
	}
	return nav, selErr
}

// Close stops the loop, resets the presenter and cancels the fetch in flight.
// It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
	s.disp.Close()
}
