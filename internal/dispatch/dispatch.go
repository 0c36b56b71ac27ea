// Package dispatch runs at most one background fetch per owner and decides,
// for every submitted query, whether to start a new fetch or reattach to the
// one already tracked.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/observability"
)

type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]dict.Entry, error)
}

type FetcherFunc func(ctx context.Context, query string) ([]dict.Entry, error)

func (f FetcherFunc) Fetch(ctx context.Context, query string) ([]dict.Entry, error) {
	return f(ctx, query)
}

// Result is one fetch completion. Rows is nil when the result is absent,
// either because nothing matched or because the store failed (Err is set).
type Result struct {
	Seq   uint64
	Query string
	Rows  []dict.Entry
	Err   error
}

func (r Result) Absent() bool {
	return r.Rows == nil
}

type Outcome int

const (
	// Started means a new fetch was initialized for the query.
	Started Outcome = iota
	// Reattached means the tracked fetch for the same query is still running.
	Reattached
	// Redelivered means the tracked fetch had finished and its result was
	// queued for delivery again.
	Redelivered
	// Rejected means the dispatcher is closed.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Reattached:
		return "reattached"
	case Redelivered:
		return "redelivered"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type fetch struct {
	seq    uint64
	query  string
	cancel context.CancelFunc
	done   bool
	result Result
}

// Dispatcher tracks exactly one fetch. Completions are sent on the channel
// given to New; the owner reading that channel must check Current before
// acting on a result.
type Dispatcher struct {
	fetcher Fetcher
	log     *slog.Logger
	out     chan<- Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	seq    uint64
	cur    *fetch
	closed bool
}

func New(fetcher Fetcher, out chan<- Result, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		fetcher: fetcher,
		log:     logger.With("component", "dispatch"),
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts a fetch for query unless the tracked fetch is for the same
// query (compared case-insensitively). A different query supersedes the
// tracked fetch; its completion is never delivered.
func (d *Dispatcher) Submit(query string) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Rejected
	}

	if f := d.cur; f != nil && dict.EqualFold(f.query, query) {
		if !f.done {
			d.log.Debug("reattaching to existing fetch", slog.String("query", f.query), slog.Uint64("seq", f.seq))
			observability.FetchesReattached.Add(1)
			return Reattached
		}
		d.log.Debug("reattaching to finished fetch", slog.String("query", f.query), slog.Uint64("seq", f.seq))
		observability.FetchesReattached.Add(1)
		d.deliver(f.result)
		return Redelivered
	}

	if f := d.cur; f != nil && !f.done {
		f.cancel()
		observability.FetchesSuperseded.Add(1)
		d.log.Debug("superseding fetch", slog.String("query", f.query), slog.Uint64("seq", f.seq))
	}

	d.seq++
	ctx, cancel := context.WithCancel(d.ctx)
	f := &fetch{seq: d.seq, query: query, cancel: cancel}
	d.cur = f
	observability.FetchesStarted.Add(1)
	d.log.Debug("initializing new fetch", slog.String("query", query), slog.Uint64("seq", f.seq))

	d.wg.Add(1)
	go d.run(ctx, f)
	return Started
}

func (d *Dispatcher) run(ctx context.Context, f *fetch) {
	defer d.wg.Done()
	defer f.cancel()

	rows, err := d.fetcher.Fetch(ctx, f.query)

	d.mu.Lock()
	if d.cur != f {
		d.mu.Unlock()
		d.log.Debug("discarding superseded fetch", slog.String("query", f.query), slog.Uint64("seq", f.seq))
		return
	}
	res := Result{Seq: f.seq, Query: f.query, Rows: rows, Err: err}
	if err != nil {
		observability.FetchesFailed.Add(1)
		d.log.Error("fetch failed",
			slog.String("query", f.query),
			slog.Uint64("seq", f.seq),
			slog.String("error", err.Error()),
		)
		res.Rows = nil
	}
	f.done = true
	f.result = res
	d.deliver(res)
	d.mu.Unlock()

	if res.Absent() {
		d.log.Debug("result is absent", slog.String("query", f.query), slog.Uint64("seq", f.seq))
	} else {
		d.log.Debug("fetch finished", slog.String("query", f.query), slog.Uint64("seq", f.seq), slog.Int("rows", len(res.Rows)))
	}
}

// deliver sends res on its own goroutine so that neither Submit, which the
// owner calls from its read loop, nor a fetch holding d.mu blocks on the
// channel. Callers hold d.mu.
func (d *Dispatcher) deliver(res Result) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case d.out <- res:
		case <-d.ctx.Done():
		}
	}()
}

// Current reports whether res belongs to the fetch currently tracked.
func (d *Dispatcher) Current(res Result) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur != nil && d.cur.seq == res.Seq
}

// Query returns the tracked query and whether there is one.
func (d *Dispatcher) Query() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil {
		return "", false
	}
	return d.cur.query, true
}

// Close cancels the tracked fetch and waits for every fetch goroutine to
// return. Pending deliveries are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cur = nil
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
