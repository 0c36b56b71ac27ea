package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/observability"
)

// gatedFetcher blocks every fetch until its query is released.
type gatedFetcher struct {
	mu           sync.Mutex
	calls        []string
	gates        map[string]chan struct{}
	rows         map[string][]dict.Entry
	started      chan string
	ignoreCancel bool
}

func newGatedFetcher(rows map[string][]dict.Entry) *gatedFetcher {
	return &gatedFetcher{
		gates:   make(map[string]chan struct{}),
		rows:    rows,
		started: make(chan string, 16),
	}
}

func (g *gatedFetcher) gate(query string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[query]
	if !ok {
		ch = make(chan struct{})
		g.gates[query] = ch
	}
	return ch
}

func (g *gatedFetcher) release(query string) {
	close(g.gate(query))
}

func (g *gatedFetcher) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *gatedFetcher) Fetch(ctx context.Context, query string) ([]dict.Entry, error) {
	g.mu.Lock()
	g.calls = append(g.calls, query)
	g.mu.Unlock()
	g.started <- query

	if g.ignoreCancel {
		<-g.gate(query)
		return g.rows[query], nil
	}
	select {
	case <-g.gate(query):
		return g.rows[query], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitStarted(t *testing.T, g *gatedFetcher, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %q never started", want)
	}
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

func assertSilent(t *testing.T, ch <-chan Result) {
	t.Helper()
	select {
	case res := <-ch:
		t.Fatalf("unexpected delivery for %q", res.Query)
	case <-time.After(100 * time.Millisecond):
	}
}

var catRows = []dict.Entry{{ID: "1", Word: "cat", Definition: "a feline"}}

func TestSubmit_SameQueryFetchesOnce(t *testing.T) {
	g := newGatedFetcher(map[string][]dict.Entry{"cat": catRows})
	out := make(chan Result)
	d := New(g, out, observability.Discard().Logger)
	defer d.Close()

	assert.Equal(t, Started, d.Submit("cat"))
	waitStarted(t, g, "cat")
	assert.Equal(t, Reattached, d.Submit("CAT"))

	g.release("cat")
	first := receive(t, out)
	assert.Equal(t, catRows, first.Rows)
	assert.Equal(t, "cat", first.Query)
	assert.True(t, d.Current(first))
	assertSilent(t, out)

	assert.Equal(t, Redelivered, d.Submit("cat"))
	again := receive(t, out)
	assert.Equal(t, first, again)
	assert.Equal(t, []string{"cat"}, g.Calls())

	q, ok := d.Query()
	assert.True(t, ok)
	assert.Equal(t, "cat", q)
}

func TestSubmit_SupersededFetchNeverDelivers(t *testing.T) {
	g := newGatedFetcher(map[string][]dict.Entry{
		"cat": catRows,
		"dog": {{ID: "2", Word: "dog", Definition: "a canine"}},
	})
	g.ignoreCancel = true
	out := make(chan Result)
	d := New(g, out, observability.Discard().Logger)
	defer d.Close()

	require.Equal(t, Started, d.Submit("cat"))
	waitStarted(t, g, "cat")
	require.Equal(t, Started, d.Submit("dog"))
	waitStarted(t, g, "dog")

	g.release("dog")
	res := receive(t, out)
	assert.Equal(t, "dog", res.Query)
	assert.True(t, d.Current(res))

	g.release("cat")
	assertSilent(t, out)
	assert.False(t, d.Current(Result{Seq: 1, Query: "cat"}))
	assert.Equal(t, []string{"cat", "dog"}, g.Calls())
}

func TestSubmit_SupersededFetchIsCanceled(t *testing.T) {
	canceled := make(chan struct{})
	out := make(chan Result)
	d := New(FetcherFunc(func(ctx context.Context, query string) ([]dict.Entry, error) {
		if query == "cat" {
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		}
		return []dict.Entry{}, nil
	}), out, observability.Discard().Logger)
	defer d.Close()

	d.Submit("cat")
	d.Submit("dog")

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch kept running")
	}
	res := receive(t, out)
	assert.Equal(t, "dog", res.Query)
	assert.False(t, res.Absent())
	assert.Empty(t, res.Rows)
}

func TestSubmit_StoreErrorIsAbsent(t *testing.T) {
	out := make(chan Result)
	d := New(FetcherFunc(func(context.Context, string) ([]dict.Entry, error) {
		return []dict.Entry{{Word: "partial"}}, errors.New("disk on fire")
	}), out, observability.Discard().Logger)
	defer d.Close()

	d.Submit("cat")
	res := receive(t, out)
	assert.True(t, res.Absent())
	assert.EqualError(t, res.Err, "disk on fire")
}

func TestSubmit_EmptyQuery(t *testing.T) {
	out := make(chan Result)
	d := New(FetcherFunc(func(_ context.Context, q string) ([]dict.Entry, error) {
		return []dict.Entry{}, nil
	}), out, observability.Discard().Logger)
	defer d.Close()

	_, ok := d.Query()
	assert.False(t, ok)

	assert.Equal(t, Started, d.Submit(""))
	res := receive(t, out)
	assert.Equal(t, "", res.Query)
	assert.NotNil(t, res.Rows)

	q, ok := d.Query()
	assert.True(t, ok)
	assert.Equal(t, "", q)
}

func TestClose(t *testing.T) {
	g := newGatedFetcher(nil)
	out := make(chan Result)
	d := New(g, out, observability.Discard().Logger)

	d.Submit("cat")
	waitStarted(t, g, "cat")

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	assert.Equal(t, Rejected, d.Submit("dog"))
	assertSilent(t, out)
	d.Close()
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "reattached", Reattached.String())
	assert.Equal(t, "redelivered", Redelivered.String())
	assert.Equal(t, "rejected", Rejected.String())
}

func TestSubmit_WhitespaceIsSignificant(t *testing.T) {
	g := newGatedFetcher(map[string][]dict.Entry{"cat": catRows, "cat ": catRows})
	out := make(chan Result)
	d := New(g, out, observability.Discard().Logger)
	defer d.Close()

	assert.Equal(t, Started, d.Submit("cat"))
	waitStarted(t, g, "cat")
	assert.Equal(t, Started, d.Submit("cat "))
	waitStarted(t, g, "cat ")

	g.release("cat ")
	res := receive(t, out)
	assert.Equal(t, "cat ", res.Query)
	assert.True(t, d.Current(res))
}
