package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/observability"
)

func TestManager(t *testing.T) {
	ctx := testCtx(t)
	m := NewManager(newStore(t, dict.Entry{Word: "cat", Definition: "a feline"}), 10, time.Hour, observability.Discard().Logger)
	defer m.Close()

	s := m.Create()
	require.NotEmpty(t, s.ID())
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	v, err := got.Query(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Count)

	require.NoError(t, m.Delete(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(s.ID()), ErrNotFound)

	_, err = s.View(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_EvictsOldest(t *testing.T) {
	ctx := testCtx(t)
	m := NewManager(newStore(t), 1, time.Hour, observability.Discard().Logger)
	defer m.Close()

	first := m.Create()
	second := m.Create()

	_, err := m.Get(first.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	require.Eventually(t, func() bool {
		_, err := first.View(ctx)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	_, err = second.View(ctx)
	assert.NoError(t, err)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(newStore(t), 10, 20*time.Millisecond, observability.Discard().Logger)
	defer m.Close()

	s := m.Create()
	require.Eventually(t, func() bool {
		_, err := m.Get(s.ID())
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestManager_CloseClosesSessions(t *testing.T) {
	ctx := testCtx(t)
	m := NewManager(newStore(t), 10, time.Hour, observability.Discard().Logger)
	s := m.Create()
	m.Close()

	assert.Zero(t, m.Len())
	_, err := s.View(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_CloseAfterExpiry(t *testing.T) {
	ctx := testCtx(t)
	m := NewManager(newStore(t), 10, 20*time.Millisecond, observability.Discard().Logger)
	s := m.Create()
	time.Sleep(40 * time.Millisecond)

	require.NotPanics(t, m.Close)
	_, err := s.View(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
