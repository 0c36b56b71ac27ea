package present

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerenn/dictd/internal/dict"
)

func TestPresenter_Lifecycle(t *testing.T) {
	p := New()
	assert.Equal(t, Idle, p.State())

	p.Begin("cat")
	v := p.View()
	assert.Equal(t, Loading, v.State)
	assert.Equal(t, "cat", v.Query)

	p.OnFetchComplete("cat", []dict.Entry{{ID: "1", Word: "cat", Definition: "a feline"}})
	v = p.View()
	assert.Equal(t, Displaying, v.State)
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, `1 result for "cat"`, v.Message)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "a feline", v.Rows[0].Definition)

	p.Begin("dog")
	assert.Equal(t, Loading, p.State())

	p.Reset()
	v = p.View()
	assert.Equal(t, Idle, v.State)
	assert.Zero(t, v.Count)
	assert.Empty(t, v.Rows)
}

func TestPresenter_Messages(t *testing.T) {
	cases := []struct {
		name  string
		query string
		rows  []dict.Entry
		count int
		want  string
	}{
		{name: "absent", query: "xyzzy", rows: nil, want: `No results found for "xyzzy"`},
		{name: "zero rows", query: "", rows: []dict.Entry{}, want: `0 results for ""`},
		{name: "one", query: "cat", rows: make([]dict.Entry, 1), count: 1, want: `1 result for "cat"`},
		{name: "many", query: "ca", rows: make([]dict.Entry, 3), count: 3, want: `3 results for "ca"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New()
			p.Begin(tc.query)
			p.OnFetchComplete(tc.query, tc.rows)
			v := p.View()
			assert.Equal(t, Displaying, v.State)
			assert.Equal(t, tc.count, v.Count)
			assert.Equal(t, tc.want, v.Message)
		})
	}
}

func TestPresenter_AbsentClearsRows(t *testing.T) {
	p := New()
	p.OnFetchComplete("cat", []dict.Entry{{ID: "1", Word: "cat"}})
	p.OnFetchComplete("xyzzy", nil)
	v := p.View()
	assert.Zero(t, v.Count)
	assert.Empty(t, v.Rows)
	_, err := p.Select(0)
	assert.ErrorIs(t, err, dict.ErrValidation)
}

func TestPresenter_Select(t *testing.T) {
	p := New()
	p.OnFetchComplete("ca", []dict.Entry{
		{ID: "a:0", Word: "cat"},
		{ID: "a:1", Word: "catalog"},
	})

	nav, err := p.Select(1)
	require.NoError(t, err)
	assert.Equal(t, Navigation{ID: "a:1", Word: "catalog"}, nav)

	for _, pos := range []int{-1, 2} {
		_, err := p.Select(pos)
		assert.ErrorIs(t, err, dict.ErrValidation)
	}
}

func TestView_IsSnapshot(t *testing.T) {
	p := New()
	rows := []dict.Entry{{ID: "a:0", Word: "cat"}}
	p.OnFetchComplete("cat", rows)
	v := p.View()
	v.Rows[0].Word = "dog"
	assert.Equal(t, "cat", p.View().Rows[0].Word)
}

func TestView_JSON(t *testing.T) {
	p := New()
	p.Begin("cat")
	b, err := json.Marshal(p.View())
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"loading","query":"cat","count":0,"rows":[]}`, string(b))
}

func TestCatalogMessages(t *testing.T) {
	assert.Equal(t, `1 result for "cat"`, countMessage(1, "cat"))
	assert.Equal(t, `2 results for "cat"`, countMessage(2, "cat"))
	assert.Equal(t, `No results found for "cat"`, noResultsMessage("cat"))
}
