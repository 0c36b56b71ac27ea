package indexcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Words []string
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSaveLoad(t *testing.T) {
	src := writeSource(t, "cat\ta feline\n")
	require.NoError(t, Save("tsv", []string{src}, true, &payload{Words: []string{"cat"}}))

	got, ok, err := Load[payload]("tsv", []string{src}, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"cat"}, got.Words)
}

func TestLoad_Miss(t *testing.T) {
	src := writeSource(t, "cat\ta feline\n")

	_, ok, err := Load[payload]("tsv", []string{src}, true)
	require.NoError(t, err)
	assert.False(t, ok, "no cache written yet")

	require.NoError(t, Save("tsv", []string{src}, true, &payload{Words: []string{"cat"}}))

	_, ok, _ = Load[payload]("tsv", []string{src}, false)
	assert.False(t, ok, "case folding mode differs")

	_, ok, _ = Load[payload]("json", []string{src}, true)
	assert.False(t, ok, "kind differs")

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))
	_, ok, _ = Load[payload]("tsv", []string{src}, true)
	assert.False(t, ok, "source modified")
}

func TestNoSources(t *testing.T) {
	_, _, err := Load[payload]("tsv", nil, true)
	assert.Error(t, err)
	assert.Error(t, Save("tsv", nil, true, &payload{}))
}
