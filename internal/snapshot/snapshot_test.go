package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int `json:"count"`
}

func TestWriter_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	w := NewWriter(path)

	require.NoError(t, w.Write(payload{Count: 1}))
	require.NoError(t, w.Write(payload{Count: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got payload
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, 2, got.Count)
}

func TestWriter_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "metrics.json"))
	require.NoError(t, w.Write(payload{Count: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "metrics.json", entries[0].Name())
}
