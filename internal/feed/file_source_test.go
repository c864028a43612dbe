package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassista/atlas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSource_EmptyPath(t *testing.T) {
	_, err := NewFileSource("")
	assert.Error(t, err)
}

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(validSnapshotJSON), 0644))

	src, err := NewFileSource(path)
	require.NoError(t, err)

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Partners(), 2)
}

func TestFileSource_Fetch_MissingFileIsTransport(t *testing.T) {
	src, _ := NewFileSource(filepath.Join(t.TempDir(), "missing.json"))

	_, err := src.Fetch(context.Background())
	assert.True(t, errors.Is(err, model.ErrTransport))
}

func TestFileSource_Fetch_InvalidJSONIsDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0644))

	src, _ := NewFileSource(path)
	_, err := src.Fetch(context.Background())
	assert.True(t, errors.Is(err, model.ErrDecode))
}

func TestFileSource_Fetch_OversizeIsDecode(t *testing.T) {
	setMaxSnapshotBytes(t, int64(len(validSnapshotJSON)))
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(validSnapshotJSON+"\n\n"), 0644))

	src, _ := NewFileSource(path)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDecode))
	assert.Contains(t, err.Error(), "too large")
}

func TestFileSource_Watch_NilCallback(t *testing.T) {
	src, _ := NewFileSource(filepath.Join(t.TempDir(), "snapshot.json"))
	assert.Error(t, src.Watch(context.Background(), nil))
}

func TestFileSource_Watch_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	src, _ := NewFileSource(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	require.NoError(t, src.Watch(ctx, func() { changed <- struct{}{} }))

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(path, []byte(validSnapshotJSON), 0644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected onChange after snapshot file write")
	}
}
