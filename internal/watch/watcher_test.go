package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteTriggersCallback(t *testing.T) {
	root := t.TempDir()

	batches := make(chan []string, 1)
	w, err := New(root, 50*time.Millisecond, func(paths []string) {
		select {
		case batches <- paths:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("alpha"), 0600))

	select {
	case paths := <-batches:
		require.NotEmpty(t, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestDebounceBatchesEvents(t *testing.T) {
	root := t.TempDir()

	batches := make(chan []string, 4)
	w, err := New(root, 200*time.Millisecond, func(paths []string) {
		batches <- paths
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Two writes in quick succession should land in one batch.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("b"), 0600))

	select {
	case paths := <-batches:
		require.GreaterOrEqual(t, len(paths), 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestMissingRootFailsStart(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), time.Millisecond, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	require.Error(t, w.Start(context.Background()))
}
