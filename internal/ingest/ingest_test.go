package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "list.pdf"))
	touch(t, filepath.Join(root, "CHANGE_OF_NAME", "names.xlsx"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".cache", "old.pdf"))
	touch(t, filepath.Join(root, "broken.PDF"))

	var seen []string
	results, stats, err := ScanDirectory(context.Background(), root, true, func(_ context.Context, path string) error {
		seen = append(seen, filepath.Base(path))
		if filepath.Base(path) == "broken.PDF" {
			return errors.New("unreadable")
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, []string{"broken.PDF", "list.pdf", "names.xlsx"}, seen)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 3)
}

func TestScanDirectoryRequiresRoot(t *testing.T) {
	_, _, err := ScanDirectory(context.Background(), " ", false, nil)
	assert.Error(t, err)
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("xlsx"))
	assert.True(t, AllowedExt(".xls"))
	assert.False(t, AllowedExt(".docx"))
	assert.False(t, AllowedExt(""))
}

func TestWatcherInitialScanAndCreate(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(5 * time.Second):
			t.Fatal("no watcher event")
			return ""
		}
	}
	assert.Equal(t, "existing.pdf", next())

	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, filepath.Join(root, "new.pdf"))
	assert.Equal(t, "new.pdf", next())

	cancel()
	for range events {
	}
}

func TestWatcherNeedsRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
