package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsChangedDirectories(t *testing.T) {
	t.Parallel()
	dir := writePackage(t, divSource)
	w, err := NewWatcher([]string{dir}, nil)
	require.NoError(t, err)
	w.Delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(dirs []string) {
			select {
			case changes <- dirs:
			default:
			}
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.go"), []byte(divSource+"\n"), 0o644))

	select {
	case dirs := <-changes:
		assert.Equal(t, []string{dir}, dirs)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()
	dir := writePackage(t, divSource)
	w, err := NewWatcher([]string{dir}, nil)
	require.NoError(t, err)
	w.Delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(dirs []string) {
			select {
			case changes <- dirs:
			default:
			}
		})
	}()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "sub.go"), []byte("package sub\n"), 0o644))

	select {
	case dirs := <-changes:
		assert.Equal(t, []string{sub}, dirs)
	case <-time.After(5 * time.Second):
		t.Fatal("new directory not reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewWatcherMissingDirectory(t *testing.T) {
	t.Parallel()
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	assert.ErrorContains(t, err, "error adding directory to watcher")
}

func TestIsSourceChange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "a.go", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "a.go", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "a.go", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "a.go", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isSourceChange(tt.event), tt.event.String())
	}
}
