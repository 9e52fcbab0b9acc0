package verify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDelay groups the writes of one save into a single rerun.
const DefaultWatchDelay = 100 * time.Millisecond

// Watcher reports the package directories whose Go files change.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	// Delay is how long the watcher waits for further changes before
	// reporting.
	Delay time.Duration
}

// NewWatcher watches every directory of dirs, subdirectories included.
func NewWatcher(dirs []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return &Watcher{watcher: fw, logger: logger, Delay: DefaultWatchDelay}, nil
}

// Run calls onChange with the sorted directories changed since the last
// call, until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, onChange func(dirs []string)) error {
	defer w.watcher.Close()

	changed := make(map[string]bool)
	timer := time.NewTimer(w.Delay)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.watchTree(event.Name, changed) {
						timer.Reset(w.Delay)
					}
					continue
				}
			}
			if !isSourceChange(event) {
				continue
			}
			w.logger.Debug("source changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			changed[filepath.Dir(event.Name)] = true
			timer.Reset(w.Delay)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		case <-timer.C:
			dirs := make([]string, 0, len(changed))
			for dir := range changed {
				dirs = append(dirs, dir)
			}
			sort.Strings(dirs)
			changed = make(map[string]bool)
			onChange(dirs)
		}
	}
}

// watchTree watches a directory created while running. Go files already
// written below it mark their directories as changed; it reports whether
// there were any.
func (w *Watcher) watchTree(root string, changed map[string]bool) bool {
	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.logger.Debug("watching new directory", zap.String("dir", path))
			return w.watcher.Add(path)
		}
		if strings.HasSuffix(path, ".go") {
			changed[filepath.Dir(path)] = true
			found = true
		}
		return nil
	})
	if err != nil {
		w.logger.Error("error adding directory to watcher", zap.String("dir", root), zap.Error(err))
	}
	return found
}

func isSourceChange(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".go") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
