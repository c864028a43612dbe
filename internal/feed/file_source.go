package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

const watchDebounce = 200 * time.Millisecond

// FileSource reads the snapshot document from a local file, e.g. one synced
// by an external job. It can watch the file and report changes.
type FileSource struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	mu        sync.Mutex
}

// NewFileSource creates a source for the JSON file at path.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, errors.New("feed file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	return &FileSource{path: path, dir: dir, base: base, validator: validator.New()}, nil
}

// Fetch implements Source. A missing or unreadable file counts as a transport failure.
func (s *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open snapshot file: %w", model.ErrTransport, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSnapshotBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot file: %w", model.ErrTransport, err)
	}

	return decodeSnapshot(data, s.validator)
}

// Watch listens for changes to the snapshot file and calls onChange after debounce.
// It watches the parent directory (not the file) so atomic replace sequences (temp+rename)
// are still observed. Events are filtered by basename and debounced to avoid double
// refreshes on write+chmod/rename cycles. Cancel ctx to stop the goroutine and close
// the watcher.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	log := logger.WithComponent("feed")
	log.Debugf("watching %s for snapshot changes", s.path)

	go func() {
		defer watcher.Close()

		// If the timer is stopped before it fires, the scheduled onChange will not run.
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != s.base {
					continue
				}
				// Remove/Rename means the file is being replaced; the refresh falls back to cache if it is gone.
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Tracef("snapshot file event: %s", event.Op)
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
