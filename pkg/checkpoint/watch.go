package checkpoint

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch reports every new sidecar file created under the store's
// checkpoints directory until ctx is cancelled, letting a `/restore`
// command's tab-completion (or similar UI) stay current without polling
// the directory itself.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: mkdir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: new watcher: %w", err)
	}
	if err := watcher.Add(s.dir()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("checkpoint: watch %s: %w", s.dir(), err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
					continue
				}
				if !strings.HasSuffix(evt.Name, ".json") {
					continue
				}
				select {
				case out <- evt.Name:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
