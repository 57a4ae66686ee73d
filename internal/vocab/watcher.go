package vocab

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"craftfolio/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the vocabulary file when it changes on disk, swapping the
// new vocabulary into a Provider. Rapid editor saves are debounced.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	provider *Provider
	path     string
	debounce time.Duration
	lastLoad time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the given vocabulary file.
func NewWatcher(path string, provider *Provider) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		provider: provider,
		path:     path,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine
// until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would be lost.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			if time.Since(w.lastLoad) < w.debounce {
				w.mu.Unlock()
				continue
			}
			w.lastLoad = time.Now()
			w.mu.Unlock()

			v, err := Load(w.path)
			if err != nil {
				logging.Vocab("reload of %s failed, keeping previous vocabulary: %v", w.path, err)
				continue
			}
			w.provider.Replace(v)
			logging.Vocab("vocabulary reloaded from %s (%d types, %d materials, %d techniques)",
				w.path, len(v.ProjectTypes), len(v.Materials), len(v.Techniques))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Vocab("watch error: %v", err)
		}
	}
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	_ = w.watcher.Close()
	<-w.doneCh
}
