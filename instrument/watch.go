package instrument

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnolang/gotoinstr/internal/types"
)

// Watcher reruns an engine on model files as they are written.
type Watcher struct {
	engine   Runner
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	onIssues func(path string, issues []tt.Issue)

	// Debounce is the quiet period after a write before the file is
	// processed, so that bursts of writes are handled once.
	Debounce time.Duration

	files   map[string]bool
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches paths, which may be model files or directories. Every
// directory below a watched directory is watched as well.
func NewWatcher(engine Runner, logger *zap.Logger, paths []string, onIssues func(string, []tt.Issue)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		engine:   engine,
		logger:   logger,
		watcher:  fw,
		onIssues: onIssues,
		Debounce: 100 * time.Millisecond,
		files:    make(map[string]bool),
		pending:  make(map[string]*time.Timer),
	}
	for _, path := range paths {
		if err := w.add(path); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if path == root {
			w.files[filepath.Clean(path)] = true
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding %s to watcher: %w", root, err)
	}
	return nil
}

// Run processes events until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch events dropped", zap.Error(err))
				continue
			}
			_ = w.watcher.Close()
			return err
		}
	}
}

func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !IsModelFile(event.Name) && !w.files[filepath.Clean(event.Name)] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[event.Name]; ok {
		t.Stop()
	}
	name := event.Name
	w.pending[name] = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		w.process(name)
	})
}

func (w *Watcher) process(path string) {
	issues, err := w.engine.Run(path)
	if err != nil {
		w.logger.Error("Error processing file", zap.String("file", path), zap.Error(err))
		return
	}
	w.logger.Info("processed model", zap.String("file", path), zap.Int("issues", len(issues)))
	if w.onIssues != nil {
		w.onIssues(path, issues)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
}
