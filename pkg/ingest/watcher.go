// Package ingest watches a hot folder and hands every new video file to a
// callback once the file has stopped growing.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
)

// Handler is called once per settled file. Calls are serialised.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Extensions []string
	// Debounce is how long a file must go without writes before it is
	// handed over.
	Debounce time.Duration
	// Existing also hands over files already present at start.
	Existing bool
}

// OptionsFrom reads the ingest section of cfg.
func OptionsFrom(cfg *config.Config) Options {
	if cfg == nil {
		cfg = config.Default()
	}
	return Options{
		Extensions: cfg.Ingest.Extensions,
		Debounce:   cfg.Ingest.Debounce.D(),
	}
}

// Watcher watches one directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	opts    Options
	handler Handler
	logger  *logrus.Entry

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]fileStamp
	ready   chan string
}

type fileStamp struct {
	size    int64
	modTime int64
}

// NewWatcher watches dir for video files.
func NewWatcher(dir string, opts Options, handler Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.InvalidInput("not a directory: " + dir)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultIngestDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = config.Default().Ingest.Extensions
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to watch directory").WithDetail("dir", dir)
	}

	return &Watcher{
		watcher: watcher,
		dir:     dir,
		opts:    opts,
		handler: handler,
		logger:  logging.NewLogger("ingest"),
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]fileStamp),
		ready:   make(chan string, 64),
	}, nil
}

// Start watches until ctx is cancelled. It closes the watcher on return.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.Close()

	if w.opts.Existing {
		entries, err := os.ReadDir(w.dir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					w.schedule(filepath.Join(w.dir, e.Name()))
				}
			}
		}
	}

	w.logger.WithField("dir", w.dir).Info("Watching for new videos")
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.cancel(event.Name)
			}

		case path := <-w.ready:
			w.handle(ctx, path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the watcher and pending timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range w.opts.Extensions {
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}

// schedule (re)starts the quiet-period timer of path.
func (w *Watcher) schedule(path string) {
	if !w.matches(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		default:
			w.logger.WithField("file", filepath.Base(path)).Warn("Ingest queue full, dropping file")
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// handle hands path over unless the same content was handled before.
func (w *Watcher) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime().UnixNano()}

	w.mu.Lock()
	if prev, ok := w.seen[path]; ok && prev == stamp {
		w.mu.Unlock()
		return
	}
	w.seen[path] = stamp
	w.mu.Unlock()

	log := w.logger.WithField("file", filepath.Base(path))
	log.Info("New video ready")
	if w.handler == nil {
		return
	}
	if err := w.handler(ctx, path); err != nil {
		log.WithError(err).Error("Ingest failed")
	}
}
