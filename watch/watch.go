// Package watch triggers scans when audio files appear in a folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the folder must be quiet before a scan is triggered.
const DefaultDebounce = 3 * time.Second

var (
	// ErrFolderRequired is returned when no folder is given.
	ErrFolderRequired = errors.New("watch folder required")

	// ErrTriggerRequired is returned when no trigger is given.
	ErrTriggerRequired = errors.New("scan trigger required")

	// ErrBusy is returned by a Trigger that could not start because another
	// scan is still running. The watcher retries after the debounce interval.
	ErrBusy = errors.New("scanner busy")
)

// Trigger starts a scan. An error means the scan was not started; it is
// logged. Errors wrapping ErrBusy re-arm the trigger, any other error waits
// for the next change.
type Trigger func(ctx context.Context) error

// Watcher watches a folder and calls a Trigger after changes settle.
type Watcher struct {
	folder     string
	trigger    Trigger
	debounce   time.Duration
	settle     time.Duration
	filter     func(name string) bool
	initialRun bool
	logger     *slog.Logger

	mu        sync.Mutex
	debounceT *time.Timer
	settleT   *time.Timer
	retryT    *time.Timer
	triggers  int
	rejected  int
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithDebounce sets the quiet period before a scan is triggered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			return fmt.Errorf("invalid debounce %s", d)
		}
		w.debounce = d
		return nil
	}
}

// WithSettle schedules a second scan d after the last change, so files that
// were still being written at the first scan are picked up. Zero disables it.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			d = 0
		}
		w.settle = d
		return nil
	}
}

// WithFilter restricts which file names cause a scan.
func WithFilter(filter func(name string) bool) Option {
	return func(w *Watcher) error {
		w.filter = filter
		return nil
	}
}

// WithInitialRun triggers a scan as soon as Run starts.
func WithInitialRun(enabled bool) Option {
	return func(w *Watcher) error {
		w.initialRun = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) error {
		if logger != nil {
			w.logger = logger
		}
		return nil
	}
}

// New creates a Watcher for folder.
func New(folder string, trigger Trigger, opts ...Option) (*Watcher, error) {
	if folder == "" {
		return nil, ErrFolderRequired
	}
	if trigger == nil {
		return nil, ErrTriggerRequired
	}
	w := &Watcher{
		folder:   folder,
		trigger:  trigger,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "watch", "folder", folder)
	return w, nil
}

// Run watches until ctx is done. It returns an error only when the folder
// cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.folder); err != nil {
		return fmt.Errorf("watch %s: %w", w.folder, err)
	}
	defer w.stopTimers()

	w.logger.Info("watching for recordings", "debounce", w.debounce, "settle", w.settle)
	if w.initialRun {
		w.fire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "file", filepath.Base(event.Name), "op", event.Op.String())
			w.schedule(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Stats returns how many scans were triggered and how many of those were rejected.
func (w *Watcher) Stats() (triggered, rejected int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggers, w.rejected
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.filter != nil && !w.filter(filepath.Base(event.Name)) {
		return false
	}
	return true
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceT != nil {
		w.debounceT.Stop()
	}
	w.debounceT = time.AfterFunc(w.debounce, func() { w.fire(ctx) })

	if w.settle > 0 {
		if w.settleT != nil {
			w.settleT.Stop()
		}
		w.settleT = time.AfterFunc(w.settle, func() { w.fire(ctx) })
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := w.trigger(ctx)

	w.mu.Lock()
	w.triggers++
	if err != nil {
		w.rejected++
	}
	w.mu.Unlock()

	if errors.Is(err, ErrBusy) {
		w.logger.Debug("scan deferred", "err", err, "retry", w.debounce)
		w.retry(ctx)
		return
	}
	if err != nil {
		w.logger.Info("scan not started", "err", err)
		return
	}
	w.logger.Debug("scan triggered")
}

func (w *Watcher) retry(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if w.retryT != nil {
		w.retryT.Stop()
	}
	w.retryT = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceT != nil {
		w.debounceT.Stop()
	}
	if w.settleT != nil {
		w.settleT.Stop()
	}
	if w.retryT != nil {
		w.retryT.Stop()
	}
}
