package policyfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/example/slaengine/internal/core/sla"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc receives the freshly loaded policies after a file change.
type ChangeFunc func(ctx context.Context, policies []*sla.Policy) error

// Watcher reloads a policy file when it changes on disk. The parent
// directory is watched so that atomic rename-on-save is seen.
type Watcher struct {
	path     string
	onChange ChangeFunc
	logger   *zap.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange ChangeFunc, logger *zap.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger.Named("policyfile"),
		debounce: DefaultDebounce,
	}
}

// Run blocks until ctx is cancelled. A file that fails to load is logged
// and the previously imported policies stay in effect.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching policy file", zap.String("path", w.path))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("policy file event", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	policies, err := Load(w.path)
	if err != nil {
		w.logger.Warn("policy file rejected", zap.Error(err))
		return
	}
	if err := w.onChange(ctx, policies); err != nil {
		w.logger.Error("policy import failed", zap.Error(err))
		return
	}
	w.logger.Info("policy file reloaded", zap.Int("policies", len(policies)))
}
