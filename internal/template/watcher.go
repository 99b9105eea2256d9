package template

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Watcher feeds filesystem changes in the templates directory back into
// catalog reconciliation. Without it the catalog still converges on the
// next listing; the watcher just shortens the window in which a
// hand-edited or deleted Jenkinsfile is out of sync with the store.
type Watcher struct {
	mu sync.Mutex

	templatesDir     string
	store            api.MetadataStoreHandler
	watcher          *fsnotify.Watcher
	debounceInterval time.Duration
	pending          *time.Timer
	stopCh           chan struct{}
	running          bool
}

// NewWatcher creates a watcher over templatesDir. A zero
// debounceInterval selects the 500ms default.
func NewWatcher(templatesDir string, store api.MetadataStoreHandler, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &Watcher{
		templatesDir:     templatesDir,
		store:            store,
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching the templates directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(w.templatesDir, 0755); err != nil {
		w.mu.Unlock()
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.templatesDir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx)

	logging.Info("TemplateWatcher", "Started watching %s for Jenkinsfile changes", w.templatesDir)
	return nil
}

// processEvents drains fsnotify events until shutdown.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return

		case <-w.stopCh:
			w.cancelPending()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("TemplateWatcher", err, "Filesystem watcher error")
		}
	}
}

// handleFsEvent schedules a reconciliation for relevant events. Rapid
// successive changes (editors write, chmod, rename) collapse into one
// reconciliation per debounce window.
func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	if !isTemplateFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("TemplateWatcher", "Change detected: %s %s", event.Op, filepath.Base(event.Name))

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceInterval, func() {
		w.reconcile(ctx)
	})
}

// reconcile pushes the current directory state through the catalog.
// Listing is reconciling: the store compares its catalog with the
// templates directory and converges.
func (w *Watcher) reconcile(ctx context.Context) {
	templates, err := w.store.ListTemplates(ctx)
	if err != nil {
		logging.Error("TemplateWatcher", err, "Catalog reconciliation failed")
		return
	}
	logging.Debug("TemplateWatcher", "Reconciled catalog: %d templates", len(templates))
}

// cancelPending stops any scheduled reconciliation.
func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// Stop closes the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("TemplateWatcher", err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}

	logging.Info("TemplateWatcher", "Stopped template watcher")
	return nil
}

// isTemplateFile reports whether path names a Jenkinsfile template.
// Temp files from atomic writes start with a dot and are ignored.
func isTemplateFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, templateSuffix) && !strings.HasPrefix(base, ".")
}
