package daemon

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/neozepron/dmOverlay/internal/config"
)

// ConfigWatcher reloads the daemon config when the file changes. A change
// that fails validation keeps the previous config and reports the error.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath string
	watcher    *fsnotify.Watcher
	current    *config.DaemonConfig

	onReload func(newConfig *config.DaemonConfig)
	onError  func(err error)

	done    chan struct{}
	running bool
}

// NewConfigWatcher creates a watcher for the given config path, or the
// default location when empty.
func NewConfigWatcher(configPath string, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if configPath == "" {
		var err error
		configPath, err = config.DaemonConfigPath()
		if err != nil {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ConfigWatcher{
		logger:     logger,
		configPath: configPath,
		watcher:    watcher,
		done:       make(chan struct{}),
	}, nil
}

// SetReloadCallback sets the callback invoked with each valid new config.
func (w *ConfigWatcher) SetReloadCallback(cb func(*config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = cb
}

// SetErrorCallback sets the callback invoked when a changed config fails
// to load or validate.
func (w *ConfigWatcher) SetErrorCallback(cb func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = cb
}

// Current returns the last valid configuration.
func (w *ConfigWatcher) Current() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching. Watches the containing directory, which survives
// editors that replace the file on save.
func (w *ConfigWatcher) Start(initial *config.DaemonConfig) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.current = initial
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}

	go w.watch()

	w.logger.Debug("config watcher started", "path", w.configPath)
	return nil
}

func (w *ConfigWatcher) watch() {
	filename := filepath.Base(w.configPath)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filename {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *ConfigWatcher) reload() {
	newConfig, err := config.LoadDaemonConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but failed to load", "error", err)
		w.mu.RLock()
		cb := w.onError
		w.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
		return
	}

	w.mu.Lock()
	w.current = newConfig
	cb := w.onReload
	w.mu.Unlock()

	w.logger.Info("config reloaded")
	if cb != nil {
		cb(newConfig)
	}
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.done)
	_ = w.watcher.Close()
	w.logger.Debug("config watcher stopped")
}
