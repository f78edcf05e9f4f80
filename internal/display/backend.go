// Package display renders overlay windows with GTK4 and wlr layer-shell.
package display

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/neozepron/dmOverlay/internal/config"
	"github.com/neozepron/dmOverlay/internal/overlay"
)

// Backend constructs GTK overlay windows. It holds the application handle
// the windows attach to.
type Backend struct {
	app    *gtk.Application
	cfg    *config.DaemonConfig
	logger *slog.Logger
}

// NewBackend creates a Backend.
func NewBackend(app *gtk.Application, cfg *config.DaemonConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{app: app, cfg: cfg, logger: logger}
}

// Factory returns the surface factory the overlay registry consumes.
func (b *Backend) Factory() overlay.SurfaceFactory {
	return func(conv overlay.Conversation, bridge *overlay.Bridge) (overlay.Surface, error) {
		return NewWindow(b.app, conv, bridge, b.cfg, b.logger)
	}
}

// UpdateConfig swaps the config used for windows created from now on.
func (b *Backend) UpdateConfig(cfg *config.DaemonConfig) {
	b.cfg = cfg
}

// colorSchemeClass returns "dark" or "light" from the libadwaita style
// manager.
func colorSchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}

var avatarClient = &http.Client{Timeout: 10 * time.Second}

// loadAvatar fetches the avatar image in the background and swaps it into
// the widget once cached locally. Failures leave the placeholder icon.
func loadAvatar(img *gtk.Image, url string, logger *slog.Logger) {
	if url == "" {
		return
	}

	go func() {
		path, err := fetchAvatar(url)
		if err != nil {
			logger.Debug("avatar fetch failed", "url", url, "error", err)
			return
		}
		glib.IdleAdd(func() {
			img.SetFromFile(path)
		})
	}()
}

// fetchAvatar downloads the avatar to the user cache, keyed by URL hash.
// Subsequent conversations with the same author hit the cache.
func fetchAvatar(url string) (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	dir := filepath.Join(cacheDir, "dmoverlay", "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar cache: %w", err)
	}

	sum := sha1.Sum([]byte(url))
	path := filepath.Join(dir, hex.EncodeToString(sum[:]))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	resp, err := avatarClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar fetch returned %s", resp.Status)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close avatar file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move avatar into cache: %w", err)
	}
	return path, nil
}
