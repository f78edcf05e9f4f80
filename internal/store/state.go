// Package store persists the small amount of daemon state that survives
// restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neozepron/dmOverlay/internal/overlay"
)

// StateVersion is the schema version written to the state file.
const StateVersion = 1

// State is the persisted daemon state. One JSON file, overwritten
// wholesale on every save.
type State struct {
	Version        int               `json:"version"`
	LastDraggedPos *overlay.Position `json:"lastDraggedPos"`
	SavedAt        int64             `json:"savedAt"`
}

// DefaultState returns an empty state with the current schema version.
func DefaultState() State {
	return State{Version: StateVersion}
}

// DataDir returns the daemon's data directory, honoring XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dmoverlay"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "dmoverlay"), nil
}

// StatePath returns the default state file location.
func StatePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// Load reads the state file. A missing, unreadable, or malformed file is
// not an error; it just means no prior state.
func Load(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultState()
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultState()
	}
	if s.Version != StateVersion {
		return DefaultState()
	}
	return s
}

// Save writes the state file atomically via a temp file rename, stamping
// SavedAt with the current time.
func Save(path string, s State) error {
	s.Version = StateVersion
	s.SavedAt = time.Now().UnixMilli()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
