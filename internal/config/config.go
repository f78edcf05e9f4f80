// Package config handles configuration file loading and parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable
// strings. Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Integer values are taken as milliseconds.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for dmoverlayd.
// Loaded from ~/.config/dmoverlay/dmoverlayd.toml
type DaemonConfig struct {
	Display  DisplayConfig  `toml:"display"`
	Priming  PrimingConfig  `toml:"priming"`
	Behavior BehaviorConfig `toml:"behavior"`
	Audio    AudioConfig    `toml:"audio"`
	CDN      CDNConfig      `toml:"cdn"`
}

// DisplayConfig contains overlay window placement and sizing settings.
type DisplayConfig struct {
	Position    string  `toml:"position"`     // "top-right", "bottom-left", etc.
	OffsetX     int     `toml:"offset_x"`     // Pixels from screen edge
	OffsetY     int     `toml:"offset_y"`     // Pixels from screen edge
	Width       int     `toml:"width"`        // Overlay width in pixels
	MinHeight   int     `toml:"min_height"`   // Minimum overlay height
	MaxHeight   int     `toml:"max_height"`   // Maximum overlay height
	Gap         int     `toml:"gap"`          // Gap between stacked overlays
	MaxWindows  int     `toml:"max_windows"`  // Maximum simultaneous overlays
	MaxMessages int     `toml:"max_messages"` // Messages buffered per conversation
	VisibleRows int     `toml:"visible_rows"` // Message rows shown before scrolling
	Opacity     float64 `toml:"opacity"`      // 0.0-1.0 window opacity when focused
}

// PrimingConfig contains channel warm-up settings.
type PrimingConfig struct {
	TTL        Duration `toml:"ttl"`         // Re-prime suppression window per channel
	FetchLimit int      `toml:"fetch_limit"` // Messages requested on warm-up
}

// BehaviorConfig contains interaction behavior settings.
type BehaviorConfig struct {
	UnfocusedOpacity  float64  `toml:"unfocused_opacity"`    // Opacity while the overlay is not hovered
	CloseOnReplyDelay Duration `toml:"close_on_reply_delay"` // Delay between send success and window close
	SaveQuietPeriod   Duration `toml:"save_quiet_period"`    // Debounce window for position persistence
}

// AudioConfig contains notification sound settings.
type AudioConfig struct {
	Enabled bool   `toml:"enabled"`
	Volume  int    `toml:"volume"` // 0-100
	Sound   string `toml:"sound"`  // Path to the sound file; empty disables
}

// CDNConfig contains avatar resolution settings.
type CDNConfig struct {
	Base               string `toml:"base"`                 // Avatar CDN base URL
	DefaultAvatarCount int    `toml:"default_avatar_count"` // Size of the default avatar set
}

// Position represents an overlay anchor corner on screen.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionBottomLeft,
		PositionBottomRight,
	}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Display: DisplayConfig{
			Position:    string(PositionBottomRight),
			OffsetX:     16,
			OffsetY:     16,
			Width:       340,
			MinHeight:   140,
			MaxHeight:   420,
			Gap:         8,
			MaxWindows:  5,
			MaxMessages: 10,
			VisibleRows: 5,
			Opacity:     1.0,
		},
		Priming: PrimingConfig{
			TTL:        Duration(30 * time.Second),
			FetchLimit: 50,
		},
		Behavior: BehaviorConfig{
			UnfocusedOpacity:  0.85,
			CloseOnReplyDelay: Duration(800 * time.Millisecond),
			SaveQuietPeriod:   Duration(500 * time.Millisecond),
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  80,
		},
		CDN: CDNConfig{
			Base:               "https://cdn.discordapp.com",
			DefaultAvatarCount: 6,
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "dmoverlay", "dmoverlayd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the given path, or
// the default location when path is empty. A missing file yields the
// default configuration.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		var err error
		path, err = DaemonConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents.
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to disk.
func SaveDaemonConfig(config *DaemonConfig) error {
	path, err := DaemonConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validPos := false
	for _, p := range ValidPositions() {
		if c.Display.Position == string(p) {
			validPos = true
			break
		}
	}
	if !validPos {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}

	if c.Display.Width < 200 || c.Display.Width > 1000 {
		return fmt.Errorf("width must be between 200 and 1000, got %d", c.Display.Width)
	}
	if c.Display.MinHeight <= 0 || c.Display.MaxHeight < c.Display.MinHeight {
		return fmt.Errorf("height bounds invalid: min %d, max %d", c.Display.MinHeight, c.Display.MaxHeight)
	}
	if c.Display.MaxWindows < 1 || c.Display.MaxWindows > 20 {
		return fmt.Errorf("max_windows must be between 1 and 20, got %d", c.Display.MaxWindows)
	}
	if c.Display.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be at least 1, got %d", c.Display.MaxMessages)
	}
	if c.Display.Opacity < 0 || c.Display.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0.0 and 1.0, got %v", c.Display.Opacity)
	}

	if c.Priming.FetchLimit < 1 || c.Priming.FetchLimit > 100 {
		return fmt.Errorf("priming fetch_limit must be between 1 and 100, got %d", c.Priming.FetchLimit)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.CDN.DefaultAvatarCount < 1 {
		return fmt.Errorf("default_avatar_count must be at least 1, got %d", c.CDN.DefaultAvatarCount)
	}

	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// SoundPath returns the configured notification sound path with ~ expanded.
func (c *DaemonConfig) SoundPath() string {
	return expandPath(c.Audio.Sound)
}
