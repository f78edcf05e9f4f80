// Package audio plays the notification chime when an overlay opens.
package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Chime plays a single configured sound file. The file is decoded once
// and cached; playback happens on the shared speaker so overlapping
// notifications mix instead of cutting each other off.
type Chime struct {
	mu     sync.Mutex
	logger *slog.Logger

	enabled bool
	volume  float64 // 0.0 to 1.0
	path    string

	initialized bool
	sampleRate  beep.SampleRate
	buffer      *beep.Buffer
}

// NewChime creates a chime for the given sound file. volume is a
// percentage; an empty path or zero volume disables playback.
func NewChime(path string, volumePercent int, enabled bool, logger *slog.Logger) *Chime {
	if logger == nil {
		logger = slog.Default()
	}
	if volumePercent < 0 {
		volumePercent = 0
	}
	if volumePercent > 100 {
		volumePercent = 100
	}
	return &Chime{
		logger:     logger,
		enabled:    enabled,
		volume:     float64(volumePercent) / 100,
		path:       expandPath(path),
		sampleRate: beep.SampleRate(44100),
	}
}

// SetVolume updates the playback volume as a percentage.
func (c *Chime) SetVolume(volumePercent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if volumePercent < 0 {
		volumePercent = 0
	}
	if volumePercent > 100 {
		volumePercent = 100
	}
	c.volume = float64(volumePercent) / 100
}

// SetEnabled toggles playback.
func (c *Chime) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// SetSound swaps the sound file, dropping the cached decode.
func (c *Chime) SetSound(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = expandPath(path)
	if path == c.path {
		return
	}
	c.path = path
	c.buffer = nil
}

// Play plays the chime. Errors are returned for logging but playback
// failure never matters to the caller.
func (c *Chime) Play() error {
	c.mu.Lock()
	enabled := c.enabled
	path := c.path
	volume := c.volume
	buffer := c.buffer
	c.mu.Unlock()

	if !enabled || path == "" || volume == 0 {
		return nil
	}

	if buffer == nil {
		var err error
		buffer, err = c.load(path)
		if err != nil {
			c.logger.Warn("failed to load chime", "path", path, "error", err)
			return err
		}
		c.mu.Lock()
		c.buffer = buffer
		c.mu.Unlock()
	}

	c.play(buffer, volume)
	return nil
}

func (c *Chime) load(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := c.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return buffer, nil
}

func (c *Chime) ensureInitialized(sampleRate beep.SampleRate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	bufferSize := sampleRate.N(time.Millisecond * 100)
	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	c.sampleRate = sampleRate
	c.initialized = true
	c.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

func (c *Chime) play(buffer *beep.Buffer, volume float64) {
	c.mu.Lock()
	sampleRate := c.sampleRate
	c.mu.Unlock()

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())
	if buffer.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToDecibels(volume),
			Silent:   volume == 0,
		}
	}

	speaker.Play(streamer)
}

// volumeToDecibels converts a linear 0..1 volume to the logarithmic
// scale the Volume effect expects.
func volumeToDecibels(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
