package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/neozepron/dmOverlay/internal/overlay"
)

// DebouncedSaver coalesces rapid position updates into a single write
// after a quiet period. Dragging a window produces a burst of updates;
// only the final position needs to hit disk.
type DebouncedSaver struct {
	mu      sync.Mutex
	quiet   time.Duration
	write   func(State) error
	logger  *slog.Logger
	pending *overlay.Position
	timer   *time.Timer
	closed  bool
}

// NewDebouncedSaver creates a saver. write performs the actual
// persistence; tests inject their own.
func NewDebouncedSaver(quiet time.Duration, write func(State) error, logger *slog.Logger) *DebouncedSaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebouncedSaver{
		quiet:  quiet,
		write:  write,
		logger: logger,
	}
}

// Record notes a new last-dragged position and (re)arms the quiet-period
// timer. Only the most recent position is written.
func (d *DebouncedSaver) Record(pos overlay.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	p := pos
	d.pending = &p

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.flush)
}

// Flush writes any pending position immediately, cancelling the timer.
func (d *DebouncedSaver) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.flush()
}

// Close flushes pending state and stops the saver for good.
func (d *DebouncedSaver) Close() {
	d.Flush()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *DebouncedSaver) flush() {
	d.mu.Lock()
	pos := d.pending
	d.pending = nil
	d.mu.Unlock()

	if pos == nil {
		return
	}
	if err := d.write(State{Version: StateVersion, LastDraggedPos: pos}); err != nil {
		d.logger.Warn("failed to persist state", "error", err)
	}
}
