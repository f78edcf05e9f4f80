package overlay

import "github.com/neozepron/dmOverlay/internal/model"

// Position is a window coordinate expressed as offsets from the configured
// anchor corner of the screen.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Conversation is the fixed display identity of one overlay, captured when
// the overlay is created. Later messages do not update it.
type Conversation struct {
	ChannelID   string
	DisplayName string
	AvatarURL   string
}

// Surface is the visual/interactive face of one overlay window. The
// registry is the sole owner of each surface; surfaces route user
// interaction back through the bridge using only the conversation id.
//
// Implementations must tolerate calls after destruction: every method on a
// destroyed surface is a no-op, not an error.
type Surface interface {
	// Show presents the window at the given position without taking
	// keyboard focus, and (re)asserts always-on-top placement.
	Show(pos Position) error
	// Move repositions the window.
	Move(pos Position) error
	// Resize sets the window's physical height.
	Resize(height int) error
	// Append mirrors a newly buffered message into the surface.
	Append(msg model.Message) error
	// Result reports the outcome of an in-flight reply send.
	Result(ok bool) error
	// Destroy closes the window. Idempotent.
	Destroy() error
}

// SurfaceFactory constructs a Surface for a conversation. The bridge is
// where the surface delivers user interaction.
type SurfaceFactory func(conv Conversation, bridge *Bridge) (Surface, error)
