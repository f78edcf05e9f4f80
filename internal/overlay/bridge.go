package overlay

import (
	"context"
	"log/slog"
)

// ReplyFunc sends a reply to a conversation and reports whether any send
// attempt succeeded.
type ReplyFunc func(ctx context.Context, channelID, text string) bool

// SurfaceMessageKind identifies a surface-to-registry message.
type SurfaceMessageKind int

const (
	// SurfaceClose asks the registry to close the overlay.
	SurfaceClose SurfaceMessageKind = iota
	// SurfaceReply submits the text of the quick-reply field.
	SurfaceReply
	// SurfaceResize reports the surface's measured content height.
	SurfaceResize
	// SurfaceMoved reports the final position of a user drag.
	SurfaceMoved
)

// SurfaceMessage is the only way a render surface talks back to the
// registry. Surfaces never touch the registry, dispatcher, or host
// directly.
type SurfaceMessage struct {
	Kind      SurfaceMessageKind
	ChannelID string

	Text   string   // SurfaceReply
	Height int      // SurfaceResize
	Pos    Position // SurfaceMoved
}

// Bridge receives surface messages and routes them to registry operations.
// Reply submissions run asynchronously so a slow or failing send never
// blocks the surface.
type Bridge struct {
	registry *Registry
	logger   *slog.Logger
	reply    ReplyFunc
}

func newBridge(r *Registry, logger *slog.Logger) *Bridge {
	return &Bridge{registry: r, logger: logger}
}

// Dispatch handles one surface message. Safe to call from any goroutine,
// including surface event handlers running while the registry operates on
// other entries.
func (b *Bridge) Dispatch(msg SurfaceMessage) {
	switch msg.Kind {
	case SurfaceClose:
		b.registry.Close(msg.ChannelID)

	case SurfaceResize:
		b.registry.Resize(msg.ChannelID, msg.Height)

	case SurfaceMoved:
		b.registry.RecordManualPosition(msg.ChannelID, msg.Pos)

	case SurfaceReply:
		if b.reply == nil {
			b.logger.Warn("reply dropped, no reply handler wired", "channel", msg.ChannelID)
			b.registry.DeliverResult(msg.ChannelID, false)
			return
		}
		go func() {
			ok := b.reply(context.Background(), msg.ChannelID, msg.Text)
			b.registry.DeliverResult(msg.ChannelID, ok)
		}()

	default:
		b.logger.Warn("unknown surface message", "kind", int(msg.Kind), "channel", msg.ChannelID)
	}
}
