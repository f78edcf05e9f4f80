// Package dispatch delivers typed replies through the host's messaging
// capability.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/neozepron/dmOverlay/internal/host"
)

// Warmer primes a conversation channel before a send. Satisfied by
// *primer.Primer.
type Warmer interface {
	Warm(ctx context.Context, channelID string)
}

// sendVariant is one calling convention against the host's send
// capability. Host API versions differ on which argument shapes they
// accept; variants are tried in order and the first one that does not
// error wins.
type sendVariant struct {
	name string
	call func(ctx context.Context, m host.Messaging, channelID string, content, nonce string) error
}

var sendVariants = []sendVariant{
	{
		name: "payload+options",
		call: func(ctx context.Context, m host.Messaging, channelID, content, nonce string) error {
			return m.SendMessage(ctx, channelID,
				host.OutgoingMessage{Content: content, Nonce: nonce, TTS: false},
				&host.SendOptions{Nonce: nonce})
		},
	},
	{
		name: "payload-only",
		call: func(ctx context.Context, m host.Messaging, channelID, content, nonce string) error {
			return m.SendMessage(ctx, channelID,
				host.OutgoingMessage{Content: content, Nonce: nonce, TTS: false}, nil)
		},
	},
	{
		name: "minimal+options",
		call: func(ctx context.Context, m host.Messaging, channelID, content, nonce string) error {
			return m.SendMessage(ctx, channelID,
				host.OutgoingMessage{Content: content},
				&host.SendOptions{Nonce: nonce})
		},
	},
	{
		name: "minimal",
		call: func(ctx context.Context, m host.Messaging, channelID, content, nonce string) error {
			return m.SendMessage(ctx, channelID,
				host.OutgoingMessage{Content: content}, nil)
		},
	},
}

// Dispatcher attempts reply delivery across the ordered variant list.
type Dispatcher struct {
	messaging host.Messaging
	warmer    Warmer
	nonces    *NonceSource
	logger    *slog.Logger

	variants []sendVariant
}

// New creates a Dispatcher. warmer may be nil.
func New(messaging host.Messaging, warmer Warmer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messaging: messaging,
		warmer:    warmer,
		nonces:    NewNonceSource(),
		logger:    logger,
		variants:  sendVariants,
	}
}

// Send delivers text to the channel, returning true on success. The
// channel is warmed synchronously first (best-effort). Each variant is
// tried at most once, in order, with no backoff; errors are logged, never
// propagated.
func (d *Dispatcher) Send(ctx context.Context, channelID, text string) bool {
	if d.messaging == nil {
		d.logger.Warn("messaging capability unavailable", "channel", channelID)
		return false
	}

	if d.warmer != nil {
		d.warmer.Warm(ctx, channelID)
	}

	nonce := d.nonces.Next()
	for _, v := range d.variants {
		err := v.call(ctx, d.messaging, channelID, text, nonce)
		if err == nil {
			d.logger.Debug("reply sent", "channel", channelID, "nonce", nonce, "variant", v.name)
			return true
		}
		d.logger.Debug("send variant failed", "channel", channelID, "variant", v.name, "error", err)
	}

	d.logger.Warn("all send variants failed", "channel", channelID, "nonce", nonce)
	return false
}
