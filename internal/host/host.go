// Package host defines the capability boundary between dmoverlay and the
// host chat application. The core depends on these narrow interfaces only;
// concrete implementations live in internal/bus.
package host

import (
	"context"

	"github.com/neozepron/dmOverlay/internal/model"
)

// MessageEvent is a raw message-creation event from the host's event bus.
type MessageEvent struct {
	// Optimistic marks a locally-echoed message that the server has not
	// acknowledged yet.
	Optimistic bool
	// Message is the event payload; nil when the event carries none.
	Message *model.Message
}

// User identifies the account the host application is signed in as.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// OutgoingMessage is the payload handed to the host's send capability.
type OutgoingMessage struct {
	Content string
	Nonce   string
	TTS     bool
}

// SendOptions carries the optional trailing arguments some host API
// versions expect on send.
type SendOptions struct {
	Flags int    `json:"flags,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

// Messaging is the host's message delivery capability.
type Messaging interface {
	// SendMessage delivers a message to a channel. opts may be nil; host
	// API versions differ on which argument shapes they accept, so callers
	// are expected to try several.
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage, opts *SendOptions) error
}

// Friends is the host's relationship lookup capability.
type Friends interface {
	IsFriend(ctx context.Context, userID string) (bool, error)
}

// CurrentUser is the host's own-account lookup capability.
type CurrentUser interface {
	CurrentUser(ctx context.Context) (User, error)
}

// Channels is the host's conversation cache capability, used for priming.
type Channels interface {
	// JumpToPresent scrolls the channel to its newest message.
	JumpToPresent(ctx context.Context, channelID string) error
	// FetchMessages requests the most recent messages for the channel.
	FetchMessages(ctx context.Context, channelID string, limit int) error
	// CachedMessageCount probes the local message cache for the channel.
	CachedMessageCount(ctx context.Context, channelID string) (int, error)
}
