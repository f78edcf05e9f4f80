// Package model defines the core data structures for dmoverlay.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is one chat message as delivered by the host application.
// The IDs are opaque strings owned by the host.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	GuildID     string    `json:"guild_id,omitempty"` // empty means direct message
	AuthorID    string    `json:"author_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarHash  string    `json:"avatar_hash,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsDirect reports whether the message belongs to a direct-message channel.
// The host marks DMs by the absence of a guild id.
func (m *Message) IsDirect() bool {
	return m.GuildID == ""
}

// AuthorLabel returns the name to show for the author, preferring the
// global display name over the raw username.
func (m *Message) AuthorLabel() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// Notification is the ephemeral record created for one accepted inbound
// message event. It is consumed by the overlay registry and not retained
// after the message is folded into a conversation buffer.
type Notification struct {
	LocalID    string    `json:"local_id"` // ULID generated by dmoverlay
	Message    Message   `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validation errors.
var (
	ErrEmptyChannelID = errors.New("channel id cannot be empty")
	ErrEmptyMessageID = errors.New("message id cannot be empty")
	ErrEmptyAuthorID  = errors.New("author id cannot be empty")
)

// NewNotification wraps a host message with dmoverlay metadata.
func NewNotification(msg Message) (*Notification, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Notification{
		LocalID:    id.String(),
		Message:    msg,
		ReceivedAt: time.Now(),
	}, nil
}

// Validate checks that the notification carries the fields the registry
// depends on. Events missing these are filtered out upstream; this is the
// last line of defence.
func (n *Notification) Validate() error {
	if n.Message.ChannelID == "" {
		return ErrEmptyChannelID
	}
	if n.Message.ID == "" {
		return ErrEmptyMessageID
	}
	if n.Message.AuthorID == "" {
		return ErrEmptyAuthorID
	}
	return nil
}

// RelativeTime returns a short human-readable age for the message.
func (m *Message) RelativeTime() string {
	d := time.Since(m.Timestamp)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
