// Package bus implements the com.neozepron.DMOverlay1 D-Bus interface: the
// daemon's inbound event and control surface, plus the proxy used to call
// back into the host chat client.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/model"
)

// WireAuthor is the author block of a wire event.
type WireAuthor struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// WireMessage is one chat message as serialized by the host plugin.
type WireMessage struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	GuildID   string     `json:"guild_id,omitempty"`
	Author    WireAuthor `json:"author"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
}

// WireEvent is the payload of the MessageCreate method.
type WireEvent struct {
	Optimistic bool         `json:"optimistic,omitempty"`
	Message    *WireMessage `json:"message"`
}

// DecodeEvent parses a MessageCreate payload into a host event.
func DecodeEvent(payload string) (host.MessageEvent, error) {
	var we WireEvent
	if err := json.Unmarshal([]byte(payload), &we); err != nil {
		return host.MessageEvent{}, fmt.Errorf("failed to decode event payload: %w", err)
	}

	ev := host.MessageEvent{Optimistic: we.Optimistic}
	if we.Message == nil {
		return ev, nil
	}

	ts, err := time.Parse(time.RFC3339, we.Message.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	ev.Message = &model.Message{
		ID:          we.Message.ID,
		ChannelID:   we.Message.ChannelID,
		GuildID:     we.Message.GuildID,
		AuthorID:    we.Message.Author.ID,
		Username:    we.Message.Author.Username,
		DisplayName: we.Message.Author.GlobalName,
		AvatarHash:  we.Message.Author.Avatar,
		Content:     we.Message.Content,
		Timestamp:   ts,
	}
	return ev, nil
}

// EncodeEvent serializes a host event as a MessageCreate payload. Used by
// tests and the CLI's inject command.
func EncodeEvent(ev host.MessageEvent) (string, error) {
	we := WireEvent{Optimistic: ev.Optimistic}
	if m := ev.Message; m != nil {
		we.Message = &WireMessage{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
			Author: WireAuthor{
				ID:         m.AuthorID,
				Username:   m.Username,
				GlobalName: m.DisplayName,
				Avatar:     m.AvatarHash,
			},
			Content:   m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(we)
	if err != nil {
		return "", fmt.Errorf("failed to encode event payload: %w", err)
	}
	return string(data), nil
}
