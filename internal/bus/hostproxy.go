package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/neozepron/dmOverlay/internal/host"
)

const (
	// HostInterface is the interface the host plugin exports.
	HostInterface = "com.neozepron.DMOverlay1.Host"
	// HostPath is the host plugin's object path.
	HostPath = "/com/neozepron/DMOverlay1/Host"
	// HostBusName is the bus name the host plugin claims.
	HostBusName = "com.neozepron.DMOverlay1.Host"
)

// outgoingPayload is the JSON body of a SendMessage call. Options are
// omitted entirely when the caller passed none, so the host sees the same
// payload shapes the dispatcher distinguishes.
type outgoingPayload struct {
	Content string            `json:"content"`
	Nonce   string            `json:"nonce,omitempty"`
	TTS     bool              `json:"tts,omitempty"`
	Options *host.SendOptions `json:"options,omitempty"`
}

// HostProxy calls back into the host chat client through its exported
// D-Bus object. It implements every host capability interface; a call made
// while the host is gone fails with a bus error rather than blocking.
type HostProxy struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewHostProxy creates a proxy over an established session bus
// connection.
func NewHostProxy(conn *dbus.Conn, logger *slog.Logger) *HostProxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostProxy{conn: conn, logger: logger}
}

func (p *HostProxy) object() dbus.BusObject {
	return p.conn.Object(HostBusName, HostPath)
}

// SendMessage implements host.Messaging.
func (p *HostProxy) SendMessage(ctx context.Context, channelID string, msg host.OutgoingMessage, opts *host.SendOptions) error {
	payload := outgoingPayload{
		Content: msg.Content,
		Nonce:   msg.Nonce,
		TTS:     msg.TTS,
		Options: opts,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outgoing message: %w", err)
	}

	call := p.object().CallWithContext(ctx, HostInterface+".SendMessage", 0, channelID, string(data))
	if call.Err != nil {
		return fmt.Errorf("host SendMessage failed: %w", call.Err)
	}
	return nil
}

// IsFriend implements host.Friends.
func (p *HostProxy) IsFriend(ctx context.Context, userID string) (bool, error) {
	var friend bool
	call := p.object().CallWithContext(ctx, HostInterface+".IsFriend", 0, userID)
	if call.Err != nil {
		return false, fmt.Errorf("host IsFriend failed: %w", call.Err)
	}
	if err := call.Store(&friend); err != nil {
		return false, fmt.Errorf("host IsFriend returned unexpected data: %w", err)
	}
	return friend, nil
}

// CurrentUser implements host.CurrentUser.
func (p *HostProxy) CurrentUser(ctx context.Context) (host.User, error) {
	var payload string
	call := p.object().CallWithContext(ctx, HostInterface+".CurrentUser", 0)
	if call.Err != nil {
		return host.User{}, fmt.Errorf("host CurrentUser failed: %w", call.Err)
	}
	if err := call.Store(&payload); err != nil {
		return host.User{}, fmt.Errorf("host CurrentUser returned unexpected data: %w", err)
	}

	var u host.User
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return host.User{}, fmt.Errorf("failed to decode current user: %w", err)
	}
	return u, nil
}

// JumpToPresent implements part of host.Channels.
func (p *HostProxy) JumpToPresent(ctx context.Context, channelID string) error {
	call := p.object().CallWithContext(ctx, HostInterface+".JumpToPresent", 0, channelID)
	if call.Err != nil {
		return fmt.Errorf("host JumpToPresent failed: %w", call.Err)
	}
	return nil
}

// FetchMessages implements part of host.Channels.
func (p *HostProxy) FetchMessages(ctx context.Context, channelID string, limit int) error {
	call := p.object().CallWithContext(ctx, HostInterface+".FetchMessages", 0, channelID, uint32(limit))
	if call.Err != nil {
		return fmt.Errorf("host FetchMessages failed: %w", call.Err)
	}
	return nil
}

// CachedMessageCount implements part of host.Channels.
func (p *HostProxy) CachedMessageCount(ctx context.Context, channelID string) (int, error) {
	var count uint32
	call := p.object().CallWithContext(ctx, HostInterface+".CachedMessageCount", 0, channelID)
	if call.Err != nil {
		return 0, fmt.Errorf("host CachedMessageCount failed: %w", call.Err)
	}
	if err := call.Store(&count); err != nil {
		return 0, fmt.Errorf("host CachedMessageCount returned unexpected data: %w", err)
	}
	return int(count), nil
}
