package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/overlay"
)

// Client talks to a running daemon over the session bus.
type Client struct {
	conn *dbus.Conn
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) object() dbus.BusObject {
	return c.conn.Object(BusName, Path)
}

// Ping checks that the daemon owns its bus name.
func (c *Client) Ping() error {
	var owner string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, BusName).Store(&owner)
	if err != nil {
		return fmt.Errorf("daemon not running: %w", err)
	}
	return nil
}

// ListOverlays fetches the active overlay snapshot.
func (c *Client) ListOverlays(ctx context.Context) ([]overlay.EntryInfo, error) {
	var payload string
	call := c.object().CallWithContext(ctx, Interface+".ListOverlays", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("ListOverlays failed: %w", call.Err)
	}
	if err := call.Store(&payload); err != nil {
		return nil, fmt.Errorf("ListOverlays returned unexpected data: %w", err)
	}

	var infos []overlay.EntryInfo
	if err := json.Unmarshal([]byte(payload), &infos); err != nil {
		return nil, fmt.Errorf("failed to decode overlay list: %w", err)
	}
	return infos, nil
}

// CloseOverlay closes one overlay.
func (c *Client) CloseOverlay(ctx context.Context, channelID string) error {
	call := c.object().CallWithContext(ctx, Interface+".CloseOverlay", 0, channelID)
	if call.Err != nil {
		return fmt.Errorf("CloseOverlay failed: %w", call.Err)
	}
	return nil
}

// CloseAll closes every overlay.
func (c *Client) CloseAll(ctx context.Context) error {
	call := c.object().CallWithContext(ctx, Interface+".CloseAll", 0)
	if call.Err != nil {
		return fmt.Errorf("CloseAll failed: %w", call.Err)
	}
	return nil
}

// Reply sends a reply through the daemon and reports success.
func (c *Client) Reply(ctx context.Context, channelID, text string) (bool, error) {
	var ok bool
	call := c.object().CallWithContext(ctx, Interface+".Reply", 0, channelID, text)
	if call.Err != nil {
		return false, fmt.Errorf("Reply failed: %w", call.Err)
	}
	if err := call.Store(&ok); err != nil {
		return false, fmt.Errorf("Reply returned unexpected data: %w", err)
	}
	return ok, nil
}

// Inject pushes a synthetic message event into the daemon. Used for
// testing a live setup without the host application.
func (c *Client) Inject(ctx context.Context, ev host.MessageEvent) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	call := c.object().CallWithContext(ctx, Interface+".MessageCreate", 0, payload)
	if call.Err != nil {
		return fmt.Errorf("MessageCreate failed: %w", call.Err)
	}
	return nil
}

// OverlaySignal is one OverlayOpened or OverlayClosed notification.
type OverlaySignal struct {
	Opened      bool
	ChannelID   string
	DisplayName string
}

// Subscribe streams overlay lifecycle signals until ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context) (<-chan OverlaySignal, error) {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchObjectPath(Path),
	); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)

	out := make(chan OverlaySignal, 16)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				switch sig.Name {
				case Interface + ".OverlayOpened":
					if len(sig.Body) >= 2 {
						id, _ := sig.Body[0].(string)
						name, _ := sig.Body[1].(string)
						out <- OverlaySignal{Opened: true, ChannelID: id, DisplayName: name}
					}
				case Interface + ".OverlayClosed":
					if len(sig.Body) >= 1 {
						id, _ := sig.Body[0].(string)
						out <- OverlaySignal{ChannelID: id}
					}
				}
			}
		}
	}()
	return out, nil
}
