package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/overlay"
)

const (
	// Interface is the daemon's D-Bus interface name.
	Interface = "com.neozepron.DMOverlay1"
	// Path is the daemon's D-Bus object path.
	Path = "/com/neozepron/DMOverlay1"
	// BusName is the bus name the daemon claims.
	BusName = "com.neozepron.DMOverlay1"
)

// EventHandler is called for every decoded MessageCreate event.
type EventHandler func(ev host.MessageEvent)

// CloseHandler is called when CloseOverlay is requested.
type CloseHandler func(channelID string)

// CloseAllHandler is called when CloseAll is requested.
type CloseAllHandler func()

// ReplyHandler submits a reply and reports success.
type ReplyHandler func(channelID, text string) bool

// ListHandler returns the current overlay snapshot.
type ListHandler func() []overlay.EntryInfo

// Server exports the daemon's control object on the session bus. The host
// plugin pushes message events through MessageCreate; the companion CLI
// drives the remaining methods.
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger

	eventHandler    EventHandler
	closeHandler    CloseHandler
	closeAllHandler CloseAllHandler
	replyHandler    ReplyHandler
	listHandler     ListHandler

	mu      sync.Mutex
	running bool
}

// NewServer creates a Server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger}
}

// SetEventHandler sets the handler for inbound message events.
func (s *Server) SetEventHandler(h EventHandler) { s.eventHandler = h }

// SetCloseHandler sets the handler for CloseOverlay requests.
func (s *Server) SetCloseHandler(h CloseHandler) { s.closeHandler = h }

// SetCloseAllHandler sets the handler for CloseAll requests.
func (s *Server) SetCloseAllHandler(h CloseAllHandler) { s.closeAllHandler = h }

// SetReplyHandler sets the handler for Reply requests.
func (s *Server) SetReplyHandler(h ReplyHandler) { s.replyHandler = h }

// SetListHandler sets the handler for ListOverlays requests.
func (s *Server) SetListHandler(h ListHandler) { s.listHandler = h }

// Start connects to the session bus, exports the object, and claims the
// bus name.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: overlayMethods(),
				Signals: overlaySignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus overlay server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
	}

	s.logger.Info("D-Bus overlay server stopped")
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *Server) Connection() *dbus.Conn {
	return s.conn
}

// MessageCreate ingests one message event as a JSON payload.
// D-Bus method: MessageCreate(s) -> nothing
func (s *Server) MessageCreate(payload string) *dbus.Error {
	ev, err := DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("rejecting malformed event payload", "error", err)
		return dbus.MakeFailedError(err)
	}

	if s.eventHandler != nil {
		s.eventHandler(ev)
	}
	return nil
}

// CloseOverlay closes the overlay for one conversation.
// D-Bus method: CloseOverlay(s) -> nothing
func (s *Server) CloseOverlay(channelID string) *dbus.Error {
	s.logger.Debug("CloseOverlay called", "channel", channelID)
	if s.closeHandler != nil {
		s.closeHandler(channelID)
	}
	return nil
}

// CloseAll closes every overlay.
// D-Bus method: CloseAll() -> nothing
func (s *Server) CloseAll() *dbus.Error {
	s.logger.Debug("CloseAll called")
	if s.closeAllHandler != nil {
		s.closeAllHandler()
	}
	return nil
}

// Reply sends a reply into a conversation and reports success.
// D-Bus method: Reply(ss) -> b
func (s *Server) Reply(channelID, text string) (bool, *dbus.Error) {
	s.logger.Debug("Reply called", "channel", channelID)
	if s.replyHandler == nil {
		return false, nil
	}
	return s.replyHandler(channelID, text), nil
}

// ListOverlays returns the active overlay snapshot as JSON.
// D-Bus method: ListOverlays() -> s
func (s *Server) ListOverlays() (string, *dbus.Error) {
	var infos []overlay.EntryInfo
	if s.listHandler != nil {
		infos = s.listHandler()
	}
	if infos == nil {
		infos = []overlay.EntryInfo{}
	}

	data, err := json.Marshal(infos)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// EmitOverlayOpened emits the OverlayOpened signal.
func (s *Server) EmitOverlayOpened(channelID, displayName string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := s.conn.Emit(Path, Interface+".OverlayOpened", channelID, displayName); err != nil {
		return fmt.Errorf("failed to emit OverlayOpened signal: %w", err)
	}
	return nil
}

// EmitOverlayClosed emits the OverlayClosed signal.
func (s *Server) EmitOverlayClosed(channelID string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := s.conn.Emit(Path, Interface+".OverlayClosed", channelID); err != nil {
		return fmt.Errorf("failed to emit OverlayClosed signal: %w", err)
	}
	return nil
}

func overlayMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "MessageCreate",
			Args: []introspect.Arg{
				{Name: "payload", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "CloseOverlay",
			Args: []introspect.Arg{
				{Name: "channel_id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "CloseAll",
		},
		{
			Name: "Reply",
			Args: []introspect.Arg{
				{Name: "channel_id", Type: "s", Direction: "in"},
				{Name: "text", Type: "s", Direction: "in"},
				{Name: "ok", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "ListOverlays",
			Args: []introspect.Arg{
				{Name: "overlays", Type: "s", Direction: "out"},
			},
		},
	}
}

func overlaySignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "OverlayOpened",
			Args: []introspect.Arg{
				{Name: "channel_id", Type: "s"},
				{Name: "display_name", Type: "s"},
			},
		},
		{
			Name: "OverlayClosed",
			Args: []introspect.Arg{
				{Name: "channel_id", Type: "s"},
			},
		},
	}
}
