package display

import (
	"fmt"
	"log/slog"
	"time"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/dustin/go-humanize"

	"github.com/neozepron/dmOverlay/internal/config"
	"github.com/neozepron/dmOverlay/internal/model"
	"github.com/neozepron/dmOverlay/internal/overlay"
)

// Window is one conversation overlay, rendered as a GTK4 layer-shell
// surface. All overlay.Surface methods may be called from any goroutine;
// GTK work is marshalled onto the main loop.
type Window struct {
	conv   overlay.Conversation
	bridge *overlay.Bridge
	cfg    *config.DaemonConfig
	logger *slog.Logger

	window     *gtk.Window
	box        *gtk.Box
	messageBox *gtk.Box
	scroller   *gtk.ScrolledWindow
	replyEntry *gtk.Entry
	sendBtn    *gtk.Button
	statusLbl  *gtk.Label
	avatar     *gtk.Image

	pos       overlay.Position
	rows      int
	dragging  bool
	destroyed bool
}

// NewWindow builds the overlay window for one conversation. Must be
// called on the GTK main loop.
func NewWindow(app *gtk.Application, conv overlay.Conversation, bridge *overlay.Bridge, cfg *config.DaemonConfig, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Window{
		conv:   conv,
		bridge: bridge,
		cfg:    cfg,
		logger: logger,
	}

	w.window = gtk.NewWindow()
	w.window.SetApplication(app)
	w.window.SetDecorated(false)
	w.window.SetResizable(false)
	w.window.SetDefaultSize(cfg.Display.Width, -1)
	w.window.SetSizeRequest(cfg.Display.Width, cfg.Display.MinHeight)

	layershell.InitForWindow(w.window)
	layershell.SetLayer(w.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(w.window, 0)
	// Keyboard focus only while the pointer interacts with the reply
	// field; the host application keeps focus otherwise.
	layershell.SetKeyboardMode(w.window, layershell.LayerShellKeyboardModeOnDemand)
	layershell.SetNamespace(w.window, "dmoverlay")

	w.buildUI()
	w.applyStyleClasses()
	w.connectSignals()

	return w, nil
}

func (w *Window) buildUI() {
	w.box = gtk.NewBox(gtk.OrientationVertical, 6)
	w.box.AddCSSClass("dm-overlay")
	w.box.SetMarginTop(8)
	w.box.SetMarginBottom(8)
	w.box.SetMarginStart(10)
	w.box.SetMarginEnd(10)

	w.box.Append(w.buildHeader())
	w.box.Append(w.buildMessageList())
	w.box.Append(w.buildReplyRow())

	w.statusLbl = gtk.NewLabel("")
	w.statusLbl.AddCSSClass("dm-status")
	w.statusLbl.SetXAlign(0)
	w.statusLbl.SetVisible(false)
	w.box.Append(w.statusLbl)

	w.window.SetChild(w.box)
}

func (w *Window) buildHeader() gtk.Widgetter {
	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.AddCSSClass("dm-header")

	w.avatar = gtk.NewImage()
	w.avatar.AddCSSClass("dm-avatar")
	w.avatar.SetPixelSize(28)
	w.avatar.SetFromIconName("avatar-default-symbolic")
	header.Append(w.avatar)
	loadAvatar(w.avatar, w.conv.AvatarURL, w.logger)

	name := gtk.NewLabel(w.conv.DisplayName)
	name.AddCSSClass("dm-name")
	name.SetXAlign(0)
	name.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	name.SetHExpand(true)
	header.Append(name)

	closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
	closeBtn.AddCSSClass("dm-close")
	closeBtn.ConnectClicked(func() {
		w.bridge.Dispatch(overlay.SurfaceMessage{Kind: overlay.SurfaceClose, ChannelID: w.conv.ChannelID})
	})
	header.Append(closeBtn)

	return header
}

func (w *Window) buildMessageList() gtk.Widgetter {
	w.messageBox = gtk.NewBox(gtk.OrientationVertical, 4)
	w.messageBox.AddCSSClass("dm-messages")

	w.scroller = gtk.NewScrolledWindow()
	w.scroller.SetPolicy(gtk.PolicyNever, gtk.PolicyAutomatic)
	w.scroller.SetVExpand(true)
	w.scroller.SetChild(w.messageBox)

	return w.scroller
}

func (w *Window) buildReplyRow() gtk.Widgetter {
	row := gtk.NewBox(gtk.OrientationHorizontal, 6)
	row.AddCSSClass("dm-reply-row")

	w.replyEntry = gtk.NewEntry()
	w.replyEntry.AddCSSClass("dm-reply")
	w.replyEntry.SetPlaceholderText("Reply…")
	w.replyEntry.SetHExpand(true)
	row.Append(w.replyEntry)

	w.sendBtn = gtk.NewButtonFromIconName("document-send-symbolic")
	w.sendBtn.AddCSSClass("dm-send")
	row.Append(w.sendBtn)

	return row
}

func (w *Window) applyStyleClasses() {
	w.box.AddCSSClass(colorSchemeClass())
	if w.cfg.Display.Opacity < 1.0 {
		w.box.AddCSSClass("translucent")
	}
}

func (w *Window) connectSignals() {
	submit := func() {
		text := w.replyEntry.Text()
		if text == "" {
			return
		}
		w.replyEntry.SetText("")
		// Input stays locked until the send result comes back.
		w.replyEntry.SetSensitive(false)
		w.sendBtn.SetSensitive(false)
		w.setStatus("sending…")
		w.bridge.Dispatch(overlay.SurfaceMessage{
			Kind:      overlay.SurfaceReply,
			ChannelID: w.conv.ChannelID,
			Text:      text,
		})
	}
	w.replyEntry.ConnectActivate(submit)
	w.sendBtn.ConnectClicked(submit)

	// Focus-dependent opacity: translucent while the pointer is away.
	motionCtrl := gtk.NewEventControllerMotion()
	motionCtrl.ConnectEnter(func(x, y float64) {
		w.window.SetOpacity(w.cfg.Display.Opacity)
	})
	motionCtrl.ConnectLeave(func() {
		if !w.dragging {
			w.window.SetOpacity(w.cfg.Behavior.UnfocusedOpacity)
		}
	})
	w.window.AddController(motionCtrl)
	w.window.SetOpacity(w.cfg.Behavior.UnfocusedOpacity)

	// Drag anywhere outside the reply field repositions the window.
	drag := gtk.NewGestureDrag()
	var startX, startY int
	drag.ConnectDragBegin(func(x, y float64) {
		w.dragging = true
		startX, startY = w.pos.X, w.pos.Y
	})
	drag.ConnectDragUpdate(func(dx, dy float64) {
		w.applyPosition(draggedPosition(config.Position(w.cfg.Display.Position), startX, startY, int(dx), int(dy)))
	})
	drag.ConnectDragEnd(func(dx, dy float64) {
		w.dragging = false
		final := draggedPosition(config.Position(w.cfg.Display.Position), startX, startY, int(dx), int(dy))
		w.applyPosition(final)
		w.bridge.Dispatch(overlay.SurfaceMessage{
			Kind:      overlay.SurfaceMoved,
			ChannelID: w.conv.ChannelID,
			Pos:       final,
		})
	})
	w.box.AddController(drag)
}

// draggedPosition converts pointer deltas into corner-relative margins.
// Margins grow away from the anchored corner, so the horizontal or
// vertical sense flips depending on which corner the stack hangs off.
func draggedPosition(anchor config.Position, startX, startY, dx, dy int) overlay.Position {
	x, y := startX, startY
	switch anchor {
	case config.PositionTopLeft:
		x += dx
		y += dy
	case config.PositionTopRight:
		x -= dx
		y += dy
	case config.PositionBottomLeft:
		x += dx
		y -= dy
	default: // bottom-right
		x -= dx
		y -= dy
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return overlay.Position{X: x, Y: y}
}

// Show implements overlay.Surface.
func (w *Window) Show(pos overlay.Position) error {
	return w.onMain("show", func() {
		w.applyPosition(pos)
		w.window.Present()
	})
}

// Move implements overlay.Surface.
func (w *Window) Move(pos overlay.Position) error {
	return w.onMain("move", func() {
		w.applyPosition(pos)
	})
}

// Resize implements overlay.Surface.
func (w *Window) Resize(height int) error {
	return w.onMain("resize", func() {
		w.window.SetSizeRequest(w.cfg.Display.Width, height)
	})
}

// Append implements overlay.Surface.
func (w *Window) Append(msg model.Message) error {
	return w.onMain("append", func() {
		w.appendRow(msg)
	})
}

// Result implements overlay.Surface.
func (w *Window) Result(ok bool) error {
	return w.onMain("result", func() {
		if ok {
			w.setStatus("sent")
			time.AfterFunc(w.cfg.Behavior.CloseOnReplyDelay.Duration(), func() {
				w.bridge.Dispatch(overlay.SurfaceMessage{Kind: overlay.SurfaceClose, ChannelID: w.conv.ChannelID})
			})
		} else {
			w.replyEntry.SetSensitive(true)
			w.sendBtn.SetSensitive(true)
			w.replyEntry.GrabFocus()
			w.setStatus("failed to send")
		}
	})
}

// Destroy implements overlay.Surface.
func (w *Window) Destroy() error {
	return w.onMain("destroy", func() {
		w.destroyed = true
		w.window.Close()
	})
}

// onMain schedules f on the GTK main loop. Calls on a destroyed window
// are dropped.
func (w *Window) onMain(op string, f func()) error {
	glib.IdleAdd(func() {
		if w.destroyed {
			w.logger.Debug("surface call on destroyed window", "op", op, "channel", w.conv.ChannelID)
			return
		}
		f()
	})
	return nil
}

// appendRow adds one message row and requests a height that fits the
// visible rows.
func (w *Window) appendRow(msg model.Message) {
	row := gtk.NewBox(gtk.OrientationVertical, 2)
	row.AddCSSClass("dm-message")

	meta := gtk.NewLabel("")
	meta.SetXAlign(0)
	meta.AddCSSClass("dm-message-meta")
	meta.SetMarkup(fmt.Sprintf("<b>%s</b> <small>%s</small>",
		model.EscapeMarkup(msg.AuthorLabel()),
		model.EscapeMarkup(humanize.Time(msg.Timestamp))))
	row.Append(meta)

	body := gtk.NewLabel("")
	body.SetXAlign(0)
	body.SetWrap(true)
	body.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	body.AddCSSClass("dm-message-body")
	body.SetMarkup(model.EscapeMarkup(msg.Content))
	row.Append(body)

	w.messageBox.Append(row)
	w.rows++

	// The mirror is bounded like the conversation buffer that feeds it;
	// the oldest rows fall off first.
	for drop := trimCount(w.rows, w.cfg.Display.MaxMessages); drop > 0; drop-- {
		oldest := w.messageBox.FirstChild()
		if oldest == nil {
			break
		}
		w.messageBox.Remove(oldest)
		w.rows--
	}

	// Scroll to the newest message once the row has been laid out.
	glib.IdleAdd(func() {
		adj := w.scroller.VAdjustment()
		adj.SetValue(adj.Upper())
	})

	w.requestHeight()
}

// trimCount returns how many rows exceed the bound. A bound of zero or
// less means unbounded.
func trimCount(rows, max int) int {
	if max <= 0 || rows <= max {
		return 0
	}
	return rows - max
}

// requestHeight measures the content and asks the registry for a matching
// window height. The registry clamps and decides.
func (w *Window) requestHeight() {
	_, natural, _, _ := w.box.Measure(gtk.OrientationVertical, w.cfg.Display.Width)

	visible := w.rows
	if max := w.cfg.Display.VisibleRows; max > 0 && visible > max {
		visible = max
	}
	// Rough per-row estimate once the natural size exceeds the cap.
	height := natural
	if w.rows > visible && w.rows > 0 {
		height = natural * visible / w.rows
	}

	w.bridge.Dispatch(overlay.SurfaceMessage{
		Kind:      overlay.SurfaceResize,
		ChannelID: w.conv.ChannelID,
		Height:    height,
	})
}

func (w *Window) setStatus(text string) {
	w.statusLbl.SetText(text)
	w.statusLbl.SetVisible(text != "")
}

// applyPosition anchors the window to the configured corner and offsets
// it by the given margins.
func (w *Window) applyPosition(pos overlay.Position) {
	w.pos = pos

	layershell.SetAnchor(w.window, layershell.LayerShellEdgeTop, false)
	layershell.SetAnchor(w.window, layershell.LayerShellEdgeBottom, false)
	layershell.SetAnchor(w.window, layershell.LayerShellEdgeLeft, false)
	layershell.SetAnchor(w.window, layershell.LayerShellEdgeRight, false)

	switch config.Position(w.cfg.Display.Position) {
	case config.PositionTopLeft:
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeTop, pos.Y)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeLeft, pos.X)

	case config.PositionTopRight:
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeTop, pos.Y)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeRight, pos.X)

	case config.PositionBottomLeft:
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeBottom, pos.Y)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeLeft, pos.X)

	default: // bottom-right
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeBottom, true)
		layershell.SetAnchor(w.window, layershell.LayerShellEdgeRight, true)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeBottom, pos.Y)
		layershell.SetMargin(w.window, layershell.LayerShellEdgeRight, pos.X)
	}
}
