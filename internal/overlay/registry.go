// Package overlay implements the overlay window registry and layout engine.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neozepron/dmOverlay/internal/model"
)

// Entry is one conversation with an open overlay window. The registry is
// its sole owner.
type Entry struct {
	Conversation Conversation
	Messages     []model.Message // bounded, oldest first
	LastUpdated  time.Time
	Height       int
	ManualPos    *Position // set by user drag, exempts the entry from auto layout

	surface Surface
	pos     Position // last applied position
}

// Config holds the registry's bounds and layout inputs.
type Config struct {
	MaxWindows  int
	MaxMessages int
	MinHeight   int
	MaxHeight   int
	Layout      LayoutParams
	Avatars     model.AvatarResolver
}

// EntryInfo is a read-only snapshot of one entry, used for status
// reporting.
type EntryInfo struct {
	ChannelID    string    `json:"channel_id"`
	DisplayName  string    `json:"display_name"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
	Height       int       `json:"height"`
	Pinned       bool      `json:"pinned"`
}

// Registry owns the set of active overlay windows keyed by conversation.
// Entries are kept in promotion order, most-recently-updated first; that
// order is both the stacking order and the eviction order (oldest goes
// first).
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	logger  *slog.Logger
	factory SurfaceFactory
	bridge  *Bridge

	entries []*Entry // promotion order, most recent first
	index   map[string]*Entry

	lastDragged *Position

	onPositionSave func(Position)
	onOpen         func(Conversation)
	onClose        func(channelID string)
}

// NewRegistry creates a Registry. The factory constructs a render surface
// per opened conversation.
func NewRegistry(cfg Config, factory SurfaceFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		cfg:     cfg,
		logger:  logger,
		factory: factory,
		index:   make(map[string]*Entry),
	}
	r.bridge = newBridge(r, logger)
	return r
}

// Bridge returns the message channel surfaces use to reach the registry.
func (r *Registry) Bridge() *Bridge {
	return r.bridge
}

// SetReplyFunc wires the bridge's reply path.
func (r *Registry) SetReplyFunc(fn ReplyFunc) {
	r.bridge.reply = fn
}

// SetPositionSaveHook is called with every manual drag position; the
// daemon connects the debounced state saver here.
func (r *Registry) SetPositionSaveHook(fn func(Position)) {
	r.onPositionSave = fn
}

// SetOpenHook is called after a new overlay opens.
func (r *Registry) SetOpenHook(fn func(Conversation)) {
	r.onOpen = fn
}

// SetCloseHook is called after an overlay closes.
func (r *Registry) SetCloseHook(fn func(channelID string)) {
	r.onClose = fn
}

// RestoreLastDragged seeds the process-wide last-dragged position from
// persisted state. Called once at startup, before any upsert.
func (r *Registry) RestoreLastDragged(pos *Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos != nil {
		p := *pos
		r.lastDragged = &p
	}
}

// Upsert folds a notification into the registry: it opens a new overlay
// for an unseen conversation (evicting the least-recently-updated entry at
// capacity) or appends to the existing one, promoting it to the top of the
// stack. The window is shown without taking focus either way.
func (r *Registry) Upsert(n *model.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	msg := n.Message

	r.mu.Lock()

	if e, ok := r.index[msg.ChannelID]; ok {
		r.appendLocked(e, msg)
		r.promoteLocked(e)
		actions := []func(){
			func() { r.safeCall("append", func() error { return e.surface.Append(msg) }) },
			func() { r.safeCall("show", func() error { return e.surface.Show(e.pos) }) },
		}
		actions = append(actions, r.layoutLocked()...)
		r.mu.Unlock()
		runAll(actions)
		return nil
	}

	var actions []func()

	// Capacity eviction: the least-recently-updated entry goes first,
	// never the one being created. Eviction compacts the remaining
	// stack before the new entry's slot is computed.
	if len(r.entries) >= r.cfg.MaxWindows && r.cfg.MaxWindows > 0 {
		oldest := r.entries[len(r.entries)-1]
		actions = append(actions, r.removeLocked(oldest)...)
		actions = append(actions, r.layoutLocked()...)
	}

	conv := Conversation{
		ChannelID:   msg.ChannelID,
		DisplayName: msg.AuthorLabel(),
		AvatarURL:   r.cfg.Avatars.URL(msg.AuthorID, msg.AvatarHash),
	}

	e := &Entry{
		Conversation: conv,
		Messages:     []model.Message{msg},
		LastUpdated:  time.Now(),
		Height:       r.cfg.MinHeight,
	}

	surface, err := r.factory(conv, r.bridge)
	if err != nil {
		r.mu.Unlock()
		runAll(actions)
		return fmt.Errorf("failed to construct surface for %s: %w", msg.ChannelID, err)
	}
	e.surface = surface

	// Initial placement: the remembered drag position when one exists,
	// otherwise the next stacked slot below the current column. This
	// does not pin the entry; the next layout pass may still move it.
	e.pos = r.initialPlacementLocked()

	r.entries = append([]*Entry{e}, r.entries...)
	r.index[conv.ChannelID] = e

	// The triggering message is mirrored into the new surface before it
	// is shown; the surface must never open with an empty message list.
	actions = append(actions, func() {
		r.safeCall("append", func() error { return e.surface.Append(msg) })
		r.safeCall("show", func() error { return e.surface.Show(e.pos) })
	})
	active := len(r.entries)
	r.mu.Unlock()

	runAll(actions)

	if r.onOpen != nil {
		r.onOpen(conv)
	}
	r.logger.Debug("overlay opened", "channel", conv.ChannelID, "name", conv.DisplayName, "active", active)
	return nil
}

// appendLocked adds a message to the entry's bounded buffer, trimming the
// oldest overflow.
func (r *Registry) appendLocked(e *Entry, msg model.Message) {
	e.Messages = append(e.Messages, msg)
	if max := r.cfg.MaxMessages; max > 0 && len(e.Messages) > max {
		e.Messages = e.Messages[len(e.Messages)-max:]
	}
	e.LastUpdated = time.Now()
}

// promoteLocked moves the entry to the front of the stack order.
func (r *Registry) promoteLocked(e *Entry) {
	for i, other := range r.entries {
		if other == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.entries = append([]*Entry{e}, r.entries...)
}

// initialPlacementLocked computes where a freshly created overlay appears.
func (r *Registry) initialPlacementLocked() Position {
	if r.lastDragged != nil {
		return *r.lastDragged
	}
	// Next stacked slot below the existing automatic column.
	accumulated := 0
	for _, other := range r.entries {
		if other.ManualPos == nil {
			accumulated += other.Height + r.cfg.Layout.Gap
		}
	}
	return Position{
		X: r.cfg.Layout.OffsetX,
		Y: r.cfg.Layout.OffsetY + accumulated,
	}
}

// Close destroys the overlay for the conversation. Idempotent: closing an
// unknown id is a no-op.
func (r *Registry) Close(channelID string) {
	r.mu.Lock()
	e, ok := r.index[channelID]
	if !ok {
		r.mu.Unlock()
		return
	}
	actions := r.removeLocked(e)
	actions = append(actions, r.layoutLocked()...)
	r.mu.Unlock()

	runAll(actions)
}

// removeLocked unlinks the entry and returns the deferred surface
// destruction. Caller must hold the lock.
func (r *Registry) removeLocked(e *Entry) []func() {
	delete(r.index, e.Conversation.ChannelID)
	for i, other := range r.entries {
		if other == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}

	channelID := e.Conversation.ChannelID
	return []func(){func() {
		r.safeCall("destroy", func() error { return e.surface.Destroy() })
		if r.onClose != nil {
			r.onClose(channelID)
		}
		r.logger.Debug("overlay closed", "channel", channelID)
	}}
}

// CloseAll destroys every overlay. Used on daemon teardown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var actions []func()
	for _, e := range append([]*Entry(nil), r.entries...) {
		actions = append(actions, r.removeLocked(e)...)
	}
	r.mu.Unlock()

	runAll(actions)
}

// Resize updates an overlay's height, clamped to the configured bounds.
// Requesting the current height is a no-op and triggers no layout pass.
func (r *Registry) Resize(channelID string, requestedHeight int) {
	r.mu.Lock()
	e, ok := r.index[channelID]
	if !ok {
		r.mu.Unlock()
		return
	}

	h := clamp(requestedHeight, r.cfg.MinHeight, r.cfg.MaxHeight)
	if h == e.Height {
		r.mu.Unlock()
		return
	}
	e.Height = h

	actions := []func(){
		func() { r.safeCall("resize", func() error { return e.surface.Resize(h) }) },
	}
	actions = append(actions, r.layoutLocked()...)
	r.mu.Unlock()

	runAll(actions)
}

// RecordManualPosition stores the position of a user drag as the entry's
// override and as the process-wide last-dragged position, then reflows the
// automatic column around it.
func (r *Registry) RecordManualPosition(channelID string, pos Position) {
	r.mu.Lock()
	e, ok := r.index[channelID]
	if !ok {
		r.mu.Unlock()
		return
	}

	p := pos
	e.ManualPos = &p
	e.pos = p
	last := pos
	r.lastDragged = &last

	actions := r.layoutLocked()
	r.mu.Unlock()

	runAll(actions)

	if r.onPositionSave != nil {
		r.onPositionSave(pos)
	}
}

// DeliverResult reports a reply outcome to the conversation's surface.
// Delivery to a conversation that has since closed is a silent no-op.
func (r *Registry) DeliverResult(channelID string, ok bool) {
	r.mu.Lock()
	e, found := r.index[channelID]
	r.mu.Unlock()
	if !found {
		r.logger.Debug("reply result dropped, overlay gone", "channel", channelID, "ok", ok)
		return
	}
	r.safeCall("result", func() error { return e.surface.Result(ok) })
}

// layoutLocked computes the stacked layout and returns the deferred moves
// for entries whose position changed. Caller must hold the lock.
func (r *Registry) layoutLocked() []func() {
	placements := computeLayout(r.entries, r.cfg.Layout)

	var actions []func()
	for _, pl := range placements {
		if pl.Pinned {
			continue
		}
		e := r.index[pl.ChannelID]
		if e == nil || e.pos == pl.Pos {
			continue
		}
		e.pos = pl.Pos
		pos := pl.Pos
		actions = append(actions, func() {
			r.safeCall("move", func() error { return e.surface.Move(pos) })
		})
	}
	return actions
}

// Count returns the number of open overlays.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns entry summaries in stack order.
func (r *Registry) Snapshot() []EntryInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]EntryInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, EntryInfo{
			ChannelID:    e.Conversation.ChannelID,
			DisplayName:  e.Conversation.DisplayName,
			MessageCount: len(e.Messages),
			LastUpdated:  e.LastUpdated,
			Height:       e.Height,
			Pinned:       e.ManualPos != nil,
		})
	}
	return infos
}

// LastDragged returns the process-wide last manual drag position, or nil.
func (r *Registry) LastDragged() *Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastDragged == nil {
		return nil
	}
	p := *r.lastDragged
	return &p
}

// safeCall runs a surface operation, logging rather than propagating any
// failure. Platform windowing calls may fail on an already-destroyed
// window; nothing here may abort the surrounding registry operation.
func (r *Registry) safeCall(op string, f func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("surface call panicked", "op", op, "panic", rec)
		}
	}()
	if err := f(); err != nil {
		r.logger.Debug("surface call failed", "op", op, "error", err)
	}
}

func runAll(actions []func()) {
	for _, a := range actions {
		a()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
