package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neozepron/dmOverlay/internal/config"
	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/model"
	"github.com/neozepron/dmOverlay/internal/overlay"
	"github.com/neozepron/dmOverlay/internal/store"
)

type fakeHost struct {
	mu      sync.Mutex
	friends map[string]bool
	selfID  string

	sent      []string
	sendFails int
	warmed    []string
}

func (h *fakeHost) SendMessage(_ context.Context, channelID string, msg host.OutgoingMessage, _ *host.SendOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendFails > 0 {
		h.sendFails--
		return fmt.Errorf("send rejected")
	}
	h.sent = append(h.sent, channelID+":"+msg.Content)
	return nil
}

func (h *fakeHost) IsFriend(_ context.Context, userID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.friends[userID], nil
}

func (h *fakeHost) CurrentUser(context.Context) (host.User, error) {
	return host.User{ID: h.selfID, Username: "me"}, nil
}

func (h *fakeHost) JumpToPresent(_ context.Context, channelID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warmed = append(h.warmed, channelID)
	return nil
}

func (h *fakeHost) FetchMessages(context.Context, string, int) error { return nil }

func (h *fakeHost) CachedMessageCount(context.Context, string) (int, error) { return 10, nil }

type nullSurface struct {
	mu        sync.Mutex
	appended  int
	results   []bool
	destroyed bool
}

func (s *nullSurface) Show(overlay.Position) error { return nil }
func (s *nullSurface) Move(overlay.Position) error { return nil }
func (s *nullSurface) Resize(int) error            { return nil }

func (s *nullSurface) Append(model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended++
	return nil
}

func (s *nullSurface) Result(ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, ok)
	return nil
}

func (s *nullSurface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	return nil
}

type surfaceTracker struct {
	mu       sync.Mutex
	surfaces map[string]*nullSurface
}

func (t *surfaceTracker) factory(conv overlay.Conversation, _ *overlay.Bridge) (overlay.Surface, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &nullSurface{}
	t.surfaces[conv.ChannelID] = s
	return s, nil
}

func (t *surfaceTracker) get(id string) *nullSurface {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surfaces[id]
}

func newTestDaemon(t *testing.T, h *fakeHost, statePath string) (*Daemon, *surfaceTracker) {
	t.Helper()
	tracker := &surfaceTracker{surfaces: make(map[string]*nullSurface)}
	d, err := New(Options{
		Config: config.DefaultDaemonConfig(),
		Host: Capabilities{
			Messaging:   h,
			Friends:     h,
			CurrentUser: h,
			Channels:    h,
		},
		Factory:   tracker.factory,
		StatePath: statePath,
	})
	require.NoError(t, err)
	return d, tracker
}

func dmEvent(channelID, messageID, authorID string) host.MessageEvent {
	return host.MessageEvent{
		Message: &model.Message{
			ID:        messageID,
			ChannelID: channelID,
			AuthorID:  authorID,
			Username:  "alice",
			Content:   "hello",
			Timestamp: time.Now(),
		},
	}
}

func TestFriendDirectMessageOpensOverlay(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}
	d, tracker := newTestDaemon(t, h, "")
	ctx := context.Background()

	d.HandleEvent(ctx, dmEvent("ch1", "m1", "42"))

	snap := d.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "ch1", snap[0].ChannelID)
	assert.NotNil(t, tracker.get("ch1"))

	// Second message folds into the same overlay.
	d.HandleEvent(ctx, dmEvent("ch1", "m2", "42"))
	snap = d.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].MessageCount)
}

func TestEventRejections(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}
	d, _ := newTestDaemon(t, h, "")
	ctx := context.Background()

	guild := dmEvent("ch1", "m1", "42")
	guild.Message.GuildID = "g1"

	own := dmEvent("ch2", "m2", "self")
	stranger := dmEvent("ch3", "m3", "99")
	optimistic := dmEvent("ch4", "m4", "42")
	optimistic.Optimistic = true

	d.HandleEvent(ctx, guild)
	d.HandleEvent(ctx, own)
	d.HandleEvent(ctx, stranger)
	d.HandleEvent(ctx, optimistic)
	d.HandleEvent(ctx, host.MessageEvent{})

	assert.Empty(t, d.Snapshot())
}

func TestEventWarmsChannel(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}
	d, _ := newTestDaemon(t, h, "")

	d.HandleEvent(context.Background(), dmEvent("ch1", "m1", "42"))

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.warmed) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReplyThroughBridge(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}
	d, tracker := newTestDaemon(t, h, "")
	ctx := context.Background()

	d.HandleEvent(ctx, dmEvent("ch1", "m1", "42"))

	d.Registry().Bridge().Dispatch(overlay.SurfaceMessage{
		Kind:      overlay.SurfaceReply,
		ChannelID: "ch1",
		Text:      "hi back",
	})

	s := tracker.get("ch1")
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.results) == 1
	}, time.Second, 5*time.Millisecond)

	s.mu.Lock()
	assert.Equal(t, []bool{true}, s.results)
	s.mu.Unlock()

	h.mu.Lock()
	assert.Equal(t, []string{"ch1:hi back"}, h.sent)
	h.mu.Unlock()
}

func TestReplyRetriesPayloadShapes(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self", sendFails: 2}
	d, _ := newTestDaemon(t, h, "")

	ok := d.Reply(context.Background(), "ch1", "third try")
	assert.True(t, ok)

	h.mu.Lock()
	assert.Equal(t, []string{"ch1:third try"}, h.sent)
	h.mu.Unlock()
}

func TestReplyAllShapesFail(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self", sendFails: 100}
	d, _ := newTestDaemon(t, h, "")

	assert.False(t, d.Reply(context.Background(), "ch1", "nope"))
}

func TestDragPositionPersistsAcrossRestart(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}

	d, _ := newTestDaemon(t, h, statePath)
	d.HandleEvent(context.Background(), dmEvent("ch1", "m1", "42"))
	d.Registry().RecordManualPosition("ch1", overlay.Position{X: 123, Y: 456})
	d.Shutdown()

	st := store.Load(statePath)
	require.NotNil(t, st.LastDraggedPos)
	assert.Equal(t, overlay.Position{X: 123, Y: 456}, *st.LastDraggedPos)

	// A fresh daemon restores the drag position for initial placement.
	d2, _ := newTestDaemon(t, h, statePath)
	require.NotNil(t, d2.Registry().LastDragged())
	assert.Equal(t, overlay.Position{X: 123, Y: 456}, *d2.Registry().LastDragged())
}

func TestOverlayHooksFire(t *testing.T) {
	h := &fakeHost{friends: map[string]bool{"42": true}, selfID: "self"}
	d, _ := newTestDaemon(t, h, "")

	var opened, closed []string
	d.SetOverlayHooks(
		func(c overlay.Conversation) { opened = append(opened, c.ChannelID) },
		func(id string) { closed = append(closed, id) },
	)

	ctx := context.Background()
	d.HandleEvent(ctx, dmEvent("ch1", "m1", "42"))
	d.HandleEvent(ctx, dmEvent("ch2", "m2", "42"))
	d.Close("ch1")
	d.CloseAll()

	assert.Equal(t, []string{"ch1", "ch2"}, opened)
	assert.Equal(t, []string{"ch1", "ch2"}, closed)
}
