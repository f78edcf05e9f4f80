package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/overlay"
)

func TestServerMessageCreateRoutesEvent(t *testing.T) {
	s := NewServer(nil)
	var got []host.MessageEvent
	s.SetEventHandler(func(ev host.MessageEvent) { got = append(got, ev) })

	payload := `{"message": {"id": "1", "channel_id": "c1", "author": {"id": "a", "username": "u"}, "content": "x", "timestamp": "2026-08-29T10:00:00Z"}}`
	require.Nil(t, s.MessageCreate(payload))

	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].Message.ChannelID)
}

func TestServerMessageCreateRejectsMalformed(t *testing.T) {
	s := NewServer(nil)
	called := false
	s.SetEventHandler(func(host.MessageEvent) { called = true })

	assert.NotNil(t, s.MessageCreate("{broken"))
	assert.False(t, called)
}

func TestServerControlMethods(t *testing.T) {
	s := NewServer(nil)

	var closed []string
	closedAll := false
	s.SetCloseHandler(func(id string) { closed = append(closed, id) })
	s.SetCloseAllHandler(func() { closedAll = true })
	s.SetReplyHandler(func(id, text string) bool { return id == "c1" && text == "hello" })

	require.Nil(t, s.CloseOverlay("c1"))
	require.Nil(t, s.CloseAll())

	ok, derr := s.Reply("c1", "hello")
	require.Nil(t, derr)
	assert.True(t, ok)

	ok, derr = s.Reply("c2", "hello")
	require.Nil(t, derr)
	assert.False(t, ok)

	assert.Equal(t, []string{"c1"}, closed)
	assert.True(t, closedAll)
}

func TestServerReplyWithoutHandler(t *testing.T) {
	s := NewServer(nil)
	ok, derr := s.Reply("c1", "hello")
	require.Nil(t, derr)
	assert.False(t, ok)
}

func TestServerListOverlays(t *testing.T) {
	s := NewServer(nil)

	// No handler wired: empty JSON array, never null.
	payload, derr := s.ListOverlays()
	require.Nil(t, derr)
	assert.JSONEq(t, "[]", payload)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.SetListHandler(func() []overlay.EntryInfo {
		return []overlay.EntryInfo{
			{ChannelID: "c1", DisplayName: "alice", MessageCount: 3, LastUpdated: now, Height: 140},
		}
	})

	payload, derr = s.ListOverlays()
	require.Nil(t, derr)

	var infos []overlay.EntryInfo
	require.NoError(t, json.Unmarshal([]byte(payload), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "c1", infos[0].ChannelID)
	assert.Equal(t, 3, infos[0].MessageCount)
}
