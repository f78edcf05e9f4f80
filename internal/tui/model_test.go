package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neozepron/dmOverlay/internal/overlay"
)

type fakeController struct {
	mu       sync.Mutex
	infos    []overlay.EntryInfo
	closed   []string
	allGone  bool
	replies  []string
	replyOK  bool
	replyErr error
}

func (f *fakeController) ListOverlays(context.Context) ([]overlay.EntryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infos, nil
}

func (f *fakeController) CloseOverlay(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, channelID)
	return nil
}

func (f *fakeController) CloseAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allGone = true
	return nil
}

func (f *fakeController) Reply(_ context.Context, channelID, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, channelID+":"+text)
	return f.replyOK, f.replyErr
}

func testInfos() []overlay.EntryInfo {
	return []overlay.EntryInfo{
		{ChannelID: "c1", DisplayName: "alice", MessageCount: 2, LastUpdated: time.Now()},
		{ChannelID: "c2", DisplayName: "bob", MessageCount: 5, LastUpdated: time.Now(), Pinned: true},
	}
}

func TestOverlaysMsgPopulatesList(t *testing.T) {
	m := NewModel(&fakeController{})

	updated, _ := m.Update(overlaysMsg{infos: testInfos()})
	got := updated.(Model)

	require.Len(t, got.list.Items(), 2)
	item := got.list.Items()[1].(overlayItem)
	assert.Equal(t, "c2", item.info.ChannelID)
	assert.Contains(t, item.Title(), "bob")
	assert.Contains(t, item.Title(), "pinned")
	assert.Contains(t, item.Description(), "5 messages")
}

func TestCloseKeySendsClose(t *testing.T) {
	ctrl := &fakeController{infos: testInfos()}
	m := NewModel(ctrl)

	updated, _ := m.Update(overlaysMsg{infos: ctrl.infos})
	got := updated.(Model)

	updated, cmd := got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	got = updated.(Model)
	require.NotNil(t, cmd)
	cmd()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []string{"c1"}, ctrl.closed)
}

func TestReplyFlow(t *testing.T) {
	ctrl := &fakeController{infos: testInfos(), replyOK: true}
	m := NewModel(ctrl)

	updated, _ := m.Update(overlaysMsg{infos: ctrl.infos})
	got := updated.(Model)

	// Enter reply mode for the selected overlay.
	updated, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	got = updated.(Model)
	assert.Equal(t, ModeReply, got.mode)
	assert.Equal(t, "c1", got.replyTarget)

	// Type and submit.
	got.replyInput.SetValue("hello there")
	updated, cmd := got.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got = updated.(Model)
	assert.Equal(t, ModeList, got.mode)
	require.NotNil(t, cmd)

	msg := cmd()
	result, ok := msg.(replyResultMsg)
	require.True(t, ok)
	assert.True(t, result.ok)
	assert.Equal(t, "c1", result.channelID)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []string{"c1:hello there"}, ctrl.replies)
}

func TestReplyEscapeCancels(t *testing.T) {
	ctrl := &fakeController{infos: testInfos()}
	m := NewModel(ctrl)

	updated, _ := m.Update(overlaysMsg{infos: ctrl.infos})
	got := updated.(Model)

	updated, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	got = updated.(Model)
	updated, _ = got.Update(tea.KeyMsg{Type: tea.KeyEsc})
	got = updated.(Model)

	assert.Equal(t, ModeList, got.mode)
	assert.Empty(t, ctrl.replies)
}

func TestQuitKey(t *testing.T) {
	m := NewModel(&fakeController{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
