// Package tui provides the BubbleTea-based live monitor for active
// overlays.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/neozepron/dmOverlay/internal/overlay"
)

const refreshInterval = 2 * time.Second

// Controller is the slice of the daemon control surface the monitor
// needs. Satisfied by bus.Client.
type Controller interface {
	ListOverlays(ctx context.Context) ([]overlay.EntryInfo, error)
	CloseOverlay(ctx context.Context, channelID string) error
	CloseAll(ctx context.Context) error
	Reply(ctx context.Context, channelID, text string) (bool, error)
}

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeReply
	ModeHelp
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pinnedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type overlayItem struct {
	info overlay.EntryInfo
}

func (i overlayItem) Title() string {
	title := i.info.DisplayName
	if i.info.Pinned {
		title += pinnedStyle.Render(" [pinned]")
	}
	return title
}

func (i overlayItem) Description() string {
	return fmt.Sprintf("%d messages · %s", i.info.MessageCount, humanize.Time(i.info.LastUpdated))
}

func (i overlayItem) FilterValue() string { return i.info.DisplayName }

type overlaysMsg struct {
	infos []overlay.EntryInfo
	err   error
}

type replyResultMsg struct {
	channelID string
	ok        bool
	err       error
}

type tickMsg time.Time

// Model is the monitor's BubbleTea model.
type Model struct {
	ctrl Controller

	mode Mode

	list       list.Model
	replyInput textinput.Model
	help       help.Model
	keys       KeyMap

	replyTarget string
	statusMsg   string
	statusErr   bool
	width       int
	height      int
}

// NewModel creates the monitor model.
func NewModel(ctrl Controller) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "active overlays"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	input := textinput.New()
	input.Placeholder = "reply text"
	input.CharLimit = 2000

	return Model{
		ctrl:       ctrl,
		list:       l,
		replyInput: input,
		help:       help.New(),
		keys:       DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchOverlays, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchOverlays() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	infos, err := m.ctrl.ListOverlays(ctx)
	return overlaysMsg{infos: infos, err: err}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchOverlays, tickCmd())

	case overlaysMsg:
		if msg.err != nil {
			m.statusMsg = "daemon unreachable: " + msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		items := make([]list.Item, len(msg.infos))
		for i, info := range msg.infos {
			items[i] = overlayItem{info: info}
		}
		return m, m.list.SetItems(items)

	case replyResultMsg:
		switch {
		case msg.err != nil:
			m.statusMsg = "reply failed: " + msg.err.Error()
			m.statusErr = true
		case msg.ok:
			m.statusMsg = "reply sent to " + msg.channelID
			m.statusErr = false
		default:
			m.statusMsg = "reply rejected by host"
			m.statusErr = true
		}
		return m, m.fetchOverlays

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeReply {
		return m.handleReplyKey(msg)
	}
	if m.mode == ModeHelp {
		m.mode = ModeList
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchOverlays

	case key.Matches(msg, m.keys.Reply):
		if item, ok := m.list.SelectedItem().(overlayItem); ok {
			m.mode = ModeReply
			m.replyTarget = item.info.ChannelID
			m.replyInput.SetValue("")
			m.replyInput.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if item, ok := m.list.SelectedItem().(overlayItem); ok {
			id := item.info.ChannelID
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = m.ctrl.CloseOverlay(ctx, id)
				return m.fetchOverlays()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.CloseAll):
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.ctrl.CloseAll(ctx)
			return m.fetchOverlays()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleReplyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.replyInput.Blur()
		return m, nil

	case msg.Type == tea.KeyEnter:
		text := m.replyInput.Value()
		target := m.replyTarget
		m.mode = ModeList
		m.replyInput.Blur()
		if text == "" {
			return m, nil
		}
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			ok, err := m.ctrl.Reply(ctx, target, text)
			return replyResultMsg{channelID: target, ok: ok, err: err}
		}
	}

	var cmd tea.Cmd
	m.replyInput, cmd = m.replyInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	switch m.mode {
	case ModeHelp:
		return titleStyle.Render("dmoverlay monitor") + "\n\n" + m.help.FullHelpView(m.keys.FullHelp())
	case ModeReply:
		return titleStyle.Render("reply to "+m.replyTarget) + "\n\n" +
			m.replyInput.View() + "\n\n" +
			m.help.ShortHelpView([]key.Binding{m.keys.Back})
	default:
		status := ""
		if m.statusMsg != "" {
			if m.statusErr {
				status = errorStyle.Render(m.statusMsg)
			} else {
				status = statusStyle.Render(m.statusMsg)
			}
		}
		return m.list.View() + "\n" + status + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	}
}

// Run starts the monitor program.
func Run(ctrl Controller) error {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
