package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/recordroom/internal/player"
	"github.com/desertthunder/recordroom/internal/services"
	"github.com/desertthunder/recordroom/internal/tasks"
)

// trackItem wraps [services.Track] to implement list.Item.
type trackItem struct {
	index int
	track services.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := strings.Join(artistNames(i.track), ", ")
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return desc
}

func artistNames(t services.Track) []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// tickMsg drives the now-playing bar refresh.
type tickMsg time.Time

type playResultMsg struct {
	err error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	session *player.Session
	queue   *tasks.Queue

	trackList list.Model
	width     int
	height    int
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model over the playlist, playback session, and
// queue.
func NewModel(ctx context.Context, playlist *services.Playlist, session *player.Session, queue *tasks.Queue) *Model {
	tracks := playlist.AllTracks()
	items := make([]list.Item, len(tracks))
	for i, track := range tracks {
		items[i] = trackItem{index: i, track: track}
	}

	trackList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	trackList.Title = playlist.Name
	trackList.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		session:   session,
		queue:     queue,
		trackList: trackList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tickMsg:
		return m, tick()

	case playResultMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.play):
			if item, ok := m.trackList.SelectedItem().(trackItem); ok {
				m.queue.Jump(item.index)
				return m, m.playTrack(item.track.URI)
			}

		case key.Matches(msg, m.keys.toggle):
			return m, func() tea.Msg {
				return playResultMsg{err: m.session.TogglePlay(m.ctx)}
			}

		case key.Matches(msg, m.keys.next):
			if track := m.queue.Next(); track != nil {
				return m, m.playTrack(track.URI)
			}

		case key.Matches(msg, m.keys.prev):
			if track := m.queue.Prev(); track != nil {
				return m, m.playTrack(track.URI)
			}
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) playTrack(uri string) tea.Cmd {
	return func() tea.Msg {
		return playResultMsg{err: m.session.PlayTrack(m.ctx, uri)}
	}
}

// View renders the track list with the now-playing bar beneath it.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.trackList.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return b.String()
}

func (m *Model) renderNowPlaying() string {
	state := m.session.Snapshot()

	if state.Track == nil {
		return styles.help.Render("Nothing playing. Pick a record.")
	}

	status := "▮▮"
	if state.Playing {
		status = "▶"
	}

	line := fmt.Sprintf("%s %s — %s  %s / %s",
		status,
		state.Track.Name,
		strings.Join(state.Track.Artists, ", "),
		formatDuration(state.PositionMS),
		formatDuration(state.DurationMS),
	)

	if state.Playing {
		return styles.ok.Render(line)
	}
	return styles.warn.Render(line)
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
