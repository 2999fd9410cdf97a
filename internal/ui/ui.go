// package ui implements the terminal review screen for a conversion: the
// match records are listed for acceptance, then the confirmed set is turned
// into the target playlist.
package ui

import (
	"context"
	"fmt"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MatchListView ViewState = iota
	ConfirmView
	CreatingView
	ResultView
)

// Model represents the review TUI state. The session must already be in the
// matching-done phase.
type Model struct {
	ctx       context.Context
	view      ViewState
	session   *session.Session
	width     int
	height    int
	matchList list.Model
	items     []matchItem
	result    session.ConfirmResult
	err       error
	help      help.Model
	keys      keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	toggle key.Binding
	enter  key.Binding
	back   key.Binding
	yes    key.Binding
	no     key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.enter, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.enter},
		{k.back, k.yes, k.no},
		{k.quit},
	}
}

type confirmCompleteMsg struct {
	result session.ConfirmResult
	err    error
}

// NewModel creates a review model over a matched session. Records with a
// usable match start accepted; not-found records cannot be accepted.
func NewModel(ctx context.Context, sess *session.Session) *Model {
	records := sess.Matches()
	items := make([]matchItem, len(records))
	listItems := make([]list.Item, len(records))
	for i, record := range records {
		items[i] = matchItem{record: record, accepted: record.Found()}
		listItems[i] = items[i]
	}

	matchList := list.New(listItems, list.NewDefaultDelegate(), 0, 0)
	matchList.Title = fmt.Sprintf("Review Matches (%s)", sess.Target().DisplayName())

	return &Model{
		ctx:       ctx,
		view:      MatchListView,
		session:   sess,
		matchList: matchList,
		items:     items,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.matchList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MatchListView:
			return m.handleMatchListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case confirmCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	m.matchList, cmd = m.matchList.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case MatchListView:
		return m.renderMatchList()
	case ConfirmView:
		return m.renderConfirm()
	case CreatingView:
		return m.renderCreating()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Result returns the confirm outcome after the TUI exits.
func (m *Model) Result() (session.ConfirmResult, error) {
	return m.result, m.err
}

func (m *Model) handleMatchListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		index := m.matchList.Index()
		if index >= 0 && index < len(m.items) {
			item := &m.items[index]
			if item.record.Found() {
				item.accepted = !item.accepted
				return m, m.matchList.SetItem(index, *item)
			}
		}
		return m, nil
	case "enter":
		if len(m.acceptedIDs()) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.matchList, cmd = m.matchList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = MatchListView
		return m, nil
	case "y":
		m.view = CreatingView
		return m, m.confirm()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) acceptedIDs() []string {
	ids := make([]string, 0, len(m.items))
	for _, item := range m.items {
		if item.accepted {
			ids = append(ids, item.record.OriginalID)
		}
	}
	return ids
}

func (m *Model) confirm() tea.Cmd {
	ids := m.acceptedIDs()
	return func() tea.Msg {
		result, err := m.session.Confirm(m.ctx, ids)
		return confirmCompleteMsg{result: result, err: err}
	}
}

func (m *Model) renderMatchList() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", m.matchList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	accepted := m.acceptedIDs()
	title := styles.title.Render(fmt.Sprintf("Create playlist on %s?", m.session.Target().DisplayName()))
	info := fmt.Sprintf("\nAccepted tracks: %d of %d\n", len(accepted), len(m.items))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderCreating() string {
	title := styles.title.Render("Creating Playlist")
	return fmt.Sprintf("%s\n\nCreating playlist on %s...", title, m.session.Target().DisplayName())
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Conversion failed: %v\n\nPress q to quit", m.err))
	}

	title := styles.ok.Render("✓ Conversion Complete!")
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.result.PlaylistURL, m.result.TrackCount)

	var lowConfidence string
	count := 0
	for _, item := range m.items {
		if item.accepted && item.record.Status == models.StatusLowConfidence {
			count++
		}
	}
	if count > 0 {
		lowConfidence = "\n" + styles.warn.Render(fmt.Sprintf("%d low-confidence matches included", count))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, lowConfidence, helpView)
}
