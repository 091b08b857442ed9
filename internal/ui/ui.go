package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhiozhou/cloudmatch/internal/auth"
	"github.com/zhiozhou/cloudmatch/internal/catalog"
	"github.com/zhiozhou/cloudmatch/internal/match"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	SongListView
	MatchView
	LogView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	auth    *auth.Engine
	catalog *catalog.Engine
	matcher *match.Engine

	width  int
	height int

	songList   list.Model
	matchInput textinput.Model
	selected   string
	status     string
	err        error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided engines.
func NewModel(ctx context.Context, authEngine *auth.Engine, catalogEngine *catalog.Engine, matchEngine *match.Engine) *Model {
	input := textinput.New()
	input.Placeholder = "target track id"
	input.CharLimit = 32

	return &Model{
		ctx:        ctx,
		view:       LoginView,
		auth:       authEngine,
		catalog:    catalogEngine,
		matcher:    matchEngine,
		matchInput: input,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the login flow, or jumps straight to the catalog when a
// session was restored.
func (m *Model) Init() tea.Cmd {
	if m.auth.IsLoggedIn() {
		m.view = SongListView
		return m.fetchPage(1)
	}
	return tea.Batch(m.startLogin(), loginTick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.songList.Width() == 0 {
			m.songList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		case MatchView:
			return m.handleMatchKeys(msg)
		case LogView:
			return m.handleLogKeys(msg)
		}

	case loginTickMsg:
		if m.view != LoginView {
			return m, nil
		}
		state, reason := m.auth.State()
		if !settled(state) {
			return m, loginTick()
		}
		switch state {
		case auth.StateSucceeded:
			m.view = SongListView
			m.err = nil
			return m, m.fetchPage(1)
		case auth.StateFailed:
			m.err = fmt.Errorf("login failed: %s", reason)
		}
		return m, nil

	case catalogFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.rebuildSongList()
		return m, nil

	case matchDoneMsg:
		m.view = SongListView
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.result.Success {
			m.status = styles.ok.Render(msg.result.Message)
			m.rebuildSongList()
		} else {
			m.status = styles.warn.Render(msg.result.Message)
		}
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.view = LoginView
		m.status = ""
		return m, loginTick()
	}

	if m.view == SongListView {
		var cmd tea.Cmd
		m.songList, cmd = m.songList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case SongListView:
		return m.renderSongList()
	case MatchView:
		return m.renderMatch()
	case LogView:
		return m.renderLogs()
	default:
		return ""
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		state, _ := m.auth.State()
		if state == auth.StateExpired || state == auth.StateFailed {
			m.err = nil
			return m, tea.Batch(m.startLogin(), loginTick())
		}
	}
	return m, nil
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if selected, ok := m.songList.SelectedItem().(songItem); ok {
			m.selected = selected.song.ID
			m.matchInput.SetValue("")
			m.matchInput.Focus()
			m.view = MatchView
			return m, textinput.Blink
		}
	case "f":
		page := m.catalog.Page()
		if page < 1 {
			page = 1
		}
		return m, m.fetchPage(page)
	case "]":
		if m.catalog.HasMore() {
			return m, m.fetchPage(m.catalog.Page() + 1)
		}
	case "[":
		if m.catalog.Page() > 1 {
			return m, m.fetchPage(m.catalog.Page() - 1)
		}
	case "l":
		m.view = LogView
		return m, nil
	case "ctrl+d":
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleMatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = SongListView
		return m, nil
	case "enter":
		target := m.matchInput.Value()
		if target == "" {
			return m, nil
		}
		return m, m.submitMatch(m.selected, target)
	}

	var cmd tea.Cmd
	m.matchInput, cmd = m.matchInput.Update(msg)
	return m, cmd
}

func (m *Model) handleLogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "l":
		m.view = SongListView
	}
	return m, nil
}

func (m *Model) startLogin() tea.Cmd {
	return func() tea.Msg {
		// A failed start lands in the engine state; the tick handler
		// surfaces the reason.
		_ = m.auth.StartLogin(m.ctx)
		return loginTickMsg{}
	}
}

func (m *Model) fetchPage(page int) tea.Cmd {
	return func() tea.Msg {
		return catalogFetchedMsg{err: m.catalog.FetchPage(m.ctx, page, catalog.DefaultPageLimit)}
	}
}

func (m *Model) submitMatch(songID, targetID string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.matcher.MatchSong(m.ctx, songID, targetID)
		return matchDoneMsg{result: result, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: m.auth.Logout(m.ctx)}
	}
}

func (m *Model) rebuildSongList() {
	songs := m.catalog.Songs()
	items := make([]list.Item, len(songs))
	for i, song := range songs {
		items[i] = songItem{song: song}
	}

	if m.songList.Width() == 0 {
		m.songList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
	} else {
		m.songList.SetItems(items)
	}
	m.songList.Title = m.listTitle()
}

func (m *Model) listTitle() string {
	title := "Cloud Songs"
	if identity := m.auth.Identity(); identity != nil {
		title = fmt.Sprintf("%s's Cloud Songs", identity.Username)
	}

	used, max := m.catalog.Quota()
	if max > 0 {
		title = fmt.Sprintf("%s — %s / %s", title, shared.FormatBytes(used), shared.FormatBytes(max))
	}
	if total := m.catalog.TotalCount(); total >= 0 {
		title = fmt.Sprintf("%s — %d songs (page %d)", title, total, m.catalog.Page())
	}
	return title
}

func (m *Model) renderLogin() string {
	state, reason := m.auth.State()

	switch state {
	case auth.StateAwaitingScan:
		qr, err := shared.QRString(m.auth.LoginURL())
		if err != nil {
			return styles.err.Render(fmt.Sprintf("failed to render QR code: %v", err))
		}
		title := styles.title.Render("Scan with the NetEase Cloud Music app")
		return fmt.Sprintf("%s\n%s\n%s", title, qr, m.help.ShortHelpView([]key.Binding{m.keys.quit}))

	case auth.StateExpired:
		return fmt.Sprintf("%s\n\n%s",
			styles.warn.Render("The QR code expired."),
			m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit}))

	case auth.StateFailed:
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render("Login failed: "+reason),
			m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit}))

	default:
		return styles.help.Render("Preparing login...")
	}
}

func (m *Model) renderSongList() string {
	footer := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.logs, m.keys.refresh, m.keys.quit})
	if m.status != "" {
		footer = fmt.Sprintf("%s\n%s", m.status, footer)
	}
	if m.err != nil {
		footer = fmt.Sprintf("%s\n%s", styles.err.Render(m.err.Error()), footer)
	}
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), footer)
}

func (m *Model) renderMatch() string {
	song, _ := m.catalog.Song(m.selected)
	title := styles.title.Render(fmt.Sprintf("Match %q (%s)", song.Name, song.Artist))
	prompt := fmt.Sprintf("Enter the id of the correct track:\n\n%s", m.matchInput.View())
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, prompt, helpView)
}

func (m *Model) renderLogs() string {
	title := styles.title.Render("Activity Log")

	logs := m.matcher.Logs()
	if len(logs) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s", title,
			styles.help.Render("No match attempts yet."),
			m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	}

	body := ""
	for i := len(logs) - 1; i >= 0; i-- {
		body += renderLogEntry(logs[i]) + "\n"
	}

	return fmt.Sprintf("%s\n%s\n%s", title, body, m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
}
