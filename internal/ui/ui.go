package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	EnrichView
	ResultView
)

// Library lists the stored playlists of a user.
type Library interface {
	ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// Loader reads a stored playlist with its tracks.
type Loader interface {
	LoadExport(ctx context.Context, playlistID, ownerID string) (*models.PlaylistExport, error)
}

// Wallet is the credit side of enrichment.
type Wallet interface {
	Balance(ctx context.Context, userID string) (int, error)
	EnrichBatch(ctx context.Context, userID string, trackIDs []string) (*credits.BatchReport, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	userID       string
	view         ViewState
	library      Library
	loader       Loader
	wallet       Wallet
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     *models.PlaylistExport
	balance      int
	pending      []string
	report       *credits.BatchReport
	spinner      spinner.Model
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model browsing userID's library.
func NewModel(ctx context.Context, userID string, library Library, loader Loader, wallet Wallet) *Model {
	return &Model{
		ctx:          ctx,
		userID:       userID,
		view:         PlaylistListView,
		library:      library,
		loader:       loader,
		wallet:       wallet,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading the stored playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case EnrichView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != EnrichView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsPayload)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList.Title = "Playlists"
		return m, m.playlistList.SetItems(items)

	case MsgTracksFetched:
		data := msg.data.(tracksPayload)
		if data.err != nil {
			m.err = data.err
			m.view = PlaylistListView
			return m, nil
		}
		m.err = nil
		m.selected = data.export
		m.balance = data.balance
		items := make([]list.Item, len(data.export.Tracks))
		for i, track := range data.export.Tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", data.export.Playlist.Name)
		m.trackList.ResetSelected()
		m.view = TrackListView
		return m, m.trackList.SetItems(items)

	case MsgEnrichComplete:
		data := msg.data.(enrichPayload)
		m.report = data.report
		m.err = data.err
		if data.report != nil {
			m.balance = data.report.Balance
		}
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case EnrichView:
		return m.renderEnrich()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchTracks(pl.playlist.PlaylistID)
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.enrich), key.Matches(msg, m.keys.enter):
		m.pending = unenrichedIDs(m.selected)
		m.view = ConfirmView
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		if len(m.pending) == 0 {
			m.view = TrackListView
			return m, nil
		}
		m.view = EnrichView
		return m, tea.Batch(m.spinner.Tick, m.enrich(m.pending))
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.report = nil
		m.err = nil
		return m, m.fetchTracks(m.selected.Playlist.PlaylistID)
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.ListPlaylists(m.ctx, m.userID)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		export, err := m.loader.LoadExport(m.ctx, playlistID, m.userID)
		if err != nil {
			return tracksFetchedMsg(nil, 0, err)
		}
		balance, err := m.wallet.Balance(m.ctx, m.userID)
		return tracksFetchedMsg(export, balance, err)
	}
}

func (m *Model) enrich(trackIDs []string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.wallet.EnrichBatch(m.ctx, m.userID, trackIDs)
		return enrichCompleteMsg(report, err)
	}
}

func unenrichedIDs(export *models.PlaylistExport) []string {
	if export == nil {
		return nil
	}
	var ids []string
	for _, t := range export.Tracks {
		if !t.IsEnriched {
			ids = append(ids, t.TrackID)
		}
	}
	return ids
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enrich, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	balance := styles.help.Render(fmt.Sprintf("%d credits", m.balance))
	return fmt.Sprintf("%s\n%s\n\n%s", m.trackList.View(), balance, helpView)
}

func (m *Model) renderConfirm() string {
	name := m.selected.Playlist.Name
	if len(m.pending) == 0 {
		title := styles.ok.Render(fmt.Sprintf("Every track in '%s' is already enriched.", name))
		return fmt.Sprintf("%s\n\n%s", title, m.help.ShortHelpView([]key.Binding{m.keys.back}))
	}

	cost, _ := credits.Cost(len(m.pending))
	title := styles.title.Render(fmt.Sprintf("Enrich %d tracks in '%s'?", len(m.pending), name))
	info := fmt.Sprintf("\nCost: %d credits\nBalance: %d credits\n", cost, m.balance)
	if cost > m.balance {
		info += styles.warn.Render("\nNot enough credits: the batch will be rejected.") + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderEnrich() string {
	title := styles.title.Render("Enriching Tracks")
	return fmt.Sprintf("%s\n\n%s Classifying %d tracks...", title, m.spinner.View(), len(m.pending))
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil && m.report == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Enrichment failed: %v", m.err)), helpView)
	}
	if m.report == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	r := m.report
	title := styles.ok.Render("✓ Enrichment Complete!")
	info := fmt.Sprintf(
		"\nEnriched: %d\nAlready enriched: %d\nFailed: %d\nCharged: %d credits\nBalance: %d credits",
		r.Enriched, r.AlreadyEnriched, r.Failed, r.Charged, r.Balance,
	)

	var failed strings.Builder
	if r.Failed > 0 {
		failed.WriteString("\n\n" + styles.warn.Render(fmt.Sprintf("Failed to enrich %d tracks:", r.Failed)))
		for _, f := range r.Failures {
			fmt.Fprintf(&failed, "\n  • %s: %s", f.TrackID, f.Error)
		}
	}
	if m.err != nil {
		failed.WriteString("\n\n" + styles.warn.Render(m.err.Error()))
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed.String(), helpView)
}
