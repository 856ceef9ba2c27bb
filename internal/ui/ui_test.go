package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

type fakeLibrary struct {
	playlists []models.Playlist
	exports   map[string]*models.PlaylistExport
	err       error
}

func (f *fakeLibrary) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	return f.playlists, f.err
}

func (f *fakeLibrary) LoadExport(ctx context.Context, playlistID, ownerID string) (*models.PlaylistExport, error) {
	e, ok := f.exports[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return e, nil
}

type fakeWallet struct {
	balance int
	got     []string
	err     error
}

func (f *fakeWallet) Balance(ctx context.Context, userID string) (int, error) {
	return f.balance, nil
}

func (f *fakeWallet) EnrichBatch(ctx context.Context, userID string, trackIDs []string) (*credits.BatchReport, error) {
	f.got = trackIDs
	if f.err != nil {
		return nil, f.err
	}
	cost, _ := credits.Cost(len(trackIDs))
	f.balance -= cost
	return &credits.BatchReport{UserID: userID, Requested: len(trackIDs), Cost: cost, Charged: cost, Enriched: len(trackIDs), Balance: f.balance}, nil
}

func newTestModel() (*Model, *fakeLibrary, *fakeWallet) {
	mix := models.Playlist{PlaylistID: "pl1", OwnerID: "u1", Name: "Mix", TrackCount: 3}
	lib := &fakeLibrary{
		playlists: []models.Playlist{mix},
		exports: map[string]*models.PlaylistExport{
			"pl1": {
				Playlist: mix,
				Tracks: []models.Track{
					{TrackID: "t1", PlaylistID: "pl1", Name: "One", Artists: []string{"A"}},
					{TrackID: "t2", PlaylistID: "pl1", Name: "Two", Artists: []string{"B"}, IsEnriched: true, Genre: []string{"Rock", "Grunge"}, Language: "English"},
					{TrackID: "t3", PlaylistID: "pl1", Name: "Three", Artists: []string{"C"}},
				},
			},
		},
	}
	wallet := &fakeWallet{balance: 2}
	m := NewModel(context.Background(), "u1", lib, lib, wallet)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, lib, wallet
}

// run executes cmd and feeds the resulting message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m.Update(cmd())
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnrichFlow(t *testing.T) {
	m, _, wallet := newTestModel()
	run(t, m, m.Init())

	if m.view != PlaylistListView || len(m.playlistList.Items()) != 1 {
		t.Fatalf("expected playlist list with one item, got view %d", m.view)
	}

	_, cmd := m.Update(keyPress("enter"))
	run(t, m, cmd)
	if m.view != TrackListView || len(m.trackList.Items()) != 3 || m.balance != 2 {
		t.Fatalf("expected track list, got view %d balance %d", m.view, m.balance)
	}
	if !strings.Contains(m.View(), "2 credits") {
		t.Errorf("expected balance in view: %s", m.View())
	}

	m.Update(keyPress("e"))
	if m.view != ConfirmView {
		t.Fatalf("expected confirm view, got %d", m.view)
	}
	if len(m.pending) != 2 || m.pending[0] != "t1" || m.pending[1] != "t3" {
		t.Errorf("expected only unenriched tracks pending, got %v", m.pending)
	}
	if !strings.Contains(m.View(), "Cost: 1 credits") {
		t.Errorf("expected cost in view: %s", m.View())
	}

	m.Update(keyPress("y"))
	if m.view != EnrichView {
		t.Fatalf("expected enrich view, got %d", m.view)
	}
	m.Update(m.enrich(m.pending)())

	if m.view != ResultView || m.report == nil || m.report.Enriched != 2 {
		t.Fatalf("expected result view with report, got view %d report %+v", m.view, m.report)
	}
	if len(wallet.got) != 2 || m.balance != 1 {
		t.Errorf("unexpected wallet state %v balance %d", wallet.got, m.balance)
	}
	if !strings.Contains(m.View(), "Enrichment Complete") {
		t.Errorf("expected completion in view: %s", m.View())
	}
}

func TestConfirmDecline(t *testing.T) {
	m, _, wallet := newTestModel()
	run(t, m, m.Init())
	_, cmd := m.Update(keyPress("enter"))
	run(t, m, cmd)

	m.Update(keyPress("e"))
	m.Update(keyPress("n"))
	if m.view != TrackListView || wallet.got != nil {
		t.Errorf("expected decline to return to tracks, got view %d", m.view)
	}
}

func TestEnrichRejected(t *testing.T) {
	m, _, wallet := newTestModel()
	wallet.err = shared.ErrInsufficientCredits
	run(t, m, m.Init())
	_, cmd := m.Update(keyPress("enter"))
	run(t, m, cmd)

	m.Update(keyPress("e"))
	m.Update(keyPress("y"))
	m.Update(m.enrich(m.pending)())

	if m.view != ResultView || !errors.Is(m.err, shared.ErrInsufficientCredits) {
		t.Fatalf("expected failed result, got view %d err %v", m.view, m.err)
	}
	if !strings.Contains(m.View(), "Enrichment failed") {
		t.Errorf("expected failure in view: %s", m.View())
	}
}

func TestPlaylistLoadError(t *testing.T) {
	m, lib, _ := newTestModel()
	lib.err = shared.ErrStore

	m.Update(m.Init()())
	if !errors.Is(m.Err(), shared.ErrStore) {
		t.Errorf("expected ErrStore, got %v", m.Err())
	}
	if !strings.Contains(m.View(), "Error") {
		t.Errorf("expected error view: %s", m.View())
	}
}

func TestUnenrichedIDs(t *testing.T) {
	if ids := unenrichedIDs(nil); ids != nil {
		t.Errorf("expected nil, got %v", ids)
	}
}
