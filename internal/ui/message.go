package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgTracksFetched
	MsgEnrichComplete
)

type playlistsPayload struct {
	playlists []models.Playlist
	err       error
}

type tracksPayload struct {
	export  *models.PlaylistExport
	balance int
	err     error
}

type enrichPayload struct {
	report *credits.BatchReport
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsPayload{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(export *models.PlaylistExport, balance int, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksPayload{export, balance, err}}
}

// enrichCompleteMsg is the constructor for [MsgEnrichComplete]
func enrichCompleteMsg(report *credits.BatchReport, err error) Msg {
	return Msg{kind: MsgEnrichComplete, data: enrichPayload{report, err}}
}
