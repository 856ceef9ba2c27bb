package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.playlist.IsEnriched {
		return i.playlist.Name + " " + styles.ok.Render("✓")
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	if i.track.IsEnriched {
		return styles.ok.Render("●") + " " + i.track.Name
	}
	return styles.help.Render("○") + " " + i.track.Name
}
func (i trackItem) Description() string {
	desc := shared.JoinNonEmpty(", ", i.track.Artists...)
	if i.track.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.AlbumName)
	}
	if i.track.IsEnriched {
		genre, subgenre := i.track.GenreParts()
		desc = fmt.Sprintf("%s • %s", desc, shared.JoinNonEmpty(" / ", genre, subgenre, i.track.Language))
	}
	return desc
}
