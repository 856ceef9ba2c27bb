// package tasks reconciles the remote catalog into the store.
//
// The core abstraction is [Engine], which syncs playlists, playlist tracks and
// liked songs and recomputes playlist enrichment aggregates. Operations emit
// progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/catalog"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// LikedSongsURL is the web link of a user's liked songs collection.
const LikedSongsURL = "https://open.spotify.com/collection/tracks"

// BearerSource hands out a refreshing bearer token for a user.
type BearerSource interface {
	Bearer(ctx context.Context, userID string) (*catalog.Bearer, error)
}

// SyncReport counts what one sync wrote.
//
// Errors holds per-item failures that did not abort the sync.
type SyncReport struct {
	UserID    string  `json:"user_id"`
	Playlists int     `json:"playlists"`
	Tracks    int     `json:"tracks"`
	Skipped   int     `json:"skipped"`
	Shared    int     `json:"shared"`
	Failed    int     `json:"failed"`
	Errors    []error `json:"-"`
}

func (r *SyncReport) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

func (r *SyncReport) merge(o *SyncReport) {
	if o == nil {
		return
	}
	r.Playlists += o.Playlists
	r.Tracks += o.Tracks
	r.Skipped += o.Skipped
	r.Shared += o.Shared
	r.Failed += o.Failed
	r.Errors = append(r.Errors, o.Errors...)
}

// Err joins the collected per-item failures.
func (r *SyncReport) Err() error {
	return errors.Join(r.Errors...)
}

func (r *SyncReport) String() string {
	return fmt.Sprintf("%d playlists, %d tracks, %d skipped, %d shared, %d failed",
		r.Playlists, r.Tracks, r.Skipped, r.Shared, r.Failed)
}

// Engine implements catalog to store reconciliation.
//
// Every write is a keyed upsert so any operation can be re-run.
type Engine struct {
	store   models.Store
	fetcher *catalog.Fetcher
	bearers BearerSource
	logger  *log.Logger
}

// NewEngine creates an Engine over store, fetching through fetcher with tokens from bearers.
func NewEngine(store models.Store, fetcher *catalog.Fetcher, bearers BearerSource, logger *log.Logger) *Engine {
	return &Engine{
		store:   store,
		fetcher: fetcher,
		bearers: bearers,
		logger:  shared.WithLogger(logger, "component", "sync"),
	}
}

// SyncPlaylists stores the user's full playlist catalog plus the liked songs
// entry when the user has any saved tracks.
func (e *Engine) SyncPlaylists(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	b, err := e.bearers.Bearer(ctx, userID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchProfileUpdate())
	profile, err := e.fetcher.Profile(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	ownerID := profile.ID

	sendProgress(progress, fetchPlaylistsUpdate(-1))
	items, err := e.fetcher.Playlists(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	playlists := make([]models.Playlist, 0, len(items)+1)
	for _, item := range items {
		playlists = append(playlists, PlaylistFromCatalog(item, ownerID))
	}

	saved, err := e.fetcher.SavedTracksTotal(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to count liked songs: %w", err)
	}
	if saved > 0 {
		playlists = append(playlists, LikedSongsPlaylist(ownerID, saved))
	}
	sendProgress(progress, fetchPlaylistsUpdate(len(playlists)))

	res := e.store.UpsertPlaylists(ctx, playlists)
	report := &SyncReport{UserID: ownerID, Playlists: res.Upserted}
	for _, err := range res.Errors {
		report.fail(err)
	}

	e.logger.Info("playlists synced", "user", ownerID, "playlists", res.Upserted, "failed", res.Failed, "liked", saved)
	return report, nil
}

// SyncTracks stores every track of one playlist and recomputes its aggregate.
//
// The liked songs id is routed to [Engine.SyncLikedSongs].
func (e *Engine) SyncTracks(ctx context.Context, userID, playlistID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	if playlistID == models.LikedSongsID {
		return e.SyncLikedSongs(ctx, userID, progress)
	}

	b, err := e.bearers.Bearer(ctx, userID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchTracksUpdate(1, 1, playlistID))
	items, err := e.fetcher.PlaylistTracks(ctx, b, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks of %s: %w", playlistID, err)
	}

	report := &SyncReport{UserID: userID}
	for i, item := range items {
		if item.Track == nil || item.Track.ID == "" {
			report.Skipped++
			continue
		}

		t := TrackFromCatalog(*item.Track, playlistID)
		t.UsersWithTrack = []string{userID}
		if err := e.upsertSeeded(ctx, t); err != nil {
			report.fail(fmt.Errorf("track %s: %w", t.TrackID, err))
			continue
		}
		report.Tracks++
		sendProgress(progress, storeTracksUpdate(i+1, len(items), playlistID))
	}

	if err := e.recompute(ctx, playlistID, "", progress); err != nil {
		report.fail(err)
	}

	e.logger.Info("tracks synced", "user", userID, "playlist", playlistID, "tracks", report.Tracks, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// SyncLikedSongs stores the user's saved tracks under the shared liked songs rows.
//
// A track already enriched under the liked songs id only gains userID as a member,
// so classified tracks are never re-imported.
func (e *Engine) SyncLikedSongs(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	b, err := e.bearers.Bearer(ctx, userID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchLikedUpdate())
	items, err := e.fetcher.SavedTracks(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch liked songs: %w", err)
	}

	report := &SyncReport{UserID: userID}
	kept := 0
	for i, item := range items {
		if item.Track == nil || item.Track.ID == "" {
			report.Skipped++
			continue
		}
		kept++

		existing, err := e.store.GetTrack(ctx, item.Track.ID, models.LikedSongsID)
		if err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
			report.fail(fmt.Errorf("track %s: %w", item.Track.ID, err))
			continue
		}
		if existing != nil && existing.IsEnriched {
			if !existing.HasUser(userID) {
				if err := e.store.AddTrackUser(ctx, existing.TrackID, models.LikedSongsID, userID); err != nil {
					report.fail(fmt.Errorf("track %s: %w", existing.TrackID, err))
					continue
				}
			}
			report.Shared++
			continue
		}

		t := TrackFromCatalog(*item.Track, models.LikedSongsID)
		t.UsersWithTrack = []string{userID}
		if err := e.upsertSeeded(ctx, t); err != nil {
			report.fail(fmt.Errorf("track %s: %w", t.TrackID, err))
			continue
		}
		report.Tracks++
		sendProgress(progress, storeTracksUpdate(i+1, len(items), models.LikedSongsID))
	}

	if kept > 0 {
		res := e.store.UpsertPlaylists(ctx, []models.Playlist{LikedSongsPlaylist(userID, kept)})
		for _, err := range res.Errors {
			report.fail(err)
		}
	}

	if err := e.recompute(ctx, models.LikedSongsID, userID, progress); err != nil {
		report.fail(err)
	}

	e.logger.Info("liked songs synced", "user", userID, "tracks", report.Tracks, "shared", report.Shared, "failed", report.Failed)
	return report, nil
}

// SyncAll syncs playlists, then the tracks of every stored playlist, then liked songs.
//
// Only a failed playlist sync aborts; later failures are collected in the report.
func (e *Engine) SyncAll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	report, err := e.SyncPlaylists(ctx, userID, progress)
	if err != nil {
		return nil, err
	}

	playlists, err := e.store.ListPlaylists(ctx, report.UserID)
	if err != nil {
		return report, err
	}

	regular := make([]models.Playlist, 0, len(playlists))
	liked := false
	for _, p := range playlists {
		if p.IsLikedSongs() {
			liked = true
			continue
		}
		regular = append(regular, p)
	}

	for i, p := range regular {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sendProgress(progress, fetchTracksUpdate(i+1, len(regular), p.Name))

		tracks, err := e.SyncTracks(ctx, report.UserID, p.PlaylistID, nil)
		if err != nil {
			report.fail(fmt.Errorf("playlist %s: %w", p.PlaylistID, err))
			continue
		}
		report.merge(tracks)
	}

	if liked {
		tracks, err := e.SyncLikedSongs(ctx, report.UserID, progress)
		if err != nil {
			report.fail(fmt.Errorf("liked songs: %w", err))
		} else {
			report.merge(tracks)
		}
	}

	sendProgress(progress, doneUpdate(report))
	return report, nil
}

// RecomputePlaylist derives a playlist's is_enriched flag from its stored tracks
// and persists it.
//
// Liked songs are scoped to ownerID's membership, which is therefore required;
// for other playlists an empty ownerID matches the stored entry whatever its owner.
func (e *Engine) RecomputePlaylist(ctx context.Context, playlistID, ownerID string) (bool, error) {
	q := models.TrackQuery{PlaylistID: playlistID}
	if playlistID == models.LikedSongsID {
		if ownerID == "" {
			return false, fmt.Errorf("%w: liked songs need an owner", shared.ErrMissingArgument)
		}
		q.Member = ownerID
	}

	total, err := e.store.CountTracks(ctx, q)
	if err != nil {
		return false, err
	}
	q.EnrichedOnly = true
	enriched, err := e.store.CountTracks(ctx, q)
	if err != nil {
		return false, err
	}

	isEnriched := total > 0 && enriched == total
	if err := e.store.SetPlaylistEnriched(ctx, playlistID, ownerID, isEnriched); err != nil {
		return false, err
	}

	e.logger.Debug("playlist recomputed", "playlist", playlistID, "owner", ownerID, "enriched", enriched, "total", total)
	return isEnriched, nil
}

func (e *Engine) recompute(ctx context.Context, playlistID, ownerID string, progress chan<- ProgressUpdate) error {
	enriched, err := e.RecomputePlaylist(ctx, playlistID, ownerID)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		// tracks can be synced before their playlist entry exists
		e.logger.Warn("no playlist entry to recompute", "playlist", playlistID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recompute %s: %w", playlistID, err)
	}
	sendProgress(progress, recomputeUpdate(playlistID, enriched))
	return nil
}

// upsertSeeded writes t, first copying enrichment from an enriched row of the
// same track id so a new row never starts behind what is already known.
//
// The store only honours enrichment fields on insert, so an existing row is unaffected.
func (e *Engine) upsertSeeded(ctx context.Context, t models.Track) error {
	found, err := e.store.FindTrack(ctx, t.TrackID)
	switch {
	case err == nil && found.IsEnriched:
		genre, subgenre := found.GenreParts()
		by := ""
		if found.Contributor != nil {
			by = *found.Contributor
		}
		t.ApplyEnrichment(models.Classification{Language: found.Language, Genre: genre, Subgenre: subgenre}, by)
	case err != nil && !errors.Is(err, shared.ErrTrackNotFound):
		return err
	}
	return e.store.UpsertTrack(ctx, t)
}

// PlaylistFromCatalog maps a catalog playlist onto the stored shape.
//
// The owner is the authenticated user, the cover is the first image, and
// visibility defaults to public when the catalog omits it.
func PlaylistFromCatalog(item services.SpotifySimplePlaylist, ownerID string) models.Playlist {
	p := models.Playlist{
		PlaylistID:  item.ID,
		OwnerID:     ownerID,
		Name:        item.Name,
		Description: item.Description,
		TrackCount:  item.Tracks.Total,
		ExternalURL: item.ExternalURLs.Spotify,
		IsPublic:    true,
	}
	if item.Public != nil {
		p.IsPublic = *item.Public
	}
	if len(item.Images) > 0 && item.Images[0].URL != "" {
		cover := item.Images[0].URL
		p.CoverImageURL = &cover
	}
	return p
}

// LikedSongsPlaylist synthesizes the liked songs entry of ownerID.
func LikedSongsPlaylist(ownerID string, count int) models.Playlist {
	return models.Playlist{
		PlaylistID:  models.LikedSongsID,
		OwnerID:     ownerID,
		Name:        models.LikedSongsName,
		Description: "Tracks you liked",
		TrackCount:  count,
		ExternalURL: LikedSongsURL,
		IsPublic:    false,
	}
}

// TrackFromCatalog maps a catalog track onto an unenriched row of playlistID.
func TrackFromCatalog(t services.SpotifyTrack, playlistID string) models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if name := strings.TrimSpace(a.Name); name != "" {
			artists = append(artists, name)
		}
	}

	track := models.Track{
		TrackID:        t.ID,
		PlaylistID:     playlistID,
		Name:           t.Name,
		Artists:        artists,
		AlbumName:      t.Album.Name,
		PreviewURL:     t.PreviewURL,
		ExternalURL:    t.ExternalURLs.Spotify,
		DurationMS:     t.DurationMS,
		Genre:          []string{},
		ConnectedIDs:   []string{},
		UsersWithTrack: []string{},
	}
	if len(t.Album.Images) > 0 {
		track.AlbumImageURL = t.Album.Images[0].URL
	}
	return track
}
