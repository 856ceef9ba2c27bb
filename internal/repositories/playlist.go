package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// PlaylistRepository implements [models.PlaylistRepository] on SQLite.
//
// Catalog playlists are matched on playlist_id alone; the liked songs entry on
// (playlist_id, owner_id).
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new [PlaylistRepository] with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `playlist_id, owner_id, name, description, cover_image_url, track_count,
	external_url, is_public, is_enriched`

// UpsertPlaylists writes each playlist independently; one failure does not stop the rest.
//
// The stored is_enriched flag is left alone on update since it is derived from tracks.
func (r *PlaylistRepository) UpsertPlaylists(ctx context.Context, playlists []models.Playlist) models.BulkResult {
	var res models.BulkResult
	for _, p := range playlists {
		if err := r.upsert(ctx, p); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("playlist %s: %w", p.PlaylistID, err))
			continue
		}
		res.Upserted++
	}
	return res
}

func (r *PlaylistRepository) upsert(ctx context.Context, p models.Playlist) error {
	if err := models.Validate(p); err != nil {
		return err
	}
	update := `
		UPDATE playlists
		SET owner_id = ?, name = ?, description = ?, cover_image_url = ?, track_count = ?,
			external_url = ?, is_public = ?
		WHERE playlist_id = ?`
	args := []any{p.OwnerID, p.Name, p.Description, p.CoverImageURL, p.TrackCount, p.ExternalURL, p.IsPublic, p.PlaylistID}
	if p.IsLikedSongs() {
		update += ` AND owner_id = ?`
		args = append(args, p.OwnerID)
	}

	result, err := r.db.ExecContext(ctx, update, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update playlist: %v", shared.ErrStore, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return nil
	}

	insert := `INSERT INTO playlists (` + playlistColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, insert,
		p.PlaylistID, p.OwnerID, p.Name, p.Description, p.CoverImageURL, p.TrackCount,
		p.ExternalURL, p.IsPublic, p.IsEnriched,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert playlist: %v", shared.ErrStore, err)
	}
	return nil
}

// GetPlaylist retrieves one playlist; an empty ownerID matches any owner.
func (r *PlaylistRepository) GetPlaylist(ctx context.Context, playlistID, ownerID string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE playlist_id = ?`
	args := []any{playlistID}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` LIMIT 1`

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlist: %v", shared.ErrStore, err)
	}
	return p, nil
}

// ListPlaylists returns the owner's playlists, liked songs first, then by name.
func (r *PlaylistRepository) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE owner_id = ?
		ORDER BY playlist_id = ? DESC, name COLLATE NOCASE, playlist_id
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, models.LikedSongsID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlists: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan playlist: %v", shared.ErrStore, err)
		}
		playlists = append(playlists, *p)
	}
	return playlists, rows.Err()
}

// SetPlaylistEnriched persists the derived flag; an empty ownerID matches any owner.
func (r *PlaylistRepository) SetPlaylistEnriched(ctx context.Context, playlistID, ownerID string, enriched bool) error {
	query := `UPDATE playlists SET is_enriched = ? WHERE playlist_id = ?`
	args := []any{enriched, playlistID}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update playlist: %v", shared.ErrStore, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(
		&p.PlaylistID, &p.OwnerID, &p.Name, &p.Description, &p.CoverImageURL, &p.TrackCount,
		&p.ExternalURL, &p.IsPublic, &p.IsEnriched,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
