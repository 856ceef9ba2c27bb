package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// TrackRepository implements [models.TrackRepository] on SQLite.
//
// List fields live in JSON text columns; membership tests use json_each.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const trackColumns = `track_id, playlist_id, name, artists, album_name, album_image_url, preview_url,
	external_url, duration_ms, genre, language, is_enriched, contributor, connected_ids,
	users_with_track`

// UpsertTrack writes catalog fields and merges users_with_track.
//
// Enrichment fields are only written when the row is inserted, so a re-sync
// never reverts a classified track.
func (r *TrackRepository) UpsertTrack(ctx context.Context, t models.Track) error {
	if err := models.Validate(t); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStore, err)
	}
	defer tx.Rollback()

	var usersJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT users_with_track FROM tracks WHERE track_id = ? AND playlist_id = ?`,
		t.TrackID, t.PlaylistID,
	).Scan(&usersJSON)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		insert := `INSERT INTO tracks (` + trackColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, insert,
			t.TrackID, t.PlaylistID, t.Name, encodeList(t.Artists), t.AlbumName, t.AlbumImageURL, t.PreviewURL,
			t.ExternalURL, t.DurationMS, encodeList(t.Genre), t.Language, t.IsEnriched, t.Contributor,
			encodeList(t.ConnectedIDs), encodeList(mergeUsers(nil, t.UsersWithTrack)),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert track: %v", shared.ErrStore, err)
		}
	case err != nil:
		return fmt.Errorf("%w: failed to query track: %v", shared.ErrStore, err)
	default:
		existing, err := decodeList(usersJSON)
		if err != nil {
			return err
		}

		update := `
			UPDATE tracks
			SET name = ?, artists = ?, album_name = ?, album_image_url = ?, preview_url = ?,
				external_url = ?, duration_ms = ?, users_with_track = ?
			WHERE track_id = ? AND playlist_id = ?
		`
		_, err = tx.ExecContext(ctx, update,
			t.Name, encodeList(t.Artists), t.AlbumName, t.AlbumImageURL, t.PreviewURL,
			t.ExternalURL, t.DurationMS, encodeList(mergeUsers(existing, t.UsersWithTrack)),
			t.TrackID, t.PlaylistID,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to update track: %v", shared.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit track: %v", shared.ErrStore, err)
	}
	return nil
}

// GetTrack retrieves the (trackID, playlistID) row.
func (r *TrackRepository) GetTrack(ctx context.Context, trackID, playlistID string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE track_id = ? AND playlist_id = ?`
	return r.one(ctx, trackID, query, trackID, playlistID)
}

// FindTrack returns any row of trackID, preferring an enriched one.
func (r *TrackRepository) FindTrack(ctx context.Context, trackID string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE track_id = ? ORDER BY is_enriched DESC, playlist_id LIMIT 1`
	return r.one(ctx, trackID, query, trackID)
}

func (r *TrackRepository) one(ctx context.Context, trackID, query string, args ...any) (*models.Track, error) {
	t, err := scanTrack(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track: %v", shared.ErrStore, err)
	}
	return t, nil
}

// ListTracks returns the rows selected by q ordered by name.
func (r *TrackRepository) ListTracks(ctx context.Context, q models.TrackQuery) ([]models.Track, error) {
	where, args := trackFilter(q)
	query := `SELECT ` + trackColumns + ` FROM tracks` + where + ` ORDER BY name COLLATE NOCASE, track_id`

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(q.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tracks: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan track: %v", shared.ErrStore, err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// CountTracks counts the rows selected by q, ignoring paging.
func (r *TrackRepository) CountTracks(ctx context.Context, q models.TrackQuery) (int, error) {
	where, args := trackFilter(q)

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count tracks: %v", shared.ErrStore, err)
	}
	return n, nil
}

func trackFilter(q models.TrackQuery) (string, []any) {
	var clauses []string
	var args []any

	if q.PlaylistID != "" {
		clauses = append(clauses, "playlist_id = ?")
		args = append(args, q.PlaylistID)
	}
	if q.Member != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(tracks.users_with_track) WHERE json_each.value = ?)")
		args = append(args, q.Member)
	}
	if q.EnrichedOnly {
		clauses = append(clauses, "is_enriched = 1")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SetEnrichment classifies every not-yet-enriched row of trackID.
func (r *TrackRepository) SetEnrichment(ctx context.Context, trackID string, c models.Classification, contributor string) (int, error) {
	var contrib any
	if contributor != "" {
		contrib = contributor
	}

	query := `
		UPDATE tracks
		SET genre = ?, language = ?, is_enriched = 1, contributor = ?
		WHERE track_id = ? AND is_enriched = 0
	`

	result, err := r.db.ExecContext(ctx, query, encodeList(c.GenrePair()), c.Language, contrib, trackID)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to enrich track: %v", shared.ErrStore, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// AddTrackUser appends userID to the row's users_with_track when absent.
func (r *TrackRepository) AddTrackUser(ctx context.Context, trackID, playlistID, userID string) error {
	query := `
		UPDATE tracks
		SET users_with_track = json_insert(users_with_track, '$[#]', ?)
		WHERE track_id = ? AND playlist_id = ?
			AND NOT EXISTS (SELECT 1 FROM json_each(tracks.users_with_track) WHERE json_each.value = ?)
	`

	result, err := r.db.ExecContext(ctx, query, userID, trackID, playlistID, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to add track user: %v", shared.ErrStore, err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return nil
	}

	// nothing changed: either already a member or no such row
	_, err = r.GetTrack(ctx, trackID, playlistID)
	return err
}

// TrackPlaylists lists the distinct playlist ids holding trackID.
func (r *TrackRepository) TrackPlaylists(ctx context.Context, trackID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT playlist_id FROM tracks WHERE track_id = ? ORDER BY playlist_id`, trackID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track playlists: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan playlist id: %v", shared.ErrStore, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		t                                 models.Track
		artists, genre, connected, member string
	)

	err := row.Scan(
		&t.TrackID, &t.PlaylistID, &t.Name, &artists, &t.AlbumName, &t.AlbumImageURL, &t.PreviewURL,
		&t.ExternalURL, &t.DurationMS, &genre, &t.Language, &t.IsEnriched, &t.Contributor, &connected,
		&member,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{artists, &t.Artists},
		{genre, &t.Genre},
		{connected, &t.ConnectedIDs},
		{member, &t.UsersWithTrack},
	} {
		v, err := decodeList(col.raw)
		if err != nil {
			return nil, err
		}
		*col.dst = v
	}
	return &t, nil
}
