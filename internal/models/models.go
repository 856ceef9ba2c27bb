package models

import (
	"context"
	"time"
)

// LikedSongsID is the reserved playlist id of the synthesized "Liked Songs" collection.
//
// Track rows under it are shared across users and membership is [Track.UsersWithTrack];
// the playlist entry itself is stored once per owner.
const LikedSongsID = "liked_songs"

// LikedSongsName is the display name of the pseudo-playlist.
const LikedSongsName = "Liked Songs"

// User is a person who logged in through the catalog's OAuth flow.
//
// AccessToken and RefreshToken only ever hold vault ciphertext.
type User struct {
	UserID         string    `bson:"user_id" json:"user_id" validate:"required"`
	DisplayName    string    `bson:"display_name" json:"display_name"`
	Email          string    `bson:"email" json:"email"`
	Country        string    `bson:"country" json:"country"`
	AvatarURL      string    `bson:"avatar_url" json:"avatar_url"`
	ExternalURL    string    `bson:"external_url" json:"external_url"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
	Credits        int       `bson:"credits" json:"credits" validate:"gte=0"`
	IsEnriched     bool      `bson:"is_enriched" json:"is_enriched"`
	SignupEnriched bool      `bson:"signup_enriched" json:"signup_enriched"`
	AccessToken    []byte    `bson:"access_token" json:"-"`
	RefreshToken   []byte    `bson:"refresh_token" json:"-"`
}

// Playlist is one catalog playlist (or the liked songs pseudo-playlist) as seen by OwnerID.
type Playlist struct {
	PlaylistID    string  `bson:"playlist_id" json:"playlist_id" validate:"required"`
	OwnerID       string  `bson:"owner_id" json:"owner_id" validate:"required"`
	Name          string  `bson:"name" json:"name"`
	Description   string  `bson:"description" json:"description"`
	CoverImageURL *string `bson:"cover_image_url" json:"cover_image_url"`
	TrackCount    int     `bson:"track_count" json:"track_count" validate:"gte=0"`
	ExternalURL   string  `bson:"external_url" json:"external_url"`
	IsPublic      bool    `bson:"is_public" json:"is_public"`
	IsEnriched    bool    `bson:"is_enriched" json:"is_enriched"`
}

// IsLikedSongs reports whether p is the synthesized liked songs entry.
func (p Playlist) IsLikedSongs() bool { return p.PlaylistID == LikedSongsID }

// Track is one (track_id, playlist_id) row.
//
// Genre is [genre, subgenre] once enriched and empty before.
type Track struct {
	TrackID        string   `bson:"track_id" json:"track_id" validate:"required"`
	PlaylistID     string   `bson:"playlist_id" json:"playlist_id" validate:"required"`
	Name           string   `bson:"name" json:"name" validate:"required"`
	Artists        []string `bson:"artists" json:"artists"`
	AlbumName      string   `bson:"album_name" json:"album_name"`
	AlbumImageURL  string   `bson:"album_image_url" json:"album_image_url"`
	PreviewURL     *string  `bson:"preview_url" json:"preview_url"`
	ExternalURL    string   `bson:"external_url" json:"external_url"`
	DurationMS     int      `bson:"duration_ms" json:"duration_ms" validate:"gte=0"`
	Genre          []string `bson:"genre" json:"genre"`
	Language       string   `bson:"language" json:"language"`
	IsEnriched     bool     `bson:"is_enriched" json:"is_enriched"`
	Contributor    *string  `bson:"contributor" json:"contributor"`
	ConnectedIDs   []string `bson:"connected_ids" json:"connected_ids"`
	UsersWithTrack []string `bson:"users_with_track" json:"users_with_track"`
}

// HasUser reports whether userID is recorded as owning a copy of t.
func (t Track) HasUser(userID string) bool {
	for _, u := range t.UsersWithTrack {
		if u == userID {
			return true
		}
	}
	return false
}

// GenreParts splits [Track.Genre] into genre and subgenre.
func (t Track) GenreParts() (genre, subgenre string) {
	if len(t.Genre) > 0 {
		genre = t.Genre[0]
	}
	if len(t.Genre) > 1 {
		subgenre = t.Genre[1]
	}
	return genre, subgenre
}

// PlaylistExport is a playlist together with its stored tracks.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Classification is the taxonomy an enrichment run writes onto a track.
type Classification struct {
	Language string `json:"language"`
	Genre    string `json:"genre"`
	Subgenre string `json:"subgenre"`
}

// GenrePair renders c the way [Track.Genre] stores it.
func (c Classification) GenrePair() []string {
	return []string{c.Genre, c.Subgenre}
}

// ApplyEnrichment copies c onto t and marks it enriched by contributor.
func (t *Track) ApplyEnrichment(c Classification, contributor string) {
	t.Genre = c.GenrePair()
	t.Language = c.Language
	t.IsEnriched = true
	if contributor != "" {
		t.Contributor = &contributor
	}
}

// TrackQuery selects track rows.
//
// Member restricts to rows whose users_with_track contains the id, which is how
// liked songs rows are scoped to one user.
type TrackQuery struct {
	PlaylistID   string
	Member       string
	EnrichedOnly bool
	Offset       int
	Limit        int
}

// BulkResult reports a best-effort bulk write: failures do not roll back siblings.
type BulkResult struct {
	Upserted int
	Failed   int
	Errors   []error
}

// Err returns a summary error when any write failed.
func (b BulkResult) Err() error {
	if b.Failed == 0 {
		return nil
	}
	return &BulkError{Failed: b.Failed, Errors: b.Errors}
}

// UserRepository persists users.
type UserRepository interface {
	// GetUser returns [shared.ErrUserNotFound] when no user exists.
	GetUser(ctx context.Context, userID string) (*User, error)
	// SaveLogin inserts the user or refreshes profile fields and tokens,
	// keeping credits and created_at of an existing record.
	SaveLogin(ctx context.Context, user *User) error
	// UpdateTokens replaces the stored ciphertexts; a nil refresh keeps the current one.
	UpdateTokens(ctx context.Context, userID string, access, refresh []byte) error
	// AddCredits increments the balance and returns the new value.
	AddCredits(ctx context.Context, userID string, amount int) (int, error)
	// DebitCredits subtracts amount only when the balance covers it,
	// returning [shared.ErrInsufficientCredits] otherwise.
	DebitCredits(ctx context.Context, userID string, amount int) (int, error)
}

// PlaylistRepository persists playlists keyed by playlist_id (and owner for liked songs).
type PlaylistRepository interface {
	// UpsertPlaylists writes each playlist best-effort and leaves a stored is_enriched untouched.
	UpsertPlaylists(ctx context.Context, playlists []Playlist) BulkResult
	// GetPlaylist returns [shared.ErrPlaylistNotFound] when absent; an empty ownerID matches any owner.
	GetPlaylist(ctx context.Context, playlistID, ownerID string) (*Playlist, error)
	ListPlaylists(ctx context.Context, ownerID string) ([]Playlist, error)
	SetPlaylistEnriched(ctx context.Context, playlistID, ownerID string, enriched bool) error
}

// TrackRepository persists track rows keyed by (track_id, playlist_id).
type TrackRepository interface {
	// UpsertTrack writes catalog fields, adds t.UsersWithTrack to the stored set
	// and only writes enrichment fields when inserting.
	UpsertTrack(ctx context.Context, t Track) error
	GetTrack(ctx context.Context, trackID, playlistID string) (*Track, error)
	// FindTrack returns any row for trackID, preferring an enriched one.
	FindTrack(ctx context.Context, trackID string) (*Track, error)
	ListTracks(ctx context.Context, q TrackQuery) ([]Track, error)
	CountTracks(ctx context.Context, q TrackQuery) (int, error)
	// SetEnrichment writes c onto every unenriched row of trackID and returns how many rows changed.
	SetEnrichment(ctx context.Context, trackID string, c Classification, contributor string) (int, error)
	// AddTrackUser adds userID to users_with_track of the (trackID, playlistID) row.
	AddTrackUser(ctx context.Context, trackID, playlistID, userID string) error
	// TrackPlaylists lists the distinct playlist ids holding trackID.
	TrackPlaylists(ctx context.Context, trackID string) ([]string, error)
}

// Store bundles the repositories over one backend.
type Store interface {
	UserRepository
	PlaylistRepository
	TrackRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
