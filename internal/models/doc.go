// Package models defines the documents the service persists and the repository
// interfaces the core depends on.
//
// Three keyed collections exist:
//   - [User] : keyed by the catalog user id, tokens held as vault ciphertext
//   - [Playlist] : keyed by playlist_id; the liked songs pseudo-playlist ([LikedSongsID]) is keyed per owner
//   - [Track] : keyed by (track_id, playlist_id) with a users_with_track membership set
//
// [Store] combines [UserRepository], [PlaylistRepository] and [TrackRepository];
// the repositories package implements it over SQLite and MongoDB.
//
// Payloads crossing the ingestion boundary are checked with [Validate].
package models
