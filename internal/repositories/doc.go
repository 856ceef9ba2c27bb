// Package repositories implements [models.Store] twice: on SQLite for local and
// test use and on MongoDB for deployments.
//
// Both backends honor the same write rules:
//   - playlists are upserted by playlist_id (liked songs by playlist_id and owner_id)
//     and an update never touches the derived is_enriched flag
//   - tracks are upserted by (track_id, playlist_id); catalog fields are overwritten,
//     enrichment fields are written only on insert, and users_with_track is a set union
//   - enrichment only ever moves a row from unenriched to enriched
//   - credit debits are conditional on the balance covering them
//
// SQLite stores list fields as JSON text and tests membership through json_each.
// MongoDB relies on $setOnInsert, $addToSet and unordered bulk writes.
//
// [Open] picks the backend from [shared.DatabaseConfig] and prepares its schema
// (migrations or indexes).
package repositories
