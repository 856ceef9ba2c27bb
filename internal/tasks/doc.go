// Package tasks keeps the store in step with the remote catalog and runs that work in the background.
//
// # Core Operations
//
// [Engine] implements the reconciliation operations:
//
//  1. [Engine.SyncPlaylists] : stores the user's playlist catalog
//     - owner is the authenticated profile, cover is the first image
//     - visibility defaults to public when the catalog omits it
//     - synthesizes the liked songs entry when the user has saved tracks
//
//  2. [Engine.SyncTracks] : stores every track of one playlist
//     - skips catalog placeholders for removed tracks
//     - seeds new rows from an already enriched copy of the same track
//     - recomputes the playlist's is_enriched aggregate last
//
//  3. [Engine.SyncLikedSongs] : stores saved tracks under the shared liked songs rows
//     - a track already enriched there only gains the user as a member
//
//  4. [Engine.SyncAll] : all of the above, collecting partial failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Background Work
//
// [Pool] runs jobs on a fixed number of workers behind a bounded queue. Jobs are
// keyed; submitting a key that is already queued or running returns the
// existing [Handle]. [Scheduler] builds the sync keys on top of it, which is
// what read endpoints use to refresh cached data after responding.
package tasks
