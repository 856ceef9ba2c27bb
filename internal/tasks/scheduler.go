package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// Syncer is the part of [Engine] the scheduler drives.
type Syncer interface {
	SyncPlaylists(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error)
	SyncTracks(ctx context.Context, userID, playlistID string, progress chan<- ProgressUpdate) (*SyncReport, error)
	SyncAll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error)
}

var _ Syncer = (*Engine)(nil)

// Scheduler submits background syncs so that repeated requests for the same
// user and playlist coalesce into one run.
type Scheduler struct {
	syncer Syncer
	pool   Submitter
	logger *log.Logger
}

func NewScheduler(syncer Syncer, pool Submitter, logger *log.Logger) *Scheduler {
	return &Scheduler{syncer: syncer, pool: pool, logger: shared.WithLogger(logger, "component", "scheduler")}
}

func SyncAllKey(userID string) string       { return "sync_all:" + userID }
func SyncPlaylistsKey(userID string) string { return "sync_playlists:" + userID }

// SyncTracksKey keys track syncs; liked songs are per user, other playlists are shared.
func SyncTracksKey(userID, playlistID string) string {
	if playlistID == models.LikedSongsID {
		return "sync_tracks:" + playlistID + ":" + userID
	}
	return "sync_tracks:" + playlistID
}

func (s *Scheduler) SyncAll(userID string) (*Handle, error) {
	return s.submit(SyncAllKey(userID), func(ctx context.Context) error {
		report, err := s.syncer.SyncAll(ctx, userID, nil)
		return s.finish(report, err)
	})
}

func (s *Scheduler) SyncPlaylists(userID string) (*Handle, error) {
	return s.submit(SyncPlaylistsKey(userID), func(ctx context.Context) error {
		report, err := s.syncer.SyncPlaylists(ctx, userID, nil)
		return s.finish(report, err)
	})
}

func (s *Scheduler) SyncTracks(userID, playlistID string) (*Handle, error) {
	return s.submit(SyncTracksKey(userID, playlistID), func(ctx context.Context) error {
		report, err := s.syncer.SyncTracks(ctx, userID, playlistID, nil)
		return s.finish(report, err)
	})
}

// Run submits fn under a fresh key; such jobs never coalesce.
func (s *Scheduler) Run(name string, fn Job) (*Handle, error) {
	return s.submit(uuidKey(name), fn)
}

// TracksInFlight reports whether a track sync of playlistID for userID is pending.
func (s *Scheduler) TracksInFlight(userID, playlistID string) bool {
	return s.pool.InFlight(SyncTracksKey(userID, playlistID)) || s.pool.InFlight(SyncAllKey(userID))
}

func (s *Scheduler) submit(key string, fn Job) (*Handle, error) {
	h, err := s.pool.Submit(key, fn)
	if err != nil {
		s.logger.Warn("sync not scheduled", "task", key, "err", err)
		return nil, err
	}
	return h, nil
}

func (s *Scheduler) finish(report *SyncReport, err error) error {
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		s.logger.Warn("sync finished with failures", "user", report.UserID, "failed", report.Failed, "err", report.Err())
	}
	return nil
}
