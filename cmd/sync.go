package main

import (
	"context"
	"fmt"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tasks"
	"github.com/urfave/cli/v3"
)

type syncMode int

const (
	syncAll syncMode = iota
	syncPlaylistsOnly
	syncPlaylistTracks
	syncLiked
)

type syncDetails struct {
	*tasks.SyncReport
	Errors []string `json:"errors,omitempty"`
}

// Sync imports the user's library. Without flags it runs a full sync.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	playlistID := cmd.String("playlist")

	mode := syncAll
	chosen := 0
	if playlistID != "" {
		mode, chosen = syncPlaylistTracks, chosen+1
	}
	if cmd.Bool("liked") {
		mode, chosen = syncLiked, chosen+1
	}
	if cmd.Bool("playlists-only") {
		mode, chosen = syncPlaylistsOnly, chosen+1
	}
	if chosen > 1 {
		return fmt.Errorf("%w: choose one of --playlist, --liked and --playlists-only", shared.ErrInvalidArgument)
	}

	return r.runSync(ctx, userID, mode, playlistID)
}

func (r *Runner) runSync(ctx context.Context, userID string, mode syncMode, playlistID string) error {
	if _, err := r.tokenManager(ctx); err != nil {
		return err
	}
	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			r.showProgress(update)
		}
	}()

	var report *tasks.SyncReport
	switch mode {
	case syncPlaylistsOnly:
		report, err = engine.SyncPlaylists(ctx, userID, progress)
	case syncPlaylistTracks:
		report, err = engine.SyncTracks(ctx, userID, playlistID, progress)
	case syncLiked:
		report, err = engine.SyncTracks(ctx, userID, models.LikedSongsID, progress)
	default:
		report, err = engine.SyncAll(ctx, userID, progress)
	}
	close(progress)
	<-printed

	if err != nil {
		return err
	}

	details := syncDetails{SyncReport: report}
	for _, e := range report.Errors {
		details.Errors = append(details.Errors, e.Error())
	}
	if report.Failed > 0 {
		r.logger.Warn("sync finished with failures", "user", userID, "failed", report.Failed)
	}

	return r.emit(shared.OK("sync complete", details), func() error {
		r.writePlain("✓ Sync complete: %s\n", report)
		for _, e := range details.Errors {
			r.writePlain("  ✗ %s\n", e)
		}
		return nil
	})
}

func (r *Runner) showProgress(u tasks.ProgressUpdate) {
	if r.jsonOutput {
		r.logger.Debug(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		return
	}
	if u.Total > 0 {
		r.writePlain("  [%s %d/%d] %s\n", u.Phase, u.Step, u.Total, u.Message)
		return
	}
	r.writePlain("  [%s] %s\n", u.Phase, u.Message)
}
