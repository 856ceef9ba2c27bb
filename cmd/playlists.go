package main

import (
	"context"
	"fmt"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tasks"
	"github.com/urfave/cli/v3"
)

type trackPage struct {
	Playlist models.Playlist `json:"playlist"`
	Tracks   []models.Track  `json:"tracks"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"has_more"`
}

// PlaylistsList lists the stored playlists of a user.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	playlists, err := store.ListPlaylists(ctx, userID)
	if err != nil {
		return err
	}

	return r.emit(shared.OK(fmt.Sprintf("%d playlists", len(playlists)), playlists), func() error {
		if len(playlists) == 0 {
			return r.writePlain("No stored playlists. Run 'spotify-playlist-app sync --user %s' first.\n", userID)
		}

		r.writePlain("Found %d playlists:\n\n", len(playlists))
		for i, p := range playlists {
			r.writePlain("%d. %s\n", i+1, p.Name)
			if p.Description != "" {
				r.writePlain("   Description: %s\n", p.Description)
			}
			r.writePlain("   ID: %s\n", p.PlaylistID)
			r.writePlain("   Tracks: %d\n", p.TrackCount)
			r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.IsPublic))
			if p.IsEnriched {
				r.writePlain("   Enriched: yes\n")
			}
			r.writePlain("\n")
		}
		return nil
	})
}

// PlaylistTracks prints one page of a stored playlist's tracks.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	playlistID := cmd.String("id")
	offset := cmd.Int("offset")
	limit := cmd.Int("limit")
	if offset < 0 || limit < 0 {
		return fmt.Errorf("%w: offset and limit must not be negative", shared.ErrInvalidFlag)
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	q := models.TrackQuery{PlaylistID: playlistID, Offset: offset, Limit: limit}
	owner := ""
	if playlistID == models.LikedSongsID {
		q.Member, owner = userID, userID
	}

	playlist, err := store.GetPlaylist(ctx, playlistID, owner)
	if err != nil {
		return err
	}
	tracks, err := store.ListTracks(ctx, q)
	if err != nil {
		return err
	}
	total, err := store.CountTracks(ctx, models.TrackQuery{PlaylistID: q.PlaylistID, Member: q.Member})
	if err != nil {
		return err
	}

	page := trackPage{
		Playlist: *playlist,
		Tracks:   tracks,
		Total:    total,
		HasMore:  limit > 0 && offset+len(tracks) < total,
	}

	return r.emit(shared.OK(fmt.Sprintf("%d of %d tracks", len(tracks), total), page), func() error {
		r.writePlain("Playlist: %s (%d tracks)\n\n", playlist.Name, total)
		for i, t := range tracks {
			marker := " "
			if t.IsEnriched {
				marker = "✓"
			}
			r.writePlain("%s %d. %s - %s [%s]\n", marker, offset+i+1, shared.JoinNonEmpty(", ", t.Artists...), t.Name, shared.FormatDuration(t.DurationMS))
			if genre, subgenre := t.GenreParts(); genre != "" {
				r.writePlain("     %s\n", shared.JoinNonEmpty(" / ", genre, subgenre, t.Language))
			}
		}
		if page.HasMore {
			r.writePlain("\n… more tracks available (--offset %d)\n", offset+len(tracks))
		}
		return nil
	})
}

// PlaylistsExport writes stored playlists to files and a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	ids := cmd.StringSlice("id")

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		store, err := r.openStore(ctx)
		if err != nil {
			return err
		}
		playlists, err := store.ListPlaylists(ctx, userID)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			ids = append(ids, p.PlaylistID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no stored playlists for %s", shared.ErrPlaylistNotFound, userID)
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)*2)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			r.showProgress(update)
		}
	}()

	result, err := engine.BulkExport(ctx, progress, userID, ids, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progress)
	<-printed
	if err != nil && result == nil {
		return err
	}

	details := map[string]any{
		"output_directory": result.OutputDirectory,
		"manifest":         result.ManifestPath,
		"exported":         result.SuccessfulExports,
		"failed":           result.FailedExports,
	}
	if emitErr := r.emit(shared.ResultOf("export complete", details, err), func() error {
		r.writePlain("✓ Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %v\n", res.PlaylistName, res.Error)
			}
		}
		return nil
	}); emitErr != nil {
		return emitErr
	}
	return err
}
