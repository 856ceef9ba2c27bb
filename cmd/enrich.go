package main

import (
	"context"
	"fmt"

	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/enrichment"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/urfave/cli/v3"
)

// Enrich runs one credit-gated batch over the given tracks, or over the
// unenriched tracks of a playlist.
func (r *Runner) Enrich(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	playlistID := cmd.String("playlist")
	trackIDs := cmd.StringSlice("track")

	if playlistID == "" && len(trackIDs) == 0 {
		return fmt.Errorf("%w: --playlist or --track is required", shared.ErrMissingArgument)
	}
	if playlistID != "" && len(trackIDs) > 0 {
		return fmt.Errorf("%w: cannot specify both --playlist and --track", shared.ErrInvalidArgument)
	}

	ledger, err := r.ledger(ctx, true)
	if err != nil {
		return err
	}

	if playlistID != "" {
		engine, err := r.syncEngine(ctx)
		if err != nil {
			return err
		}
		export, err := engine.LoadExport(ctx, playlistID, userID)
		if err != nil {
			return err
		}
		for _, t := range export.Tracks {
			if !t.IsEnriched {
				trackIDs = append(trackIDs, t.TrackID)
			}
		}
		if len(trackIDs) == 0 {
			return r.emit(shared.OK("nothing to enrich", map[string]string{"playlist_id": playlistID}), func() error {
				return r.writePlain("✓ Every track of %s is already enriched\n", export.Playlist.Name)
			})
		}
		cost, _ := credits.Cost(len(trackIDs))
		r.notef("→ Enriching %d tracks of %s (%d credits)\n", len(trackIDs), export.Playlist.Name, cost)
	}

	report, err := ledger.EnrichBatch(ctx, userID, trackIDs)
	if report == nil {
		return err
	}
	if err != nil {
		r.logger.Error("enrichment batch finished with an error", "user", userID, "err", err)
	}

	res := shared.OK("enrichment complete", report)
	if err != nil {
		res = shared.Result{Message: err.Error(), Details: report}
	}
	if writeErr := r.emit(res, func() error { return r.showBatch(report) }); writeErr != nil {
		return writeErr
	}
	return err
}

// Classify asks the oracle about one track and prints the mapped taxonomy.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	classifier, err := r.classifier()
	if err != nil {
		return err
	}

	info := enrichment.TrackInfo{
		Name:    cmd.String("name"),
		Artists: cmd.StringSlice("artist"),
		Album:   cmd.String("album"),
	}
	c, err := classifier.Classify(ctx, info)
	if err != nil {
		return err
	}

	return r.emit(shared.OK("classified", c), func() error {
		r.writePlain("Language: %s\n", c.Language)
		r.writePlain("Genre:    %s\n", c.Genre)
		if c.Subgenre != "" {
			r.writePlain("Subgenre: %s\n", c.Subgenre)
		}
		return nil
	})
}

func (r *Runner) showBatch(report *credits.BatchReport) error {
	r.writePlainHeader("Enrichment")
	r.writePlain("Requested:        %d\n", report.Requested)
	r.writePlain("Newly enriched:   %d\n", report.Enriched)
	r.writePlain("Already enriched: %d\n", report.AlreadyEnriched)
	r.writePlain("Failed:           %d\n", report.Failed)
	r.writePlain("Charged:          %d of %d credits\n", report.Charged, report.Cost)
	r.writePlain("Balance:          %d\n", report.Balance)
	for _, f := range report.Failures {
		r.writePlain("  ✗ %s: %s\n", f.TrackID, f.Error)
	}
	return nil
}
