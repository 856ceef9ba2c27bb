package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/formatter"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: playlists_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5)
}

// LoadExport reads a stored playlist with its tracks.
//
// Liked songs are restricted to ownerID's membership.
func (e *Engine) LoadExport(ctx context.Context, playlistID, ownerID string) (*models.PlaylistExport, error) {
	owner := ""
	q := models.TrackQuery{PlaylistID: playlistID}
	if playlistID == models.LikedSongsID {
		owner = ownerID
		q.Member = ownerID
	}

	p, err := e.store.GetPlaylist(ctx, playlistID, owner)
	if err != nil {
		return nil, err
	}
	tracks, err := e.store.ListTracks(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistExport{Playlist: *p, Tracks: tracks}, nil
}

// BulkExport exports stored playlists concurrently and writes a manifest.
//
// A worker pool renders each playlist; partial failures are recorded per
// playlist and do not stop the rest.
func (e *Engine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ownerID string,
	ids []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !formatter.IsFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playlists_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.ExportResult, 0, len(ids)),
	}

	jobs := make(chan string, len(ids))
	results := make(chan formatter.ExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, ownerID, opts)
	}

	for i, id := range ids {
		sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), id))
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- formatter.ExportResult,
	ownerID string,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for id := range jobs {
		res := formatter.ExportResult{PlaylistID: id, PlaylistName: id}
		if err := ctx.Err(); err != nil {
			res.Error = err
			results <- res
			continue
		}

		export, err := e.LoadExport(ctx, id, ownerID)
		if err != nil {
			res.Error = fmt.Errorf("failed to load playlist: %w", err)
			results <- res
			continue
		}
		res.PlaylistName = export.Playlist.Name

		files, err := formatter.WriteExport(ctx, export, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		} else {
			res.Files = files
			res.Success = true
		}
		results <- res
	}
}
