package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	tu "github.com/rdeepak-711/spotify-playlist-app/internal/testing"
)

func TestPool(t *testing.T) {
	ctx := context.Background()

	t.Run("runs jobs", func(t *testing.T) {
		p := NewPool(2, 4, nil)
		defer p.Close()

		h, err := p.Submit("a", func(ctx context.Context) error { return nil })
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := h.Wait(ctx); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if p.InFlight("a") {
			t.Error("expected key to be released after the job finished")
		}
	})

	t.Run("coalesces in-flight keys", func(t *testing.T) {
		p := NewPool(1, 4, nil)
		defer p.Close()

		release := make(chan struct{})
		var runs atomic.Int32
		job := func(ctx context.Context) error {
			runs.Add(1)
			<-release
			return nil
		}

		h1, err := p.Submit("sync", job)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h2, err := p.Submit("sync", job)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h1 != h2 {
			t.Error("expected the same handle for a duplicate key")
		}
		if !p.InFlight("sync") {
			t.Error("expected key to be in flight")
		}

		close(release)
		h1.Wait(ctx)
		if runs.Load() != 1 {
			t.Errorf("expected one run, got %d", runs.Load())
		}
	})

	t.Run("queue full", func(t *testing.T) {
		p := NewPool(1, 1, nil)
		release := make(chan struct{})
		defer func() {
			close(release)
			p.Close()
		}()

		started := make(chan struct{})
		blocking := func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		}
		if _, err := p.Submit("running", blocking); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		<-started

		if _, err := p.Submit("queued", func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := p.Submit("overflow", func(ctx context.Context) error { return nil }); !errors.Is(err, shared.ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
		if p.InFlight("overflow") {
			t.Error("rejected job must not be in flight")
		}
	})

	t.Run("job error and panic", func(t *testing.T) {
		p := NewPool(1, 2, nil)
		defer p.Close()

		boom := errors.New("boom")
		h1, _ := p.Submit("err", func(ctx context.Context) error { return boom })
		h2, _ := p.Submit("panic", func(ctx context.Context) error { panic("bad") })

		if err := h1.Wait(ctx); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if err := h2.Wait(ctx); err == nil {
			t.Error("expected panic to surface as an error")
		}
		if h2.Err() == nil {
			t.Error("expected Err after completion")
		}
	})

	t.Run("closed pool", func(t *testing.T) {
		p := NewPool(1, 1, nil)
		var ran atomic.Bool
		h, _ := p.Submit("last", func(ctx context.Context) error {
			ran.Store(true)
			return nil
		})
		p.Close()

		select {
		case <-h.Done():
		default:
			t.Error("expected Close to wait for queued jobs")
		}
		if !ran.Load() {
			t.Error("expected queued job to run")
		}
		if _, err := p.Submit("late", func(ctx context.Context) error { return nil }); !errors.Is(err, shared.ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
		p.Close()
	})

	t.Run("shutdown deadline cancels jobs", func(t *testing.T) {
		p := NewPool(1, 1, nil)
		h, _ := p.Submit("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		sctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		if err := p.Shutdown(sctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if err := h.Err(); !errors.Is(err, context.Canceled) {
			t.Errorf("expected job to see cancellation, got %v", err)
		}
	})

	t.Run("wait honours context", func(t *testing.T) {
		p := NewPool(1, 1, nil)
		release := make(chan struct{})
		defer func() {
			close(release)
			p.Close()
		}()

		h, _ := p.Submit("blocked", func(ctx context.Context) error {
			<-release
			return nil
		})
		wctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := h.Wait(wctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if h.Err() != nil {
			t.Error("expected nil Err while running")
		}
	})
}

type recordingSyncer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (r *recordingSyncer) wait() {
	r.calls.Add(1)
	if r.release != nil {
		<-r.release
	}
}

func (r *recordingSyncer) SyncPlaylists(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	r.wait()
	return &SyncReport{UserID: userID}, nil
}

func (r *recordingSyncer) SyncTracks(ctx context.Context, userID, playlistID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	r.wait()
	return &SyncReport{UserID: userID, Failed: 1, Errors: []error{errors.New("one track")}}, nil
}

func (r *recordingSyncer) SyncAll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	r.wait()
	return nil, shared.ErrTokenExpired
}

func TestScheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("coalesces track syncs", func(t *testing.T) {
		syncer := &recordingSyncer{release: make(chan struct{})}
		pool := NewPool(1, 4, nil)
		defer pool.Close()
		s := NewScheduler(syncer, pool, nil)

		h1, err := s.SyncTracks("user1", "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h2, _ := s.SyncTracks("user2", "pl1")
		if h1 != h2 {
			t.Error("expected shared playlists to coalesce across users")
		}
		if !s.TracksInFlight("user1", "pl1") {
			t.Error("expected sync in flight")
		}

		close(syncer.release)
		if err := h1.Wait(ctx); err != nil {
			t.Errorf("partial failures should not fail the job, got %v", err)
		}
		if syncer.calls.Load() != 1 {
			t.Errorf("expected one run, got %d", syncer.calls.Load())
		}
	})

	t.Run("liked songs keys are per user", func(t *testing.T) {
		if SyncTracksKey("a", models.LikedSongsID) == SyncTracksKey("b", models.LikedSongsID) {
			t.Error("expected distinct liked songs keys")
		}
		if SyncTracksKey("a", "pl") != SyncTracksKey("b", "pl") {
			t.Error("expected shared playlist keys")
		}
	})

	t.Run("errors surface on the handle", func(t *testing.T) {
		pool := NewPool(1, 4, nil)
		defer pool.Close()
		s := NewScheduler(&recordingSyncer{}, pool, nil)

		h, err := s.SyncAll("user1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := h.Wait(ctx); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}

		h, _ = s.SyncPlaylists("user1")
		if err := h.Wait(ctx); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("ad hoc jobs never coalesce", func(t *testing.T) {
		pool := NewPool(1, 4, nil)
		defer pool.Close()
		s := NewScheduler(&recordingSyncer{}, pool, nil)

		release := make(chan struct{})
		job := func(ctx context.Context) error { <-release; return nil }
		h1, _ := s.Run("enrich", job)
		h2, _ := s.Run("enrich", job)
		close(release)
		if h1 == h2 || h1.Key == h2.Key {
			t.Error("expected distinct handles")
		}
		h1.Wait(ctx)
		h2.Wait(ctx)
	})
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, newCatalog("user1"))
	if _, err := engine.SyncAll(ctx, "user1", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("exports stored playlists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		progress := make(chan ProgressUpdate, 32)

		result, err := engine.BulkExport(ctx, progress, "user1", []string{"pl1", models.LikedSongsID, "missing"}, BulkExportOpts{Format: "csv", OutputDir: dir, NumWorkers: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.SuccessfulExports != 2 || result.FailedExports != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		tu.AssertFileExists(t, result.ManifestPath)
		tu.AssertFileExists(t, filepath.Join(dir, "pl1_tracks.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "liked_songs_user1_tracks.csv"))
	})

	t.Run("liked songs export is scoped to the owner", func(t *testing.T) {
		export, err := engine.LoadExport(ctx, models.LikedSongsID, "user1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(export.Tracks) != 2 {
			t.Errorf("expected 2 liked tracks, got %d", len(export.Tracks))
		}

		if _, err := engine.LoadExport(ctx, models.LikedSongsID, "user2"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := engine.BulkExport(ctx, nil, "user1", []string{"pl1"}, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("default directory", func(t *testing.T) {
		wd, _ := os.Getwd()
		tmp := t.TempDir()
		if err := os.Chdir(tmp); err != nil {
			t.Fatalf("failed to chdir: %v", err)
		}
		defer os.Chdir(wd)

		result, err := engine.BulkExport(ctx, nil, "user1", []string{"pl2"}, BulkExportOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})
}
