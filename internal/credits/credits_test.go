package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/enrichment"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	tu "github.com/rdeepak-711/spotify-playlist-app/internal/testing"
)

// fakeEnricher treats ids in enriched as already done and ids in failing as errors.
type fakeEnricher struct {
	mu       sync.Mutex
	enriched map[string]bool
	failing  map[string]error
	calls    []string

	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{enriched: map[string]bool{}, failing: map[string]error{}}
}

func (f *fakeEnricher) EnrichTrack(ctx context.Context, trackID, contributor string) (bool, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackID)

	if err, ok := f.failing[trackID]; ok {
		return false, err
	}
	if f.enriched[trackID] {
		return false, nil
	}
	f.enriched[trackID] = true
	return true, nil
}

func (f *fakeEnricher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func trackIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%02d", i)
	}
	return ids
}

func seedUser(t *testing.T, store models.Store, userID string, credits int) {
	t.Helper()
	if err := store.SaveLogin(context.Background(), &models.User{UserID: userID, Credits: credits}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestCost(t *testing.T) {
	tc := []struct {
		n    int
		want int
	}{
		{1, 1}, {9, 1}, {10, 1}, {11, 2}, {25, 3}, {100, 10}, {101, 11},
	}

	for _, tt := range tc {
		t.Run(fmt.Sprintf("%d tracks", tt.n), func(t *testing.T) {
			got, err := Cost(tt.n)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Cost(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}

	t.Run("empty batch", func(t *testing.T) {
		if _, err := Cost(0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestPrice(t *testing.T) {
	ctx := context.Background()
	store := tu.NewTestStore(t)
	seedUser(t, store, "u1", 2)
	ledger := NewLedger(store, newFakeEnricher(), 1, nil)

	t.Run("dedupes before pricing", func(t *testing.T) {
		ids := append(trackIDs(20), "t00", "", "t01")
		q, err := ledger.Price(ctx, "u1", ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if q.Cost != 2 || len(q.TrackIDs) != 20 || q.Balance != 2 {
			t.Errorf("unexpected quote %+v", q)
		}
	})

	t.Run("short balance", func(t *testing.T) {
		if _, err := ledger.Price(ctx, "u1", trackIDs(21)); !errors.Is(err, shared.ErrInsufficientCredits) {
			t.Errorf("expected ErrInsufficientCredits, got %v", err)
		}
	})

	t.Run("never debits", func(t *testing.T) {
		u, _ := store.GetUser(ctx, "u1")
		if u.Credits != 2 {
			t.Errorf("expected balance 2, got %d", u.Credits)
		}
	})
}

func TestEnrichBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("short balance is rejected without side effects", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 2)
		enricher := newFakeEnricher()

		_, err := NewLedger(store, enricher, 4, nil).EnrichBatch(ctx, "u1", trackIDs(25))
		if !errors.Is(err, shared.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		if enricher.Calls() != 0 {
			t.Errorf("expected no tracks attempted, got %d", enricher.Calls())
		}

		u, _ := store.GetUser(ctx, "u1")
		if u.Credits != 2 {
			t.Errorf("expected balance 2, got %d", u.Credits)
		}
	})

	t.Run("charges the request size regardless of prior enrichment", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 3)
		enricher := newFakeEnricher()
		for _, id := range trackIDs(20) {
			enricher.enriched[id] = true
		}

		report, err := NewLedger(store, enricher, 4, nil).EnrichBatch(ctx, "u1", trackIDs(25))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Cost != 3 || report.Charged != 3 || report.Balance != 0 {
			t.Errorf("unexpected charge %+v", report)
		}
		if report.Enriched != 5 || report.AlreadyEnriched != 20 || report.Failed != 0 {
			t.Errorf("unexpected counts %+v", report)
		}

		u, _ := store.GetUser(ctx, "u1")
		if u.Credits != 0 {
			t.Errorf("expected balance 0, got %d", u.Credits)
		}
	})

	t.Run("nothing newly enriched is free", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 5)
		enricher := newFakeEnricher()
		for _, id := range trackIDs(3) {
			enricher.enriched[id] = true
		}

		report, err := NewLedger(store, enricher, 4, nil).EnrichBatch(ctx, "u1", trackIDs(3))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Charged != 0 || report.Balance != 5 {
			t.Errorf("expected no charge, got %+v", report)
		}
	})

	t.Run("failures do not abort the batch", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 1)
		enricher := newFakeEnricher()
		enricher.failing["t01"] = shared.ErrOracleParse
		enricher.failing["t02"] = shared.ErrTrackNotFound

		report, err := NewLedger(store, enricher, 2, nil).EnrichBatch(ctx, "u1", trackIDs(5))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Enriched != 3 || report.Failed != 2 || len(report.Failures) != 2 {
			t.Errorf("unexpected counts %+v", report)
		}
		if report.Charged != 1 {
			t.Errorf("expected charge 1, got %d", report.Charged)
		}
		if report.Err() == nil {
			t.Error("expected joined failures")
		}
	})

	t.Run("all failed is free", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 1)
		enricher := newFakeEnricher()
		enricher.failing["t00"] = shared.ErrOracle

		report, err := NewLedger(store, enricher, 2, nil).EnrichBatch(ctx, "u1", trackIDs(1))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Charged != 0 || report.Failed != 1 {
			t.Errorf("unexpected report %+v", report)
		}
		if report.Err() == nil {
			t.Error("expected report error")
		}
	})

	t.Run("duplicate and blank ids are priced once", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 1)
		enricher := newFakeEnricher()

		ids := append(trackIDs(10), "t00", " t01 ", "", "  ")
		report, err := NewLedger(store, enricher, 4, nil).EnrichBatch(ctx, "u1", ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Requested != 10 || report.Cost != 1 || enricher.Calls() != 10 {
			t.Errorf("unexpected report %+v with %d calls", report, enricher.Calls())
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 1)
		l := NewLedger(store, newFakeEnricher(), 4, nil)

		if _, err := l.EnrichBatch(ctx, "", []string{"a"}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := l.EnrichBatch(ctx, "u1", []string{" "}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := l.EnrichBatch(ctx, "ghost", []string{"a"}); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		store := tu.NewTestStore(t)
		seedUser(t, store, "u1", 10)
		enricher := newFakeEnricher()
		enricher.delay = 5 * time.Millisecond

		if _, err := NewLedger(store, enricher, 3, nil).EnrichBatch(ctx, "u1", trackIDs(12)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := enricher.maxSeen.Load(); got > 3 {
			t.Errorf("expected at most 3 concurrent enrichments, saw %d", got)
		}
	})
}

func TestEnrichBatchWithOracle(t *testing.T) {
	ctx := context.Background()
	store := tu.NewTestStore(t)
	seedUser(t, store, "u1", 1)

	for _, id := range []string{"a", "b"} {
		err := store.UpsertTrack(ctx, models.Track{
			TrackID: id, PlaylistID: "pl1", Name: "Song " + id, Artists: []string{"Artist"}, AlbumName: "Album",
		})
		if err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}
	}

	oracle := &tu.FakeOracle{Reply: tu.OracleReply("English", "Jazz", "Bebop")}
	enricher := enrichment.NewEnricher(store, enrichment.NewClassifier(oracle, nil), nopRecomputer{}, nil)

	report, err := NewLedger(store, enricher, 2, nil).EnrichBatch(ctx, "u1", []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Enriched != 2 || report.Failed != 1 || report.Charged != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	tr, _ := store.GetTrack(ctx, "a", "pl1")
	if !tr.IsEnriched || tr.Contributor == nil || *tr.Contributor != "u1" {
		t.Errorf("expected track enriched by u1, got %+v", tr)
	}
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	store := tu.NewTestStore(t)
	seedUser(t, store, "u1", 0)
	l := NewLedger(store, newFakeEnricher(), 0, nil)

	balance, err := l.Grant(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if balance != 5 {
		t.Errorf("expected balance 5, got %d", balance)
	}

	if got, _ := l.Balance(ctx, "u1"); got != 5 {
		t.Errorf("expected Balance 5, got %d", got)
	}
	if _, err := l.Grant(ctx, "u1", 0); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := l.Grant(ctx, "ghost", 1); !errors.Is(err, shared.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

type nopRecomputer struct{}

func (nopRecomputer) RecomputePlaylist(ctx context.Context, playlistID, ownerID string) (bool, error) {
	return false, nil
}
