package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// fakeCatalog serves n saved tracks and can reject tokens per offset.
type fakeCatalog struct {
	mu      sync.Mutex
	n       int
	offsets []int
	reject  func(token string, offset int) bool
}

func (c *fakeCatalog) serve(token string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, offset)
	c.mu.Unlock()

	if c.reject != nil && c.reject(token, offset) {
		return nil, &services.APIError{Service: "spotify", StatusCode: http.StatusUnauthorized}
	}

	page := &services.Paging[services.SpotifyTrackItem]{Total: c.n, Limit: limit, Offset: offset}
	for i := offset; i < min(offset+limit, c.n); i++ {
		page.Items = append(page.Items, services.SpotifyTrackItem{Track: &services.SpotifyTrack{ID: "t" + strconv.Itoa(i)}})
	}
	return page, nil
}

func (c *fakeCatalog) Profile(ctx context.Context, token string) (*services.SpotifyUser, error) {
	if c.reject != nil && c.reject(token, -1) {
		return nil, &services.APIError{Service: "spotify", StatusCode: http.StatusUnauthorized}
	}
	return &services.SpotifyUser{ID: "u1"}, nil
}

func (c *fakeCatalog) PlaylistsPage(ctx context.Context, token string, offset, limit int) (*services.Paging[services.SpotifySimplePlaylist], error) {
	return &services.Paging[services.SpotifySimplePlaylist]{}, nil
}

func (c *fakeCatalog) PlaylistTracksPage(ctx context.Context, token, playlistID string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
	return c.serve(token, offset, limit)
}

func (c *fakeCatalog) SavedTracksPage(ctx context.Context, token string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
	return c.serve(token, offset, limit)
}

func (c *fakeCatalog) seenOffsets() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.offsets)
	slices.Sort(out)
	return out
}

func countingRefresh(count *int, token string) RefreshFunc {
	var mu sync.Mutex
	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		*count++
		return token, nil
	}
}

func trackIDs(items []services.SpotifyTrackItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Track.ID)
	}
	return ids
}

func TestFetchAll(t *testing.T) {
	t.Run("pagination completeness", func(t *testing.T) {
		cat := &fakeCatalog{n: 130}
		f := NewFetcher(cat, Options{FanOut: 4})

		items, err := f.SavedTracks(context.Background(), NewBearer("tok", nil))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(items) != 130 {
			t.Fatalf("expected 130 items, got %d", len(items))
		}

		ids := trackIDs(items)
		seen := map[string]bool{}
		for i, id := range ids {
			if seen[id] {
				t.Errorf("duplicate item %s", id)
			}
			seen[id] = true
			if id != "t"+strconv.Itoa(i) {
				t.Errorf("expected items in offset order, got %s at %d", id, i)
			}
		}

		if got := cat.seenOffsets(); !slices.Equal(got, []int{0, 50, 100}) {
			t.Errorf("expected offsets [0 50 100], got %v", got)
		}
	})

	t.Run("playlist tracks use pages of 100", func(t *testing.T) {
		cat := &fakeCatalog{n: 250}
		f := NewFetcher(cat, Options{FanOut: 2})

		items, err := f.PlaylistTracks(context.Background(), NewBearer("tok", nil), "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 250 {
			t.Errorf("expected 250 items, got %d", len(items))
		}
		if got := cat.seenOffsets(); !slices.Equal(got, []int{0, 100, 200}) {
			t.Errorf("expected offsets [0 100 200], got %v", got)
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		cat := &fakeCatalog{n: 0}
		items, err := NewFetcher(cat, Options{}).SavedTracks(context.Background(), NewBearer("tok", nil))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 0 || len(cat.seenOffsets()) != 1 {
			t.Errorf("expected a single empty page, got %d items over %v", len(items), cat.seenOffsets())
		}
	})

	t.Run("single refresh on page 2", func(t *testing.T) {
		var refreshes int
		cat := &fakeCatalog{n: 130, reject: func(token string, offset int) bool {
			return offset == 50 && token == "old"
		}}
		f := NewFetcher(cat, Options{FanOut: 1})
		b := NewBearer("old", countingRefresh(&refreshes, "new"))

		items, err := f.SavedTracks(context.Background(), b)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if refreshes != 1 || b.Refreshes() != 1 {
			t.Errorf("expected exactly one refresh, got %d", refreshes)
		}
		if len(items) != 130 {
			t.Errorf("expected 130 items, got %d", len(items))
		}
		if got := cat.seenOffsets(); !slices.Equal(got, []int{0, 50, 50, 100}) {
			t.Errorf("expected page 2 retried once, got %v", got)
		}
		if token, _ := b.Current(); token != "new" {
			t.Errorf("expected subsequent requests to use the new token, got %s", token)
		}
	})

	t.Run("concurrent 401s share one refresh", func(t *testing.T) {
		var refreshes int
		cat := &fakeCatalog{n: 500, reject: func(token string, offset int) bool {
			return offset > 0 && token == "old"
		}}
		f := NewFetcher(cat, Options{FanOut: 8})

		items, err := f.SavedTracks(context.Background(), NewBearer("old", countingRefresh(&refreshes, "new")))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if refreshes != 1 {
			t.Errorf("expected one refresh across workers, got %d", refreshes)
		}
		if len(items) != 500 {
			t.Errorf("expected 500 items, got %d", len(items))
		}
	})

	t.Run("second 401 on the same page is fatal", func(t *testing.T) {
		var refreshes int
		cat := &fakeCatalog{n: 130, reject: func(token string, offset int) bool {
			return offset == 50
		}}
		f := NewFetcher(cat, Options{FanOut: 1})

		_, err := f.SavedTracks(context.Background(), NewBearer("old", countingRefresh(&refreshes, "new")))
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if refreshes != 1 {
			t.Errorf("expected a single refresh attempt, got %d", refreshes)
		}
	})

	t.Run("refresh failure is surfaced", func(t *testing.T) {
		cat := &fakeCatalog{n: 10, reject: func(token string, offset int) bool { return true }}
		f := NewFetcher(cat, Options{})
		b := NewBearer("old", func(ctx context.Context) (string, error) {
			return "", fmt.Errorf("%w: revoked", shared.ErrRefreshFailed)
		})

		if _, err := f.SavedTracks(context.Background(), b); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("non-auth errors are not retried", func(t *testing.T) {
		calls := 0
		fn := func(ctx context.Context, token string, offset, limit int) (*services.Paging[int], error) {
			calls++
			return nil, &services.APIError{Service: "spotify", StatusCode: http.StatusInternalServerError}
		}

		f := NewFetcher(&fakeCatalog{}, Options{})
		_, err := FetchAll[int](context.Background(), f, NewBearer("tok", nil), 50, fn)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected one call, got %d", calls)
		}
	})

	t.Run("smaller served page size", func(t *testing.T) {
		fn := func(ctx context.Context, token string, offset, limit int) (*services.Paging[int], error) {
			served := min(limit, 20)
			p := &services.Paging[int]{Total: 45, Limit: served, Offset: offset}
			for i := offset; i < min(offset+served, 45); i++ {
				p.Items = append(p.Items, i)
			}
			return p, nil
		}

		items, err := FetchAll[int](context.Background(), NewFetcher(&fakeCatalog{}, Options{FanOut: 3}), NewBearer("tok", nil), 50, fn)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 45 || items[44] != 44 {
			t.Errorf("expected 45 ordered items, got %v", items)
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	unauthorized := &services.APIError{Service: "spotify", StatusCode: http.StatusUnauthorized}

	t.Run("no refresher", func(t *testing.T) {
		err := DefaultRetryPolicy.Do(context.Background(), NewBearer("tok", nil), func(string) error { return unauthorized })
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("tokens presented per attempt", func(t *testing.T) {
		var seen []string
		var refreshes int
		b := NewBearer("a", countingRefresh(&refreshes, "b"))

		err := DefaultRetryPolicy.Do(context.Background(), b, func(token string) error {
			seen = append(seen, token)
			if token == "a" {
				return unauthorized
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(seen, []string{"a", "b"}) {
			t.Errorf("unexpected tokens %v", seen)
		}
	})

	t.Run("stale generation reuses refreshed token", func(t *testing.T) {
		var refreshes int
		b := NewBearer("a", countingRefresh(&refreshes, "b"))
		_, gen := b.Current()

		if _, _, err := b.Refresh(context.Background(), gen); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		token, _, err := b.Refresh(context.Background(), gen)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "b" || refreshes != 1 {
			t.Errorf("expected reuse of refreshed token, got %s after %d refreshes", token, refreshes)
		}
	})
}

func TestFetcherAgainstHTTP(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		token := r.Header.Get("Authorization")

		mu.Lock()
		calls[fmt.Sprintf("%d|%s", offset, token)]++
		mu.Unlock()

		if offset == 50 && token == "Bearer old" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		fmt.Fprintf(w, `{"total":130,"limit":50,"offset":%d,"items":[`, offset)
		for i := offset; i < min(offset+50, 130); i++ {
			if i > offset {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"track":{"id":"t%d"}}`, i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	svc, err := services.NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"}, services.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	var refreshes int
	items, err := NewFetcher(svc, Options{FanOut: 1}).SavedTracks(context.Background(), NewBearer("old", countingRefresh(&refreshes, "new")))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(items) != 130 || refreshes != 1 {
		t.Errorf("expected 130 items with one refresh, got %d items and %d refreshes", len(items), refreshes)
	}
	if calls["50|Bearer old"] != 1 || calls["50|Bearer new"] != 1 || calls["100|Bearer new"] != 1 {
		t.Errorf("unexpected call pattern %v", calls)
	}
}
