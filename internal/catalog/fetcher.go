// package catalog retrieves complete collections from the paginated catalog API.
package catalog

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PageFunc fetches the page starting at offset using token.
type PageFunc[T any] func(ctx context.Context, token string, offset, limit int) (*services.Paging[T], error)

// Options tunes a [Fetcher].
type Options struct {
	// FanOut caps concurrent page requests after the first page.
	FanOut int
	// RequestsPerSecond throttles all page requests; zero disables throttling.
	RequestsPerSecond float64
	Policy            RetryPolicy
	Logger            *log.Logger
}

// Fetcher follows the catalog's offset pagination to completion.
type Fetcher struct {
	catalog services.Catalog
	limiter *rate.Limiter
	fanOut  int
	policy  RetryPolicy
	logger  *log.Logger
}

// NewFetcher creates a fetcher over catalog.
func NewFetcher(catalog services.Catalog, opts Options) *Fetcher {
	fanOut := opts.FanOut
	if fanOut <= 0 {
		fanOut = 1
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	policy := opts.Policy
	if policy.MaxRetries <= 0 {
		policy = DefaultRetryPolicy
	}

	return &Fetcher{
		catalog: catalog,
		limiter: rate.NewLimiter(limit, fanOut),
		fanOut:  fanOut,
		policy:  policy,
		logger:  shared.WithLogger(opts.Logger, "component", "catalog"),
	}
}

// Playlists returns every playlist of the token's owner.
func (f *Fetcher) Playlists(ctx context.Context, b *Bearer) ([]services.SpotifySimplePlaylist, error) {
	return FetchAll[services.SpotifySimplePlaylist](ctx, f, b, services.MaxPlaylistsPage, f.catalog.PlaylistsPage)
}

// PlaylistTracks returns every entry of playlistID, including null-track placeholders.
func (f *Fetcher) PlaylistTracks(ctx context.Context, b *Bearer, playlistID string) ([]services.SpotifyTrackItem, error) {
	page := func(ctx context.Context, token string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
		return f.catalog.PlaylistTracksPage(ctx, token, playlistID, offset, limit)
	}
	return FetchAll[services.SpotifyTrackItem](ctx, f, b, services.MaxPlaylistTracksPage, page)
}

// SavedTracks returns the user's whole liked songs library.
func (f *Fetcher) SavedTracks(ctx context.Context, b *Bearer) ([]services.SpotifyTrackItem, error) {
	return FetchAll[services.SpotifyTrackItem](ctx, f, b, services.MaxSavedTracksPage, f.catalog.SavedTracksPage)
}

// SavedTracksTotal reads the size of the liked songs library with a single one-item page.
func (f *Fetcher) SavedTracksTotal(ctx context.Context, b *Bearer) (int, error) {
	p, err := fetchPage[services.SpotifyTrackItem](ctx, f, b, f.catalog.SavedTracksPage, 0, 1)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

// Profile returns the token owner's profile under the same retry policy as pages.
func (f *Fetcher) Profile(ctx context.Context, b *Bearer) (*services.SpotifyUser, error) {
	var user *services.SpotifyUser
	err := f.policy.Do(ctx, b, func(token string) error {
		var err error
		user, err = f.catalog.Profile(ctx, token)
		return err
	})
	return user, err
}

// FetchAll reads the first page to learn the total, then fetches the remaining
// offsets concurrently (bounded by the fetcher's fan-out). Items come back in
// offset order.
func FetchAll[T any](ctx context.Context, f *Fetcher, b *Bearer, pageSize int, fn PageFunc[T]) ([]T, error) {
	first, err := fetchPage(ctx, f, b, fn, 0, pageSize)
	if err != nil {
		return nil, err
	}

	// the remote may serve smaller pages than asked for
	if first.Limit > 0 && first.Limit < pageSize {
		pageSize = first.Limit
	}

	var offsets []int
	for off := pageSize; off < first.Total; off += pageSize {
		offsets = append(offsets, off)
	}

	f.logger.Debug("fetched first page", "total", first.Total, "remaining_pages", len(offsets))

	pages := make([][]T, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanOut)

	for i, off := range offsets {
		g.Go(func() error {
			p, err := fetchPage(gctx, f, b, fn, off, pageSize)
			if err != nil {
				return fmt.Errorf("page at offset %d: %w", off, err)
			}
			pages[i] = p.Items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]T, 0, max(first.Total, len(first.Items)))
	items = append(items, first.Items...)
	for _, p := range pages {
		items = append(items, p...)
	}
	return items, nil
}

func fetchPage[T any](ctx context.Context, f *Fetcher, b *Bearer, fn PageFunc[T], offset, limit int) (*services.Paging[T], error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var page *services.Paging[T]
	err := f.policy.Do(ctx, b, func(token string) error {
		var err error
		page, err = fn(ctx, token, offset, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: empty page at offset %d", shared.ErrAPIRequest, offset)
	}
	return page, nil
}
