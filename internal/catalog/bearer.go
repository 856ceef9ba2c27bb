package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// RefreshFunc obtains a new plaintext access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Bearer is the access token shared by every request of one fetch.
//
// Each refresh bumps a generation counter; a caller that saw a 401 under an
// older generation picks up the already refreshed token instead of refreshing again.
type Bearer struct {
	mu        sync.Mutex
	token     string
	gen       uint64
	refresh   RefreshFunc
	refreshes int
}

// NewBearer wraps token; refresh may be nil when no refresh is possible.
func NewBearer(token string, refresh RefreshFunc) *Bearer {
	return &Bearer{token: token, refresh: refresh}
}

// Current returns the token to present and its generation.
func (b *Bearer) Current() (string, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.gen
}

// Refresh replaces a token rejected under generation seen.
func (b *Bearer) Refresh(ctx context.Context, seen uint64) (string, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != seen {
		return b.token, b.gen, nil
	}
	if b.refresh == nil {
		return "", b.gen, fmt.Errorf("%w: no way to refresh the access token", shared.ErrTokenExpired)
	}

	token, err := b.refresh(ctx)
	if err != nil {
		return "", b.gen, err
	}
	if token == "" {
		return "", b.gen, fmt.Errorf("%w: empty access token", shared.ErrRefreshFailed)
	}

	b.token = token
	b.gen++
	b.refreshes++
	return b.token, b.gen, nil
}

// Refreshes reports how many refreshes this bearer performed.
func (b *Bearer) Refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

// RetryPolicy bounds how often one request is retried after a 401.
type RetryPolicy struct {
	MaxRetries int
}

// DefaultRetryPolicy retries a rejected request once with a refreshed token.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 1}

// Do runs call with the bearer's token. On [shared.ErrUnauthorized] it refreshes
// and retries up to MaxRetries times; a 401 after that is wrapped in
// [shared.ErrTokenExpired]. Other errors are returned untouched.
func (p RetryPolicy) Do(ctx context.Context, b *Bearer, call func(token string) error) error {
	token, gen := b.Current()

	for attempt := 0; ; attempt++ {
		err := call(token)
		if err == nil || !errors.Is(err, shared.ErrUnauthorized) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("%w: still unauthorized after %d refresh(es): %w", shared.ErrTokenExpired, attempt, err)
		}

		token, gen, err = b.Refresh(ctx, gen)
		if err != nil {
			return err
		}
	}
}
