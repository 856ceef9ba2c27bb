// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/repositories"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/vault"
	"golang.org/x/oauth2"
)

// NewTestStore opens a migrated in-memory SQLite store closed with the test.
func NewTestStore(t *testing.T) models.Store {
	t.Helper()
	store, err := repositories.Open(context.Background(), shared.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

// NewTestVault builds a vault over a fresh random key.
func NewTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	v, err := vault.New(key)
	if err != nil {
		t.Fatalf("failed to build vault: %v", err)
	}
	return v
}

// FakeCatalog is an in-memory [services.Catalog].
//
// When Token is set any other bearer token gets a 401.
type FakeCatalog struct {
	User      *services.SpotifyUser
	Playlists []services.SpotifySimplePlaylist
	Tracks    map[string][]services.SpotifyTrackItem
	Saved     []services.SpotifyTrackItem
	Token     string

	mu    sync.Mutex
	calls int
}

var _ services.Catalog = (*FakeCatalog)(nil)

// Calls reports how many catalog requests were served, rejected ones included.
func (f *FakeCatalog) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeCatalog) check(token string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Token != "" && token != f.Token {
		return &services.APIError{Service: "fake", StatusCode: http.StatusUnauthorized, Body: "token expired"}
	}
	return nil
}

func (f *FakeCatalog) Profile(ctx context.Context, token string) (*services.SpotifyUser, error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	if f.User == nil {
		return nil, &services.APIError{Service: "fake", StatusCode: http.StatusNotFound, Body: "no profile"}
	}
	u := *f.User
	return &u, nil
}

func (f *FakeCatalog) PlaylistsPage(ctx context.Context, token string, offset, limit int) (*services.Paging[services.SpotifySimplePlaylist], error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	return Page(f.Playlists, offset, limit), nil
}

func (f *FakeCatalog) PlaylistTracksPage(ctx context.Context, token, playlistID string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	items, ok := f.Tracks[playlistID]
	if !ok {
		return nil, &services.APIError{Service: "fake", StatusCode: http.StatusNotFound, Body: "no playlist " + playlistID}
	}
	return Page(items, offset, limit), nil
}

func (f *FakeCatalog) SavedTracksPage(ctx context.Context, token string, offset, limit int) (*services.Paging[services.SpotifyTrackItem], error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	return Page(f.Saved, offset, limit), nil
}

// Page slices items the way the catalog's offset paging does.
func Page[T any](items []T, offset, limit int) *services.Paging[T] {
	start := min(offset, len(items))
	end := min(start+limit, len(items))
	return &services.Paging[T]{
		Items:  append([]T{}, items[start:end]...),
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
	}
}

// CatalogTrack builds a catalog track with one artist and an album cover.
func CatalogTrack(id, name, artist string) services.SpotifyTrackItem {
	return services.SpotifyTrackItem{
		AddedAt: "2024-01-01T00:00:00Z",
		Track: &services.SpotifyTrack{
			ID:         id,
			Name:       name,
			Artists:    []services.SpotifyArtist{{ID: "a-" + id, Name: artist}},
			Album:      services.SpotifyAlbum{ID: "al-" + id, Name: name + " (album)", Images: []services.SpotifyImage{{URL: "https://img.test/" + id}}},
			DurationMS: 180_000,
		},
	}
}

// FakeEndpoint is a [services.TokenEndpoint] issuing numbered tokens.
type FakeEndpoint struct {
	// RotateRefresh makes every refresh return a new refresh token.
	RotateRefresh bool
	// RefreshErr is returned by every refresh when set.
	RefreshErr error
	// EmptyRefresh makes refresh grants succeed without an access token.
	EmptyRefresh bool

	exchanges atomic.Int32
	refreshes atomic.Int32
}

var _ services.TokenEndpoint = (*FakeEndpoint)(nil)

func (f *FakeEndpoint) AuthURL(state string) string {
	return "https://accounts.test/authorize?state=" + state
}

func (f *FakeEndpoint) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" || code == "bad" {
		return nil, fmt.Errorf("%w: invalid_grant", shared.ErrAuthFailed)
	}
	n := f.exchanges.Add(1)
	return &oauth2.Token{
		AccessToken:  fmt.Sprintf("access-%d", n),
		RefreshToken: "refresh-" + code,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (f *FakeEndpoint) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	n := f.refreshes.Add(1)
	tok := &oauth2.Token{AccessToken: fmt.Sprintf("refreshed-%d", n), Expiry: time.Now().Add(time.Hour)}
	if f.EmptyRefresh {
		tok.AccessToken = ""
	}
	if f.RotateRefresh {
		tok.RefreshToken = fmt.Sprintf("%s-r%d", refreshToken, n)
	}
	return tok, nil
}

// Refreshes reports how many refresh grants were served.
func (f *FakeEndpoint) Refreshes() int { return int(f.refreshes.Load()) }

// FakeOracle is a [services.Oracle] answering with Reply, or Respond when set.
type FakeOracle struct {
	Reply   string
	Err     error
	Respond func(system, user string) (string, error)

	calls atomic.Int32
}

var _ services.Oracle = (*FakeOracle)(nil)

func (f *FakeOracle) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond != nil {
		return f.Respond(system, user)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

// Calls reports how many completions were requested.
func (f *FakeOracle) Calls() int { return int(f.calls.Load()) }

// OracleReply renders a classification the way the oracle is asked to answer.
func OracleReply(language, genre, subgenre string) string {
	return fmt.Sprintf(`{"language": %q, "genre": %q, "subgenre": %q}`, language, genre, subgenre)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
