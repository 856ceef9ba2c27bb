// Spotify Web API client used by the token manager and the catalog fetcher.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Documented per-request maximums of the list endpoints.
const (
	MaxPlaylistsPage      = 50
	MaxSavedTracksPage    = 50
	MaxPlaylistTracksPage = 100
)

// Scopes requested at login.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
}

// ExternalURLs holds the public web links of a catalog object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs ExternalURLs   `json:"external_urls"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs ExternalURLs    `json:"external_urls"`
	IsLocal      bool            `json:"is_local"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
//
// Public is null for playlists whose visibility the catalog does not expose.
type SpotifySimplePlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        Owner             `json:"owner"`
	Public       *bool             `json:"public"`
	Tracks       playlistTracksRef `json:"tracks"`
	Images       []SpotifyImage    `json:"images"`
	ExternalURLs ExternalURLs      `json:"external_urls"`
}

// SpotifyTrackItem is one entry of a playlist's tracks or the saved tracks library.
//
// Track is nil for entries whose track was removed from the catalog.
type SpotifyTrackItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// Paging is Spotify's offset-based page envelope.
type Paging[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyService talks to the Spotify accounts and Web API endpoints.
//
// It holds no user token: every catalog call takes the bearer token to use, so
// callers can swap in a refreshed token between pages.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points catalog requests at another host (tests use httptest servers).
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithAccountsURL points the authorize and token endpoints at another host.
func WithAccountsURL(u string) SpotifyOption {
	return func(s *SpotifyService) {
		u = strings.TrimRight(u, "/")
		s.config.Endpoint = oauth2.Endpoint{
			AuthURL:   u + "/authorize",
			TokenURL:  u + "/api/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
}

// WithHTTPClient replaces the client used for catalog and token requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:    spotifyBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades a single-use authorization code for tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, tokenEndpointError(err))
	}
	return token, nil
}

// RefreshToken exchanges refreshToken for a new access token.
//
// The returned token's RefreshToken equals the input unless Spotify rotated it.
func (s *SpotifyService) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, tokenEndpointError(err))
	}
	return token, nil
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// tokenEndpointError surfaces the token endpoint's error body verbatim.
func tokenEndpointError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &APIError{Service: "spotify accounts", StatusCode: re.Response.StatusCode, Body: string(re.Body)}
	}
	return err
}

// Profile retrieves the profile of the token's owner.
func (s *SpotifyService) Profile(ctx context.Context, token string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PlaylistsPage retrieves one page of the current user's playlists.
func (s *SpotifyService) PlaylistsPage(ctx context.Context, token string, offset, limit int) (*Paging[SpotifySimplePlaylist], error) {
	var page Paging[SpotifySimplePlaylist]
	if err := s.doRequest(ctx, token, "/me/playlists", pageQuery(offset, limit, MaxPlaylistsPage), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistTracksPage retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistTracksPage(ctx context.Context, token, playlistID string, offset, limit int) (*Paging[SpotifyTrackItem], error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var page Paging[SpotifyTrackItem]
	if err := s.doRequest(ctx, token, endpoint, pageQuery(offset, limit, MaxPlaylistTracksPage), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SavedTracksPage retrieves one page of the user's saved (liked) tracks.
func (s *SpotifyService) SavedTracksPage(ctx context.Context, token string, offset, limit int) (*Paging[SpotifyTrackItem], error) {
	var page Paging[SpotifyTrackItem]
	if err := s.doRequest(ctx, token, "/me/tracks", pageQuery(offset, limit, MaxSavedTracksPage), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func pageQuery(offset, limit, max int) url.Values {
	if limit <= 0 || limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}

// doRequest performs an authenticated GET against the Web API.
func (s *SpotifyService) doRequest(ctx context.Context, token, endpoint string, query url.Values, result any) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Service: "spotify", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
