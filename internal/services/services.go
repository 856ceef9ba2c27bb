// package services holds the HTTP clients for the remote systems the pipeline consumes:
// the Spotify catalog and accounts endpoints and the classification oracle.
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Catalog is the page-at-a-time view of the remote catalog used by sync.
type Catalog interface {
	Profile(ctx context.Context, token string) (*SpotifyUser, error)
	PlaylistsPage(ctx context.Context, token string, offset, limit int) (*Paging[SpotifySimplePlaylist], error)
	PlaylistTracksPage(ctx context.Context, token, playlistID string, offset, limit int) (*Paging[SpotifyTrackItem], error)
	SavedTracksPage(ctx context.Context, token string, offset, limit int) (*Paging[SpotifyTrackItem], error)
}

// TokenEndpoint performs the OAuth2 authorization-code and refresh grants.
type TokenEndpoint interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Oracle answers a system-constrained prompt with free-form text.
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var (
	_ Catalog       = (*SpotifyService)(nil)
	_ TokenEndpoint = (*SpotifyService)(nil)
	_ Oracle        = (*AnthropicService)(nil)
)
