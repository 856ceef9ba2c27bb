// package tokens owns the OAuth token lifecycle: login, refresh and decryption
// of stored tokens. Plaintext tokens never reach the store.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/catalog"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/vault"
)

// Tokens is a plaintext token pair fresh from the token endpoint.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Manager implements the token lifecycle over a user store and a vault.
type Manager struct {
	users    models.UserRepository
	cipher   vault.Cipher
	endpoint services.TokenEndpoint
	catalog  services.Catalog
	logger   *log.Logger
}

// NewManager wires a token manager. catalog is only used by [Manager.Login] to read the profile.
func NewManager(users models.UserRepository, cipher vault.Cipher, endpoint services.TokenEndpoint, catalog services.Catalog, logger *log.Logger) *Manager {
	return &Manager{
		users:    users,
		cipher:   cipher,
		endpoint: endpoint,
		catalog:  catalog,
		logger:   shared.WithLogger(logger, "component", "tokens"),
	}
}

// AuthURL returns the consent page URL carrying state.
func (m *Manager) AuthURL(state string) string {
	return m.endpoint.AuthURL(state)
}

// Obtain exchanges a single-use authorization code.
func (m *Manager) Obtain(ctx context.Context, code string) (*Tokens, error) {
	tok, err := m.endpoint.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", shared.ErrAuthFailed)
	}
	return &Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: tok.Expiry}, nil
}

// Login obtains tokens for code, reads the profile and stores the user with sealed tokens.
//
// An existing user keeps credits and created_at.
func (m *Manager) Login(ctx context.Context, code string) (*models.User, error) {
	tokens, err := m.Obtain(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := m.catalog.Profile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	user := UserFromProfile(profile)
	if user.AccessToken, err = m.cipher.Encrypt([]byte(tokens.AccessToken)); err != nil {
		return nil, err
	}
	if tokens.RefreshToken != "" {
		if user.RefreshToken, err = m.cipher.Encrypt([]byte(tokens.RefreshToken)); err != nil {
			return nil, err
		}
	}

	if err := m.users.SaveLogin(ctx, user); err != nil {
		return nil, err
	}

	m.logger.Info("user logged in", "user", user.UserID)
	return m.users.GetUser(ctx, user.UserID)
}

// UserFromProfile maps a catalog profile onto a new [models.User] without tokens.
func UserFromProfile(p *services.SpotifyUser) *models.User {
	u := &models.User{
		UserID:      p.ID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Country:     p.Country,
		ExternalURL: p.ExternalURLs.Spotify,
	}
	if len(p.Images) > 0 {
		u.AvatarURL = p.Images[0].URL
	}
	return u
}

// Refresh exchanges the stored refresh token, persists the rotated tokens and
// returns the new plaintext access token.
//
// Nothing is retried: a rejected refresh token means the user must log in again.
func (m *Manager) Refresh(ctx context.Context, userID string) (string, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(user.RefreshToken) == 0 {
		return "", fmt.Errorf("%w: user %s", shared.ErrNoRefreshToken, userID)
	}

	refresh, err := m.cipher.Decrypt(user.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token of user %s: %w", userID, err)
	}

	tok, err := m.endpoint.RefreshToken(ctx, string(refresh))
	if err != nil {
		m.logger.Warn("token refresh rejected", "user", userID, "err", err)
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned no access token for user %s", shared.ErrRefreshFailed, userID)
	}

	access, err := m.cipher.Encrypt([]byte(tok.AccessToken))
	if err != nil {
		return "", err
	}

	var rotated []byte
	if tok.RefreshToken != "" && tok.RefreshToken != string(refresh) {
		if rotated, err = m.cipher.Encrypt([]byte(tok.RefreshToken)); err != nil {
			return "", err
		}
	}

	if err := m.users.UpdateTokens(ctx, userID, access, rotated); err != nil {
		return "", err
	}

	m.logger.Debug("access token refreshed", "user", userID, "rotated_refresh", rotated != nil)
	return tok.AccessToken, nil
}

// AccessToken decrypts the stored access token of userID.
func (m *Manager) AccessToken(ctx context.Context, userID string) (string, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(user.AccessToken) == 0 {
		return "", fmt.Errorf("%w: user %s has no access token", shared.ErrNotAuthenticated, userID)
	}

	access, err := m.cipher.Decrypt(user.AccessToken)
	if err != nil {
		return "", fmt.Errorf("access token of user %s: %w", userID, err)
	}
	return string(access), nil
}

// Bearer returns a catalog bearer for userID that refreshes through this manager.
func (m *Manager) Bearer(ctx context.Context, userID string) (*catalog.Bearer, error) {
	access, err := m.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return catalog.NewBearer(access, func(ctx context.Context) (string, error) {
		return m.Refresh(ctx, userID)
	}), nil
}
