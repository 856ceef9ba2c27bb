package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/server"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

type loginReport struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Credits     int    `json:"credits"`
}

// AuthLogin performs the authorization code flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for the
// consent page and stores the user with sealed tokens once the callback arrives.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	mgr, err := r.tokenManager(ctx)
	if err != nil {
		return err
	}

	user, err := r.doOAuth(ctx, mgr.AuthURL, mgr.Login)
	if err != nil {
		return err
	}

	report := loginReport{UserID: user.UserID, DisplayName: user.DisplayName, Credits: user.Credits}
	if cmd.Bool("sync") {
		if err := r.runSync(ctx, user.UserID, syncAll, ""); err != nil {
			return err
		}
	}

	return r.emit(shared.OK("login successful", report), func() error {
		r.writePlainln("✓ Authorization successful")
		r.writePlain("  User: %s (%s)\n", user.DisplayName, user.UserID)
		r.writePlain("  Credits: %d\n\n", user.Credits)
		r.writePlain("You can now use: spotify-playlist-app sync --user %s\n", user.UserID)
		return nil
	})
}

// AuthRefresh exchanges the stored refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	mgr, err := r.tokenManager(ctx)
	if err != nil {
		return err
	}

	if _, err := mgr.Refresh(ctx, userID); err != nil {
		return err
	}
	r.logger.Info("access token refreshed", "user", userID)

	return r.emit(shared.OK("token refreshed", map[string]string{"user_id": userID}), func() error {
		return r.writePlain("✓ Access token refreshed for %s\n", userID)
	})
}

// doOAuth executes the authorization flow with a local callback server
func (r *Runner) doOAuth(ctx context.Context, authURL func(state string) string, login server.LoginFunc) (*models.User, error) {
	callback, err := url.Parse(r.cfg().Credentials.Spotify.RedirectURI)
	if err != nil || callback.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q is not an absolute URL", shared.ErrInvalidConfig, r.cfg().Credentials.Spotify.RedirectURI)
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(login, state)

	router := chi.NewRouter()
	for _, route := range oauthHandler.Routes() {
		router.Handle(route, oauthHandler)
	}

	httpServer := &http.Server{
		Addr:              callback.Host,
		Handler:           server.Apply(router, middleware.Recoverer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", callback.Host)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	consent := authURL(state)
	r.notef("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenConsent(consent); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.notef("⚠ Could not open browser automatically.\n")
		r.notef("Please open this URL in your browser:\n%s\n\n", consent)
	}

	r.notef("→ Waiting for authorization (%v timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.User == nil {
		return nil, fmt.Errorf("%w: no user received", shared.ErrAuthFailed)
	}
	return result.User, nil
}
