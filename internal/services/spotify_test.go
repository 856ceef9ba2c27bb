package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://127.0.0.1:8000/callback",
	}
}

func newTestSpotify(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials(), WithBaseURL(server.URL), WithAccountsURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{"client_id": "c", "client_secret": "s"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.RedirectURL != "http://127.0.0.1:8000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials())

		authURL := srv.AuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "user-library-read"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL %q should contain %q", authURL, want)
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/token" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "abc" {
					t.Errorf("unexpected form %v", r.Form)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","token_type":"Bearer","expires_in":3600}`))
			}))

			token, err := srv.Exchange(context.Background(), "abc")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "acc" || token.RefreshToken != "ref" {
				t.Errorf("unexpected token %+v", token)
			}
		})

		t.Run("Surfaces error body", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
			}))

			_, err := srv.Exchange(context.Background(), "used")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.StatusCode != http.StatusBadRequest || !strings.Contains(apiErr.Body, "Invalid authorization code") {
				t.Errorf("expected verbatim body, got %+v", apiErr)
			}
		})

		t.Run("Empty code", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials())
			if _, err := srv.Exchange(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("RefreshToken", func(t *testing.T) {
		t.Run("Keeps refresh token when not rotated", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "old" {
					t.Errorf("unexpected form %v", r.Form)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
			}))

			token, err := srv.RefreshToken(context.Background(), "old")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "fresh" || token.RefreshToken != "old" {
				t.Errorf("unexpected token %+v", token)
			}
		})

		t.Run("Revoked", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
			}))

			_, err := srv.RefreshToken(context.Background(), "old")
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), "Refresh token revoked") {
				t.Errorf("expected upstream body in error, got %v", err)
			}
		})

		t.Run("Missing", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials())
			if _, err := srv.RefreshToken(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})
	})

	t.Run("Catalog requests", func(t *testing.T) {
		t.Run("Profile sends bearer token", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("unexpected authorization header %q", got)
				}
				json.NewEncoder(w).Encode(SpotifyUser{ID: "u1", DisplayName: "User One"})
			}))

			user, err := srv.Profile(context.Background(), "tok")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.ID != "u1" {
				t.Errorf("expected user u1, got %s", user.ID)
			}
		})

		t.Run("Limits are clamped", func(t *testing.T) {
			var gotLimit string
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotLimit = r.URL.Query().Get("limit")
				w.Write([]byte(`{"items":[],"total":0}`))
			}))

			if _, err := srv.PlaylistTracksPage(context.Background(), "tok", "p1", 0, 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotLimit != "100" {
				t.Errorf("expected limit 100, got %s", gotLimit)
			}

			if _, err := srv.SavedTracksPage(context.Background(), "tok", 0, 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotLimit != "50" {
				t.Errorf("expected limit 50, got %s", gotLimit)
			}
		})

		t.Run("Null track and public fields decode", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/playlists/p1/tracks":
					w.Write([]byte(`{"items":[{"track":null},{"track":{"id":"t1","name":"Song","preview_url":null}}],"total":2}`))
				case "/me/playlists":
					w.Write([]byte(`{"items":[{"id":"p1","public":null}],"total":1}`))
				}
			}))

			tracks, err := srv.PlaylistTracksPage(context.Background(), "tok", "p1", 0, 100)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tracks.Items[0].Track != nil || tracks.Items[1].Track.ID != "t1" {
				t.Errorf("unexpected items %+v", tracks.Items)
			}

			playlists, err := srv.PlaylistsPage(context.Background(), "tok", 0, 50)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if playlists.Items[0].Public != nil {
				t.Error("expected nil public")
			}
		})

		t.Run("401 unwraps to ErrUnauthorized", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
			}))

			_, err := srv.Profile(context.Background(), "expired")
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("Other errors keep status and body", func(t *testing.T) {
			srv := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`slow down`))
			}))

			_, err := srv.PlaylistsPage(context.Background(), "tok", 0, 50)
			if !errors.Is(err, shared.ErrAPIRequest) || errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrAPIRequest only, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 || apiErr.Body != "slow down" {
				t.Errorf("unexpected error %v", err)
			}
		})

		t.Run("Missing token", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials())
			if _, err := srv.Profile(context.Background(), ""); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})
}
