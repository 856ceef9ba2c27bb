package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// StateCookie carries the OAuth state between /login and /callback.
const StateCookie = "spotify_auth_state"

const (
	defaultTrackLimit = 50
	maxTrackLimit     = 100
)

// PublicProfile is what any caller may see about a user.
type PublicProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Country     string `json:"country"`
	Credits     int    `json:"credits"`
}

// TrackPage is one page of a playlist's stored tracks.
type TrackPage struct {
	Tracks      []models.Track `json:"tracks"`
	Total       int            `json:"total"`
	UserCredits int            `json:"user_credits"`
	HasMore     bool           `json:"has_more"`
	IsFetching  bool           `json:"is_fetching"`
}

type refreshRequest struct {
	UserID string `json:"spotify_user_id" validate:"required"`
}

type enhanceRequest struct {
	UserID   string   `json:"spotify_user_id" validate:"required"`
	TrackIDs []string `json:"track_ids" validate:"required,min=1"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeResult(w, http.StatusServiceUnavailable, shared.Fail("store unavailable", err))
		return
	}
	s.ok(w, "healthy", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.ok(w, "redirect to authorize", map[string]string{"redirectUrl": s.auth.AuthURL(state)})
}

// handleCallback logs the user in, schedules a full sync and redirects.
//
// The state is checked against the cookie set by /login when the cookie is present.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if c, err := r.Cookie(StateCookie); err == nil && c.Value != q.Get("state") {
		s.writeResult(w, http.StatusBadRequest, shared.Fail("login failed", shared.ErrInvalidArgument))
		return
	}

	code := q.Get("code")
	if code == "" {
		s.writeResult(w, http.StatusBadRequest, shared.Result{
			Success: false,
			Message: "login failed",
			Details: shared.JoinNonEmpty(": ", q.Get("error"), q.Get("error_description")),
		})
		return
	}

	user, err := s.auth.Login(r.Context(), code)
	if err != nil {
		s.fail(w, "login failed", err)
		return
	}

	if _, err := s.scheduler.SyncAll(user.UserID); err != nil {
		s.logger.Warn("initial sync not scheduled", "user", user.UserID, "err", err)
	}

	http.SetCookie(w, &http.Cookie{Name: StateCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, s.afterLoginURL(user.UserID), http.StatusFound)
}

func (s *Server) afterLoginURL(userID string) string {
	target := "/me"
	if s.frontendURL != "" {
		target = s.frontendURL
	}
	u, err := url.Parse(target)
	if err != nil {
		return "/me?spotify_user_id=" + url.QueryEscape(userID)
	}
	q := u.Query()
	q.Set("spotify_user_id", userID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, "user lookup failed", err)
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.fail(w, "user lookup failed", err)
		return
	}
	s.ok(w, "user found", user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "profile lookup failed", err)
		return
	}
	s.ok(w, "profile found", PublicProfile{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Country:     user.Country,
		Credits:     user.Credits,
	})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, "token refresh failed", err)
		return
	}

	token, err := s.auth.Refresh(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, "token refresh failed", err)
		return
	}
	s.ok(w, "token refreshed", map[string]string{"access_token": token})
}

// handleListPlaylists answers from the store and schedules a playlist sync behind it.
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, "playlists unavailable", err)
		return
	}
	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		s.fail(w, "playlists unavailable", err)
		return
	}

	playlists, err := s.store.ListPlaylists(r.Context(), userID)
	if err != nil {
		s.fail(w, "playlists unavailable", err)
		return
	}

	_, schedErr := s.scheduler.SyncPlaylists(userID)
	s.ok(w, "playlists loaded", map[string]any{
		"playlists":   playlists,
		"is_fetching": schedErr == nil,
	})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, "playlist unavailable", err)
		return
	}

	playlistID := chi.URLParam(r, "id")
	p, err := s.store.GetPlaylist(r.Context(), playlistID, ownerScope(playlistID, userID))
	if err != nil {
		s.fail(w, "playlist unavailable", err)
		return
	}
	s.ok(w, "playlist found", p)
}

// handleListTracks pages through stored tracks and schedules a sync when none are stored yet.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}
	limit, err := queryInt(r, "limit", defaultTrackLimit)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}
	if limit == 0 || limit > maxTrackLimit {
		limit = maxTrackLimit
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}

	playlistID := chi.URLParam(r, "id")
	q := models.TrackQuery{PlaylistID: playlistID}
	if playlistID == models.LikedSongsID {
		q.Member = userID
	}

	total, err := s.store.CountTracks(ctx, q)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}

	q.Offset, q.Limit = offset, limit
	tracks, err := s.store.ListTracks(ctx, q)
	if err != nil {
		s.fail(w, "tracks unavailable", err)
		return
	}

	fetching := s.scheduler.TracksInFlight(userID, playlistID)
	if total == 0 && !fetching {
		if _, err := s.scheduler.SyncTracks(userID, playlistID); err == nil {
			fetching = true
		}
	}

	if tracks == nil {
		tracks = []models.Track{}
	}
	s.ok(w, "tracks loaded", TrackPage{
		Tracks:      tracks,
		Total:       total,
		UserCredits: user.Credits,
		HasMore:     offset+len(tracks) < total,
		IsFetching:  fetching,
	})
}

func (s *Server) handleFetchTracks(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, "track sync not scheduled", err)
		return
	}

	h, err := s.scheduler.SyncTracks(userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "track sync not scheduled", err)
		return
	}
	s.writeResult(w, http.StatusAccepted, shared.OK("track sync scheduled", map[string]string{
		"task_id": h.ID,
		"key":     h.Key,
	}))
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, "enrichment failed", err)
		return
	}

	playlistID := chi.URLParam(r, "id")
	if _, err := s.store.GetPlaylist(r.Context(), playlistID, ownerScope(playlistID, req.UserID)); err != nil {
		s.fail(w, "enrichment failed", err)
		return
	}

	quote, err := s.ledger.Price(r.Context(), req.UserID, req.TrackIDs)
	if err != nil {
		s.fail(w, "enrichment failed", err)
		return
	}

	logger := s.logger.With("user", quote.UserID, "playlist", playlistID)
	h, err := s.scheduler.Run("enrich:"+quote.UserID, func(ctx context.Context) error {
		report, err := s.ledger.EnrichBatch(ctx, quote.UserID, quote.TrackIDs)
		if report != nil {
			logger.Info("enrichment finished", "report", report.String())
		}
		return err
	})
	if err != nil {
		s.fail(w, "enrichment not scheduled", err)
		return
	}

	s.writeResult(w, http.StatusAccepted, shared.OK("enrichment scheduled", map[string]any{
		"task_id":   h.ID,
		"key":       h.Key,
		"requested": len(quote.TrackIDs),
		"cost":      quote.Cost,
	}))
}

// ownerScope narrows playlist lookups to the caller for liked songs only.
func ownerScope(playlistID, userID string) string {
	if playlistID == models.LikedSongsID {
		return userID
	}
	return ""
}
