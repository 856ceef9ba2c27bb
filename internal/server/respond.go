package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// writeResult encodes r as the response body with status.
func (s *Server) writeResult(w http.ResponseWriter, status int, r shared.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(r); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) ok(w http.ResponseWriter, message string, details any) {
	s.writeResult(w, http.StatusOK, shared.OK(message, details))
}

// fail writes err with the status its sentinel maps to.
func (s *Server) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, "err", err)
	}
	s.writeResult(w, status, shared.Fail(message, err))
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, shared.ErrUserNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrNoRefreshToken),
		errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrQueueFull),
		errors.Is(err, shared.ErrPoolClosed),
		errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrOracle),
		errors.Is(err, shared.ErrOracleParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into v and validates its struct tags.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", shared.ErrInvalidInput, err)
	}
	return models.Validate(v)
}

// requireUserID reads the spotify_user_id query parameter.
func requireUserID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("spotify_user_id")
	if id == "" {
		return "", fmt.Errorf("%w: spotify_user_id", shared.ErrMissingArgument)
	}
	return id, nil
}

// queryInt reads a non-negative integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidArgument, name)
	}
	return n, nil
}
