package services

import (
	"fmt"
	"net/http"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// APIError is a non-2xx upstream response, carrying status and body verbatim.
//
// A 401 unwraps to [shared.ErrUnauthorized], anything else to [shared.ErrAPIRequest].
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return shared.ErrUnauthorized
	}
	return shared.ErrAPIRequest
}
