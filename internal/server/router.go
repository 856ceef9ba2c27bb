package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
	})
	s.router.Get("/login", s.handleLogin)
	s.router.Get("/callback", s.handleCallback)
	s.router.Post("/refresh-token", s.handleRefreshToken)

	s.router.Route("/me", func(r chi.Router) {
		r.Get("/", s.handleMe)
		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleListPlaylists)
			r.Get("/{id}", s.handleGetPlaylist)
			r.Get("/{id}/tracks", s.handleListTracks)
			r.Post("/{id}/fetch-tracks", s.handleFetchTracks)
			r.Post("/{id}/enhance", s.handleEnhance)
		})
	})

	s.router.Get("/users/{id}/profile", s.handleProfile)
}

// Apply wraps handler with mw; the first middleware is outermost.
func Apply(handler http.Handler, mw ...Middleware) http.Handler {
	wrapped := handler
	for i := len(mw) - 1; i >= 0; i-- {
		wrapped = mw[i](wrapped)
	}
	return wrapped
}

// requestLogger logs method, path, status, duration and request id of every request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger := s.logger.Info
		if status >= http.StatusInternalServerError {
			logger = s.logger.Error
		}
		logger("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
