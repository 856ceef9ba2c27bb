package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tasks"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tokens"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Auth is the token side of the API.
type Auth interface {
	AuthURL(state string) string
	Login(ctx context.Context, code string) (*models.User, error)
	Refresh(ctx context.Context, userID string) (string, error)
}

// Scheduler queues background syncs and ad hoc jobs.
type Scheduler interface {
	SyncAll(userID string) (*tasks.Handle, error)
	SyncPlaylists(userID string) (*tasks.Handle, error)
	SyncTracks(userID, playlistID string) (*tasks.Handle, error)
	Run(name string, fn tasks.Job) (*tasks.Handle, error)
	TracksInFlight(userID, playlistID string) bool
}

// Ledger prices and runs credit-gated enrichment batches.
type Ledger interface {
	Price(ctx context.Context, userID string, trackIDs []string) (*credits.Quote, error)
	EnrichBatch(ctx context.Context, userID string, trackIDs []string) (*credits.BatchReport, error)
}

var (
	_ Auth      = (*tokens.Manager)(nil)
	_ Scheduler = (*tasks.Scheduler)(nil)
	_ Ledger    = (*credits.Ledger)(nil)
)

// Deps are the collaborators of a [Server].
type Deps struct {
	Store       models.Store
	Auth        Auth
	Scheduler   Scheduler
	Ledger      Ledger
	FrontendURL string
	Origins     []string
	Logger      *log.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       models.Store
	auth        Auth
	scheduler   Scheduler
	ledger      Ledger
	frontendURL string
	origins     []string
	router      *chi.Mux
	logger      *log.Logger
}

// New creates a [Server] with all routes configured.
func New(deps Deps) *Server {
	s := &Server{
		store:       deps.Store,
		auth:        deps.Auth,
		scheduler:   deps.Scheduler,
		ledger:      deps.Ledger,
		frontendURL: deps.FrontendURL,
		origins:     deps.Origins,
		router:      chi.NewRouter(),
		logger:      shared.WithLogger(deps.Logger, "component", "server"),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
