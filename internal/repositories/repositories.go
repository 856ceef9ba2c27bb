// package repositories implements [models.Store] over SQLite and MongoDB.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// SQLiteStore bundles the SQLite repositories over one connection.
type SQLiteStore struct {
	*UserRepository
	*PlaylistRepository
	*TrackRepository
	db *sql.DB
}

var _ models.Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		UserRepository:     NewUserRepository(db),
		PlaylistRepository: NewPlaylistRepository(db),
		TrackRepository:    NewTrackRepository(db),
		db:                 db,
	}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Open connects to the store selected by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg shared.DatabaseConfig) (models.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return nil, err
		}
		if cfg.Path != ":memory:" {
			shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
		}

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLiteStore(db), nil
	case "mongo", "mongodb":
		store, err := NewMongoStore(ctx, cfg.URI, cfg.Name)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: corrupt list column: %v", shared.ErrStore, err)
	}
	if v == nil {
		v = []string{}
	}
	return v, nil
}

// mergeUsers appends the ids of add missing from base, preserving order.
func mergeUsers(base, add []string) []string {
	out := append([]string{}, base...)
	for _, id := range add {
		if id == "" {
			continue
		}
		found := false
		for _, have := range out {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			out = append(out, id)
		}
	}
	return out
}

// nullBytes turns a nil slice into SQL NULL.
func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}
