package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

// UserRepository implements [models.UserRepository] on SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, display_name, email, country, avatar_url, external_url, credits,
	is_enriched, signup_enriched, access_token, refresh_token, created_at, updated_at`

// GetUser retrieves a user by catalog id.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.UserID, &u.DisplayName, &u.Email, &u.Country, &u.AvatarURL, &u.ExternalURL, &u.Credits,
		&u.IsEnriched, &u.SignupEnriched, &u.AccessToken, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query user: %v", shared.ErrStore, err)
	}
	return &u, nil
}

// SaveLogin inserts the user or refreshes profile and tokens of an existing one.
//
// Credits, created_at and the reserved flags of an existing user are kept.
func (r *UserRepository) SaveLogin(ctx context.Context, user *models.User) error {
	if err := models.Validate(user); err != nil {
		return err
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			country = excluded.country,
			avatar_url = excluded.avatar_url,
			external_url = excluded.external_url,
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, users.refresh_token),
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.DisplayName, user.Email, user.Country, user.AvatarURL, user.ExternalURL, user.Credits,
		user.IsEnriched, user.SignupEnriched, nullBytes(user.AccessToken), nullBytes(user.RefreshToken),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save user: %v", shared.ErrStore, err)
	}
	return nil
}

// UpdateTokens replaces the stored ciphertexts; a nil refresh keeps the current one.
func (r *UserRepository) UpdateTokens(ctx context.Context, userID string, access, refresh []byte) error {
	query := `
		UPDATE users
		SET access_token = ?, refresh_token = COALESCE(?, refresh_token), updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, nullBytes(access), nullBytes(refresh), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("%w: failed to update tokens: %v", shared.ErrStore, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	return nil
}

// AddCredits increments the balance and returns the new value.
func (r *UserRepository) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive, got %d", shared.ErrInvalidInput, amount)
	}

	query := `UPDATE users SET credits = credits + ?, updated_at = ? WHERE user_id = ? RETURNING credits`

	var balance int
	err := r.db.QueryRowContext(ctx, query, amount, time.Now().UTC(), userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to add credits: %v", shared.ErrStore, err)
	}
	return balance, nil
}

// DebitCredits subtracts amount only while the balance covers it.
func (r *UserRepository) DebitCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive, got %d", shared.ErrInvalidInput, amount)
	}

	query := `
		UPDATE users SET credits = credits - ?, updated_at = ?
		WHERE user_id = ? AND credits >= ?
		RETURNING credits
	`

	var balance int
	err := r.db.QueryRowContext(ctx, query, amount, time.Now().UTC(), userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetUser(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("%w: need %d", shared.ErrInsufficientCredits, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to debit credits: %v", shared.ErrStore, err)
	}
	return balance, nil
}
