package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

// UpsertUser creates or updates a user record.
func (s *SQLStore) UpsertUser(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
	INSERT INTO users (id, email, full_name, role, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		email = excluded.email,
		full_name = excluded.full_name,
		role = excluded.role,
		updated_at = excluded.updated_at`

	_, err := s.exec(ctx, "upsert user", query,
		user.ID, user.Email, stringOrNil(user.FullName), string(user.Role),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, email, full_name, role, created_at, updated_at FROM users WHERE id = ?`

	var user domain.User
	var fullName sql.NullString
	var role string
	var createdAt, updatedAt int64

	err := s.queryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &fullName, &role, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("scan user row", err)
	}

	user.FullName = fullName.String
	user.Role = domain.Role(role)
	user.CreatedAt = fromUnix(createdAt)
	user.UpdatedAt = fromUnix(updatedAt)
	return &user, nil
}

// UpsertTherapist creates or updates a therapist profile.
func (s *SQLStore) UpsertTherapist(ctx context.Context, therapist *domain.Therapist) error {
	if therapist.CreatedAt.IsZero() {
		therapist.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO therapists (id, user_id, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id`

	_, err := s.exec(ctx, "upsert therapist", query,
		therapist.ID, therapist.UserID, therapist.CreatedAt.Unix(),
	)
	return err
}

// GetTherapist retrieves a therapist profile by its profile ID.
func (s *SQLStore) GetTherapist(ctx context.Context, therapistID string) (*domain.Therapist, error) {
	return s.getTherapist(ctx, "id", therapistID)
}

// GetTherapistByUserID retrieves the therapist profile owned by a user account.
func (s *SQLStore) GetTherapistByUserID(ctx context.Context, userID string) (*domain.Therapist, error) {
	return s.getTherapist(ctx, "user_id", userID)
}

func (s *SQLStore) getTherapist(ctx context.Context, column, value string) (*domain.Therapist, error) {
	query := `SELECT id, user_id, created_at FROM therapists WHERE ` + column + ` = ?`

	var t domain.Therapist
	var createdAt int64
	err := s.queryRow(ctx, query, value).Scan(&t.ID, &t.UserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("scan therapist row", err)
	}
	t.CreatedAt = fromUnix(createdAt)
	return &t, nil
}
