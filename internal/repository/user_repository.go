package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrNameAlreadyExists  = errors.New("name already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	NameExists(ctx context.Context, firstName, lastName string) (bool, error)
	UpdateProfile(ctx context.Context, user *User) error
	RecordFailedLogin(ctx context.Context, id uuid.UUID, lockThreshold int, lockDuration time.Duration) (attempts int, lockUntil *time.Time, err error)
	ResetLoginAttempts(ctx context.Context, id uuid.UUID) error
}

// userRepository implements UserRepository using PostgreSQL
type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, login_attempts, lock_until, created_at, updated_at`

// Create inserts a new user. New accounts start unlocked with a zero
// attempt counter.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, login_attempts, lock_until)
		VALUES ($1, $2, $3, $4, 0, NULL)
		RETURNING id, login_attempts, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		strings.ToLower(user.Email),
		user.PasswordHash,
	).Scan(&user.ID, &user.LoginAttempts, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "idx_users_email") {
			return ErrEmailAlreadyExists
		}
		if strings.Contains(err.Error(), "idx_users_name") {
			return ErrNameAlreadyExists
		}
		return err
	}

	user.LockUntil = nil
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by their email address (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// EmailExists checks if an email address is already registered
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// NameExists checks if a (firstName, lastName) pair is already registered
func (r *userRepository) NameExists(ctx context.Context, firstName, lastName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE first_name = $1 AND last_name = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, firstName, lastName).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateProfile persists the mutable identity fields and stamps
// updated_at with the current time
func (r *userRepository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, password_hash = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if strings.Contains(err.Error(), "idx_users_email") {
			return ErrEmailAlreadyExists
		}
		return err
	}

	return nil
}

// RecordFailedLogin increments the attempt counter and, when the new
// count reaches the threshold, sets the lock in the same statement.
// Doing both in one UPDATE means concurrent failures cannot under-count
// the way a read-then-write would.
func (r *userRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, lockThreshold int, lockDuration time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET login_attempts = login_attempts + 1,
		    lock_until = CASE
		        WHEN login_attempts + 1 >= $2 THEN now() + make_interval(secs => $3)
		        ELSE lock_until
		    END
		WHERE id = $1
		RETURNING login_attempts, lock_until
	`

	var attempts int
	var lockUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, lockThreshold, lockDuration.Seconds()).Scan(&attempts, &lockUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, err
	}

	return attempts, lockUntil, nil
}

// ResetLoginAttempts returns the account to the unlocked baseline state
func (r *userRepository) ResetLoginAttempts(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET login_attempts = 0, lock_until = NULL WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// scanUser scans a single user row
func (r *userRepository) scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.LoginAttempts,
		&user.LockUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
