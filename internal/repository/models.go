package repository

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account in the database.
// LoginAttempts and LockUntil are mutated only by the login flow:
// failed attempts increment the counter, a successful login resets it
// to zero and clears the lock.
type User struct {
	ID            uuid.UUID  `db:"id"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Email         string     `db:"email"`
	PasswordHash  string     `db:"password_hash"`
	LoginAttempts int        `db:"login_attempts"`
	LockUntil     *time.Time `db:"lock_until"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Locked reports whether the account is locked at the given instant
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Item represents a secondhand listing. ID is a sequential string
// assigned server-side at creation ("1", "2", ...), distinct from any
// client-supplied value.
type Item struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Category    string     `db:"category" json:"category"`
	Condition   string     `db:"condition" json:"condition"`
	AgeDays     int        `db:"age_days" json:"age_days"`
	AgeYears    float64    `db:"age_years" json:"age_years"`
	Description string     `db:"description" json:"description"`
	Image       string     `db:"image" json:"image,omitempty"`
	DateAdded   int64      `db:"date_added" json:"date_added"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// SearchFilters holds the item search predicate. Zero-valued fields are
// omitted from the query entirely rather than matched literally.
type SearchFilters struct {
	Name        string
	Category    string
	Condition   string
	MaxAgeYears *int
}
