package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/secondchance/backend/internal/metrics"
	"github.com/secondchance/backend/internal/repository"
	"github.com/secondchance/backend/internal/sanitizer"
)

// Auth service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("user already exists with this email")
	ErrNameExists         = errors.New("user already exists with this name")
	ErrUserNotFound       = errors.New("user not found")
)

// Error codes for API responses
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAuthTokenMissing   = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid   = "AUTH_TOKEN_INVALID"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AccountLockedError is returned when a login is attempted against a
// locked account. RemainingMinutes is rounded up, so a lock with ten
// seconds left still reports one minute.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes)
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the profile update payload. Empty
// fields are left untouched.
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned on successful registration
type RegisterResponse struct {
	AuthToken string `json:"authtoken"`
	Email     string `json:"email"`
}

// LoginUser is the user payload inside a login response
type LoginUser struct {
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	AuthToken string    `json:"authtoken"`
	User      LoginUser `json:"user"`
}

// UpdateProfileResponse is returned on successful profile update
type UpdateProfileResponse struct {
	AuthToken string    `json:"authtoken"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidationError represents a single field-level validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AuthService handles registration, login and profile updates, and
// enforces the account lockout policy.
//
// Each account is in one of two states: Unlocked(attempts) or
// Locked(until). A failed password check increments the attempt
// counter; reaching maxAttempts transitions to Locked for lockDuration.
// The lock check runs before anything else, so requests against a
// locked account never mutate the counter or extend the lock. Any
// successful login returns the account to Unlocked(0).
type AuthService struct {
	userRepo     repository.UserRepository
	tokens       *TokenService
	hasher       *PasswordHasher
	sanitizer    *sanitizer.TextSanitizer
	maxAttempts  int
	lockDuration time.Duration
	logger       *slog.Logger
}

// AuthServiceConfig holds the lockout policy for AuthService
type AuthServiceConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *TokenService,
	hasher *PasswordHasher,
	cfg AuthServiceConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:     userRepo,
		tokens:       tokens,
		hasher:       hasher,
		sanitizer:    sanitizer.New(),
		maxAttempts:  cfg.MaxLoginAttempts,
		lockDuration: cfg.LockDuration,
		logger:       logger,
	}
}

// Register creates a new user account and returns a signed token.
// Uniqueness is checked email first, then the (firstName, lastName)
// pair. The stored password is a salted bcrypt hash, never plaintext.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, []ValidationError, error) {
	s.sanitizer.CleanAll(&req.FirstName, &req.LastName)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	var validationErrors []ValidationError
	if req.FirstName == "" {
		validationErrors = append(validationErrors, ValidationError{Field: "firstName", Message: "firstName is required"})
	}
	if req.LastName == "" {
		validationErrors = append(validationErrors, ValidationError{Field: "lastName", Message: "lastName is required"})
	}
	if !isValidEmail(email) {
		validationErrors = append(validationErrors, ValidationError{Field: "email", Message: "Invalid email format"})
	}
	if len(req.Password) < MinPasswordLength {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength),
		})
	}
	if len(validationErrors) > 0 {
		return nil, validationErrors, nil
	}

	emailTaken, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if emailTaken {
		return nil, nil, ErrEmailExists
	}

	nameTaken, err := s.userRepo.NameExists(ctx, req.FirstName, req.LastName)
	if err != nil {
		return nil, nil, err
	}
	if nameTaken {
		return nil, nil, ErrNameExists
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &repository.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailAlreadyExists):
			return nil, nil, ErrEmailExists
		case errors.Is(err, repository.ErrNameAlreadyExists):
			return nil, nil, ErrNameExists
		}
		return nil, nil, err
	}

	token, err := s.tokens.Generate(user.ID.String(), user.Email, user.FirstName)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)

	return &RegisterResponse{
		AuthToken: token,
		Email:     user.Email,
	}, nil, nil
}

// Login authenticates a user and returns a signed token.
//
// Unknown email and wrong password are indistinguishable to the caller:
// both return ErrInvalidCredentials. A locked account returns
// AccountLockedError before any credential check, leaving the attempt
// counter untouched.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if user.Locked(now) {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return nil, &AccountLockedError{
			RemainingMinutes: remainingMinutes(*user.LockUntil, now),
		}
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		attempts, lockUntil, recErr := s.userRepo.RecordFailedLogin(ctx, user.ID, s.maxAttempts, s.lockDuration)
		if recErr != nil {
			return nil, recErr
		}
		if lockUntil != nil {
			metrics.LockoutsTotal.Inc()
			s.logger.Warn("account locked after repeated failures",
				"user_id", user.ID, "attempts", attempts, "lock_until", lockUntil)
		}
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.ResetLoginAttempts(ctx, user.ID); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID.String(), user.Email, user.FirstName)
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResponse{
		AuthToken: token,
		User: LoginUser{
			UserName:  user.FirstName,
			UserEmail: user.Email,
		},
	}, nil
}

// UpdateProfile updates the identity fields of the user identified by
// currentEmail and returns a fresh token reflecting the new identity.
func (s *AuthService) UpdateProfile(ctx context.Context, currentEmail string, req UpdateProfileRequest) (*UpdateProfileResponse, []ValidationError, error) {
	user, err := s.userRepo.GetByEmail(ctx, currentEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	s.sanitizer.CleanAll(&req.Name, &req.LastName)

	if req.Name != "" {
		user.FirstName = req.Name
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Email != "" {
		email := strings.TrimSpace(strings.ToLower(req.Email))
		if !isValidEmail(email) {
			return nil, []ValidationError{{Field: "email", Message: "Invalid email format"}}, nil
		}
		user.Email = email
	}
	if req.Password != "" {
		if len(req.Password) < MinPasswordLength {
			return nil, []ValidationError{{
				Field:   "password",
				Message: fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength),
			}}, nil
		}
		// Fresh salt on every password change
		passwordHash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, nil, err
		}
		user.PasswordHash = passwordHash
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, nil, ErrUserNotFound
		case errors.Is(err, repository.ErrEmailAlreadyExists):
			return nil, nil, ErrEmailExists
		}
		return nil, nil, err
	}

	token, err := s.tokens.Generate(user.ID.String(), user.Email, user.FirstName)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("profile updated", "user_id", user.ID)

	return &UpdateProfileResponse{
		AuthToken: token,
		Message:   "User updated successfully",
		UpdatedAt: user.UpdatedAt,
	}, nil, nil
}

// remainingMinutes reports how long a lock has left, in whole minutes
// rounded up
func remainingMinutes(until, now time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}

// isValidEmail checks if the email format is valid
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
