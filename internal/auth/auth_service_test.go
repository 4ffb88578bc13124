package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/secondchance/backend/internal/repository"
)

// mockUserRepository implements repository.UserRepository for testing
type mockUserRepository struct {
	users map[string]*repository.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*repository.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *repository.User) error {
	email := strings.ToLower(user.Email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == email {
			return repository.ErrEmailAlreadyExists
		}
		if u.FirstName == user.FirstName && u.LastName == user.LastName {
			return repository.ErrNameAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID.String()] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*repository.User, error) {
	if user, ok := m.users[id.String()]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = strings.ToLower(email)
	for _, user := range m.users {
		if strings.ToLower(user.Email) == email {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *mockUserRepository) NameExists(ctx context.Context, firstName, lastName string) (bool, error) {
	for _, user := range m.users {
		if user.FirstName == firstName && user.LastName == lastName {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, user *repository.User) error {
	stored, ok := m.users[user.ID.String()]
	if !ok {
		return repository.ErrUserNotFound
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Email = strings.ToLower(user.Email)
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *mockUserRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, lockThreshold int, lockDuration time.Duration) (int, *time.Time, error) {
	user, ok := m.users[id.String()]
	if !ok {
		return 0, nil, repository.ErrUserNotFound
	}
	user.LoginAttempts++
	if user.LoginAttempts >= lockThreshold {
		until := time.Now().UTC().Add(lockDuration)
		user.LockUntil = &until
	}
	return user.LoginAttempts, user.LockUntil, nil
}

func (m *mockUserRepository) ResetLoginAttempts(ctx context.Context, id uuid.UUID) error {
	user, ok := m.users[id.String()]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	return nil
}

func newTestAuthService(repo repository.UserRepository) *AuthService {
	tokens := NewTokenService(TokenServiceConfig{
		Secret:      "test-secret-key-32-characters!!!",
		TokenExpiry: time.Hour,
		Issuer:      "test",
	})
	return NewAuthService(repo, tokens, NewPasswordHasher(), AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}, nil)
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "secret1",
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	resp, validationErrors, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if len(validationErrors) > 0 {
		t.Fatalf("Register() validation errors = %v", validationErrors)
	}
	if resp.AuthToken == "" {
		t.Error("expected a signed token")
	}
	if resp.Email != "jane@example.com" {
		t.Errorf("expected email jane@example.com, got %s", resp.Email)
	}

	user, err := repo.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if user.PasswordHash == "secret1" {
		t.Error("password stored in plaintext")
	}
	if user.LoginAttempts != 0 || user.LockUntil != nil {
		t.Errorf("new account must start unlocked with zero attempts, got attempts=%d lock=%v",
			user.LoginAttempts, user.LockUntil)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	req := validRegistration()
	req.FirstName = "Janet"
	_, _, err := svc.Register(context.Background(), req)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	req := validRegistration()
	req.Email = "other@example.com"
	_, _, err := svc.Register(context.Background(), req)
	if !errors.Is(err, ErrNameExists) {
		t.Errorf("expected ErrNameExists, got %v", err)
	}
}

func TestRegisterEmailCheckedBeforeName(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	// Both conflicts present: the email conflict must win
	_, _, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists when both conflicts apply, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		field   string
	}{
		{"missing first name", func(r *RegisterRequest) { r.FirstName = "" }, "firstName"},
		{"missing last name", func(r *RegisterRequest) { r.LastName = "" }, "lastName"},
		{"malformed email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password = "abc" }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			svc := newTestAuthService(repo)

			req := validRegistration()
			tt.mutate(&req)

			_, validationErrors, err := svc.Register(context.Background(), req)
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if len(validationErrors) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, ve := range validationErrors {
				if ve.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a violation on field %q, got %v", tt.field, validationErrors)
			}
		})
	}
}

func TestRegisterSanitizesNames(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	req := validRegistration()
	req.FirstName = "<script>alert(1)</script>Jane"

	if _, _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, _ := repo.GetByEmail(context.Background(), "jane@example.com")
	if strings.Contains(user.FirstName, "<script>") {
		t.Errorf("first name not sanitized: %q", user.FirstName)
	}
	if user.FirstName != "Jane" {
		t.Errorf("expected sanitized name Jane, got %q", user.FirstName)
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "jane@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.AuthToken == "" {
		t.Error("expected a signed token")
	}
	if resp.User.UserName != "Jane" || resp.User.UserEmail != "jane@example.com" {
		t.Errorf("unexpected user payload: %+v", resp.User)
	}
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, unknownErr := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	_, wrongErr := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "wrong-password"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Errorf("unknown email and wrong password must both yield ErrInvalidCredentials, got %v and %v",
			unknownErr, wrongErr)
	}
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	bad := LoginRequest{Email: "jane@example.com", Password: "wrong-password"}

	for i := 1; i <= 5; i++ {
		_, err := svc.Login(context.Background(), bad)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	user, _ := repo.GetByEmail(context.Background(), "jane@example.com")
	if user.LoginAttempts != 5 {
		t.Errorf("expected 5 recorded attempts, got %d", user.LoginAttempts)
	}
	if user.LockUntil == nil {
		t.Fatal("expected account to be locked after the fifth failure")
	}

	// Sixth attempt while locked: LockedError, counter untouched
	_, err := svc.Login(context.Background(), bad)
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}
	if locked.RemainingMinutes < 1 || locked.RemainingMinutes > 15 {
		t.Errorf("remaining minutes out of range: %d", locked.RemainingMinutes)
	}
	if user.LoginAttempts != 5 {
		t.Errorf("locked attempt must not increment the counter, got %d", user.LoginAttempts)
	}

	// Correct password while locked is rejected the same way
	_, err = svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "secret1"})
	if !errors.As(err, &locked) {
		t.Errorf("expected AccountLockedError for correct password while locked, got %v", err)
	}
}

func TestSuccessfulLoginResetsLockState(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	bad := LoginRequest{Email: "jane@example.com", Password: "wrong-password"}
	for i := 0; i < 5; i++ {
		svc.Login(context.Background(), bad)
	}

	// Simulate lock expiry
	user, _ := repo.GetByEmail(context.Background(), "jane@example.com")
	expired := time.Now().UTC().Add(-time.Minute)
	user.LockUntil = &expired

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login after lock expiry failed: %v", err)
	}

	user, _ = repo.GetByEmail(context.Background(), "jane@example.com")
	if user.LoginAttempts != 0 || user.LockUntil != nil {
		t.Errorf("successful login must reset lock state, got attempts=%d lock=%v",
			user.LoginAttempts, user.LockUntil)
	}

	// Counting restarts from the baseline
	svc.Login(context.Background(), bad)
	user, _ = repo.GetByEmail(context.Background(), "jane@example.com")
	if user.LoginAttempts != 1 {
		t.Errorf("expected counting to restart at 1, got %d", user.LoginAttempts)
	}
}

func TestRemainingMinutesRoundsUp(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		remaining time.Duration
		want      int
	}{
		{10 * time.Second, 1},
		{time.Minute, 1},
		{61 * time.Second, 2},
		{14*time.Minute + 30*time.Second, 15},
	}

	for _, tt := range tests {
		if got := remainingMinutes(now.Add(tt.remaining), now); got != tt.want {
			t.Errorf("remainingMinutes(%v) = %d, want %d", tt.remaining, got, tt.want)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, validationErrors, err := svc.UpdateProfile(context.Background(), "jane@example.com", UpdateProfileRequest{
		Name:     "Janet",
		Password: "newsecret",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if len(validationErrors) > 0 {
		t.Fatalf("UpdateProfile() validation errors = %v", validationErrors)
	}
	if resp.AuthToken == "" {
		t.Error("expected a fresh token")
	}
	if resp.UpdatedAt.IsZero() {
		t.Error("expected updatedAt to be stamped")
	}

	user, _ := repo.GetByEmail(context.Background(), "jane@example.com")
	if user.FirstName != "Janet" {
		t.Errorf("expected first name Janet, got %s", user.FirstName)
	}
	if user.LastName != "Doe" {
		t.Errorf("last name must be untouched, got %s", user.LastName)
	}

	// Old password no longer valid, new one is
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "secret1"}); err == nil {
		t.Error("old password still accepted after change")
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "newsecret"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestAuthService(repo)

	_, _, err := svc.UpdateProfile(context.Background(), "nobody@example.com", UpdateProfileRequest{Name: "X"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
