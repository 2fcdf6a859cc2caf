package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bricabrac/listings-api/internal/logging"
	"github.com/bricabrac/listings-api/internal/user"
)

// fakeUserRepo is an in-memory UserRepository keyed by email.
type fakeUserRepo struct {
	byEmail map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, email, passwordHash string) (*user.User, error) {
	if _, exists := r.byEmail[email]; exists {
		return nil, user.ErrDuplicateEmail
	}
	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.byEmail[email] = u
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func newTestAuthService(t *testing.T) (*Service, *fakeUserRepo, TokenService) {
	t.Helper()

	tokenSvc, err := NewJWTService([]byte("test-secret"))
	require.NoError(t, err)

	repo := newFakeUserRepo()
	svc := NewService(repo, NewBcryptHasher(), tokenSvc, logging.NewLogger(true), 24*time.Hour)

	return svc, repo, tokenSvc
}

func TestService_Signup(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.NotEqual(t, uuid.Nil, u.ID)
}

func TestService_Signup_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "secret123", ErrEmailRequired},
		{"bad email", "not-an-email", "secret123", ErrInvalidEmailFormat},
		{"empty password", "a@b.com", "", ErrPasswordRequired},
		{"short password", "a@b.com", "short", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "a@b.com", "different1")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	svc, _, tokenSvc := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.UserID)

	// The issued token verifies back to the same user.
	claims, err := tokenSvc.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	// Unknown email and wrong password fail identically.
	_, err = svc.Login(ctx, "unknown@b.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "a@b.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
