package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/bricabrac/listings-api/internal/logging"
	"github.com/bricabrac/listings-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// UserRepository is the slice of user persistence the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// LoginResult carries the authenticated user id and the issued token.
type LoginResult struct {
	UserID uuid.UUID `json:"userId"`
	Token  string    `json:"token"`
}

// Service handles authentication business logic
type Service struct {
	userRepo      UserRepository
	hasher        PasswordHasher
	tokenService  TokenService
	logger        *logging.Logger
	tokenDuration time.Duration
}

func NewService(
	userRepo UserRepository,
	hasher PasswordHasher,
	tokenService TokenService,
	logger *logging.Logger,
	tokenDuration time.Duration,
) *Service {
	return &Service{
		userRepo:      userRepo,
		hasher:        hasher,
		tokenService:  tokenService,
		logger:        logger,
		tokenDuration: tokenDuration,
	}
}

// Signup creates a new user account
func (s *Service) Signup(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user and issues a token. An unknown email and a
// wrong password are deliberately indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Check(password, existingUser.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.CreateToken(existingUser.ID, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &LoginResult{
		UserID: existingUser.ID,
		Token:  token,
	}, nil
}
