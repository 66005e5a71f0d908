package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/devfolio/portfolio/internal/metrics"
	"github.com/devfolio/portfolio/internal/security"
	"github.com/devfolio/portfolio/internal/store"
	"github.com/devfolio/portfolio/types"
	"github.com/rs/zerolog"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 50
	minPasswordLength = 6
	minEmailLength    = 5
	maxEmailLength    = 120
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo   UserRepository
	hasher security.Hasher
	log    zerolog.Logger
}

func NewUserService(repo UserRepository, hasher security.Hasher, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, log: log}
}

// Register creates an account. Rules are checked in order and the first
// failure is returned as a *ValidationError. Username and email are stored
// as submitted so Authenticate matches them exactly. Lengths count
// characters, not bytes.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	user, err := s.register(ctx, in)
	metrics.RecordRegistration(outcome(err))
	return user, err
}

func (s *UserService) register(ctx context.Context, in RegisterInput) (types.User, error) {
	username, email := in.Username, in.Email

	if in.Password != in.ConfirmPassword {
		return types.User{}, invalid("Passwords do not match!")
	}

	taken, err := s.exists(ctx, s.repo.GetByUsername, username)
	if err != nil {
		return types.User{}, err
	}
	if taken {
		return types.User{}, invalid("Username already exists!")
	}

	taken, err = s.exists(ctx, s.repo.GetByEmail, email)
	if err != nil {
		return types.User{}, err
	}
	if taken {
		return types.User{}, invalid("Email already exists!")
	}

	switch {
	case utf8.RuneCountInString(username) < minUsernameLength:
		return types.User{}, invalid("Username must be at least 2 characters long!")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		return types.User{}, invalid("Password must be at least 6 characters long!")
	case utf8.RuneCountInString(email) < minEmailLength:
		return types.User{}, invalid("Email must be at least 5 characters long!")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return types.User{}, invalid("Username must be at most 50 characters long!")
	case utf8.RuneCountInString(email) > maxEmailLength:
		return types.User{}, invalid("Email must be at most 120 characters long!")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrConflict) {
		return types.User{}, invalid("Username or email already exists!")
	}
	if err != nil {
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

func (s *UserService) exists(ctx context.Context, lookup func(context.Context, string) (types.User, error), value string) (bool, error) {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup user: %w", err)
	}
}

// Authenticate returns the user whose username and password match exactly.
// Unknown users and wrong passwords fail with the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.authenticate(ctx, username, password)
	metrics.RecordLogin(outcome(err))
	return user, err
}

func (s *UserService) authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Delete removes an account. Its comments stay, detached from the author.
func (s *UserService) Delete(ctx context.Context, id int) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info().Int("user_id", id).Msg("user deleted")
	return nil
}
