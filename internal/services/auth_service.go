package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const maxUsernameLength = 50

// AuthService registers users and checks their credentials.
type AuthService struct {
	store           storage.Store
	defaultCurrency string
	logger          *log.Logger
}

func NewAuthService(store storage.Store, defaultCurrency string, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentAuth)
	}
	return &AuthService{
		store:           store,
		defaultCurrency: core.CurrencyOrDefault(defaultCurrency),
		logger:          logger,
	}
}

// Register creates a user and seeds their default accounts and categories.
func (s *AuthService) Register(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return core.User{}, core.ErrEmptyUsername
	}
	if len(password) < core.MinPasswordLength {
		return core.User{}, core.ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.store.CreateUser(ctx, username, hash, s.defaultCurrency)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.User{}, ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("register user: %w", err)
	}

	if err := s.store.SeedDefaults(ctx, user.ID, user.DefaultCurrency); err != nil {
		// The dashboard seeds again on first view.
		s.logger.WarnContext(ctx, "Failed to seed defaults after registration",
			log.FieldUserID, user.ID, log.FieldError, err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldUserID, user.ID,
		log.FieldUsername, user.Username,
		log.FieldOperation, log.OpRegister)
	return user, nil
}

// Login returns the user when the password matches.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.InfoContext(ctx, "Rejected login",
			log.FieldUsername, user.Username, log.FieldOperation, log.OpLogin)
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) User(ctx context.Context, id int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
