package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"equilo/internal/auth"
	"equilo/internal/core"
	"equilo/internal/storage"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	store storage.Store
	jwt   *auth.JWTManager
}

func NewAuthService(store storage.Store, jwt *auth.JWTManager) *AuthService {
	return &AuthService{store: store, jwt: jwt}
}

// Register creates a new account and returns the user with a fresh
// token pair.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*core.User, *auth.TokenPair, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, nil, core.ErrEmptyName
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, core.ErrInvalidEmail
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := &core.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.jwt.GeneratePair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

// Login verifies credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		// Same error for unknown user and bad password.
		return nil, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	pair, err := s.jwt.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return s.jwt.GeneratePair(user)
}

// Me returns the account behind an authenticated user ID.
func (s *AuthService) Me(ctx context.Context, userID int64) (*core.User, error) {
	return s.store.GetUserByID(ctx, userID)
}
