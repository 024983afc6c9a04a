package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
	"github.com/taskforge/api/pkg/config"
	"github.com/taskforge/api/pkg/crypto"
	jwtpkg "github.com/taskforge/api/pkg/jwt"
)

// Service handles token issuance and validation.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string        `json:"access"`
	RefreshToken string        `json:"refresh"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// ErrInvalidCredentials masks which half of a username/password pair failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Login authenticates a user and returns a token pair.
func (s Service) Login(ctx context.Context, username, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := jwtpkg.ParseUse(strings.TrimSpace(refreshToken), jwtpkg.UseRefresh, s.cfg.JWTSecret)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	s.logger.Info("token refreshed", "user_id", user.ID)
	return tokens, nil
}

// Authorize validates a bearer access token and returns the associated user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := jwtpkg.ParseUse(trimmed, jwtpkg.UseAccess, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s Service) issueTokens(userID string) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(userID, jwtpkg.UseAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(userID, jwtpkg.UseRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL}, nil
}
