package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
	"github.com/taskforge/api/pkg/config"
	"github.com/taskforge/api/pkg/crypto"
	jwtpkg "github.com/taskforge/api/pkg/jwt"
)

type stubUserRepository struct {
	users map[string]domain.User
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error { return nil }

func (s *stubUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) ListUsers(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepository) UpdateUser(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserRepository) DeleteUser(ctx context.Context, id string) error         { return nil }

func testService(t *testing.T) (Service, *stubUserRepository) {
	t.Helper()
	hash, err := crypto.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &stubUserRepository{users: map[string]domain.User{
		"user-1": {ID: "user-1", Username: "alice", PasswordHash: hash, Age: 30},
	}}
	cfg := config.APIConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Service{users: repo, logger: log, cfg: cfg}, repo
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, _ := testService(t)
	user, tokens, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	claims, err := jwtpkg.ParseUse(tokens.AccessToken, jwtpkg.UseAccess, "test-secret")
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected claims for user-1, got %q", claims.UserID)
	}
	if _, err := jwtpkg.ParseUse(tokens.RefreshToken, jwtpkg.UseRefresh, "test-secret"); err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
}

func TestLoginMasksFailureCause(t *testing.T) {
	svc, _ := testService(t)
	if _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := testService(t)
	_, tokens, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, jwtpkg.ErrWrongTokenUse) {
		t.Fatalf("expected ErrWrongTokenUse for access token, got %v", err)
	}
	fresh, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}
}

func TestRefreshRequiresExistingUser(t *testing.T) {
	svc, repo := testService(t)
	_, tokens, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	delete(repo.users, "user-1")
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted user, got %v", err)
	}
}

func TestAuthorizeRejectsRefreshToken(t *testing.T) {
	svc, _ := testService(t)
	_, tokens, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, _, err := svc.Authorize(context.Background(), tokens.RefreshToken); !errors.Is(err, jwtpkg.ErrWrongTokenUse) {
		t.Fatalf("expected ErrWrongTokenUse for refresh token, got %v", err)
	}
	user, claims, err := svc.Authorize(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if user.ID != "user-1" || claims.UserID != "user-1" {
		t.Fatalf("unexpected authorize result: user=%+v claims=%+v", user, claims)
	}
}
