package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/taskforge/api/internal/authz"
	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
	"github.com/taskforge/api/pkg/crypto"
)

// CreateInput carries signup attributes. Consent flags default to false and
// are only honored when explicitly set by the user.
type CreateInput struct {
	Username        string
	Email           string
	Password        string
	FirstName       string
	LastName        string
	Age             int
	CanBeContacted  bool
	CanDataBeShared bool
}

// UpdateInput carries mutable account attributes. Nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Email           *string
	Password        *string
	FirstName       *string
	LastName        *string
	Age             *int
	CanBeContacted  *bool
	CanDataBeShared *bool
}

// Service handles account workflows behind the consent gate.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger}
}

var (
	errMissingUsername = fmt.Errorf("%w: username is required", domain.ErrValidation)
	errMissingEmail    = fmt.Errorf("%w: email is required", domain.ErrValidation)
	errMissingPassword = fmt.Errorf("%w: password is required", domain.ErrValidation)
)

// Create registers a new account after the consent gate accepts it.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.User, error) {
	if strings.TrimSpace(input.Username) == "" {
		return nil, errMissingUsername
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, errMissingEmail
	}
	if input.Password == "" {
		return nil, errMissingPassword
	}
	if err := authz.ValidateAccount(input.Age); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:              uuid.NewString(),
		Username:        strings.TrimSpace(input.Username),
		Email:           strings.TrimSpace(input.Email),
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		PasswordHash:    hash,
		Age:             input.Age,
		CanBeContacted:  input.CanBeContacted,
		CanDataBeShared: input.CanDataBeShared,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Get returns an account by identifier.
func (s Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// List returns a filtered page of accounts plus the total match count.
func (s Service) List(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]domain.User, int, error) {
	return s.users.ListUsers(ctx, filter, limit, offset)
}

// Update mutates an account. Only the account owner may update it, and the
// consent gate is re-applied to the resulting record.
func (s Service) Update(ctx context.Context, actorID, id string, input UpdateInput) (*domain.User, error) {
	if actorID != id {
		return nil, authz.ErrForbidden
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, errMissingEmail
		}
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Age != nil {
		user.Age = *input.Age
	}
	if input.CanBeContacted != nil {
		user.CanBeContacted = *input.CanBeContacted
	}
	if input.CanDataBeShared != nil {
		user.CanDataBeShared = *input.CanDataBeShared
	}
	if err := authz.ValidateAccount(user.Age); err != nil {
		return nil, err
	}
	if input.Password != nil {
		if *input.Password == "" {
			return nil, errMissingPassword
		}
		hash, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", "user_id", user.ID)
	return user, nil
}

// Delete removes an account. Only the account owner may delete it.
func (s Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return authz.ErrForbidden
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
