package project

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/taskforge/api/internal/authz"
	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
)

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	Title       string
	Description string
	Type        string
}

// UpdateInput carries mutable project attributes. Nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Type        *string
}

// Service orchestrates project and membership management.
type Service struct {
	projects     repository.ProjectRepository
	contributors repository.ContributorRepository
	users        repository.UserRepository
	logger       *slog.Logger
}

// New returns a project service.
func New(projects repository.ProjectRepository, contributors repository.ContributorRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{projects: projects, contributors: contributors, users: users, logger: logger}
}

var (
	errInvalidTitle        = fmt.Errorf("%w: project title is required", domain.ErrValidation)
	errInvalidType         = fmt.Errorf("%w: project type must be one of BACKEND, FRONTEND, IOS, ANDROID", domain.ErrValidation)
	errMissingProjectID    = fmt.Errorf("%w: project id required", domain.ErrValidation)
	errMissingUserID       = fmt.Errorf("%w: user id required", domain.ErrValidation)
	errDuplicateMembership = fmt.Errorf("%w: user is already a contributor of this project", domain.ErrValidation)
)

// NormalizeType upper-cases a raw type value and validates it against the
// accepted project types.
func NormalizeType(raw string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if !slices.Contains(domain.ProjectTypes, normalized) {
		return "", errInvalidType
	}
	return normalized, nil
}

// Create registers a project and enrolls the author as its first contributor.
func (s Service) Create(ctx context.Context, actorID string, input CreateInput) (*domain.Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errInvalidTitle
	}
	projectType, err := NormalizeType(input.Type)
	if err != nil {
		return nil, err
	}
	project := &domain.Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Type:        projectType,
		AuthorID:    actorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	member := &domain.Contributor{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		UserID:    actorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.contributors.AddContributor(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "author_id", actorID)
	return project, nil
}

// Get returns a project visible to the actor.
func (s Service) Get(ctx context.Context, actorID, id string) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, actorID, project, project.AuthorID, authz.OpRead); err != nil {
		return nil, err
	}
	return project, nil
}

// List returns the actor's projects, optionally narrowed by type.
func (s Service) List(ctx context.Context, actorID, projectType string, limit, offset int) ([]domain.Project, int, error) {
	if projectType != "" {
		normalized, err := NormalizeType(projectType)
		if err != nil {
			return nil, 0, err
		}
		projectType = normalized
	}
	return s.projects.ListProjectsByUser(ctx, actorID, projectType, limit, offset)
}

// Update mutates a project. Only the project author may update it.
func (s Service) Update(ctx context.Context, actorID, id string, input UpdateInput) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, actorID, project, project.AuthorID, authz.OpUpdate); err != nil {
		return nil, err
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, errInvalidTitle
		}
		project.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Type != nil {
		projectType, err := NormalizeType(*input.Type)
		if err != nil {
			return nil, err
		}
		project.Type = projectType
	}
	if err := s.projects.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project updated", "project_id", project.ID)
	return project, nil
}

// Delete removes a project and, by cascade, its contributors and issues.
// Only the project author may delete it.
func (s Service) Delete(ctx context.Context, actorID, id string) error {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(ctx, actorID, project, project.AuthorID, authz.OpDelete); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// AddContributor enrolls a user into a project. Only the project author may
// add members, and duplicate memberships are rejected.
func (s Service) AddContributor(ctx context.Context, actorID, projectID, userID string) (*domain.Contributor, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errMissingProjectID
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errMissingUserID
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanManageContributors(actorID, project.AuthorID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	exists, err := s.contributors.IsContributor(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateMembership
	}
	member := &domain.Contributor{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.contributors.AddContributor(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("contributor added", "project_id", projectID, "user_id", userID)
	return member, nil
}

// RemoveContributor revokes a membership. Only the project author may remove
// members and the author's own membership is never removable.
func (s Service) RemoveContributor(ctx context.Context, actorID, contributorID string) error {
	member, err := s.contributors.GetContributorByID(ctx, contributorID)
	if err != nil {
		return err
	}
	project, err := s.projects.GetProjectByID(ctx, member.ProjectID)
	if err != nil {
		return err
	}
	if err := authz.CheckRemoveContributor(actorID, project.AuthorID, member.UserID); err != nil {
		return err
	}
	if err := s.contributors.DeleteContributor(ctx, contributorID); err != nil {
		return err
	}
	s.logger.Info("contributor removed", "project_id", member.ProjectID, "user_id", member.UserID)
	return nil
}

// GetContributor returns a membership row visible to the actor.
func (s Service) GetContributor(ctx context.Context, actorID, contributorID string) (*domain.Contributor, error) {
	member, err := s.contributors.GetContributorByID(ctx, contributorID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetProjectByID(ctx, member.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, actorID, project, project.AuthorID, authz.OpRead); err != nil {
		return nil, err
	}
	return member, nil
}

// ListContributors returns a page of members for a project the actor can read.
func (s Service) ListContributors(ctx context.Context, actorID, projectID string, limit, offset int) ([]domain.Contributor, int, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, 0, errMissingProjectID
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.check(ctx, actorID, project, project.AuthorID, authz.OpRead); err != nil {
		return nil, 0, err
	}
	return s.contributors.ListContributorsByProject(ctx, projectID, limit, offset)
}

// Membership reports whether the actor may read resources of the project.
func (s Service) Membership(ctx context.Context, actorID string, project *domain.Project) (bool, error) {
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return false, err
	}
	return authz.IsMember(actorID, project.AuthorID, isContributor), nil
}

func (s Service) check(ctx context.Context, actorID string, project *domain.Project, resourceAuthorID string, op authz.Operation) error {
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return err
	}
	return authz.Check(actorID, authz.Resource{
		AuthorID:        resourceAuthorID,
		ProjectAuthorID: project.AuthorID,
	}, isContributor, op)
}
