package issue

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
	"github.com/taskforge/api/internal/service/events"
)

// CreateInput encapsulates issue creation attributes.
type CreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Tag         string
	Priority    string
	Status      string
	AssigneeID  string
}

// UpdateInput carries mutable issue attributes. Nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Tag         *string
	Priority    *string
	Status      *string
	AssigneeID  *string
}

// ListFilter narrows issue listings. ProjectID is mandatory.
type ListFilter struct {
	ProjectID  string
	Tag        string
	Status     string
	Priority   string
	AssigneeID string
}

// Service orchestrates issue management inside projects.
type Service struct {
	issues       repository.IssueRepository
	projects     repository.ProjectRepository
	contributors repository.ContributorRepository
	events       *events.Service
	logger       *slog.Logger
}

// New returns an issue service.
func New(issues repository.IssueRepository, projects repository.ProjectRepository, contributors repository.ContributorRepository, eventsSvc *events.Service, logger *slog.Logger) Service {
	return Service{issues: issues, projects: projects, contributors: contributors, events: eventsSvc, logger: logger}
}

var (
	errInvalidTitle     = fmt.Errorf("%w: issue title is required", domain.ErrValidation)
	errInvalidTag       = fmt.Errorf("%w: tag must be one of BUG, FEATURE, TASK", domain.ErrValidation)
	errInvalidPriority  = fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH", domain.ErrValidation)
	errInvalidStatus    = fmt.Errorf("%w: status must be one of TODO, IN_PROGRESS, FINISHED", domain.ErrValidation)
	errMissingProjectID = fmt.Errorf("%w: project id required", domain.ErrValidation)
	errInvalidAssignee  = fmt.Errorf("%w: assignee must be the project author or a contributor", domain.ErrValidation)
)

func normalizeEnum(raw string, accepted []string, invalid error) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if !slices.Contains(accepted, normalized) {
		return "", invalid
	}
	return normalized, nil
}

// Create registers an issue on a project the actor contributes to.
func (s Service) Create(ctx context.Context, actorID string, input CreateInput) (*domain.Issue, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, errMissingProjectID
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errInvalidTitle
	}
	tag, err := normalizeEnum(input.Tag, domain.IssueTags, errInvalidTag)
	if err != nil {
		return nil, err
	}
	priority, err := normalizeEnum(input.Priority, domain.IssuePriorities, errInvalidPriority)
	if err != nil {
		return nil, err
	}
	status := domain.IssueStatusTodo
	if strings.TrimSpace(input.Status) != "" {
		status, err = normalizeEnum(input.Status, domain.IssueStatuses, errInvalidStatus)
		if err != nil {
			return nil, err
		}
	}
	project, err := s.projects.GetProjectByID(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, project); err != nil {
		return nil, err
	}
	if err := s.validateAssignee(ctx, project, input.AssigneeID); err != nil {
		return nil, err
	}
	issue := &domain.Issue{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Tag:         tag,
		Priority:    priority,
		Status:      status,
		AuthorID:    actorID,
		AssigneeID:  input.AssigneeID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.issues.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}
	s.logger.Info("issue created", "issue_id", issue.ID, "project_id", project.ID)
	s.events.Publish(events.TypeIssueCreated, project.ID, issue.ID, actorID)
	return issue, nil
}

// Get returns an issue visible to the actor.
func (s Service) Get(ctx context.Context, actorID, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetIssueByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actorID, issue, authz.OpRead); err != nil {
		return nil, err
	}
	return issue, nil
}

// List returns a page of issues for a project the actor contributes to.
func (s Service) List(ctx context.Context, actorID string, filter ListFilter, limit, offset int) ([]domain.Issue, int, error) {
	if strings.TrimSpace(filter.ProjectID) == "" {
		return nil, 0, errMissingProjectID
	}
	project, err := s.projects.GetProjectByID(ctx, filter.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.requireMember(ctx, actorID, project); err != nil {
		return nil, 0, err
	}
	repoFilter := repository.IssueFilter{ProjectID: project.ID, AssigneeID: filter.AssigneeID}
	if filter.Tag != "" {
		if repoFilter.Tag, err = normalizeEnum(filter.Tag, domain.IssueTags, errInvalidTag); err != nil {
			return nil, 0, err
		}
	}
	if filter.Status != "" {
		if repoFilter.Status, err = normalizeEnum(filter.Status, domain.IssueStatuses, errInvalidStatus); err != nil {
			return nil, 0, err
		}
	}
	if filter.Priority != "" {
		if repoFilter.Priority, err = normalizeEnum(filter.Priority, domain.IssuePriorities, errInvalidPriority); err != nil {
			return nil, 0, err
		}
	}
	return s.issues.ListIssues(ctx, repoFilter, limit, offset)
}

// Update mutates an issue. Only the issue author may update it, and the
// assignee rule is re-checked.
func (s Service) Update(ctx context.Context, actorID, id string, input UpdateInput) (*domain.Issue, error) {
	issue, err := s.issues.GetIssueByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.authorize(ctx, actorID, issue, authz.OpUpdate)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, errInvalidTitle
		}
		issue.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		issue.Description = *input.Description
	}
	if input.Tag != nil {
		if issue.Tag, err = normalizeEnum(*input.Tag, domain.IssueTags, errInvalidTag); err != nil {
			return nil, err
		}
	}
	if input.Priority != nil {
		if issue.Priority, err = normalizeEnum(*input.Priority, domain.IssuePriorities, errInvalidPriority); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if issue.Status, err = normalizeEnum(*input.Status, domain.IssueStatuses, errInvalidStatus); err != nil {
			return nil, err
		}
	}
	if input.AssigneeID != nil {
		issue.AssigneeID = *input.AssigneeID
	}
	if err := s.validateAssignee(ctx, project, issue.AssigneeID); err != nil {
		return nil, err
	}
	if err := s.issues.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}
	s.logger.Info("issue updated", "issue_id", issue.ID)
	s.events.Publish(events.TypeIssueUpdated, issue.ProjectID, issue.ID, actorID)
	return issue, nil
}

// Delete removes an issue and, by cascade, its comments. Author only.
func (s Service) Delete(ctx context.Context, actorID, id string) error {
	issue, err := s.issues.GetIssueByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, actorID, issue, authz.OpDelete); err != nil {
		return err
	}
	if err := s.issues.DeleteIssue(ctx, id); err != nil {
		return err
	}
	s.logger.Info("issue deleted", "issue_id", id)
	s.events.Publish(events.TypeIssueDeleted, issue.ProjectID, id, actorID)
	return nil
}

func (s Service) authorize(ctx context.Context, actorID string, issue *domain.Issue, op authz.Operation) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actorID, authz.Resource{
		AuthorID:        issue.AuthorID,
		ProjectAuthorID: project.AuthorID,
	}, isContributor, op); err != nil {
		return nil, err
	}
	return project, nil
}

func (s Service) requireMember(ctx context.Context, actorID string, project *domain.Project) error {
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return err
	}
	if !authz.IsMember(actorID, project.AuthorID, isContributor) {
		return authz.ErrForbidden
	}
	return nil
}

func (s Service) validateAssignee(ctx context.Context, project *domain.Project, assigneeID string) error {
	if strings.TrimSpace(assigneeID) == "" {
		return errInvalidAssignee
	}
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, assigneeID)
	if err != nil {
		return err
	}
	if !authz.IsMember(assigneeID, project.AuthorID, isContributor) {
		return errInvalidAssignee
	}
	return nil
}
