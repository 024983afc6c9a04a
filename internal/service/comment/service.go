package comment

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
	"github.com/taskforge/api/internal/service/events"
)

// CreateInput encapsulates comment creation attributes.
type CreateInput struct {
	IssueID     string
	Description string
}

// Service orchestrates comments on issues.
type Service struct {
	comments     repository.CommentRepository
	issues       repository.IssueRepository
	projects     repository.ProjectRepository
	contributors repository.ContributorRepository
	events       *events.Service
	logger       *slog.Logger
}

// New returns a comment service.
func New(comments repository.CommentRepository, issues repository.IssueRepository, projects repository.ProjectRepository, contributors repository.ContributorRepository, eventsSvc *events.Service, logger *slog.Logger) Service {
	return Service{comments: comments, issues: issues, projects: projects, contributors: contributors, events: eventsSvc, logger: logger}
}

var (
	errMissingIssueID     = fmt.Errorf("%w: issue id required", domain.ErrValidation)
	errMissingDescription = fmt.Errorf("%w: description is required", domain.ErrValidation)
)

// Create attaches a comment to an issue on a project the actor contributes
// to. The identifier is a freshly generated UUID.
func (s Service) Create(ctx context.Context, actorID string, input CreateInput) (*domain.Comment, error) {
	if strings.TrimSpace(input.IssueID) == "" {
		return nil, errMissingIssueID
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, errMissingDescription
	}
	issue, err := s.issues.GetIssueByID(ctx, input.IssueID)
	if err != nil {
		return nil, err
	}
	project, err := s.member(ctx, actorID, issue)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		ID:          uuid.NewString(),
		IssueID:     issue.ID,
		Description: input.Description,
		AuthorID:    actorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	s.logger.Info("comment created", "comment_id", comment.ID, "issue_id", issue.ID)
	s.events.Publish(events.TypeCommentCreated, project.ID, comment.ID, actorID)
	return comment, nil
}

// Get returns a comment visible to the actor.
func (s Service) Get(ctx context.Context, actorID, id string) (*domain.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actorID, comment, authz.OpRead); err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns a page of comments for an issue the actor can read, ordered
// by creation time.
func (s Service) List(ctx context.Context, actorID, issueID string, limit, offset int) ([]domain.Comment, int, error) {
	if strings.TrimSpace(issueID) == "" {
		return nil, 0, errMissingIssueID
	}
	issue, err := s.issues.GetIssueByID(ctx, issueID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.member(ctx, actorID, issue); err != nil {
		return nil, 0, err
	}
	return s.comments.ListCommentsByIssue(ctx, issueID, limit, offset)
}

// Update mutates a comment's description. Only the comment author may do so.
func (s Service) Update(ctx context.Context, actorID, id, description string) (*domain.Comment, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errMissingDescription
	}
	comment, err := s.comments.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.authorize(ctx, actorID, comment, authz.OpUpdate)
	if err != nil {
		return nil, err
	}
	comment.Description = description
	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	s.logger.Info("comment updated", "comment_id", comment.ID)
	s.events.Publish(events.TypeCommentUpdated, project.ID, comment.ID, actorID)
	return comment, nil
}

// Delete removes a comment. Only the comment author may do so.
func (s Service) Delete(ctx context.Context, actorID, id string) error {
	comment, err := s.comments.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	project, err := s.authorize(ctx, actorID, comment, authz.OpDelete)
	if err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.logger.Info("comment deleted", "comment_id", id)
	s.events.Publish(events.TypeCommentDeleted, project.ID, id, actorID)
	return nil
}

func (s Service) authorize(ctx context.Context, actorID string, comment *domain.Comment, op authz.Operation) (*domain.Project, error) {
	issue, err := s.issues.GetIssueByID(ctx, comment.IssueID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetProjectByID(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actorID, authz.Resource{
		AuthorID:        comment.AuthorID,
		ProjectAuthorID: project.AuthorID,
	}, isContributor, op); err != nil {
		return nil, err
	}
	return project, nil
}

func (s Service) member(ctx context.Context, actorID string, issue *domain.Issue) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	isContributor, err := s.contributors.IsContributor(ctx, project.ID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.IsMember(actorID, project.AuthorID, isContributor) {
		return nil, authz.ErrForbidden
	}
	return project, nil
}
