package repository

import (
	"context"

	"github.com/taskforge/api/internal/domain"
)

// UserFilter narrows user listings. Nil pointers mean "no constraint".
type UserFilter struct {
	Age             *int
	AgeGT           *int
	AgeGTE          *int
	AgeLT           *int
	AgeLTE          *int
	CanBeContacted  *bool
	CanDataBeShared *bool
}

// IssueFilter narrows issue listings within a project.
type IssueFilter struct {
	ProjectID  string
	Tag        string
	Status     string
	Priority   string
	AssigneeID string
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, filter UserFilter, limit, offset int) ([]domain.User, int, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsByUser(ctx context.Context, userID, projectType string, limit, offset int) ([]domain.Project, int, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// ContributorRepository manages project memberships.
type ContributorRepository interface {
	AddContributor(ctx context.Context, contributor *domain.Contributor) error
	GetContributorByID(ctx context.Context, id string) (*domain.Contributor, error)
	ListContributorsByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Contributor, int, error)
	DeleteContributor(ctx context.Context, id string) error
	IsContributor(ctx context.Context, projectID, userID string) (bool, error)
}

// IssueRepository persists issues.
type IssueRepository interface {
	CreateIssue(ctx context.Context, issue *domain.Issue) error
	GetIssueByID(ctx context.Context, id string) (*domain.Issue, error)
	ListIssues(ctx context.Context, filter IssueFilter, limit, offset int) ([]domain.Issue, int, error)
	UpdateIssue(ctx context.Context, issue *domain.Issue) error
	DeleteIssue(ctx context.Context, id string) error
}

// CommentRepository persists issue comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	ListCommentsByIssue(ctx context.Context, issueID string, limit, offset int) ([]domain.Comment, int, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
}
