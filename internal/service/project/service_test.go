package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/taskforge/api/internal/authz"
	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
)

type stubProjectRepository struct {
	projects map[string]domain.Project
}

func (s *stubProjectRepository) CreateProject(ctx context.Context, project *domain.Project) error {
	if s.projects == nil {
		s.projects = make(map[string]domain.Project)
	}
	s.projects[project.ID] = *project
	return nil
}

func (s *stubProjectRepository) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	if project, ok := s.projects[id]; ok {
		return &project, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubProjectRepository) ListProjectsByUser(ctx context.Context, userID, projectType string, limit, offset int) ([]domain.Project, int, error) {
	return nil, 0, nil
}

func (s *stubProjectRepository) UpdateProject(ctx context.Context, project *domain.Project) error {
	s.projects[project.ID] = *project
	return nil
}

func (s *stubProjectRepository) DeleteProject(ctx context.Context, id string) error {
	if _, ok := s.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

type stubContributorRepository struct {
	members map[string]domain.Contributor
	deleted []string
}

func (s *stubContributorRepository) AddContributor(ctx context.Context, contributor *domain.Contributor) error {
	if s.members == nil {
		s.members = make(map[string]domain.Contributor)
	}
	s.members[contributor.ID] = *contributor
	return nil
}

func (s *stubContributorRepository) GetContributorByID(ctx context.Context, id string) (*domain.Contributor, error) {
	if member, ok := s.members[id]; ok {
		return &member, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubContributorRepository) ListContributorsByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Contributor, int, error) {
	out := make([]domain.Contributor, 0, len(s.members))
	for _, member := range s.members {
		if member.ProjectID == projectID {
			out = append(out, member)
		}
	}
	return out, len(out), nil
}

func (s *stubContributorRepository) DeleteContributor(ctx context.Context, id string) error {
	if _, ok := s.members[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.members, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubContributorRepository) IsContributor(ctx context.Context, projectID, userID string) (bool, error) {
	for _, member := range s.members {
		if member.ProjectID == projectID && member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

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
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) ListUsers(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepository) UpdateUser(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserRepository) DeleteUser(ctx context.Context, id string) error         { return nil }

func testService(projects *stubProjectRepository, contributors *stubContributorRepository, users *stubUserRepository) Service {
	if projects == nil {
		projects = &stubProjectRepository{}
	}
	if contributors == nil {
		contributors = &stubContributorRepository{}
	}
	if users == nil {
		users = &stubUserRepository{}
	}
	return Service{
		projects:     projects,
		contributors: contributors,
		users:        users,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestCreateEnrollsAuthorAsContributor(t *testing.T) {
	contributors := &stubContributorRepository{}
	svc := testService(nil, contributors, nil)

	created, err := svc.Create(context.Background(), "owner-1", CreateInput{Title: "Tracker", Type: "backend"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Type != domain.ProjectTypeBackend {
		t.Fatalf("expected normalized type BACKEND, got %q", created.Type)
	}
	if created.AuthorID != "owner-1" {
		t.Fatalf("expected author owner-1, got %q", created.AuthorID)
	}
	isMember, err := contributors.IsContributor(context.Background(), created.ID, "owner-1")
	if err != nil || !isMember {
		t.Fatalf("author must be enrolled as contributor, got member=%v err=%v", isMember, err)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := testService(nil, nil, nil)
	if _, err := svc.Create(context.Background(), "owner-1", CreateInput{Title: "Tracker", Type: "desktop"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestGetDeniedForOutsider(t *testing.T) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	svc := testService(projects, &stubContributorRepository{}, nil)

	if _, err := svc.Get(context.Background(), "stranger", "proj-1"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "owner-1", "proj-1"); err != nil {
		t.Fatalf("author read failed: %v", err)
	}
}

func TestUpdateAuthorOnly(t *testing.T) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	contributors := &stubContributorRepository{members: map[string]domain.Contributor{
		"m-1": {ID: "m-1", ProjectID: "proj-1", UserID: "member-2"},
	}}
	svc := testService(projects, contributors, nil)

	title := "Renamed"
	if _, err := svc.Update(context.Background(), "member-2", "proj-1", UpdateInput{Title: &title}); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for contributor update, got %v", err)
	}
	updated, err := svc.Update(context.Background(), "owner-1", "proj-1", UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("author update failed: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected title %q, got %q", title, updated.Title)
	}
}

func TestAddContributorAuthorOnlyAndUnique(t *testing.T) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	contributors := &stubContributorRepository{}
	users := &stubUserRepository{users: map[string]domain.User{
		"user-2": {ID: "user-2", Username: "bob"},
	}}
	svc := testService(projects, contributors, users)

	if _, err := svc.AddContributor(context.Background(), "user-2", "proj-1", "user-2"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author, got %v", err)
	}
	if _, err := svc.AddContributor(context.Background(), "owner-1", "proj-1", "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	member, err := svc.AddContributor(context.Background(), "owner-1", "proj-1", "user-2")
	if err != nil {
		t.Fatalf("AddContributor failed: %v", err)
	}
	if member.ProjectID != "proj-1" || member.UserID != "user-2" {
		t.Fatalf("unexpected membership: %+v", member)
	}
	if _, err := svc.AddContributor(context.Background(), "owner-1", "proj-1", "user-2"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for duplicate membership, got %v", err)
	}
}

func TestRemoveContributorProtectsAuthorMembership(t *testing.T) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	contributors := &stubContributorRepository{members: map[string]domain.Contributor{
		"m-owner":  {ID: "m-owner", ProjectID: "proj-1", UserID: "owner-1"},
		"m-member": {ID: "m-member", ProjectID: "proj-1", UserID: "user-2"},
	}}
	svc := testService(projects, contributors, nil)

	if err := svc.RemoveContributor(context.Background(), "owner-1", "m-owner"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden removing author membership, got %v", err)
	}
	if err := svc.RemoveContributor(context.Background(), "user-2", "m-member"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author removal, got %v", err)
	}
	if err := svc.RemoveContributor(context.Background(), "owner-1", "m-member"); err != nil {
		t.Fatalf("author removal failed: %v", err)
	}
	if len(contributors.deleted) != 1 || contributors.deleted[0] != "m-member" {
		t.Fatalf("expected m-member removed, got %v", contributors.deleted)
	}
}

func TestListContributorsRequiresVisibility(t *testing.T) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	contributors := &stubContributorRepository{members: map[string]domain.Contributor{
		"m-owner": {ID: "m-owner", ProjectID: "proj-1", UserID: "owner-1"},
	}}
	svc := testService(projects, contributors, nil)

	if _, _, err := svc.ListContributors(context.Background(), "stranger", "proj-1", 10, 0); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	members, count, err := svc.ListContributors(context.Background(), "owner-1", "proj-1", 10, 0)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	if count != 1 || len(members) != 1 {
		t.Fatalf("expected one member, got count=%d len=%d", count, len(members))
	}
}

func TestNormalizeType(t *testing.T) {
	for raw, want := range map[string]string{
		"backend":   domain.ProjectTypeBackend,
		" Frontend": domain.ProjectTypeFrontend,
		"IOS":       domain.ProjectTypeIOS,
		"android ":  domain.ProjectTypeAndroid,
	} {
		got, err := NormalizeType(raw)
		if err != nil {
			t.Fatalf("NormalizeType(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("NormalizeType(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := NormalizeType("web"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}
