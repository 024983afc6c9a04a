package issue

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

type stubIssueRepository struct {
	issues  map[string]domain.Issue
	filters []repository.IssueFilter
}

func (s *stubIssueRepository) CreateIssue(ctx context.Context, issue *domain.Issue) error {
	if s.issues == nil {
		s.issues = make(map[string]domain.Issue)
	}
	s.issues[issue.ID] = *issue
	return nil
}

func (s *stubIssueRepository) GetIssueByID(ctx context.Context, id string) (*domain.Issue, error) {
	if issue, ok := s.issues[id]; ok {
		return &issue, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubIssueRepository) ListIssues(ctx context.Context, filter repository.IssueFilter, limit, offset int) ([]domain.Issue, int, error) {
	s.filters = append(s.filters, filter)
	return nil, 0, nil
}

func (s *stubIssueRepository) UpdateIssue(ctx context.Context, issue *domain.Issue) error {
	s.issues[issue.ID] = *issue
	return nil
}

func (s *stubIssueRepository) DeleteIssue(ctx context.Context, id string) error {
	if _, ok := s.issues[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.issues, id)
	return nil
}

type stubProjectRepository struct {
	projects map[string]domain.Project
}

func (s *stubProjectRepository) CreateProject(ctx context.Context, project *domain.Project) error {
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
	return nil
}

func (s *stubProjectRepository) DeleteProject(ctx context.Context, id string) error { return nil }

type stubContributorRepository struct {
	membership map[string][]string
}

func (s *stubContributorRepository) AddContributor(ctx context.Context, contributor *domain.Contributor) error {
	return nil
}

func (s *stubContributorRepository) GetContributorByID(ctx context.Context, id string) (*domain.Contributor, error) {
	return nil, repository.ErrNotFound
}

func (s *stubContributorRepository) ListContributorsByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Contributor, int, error) {
	return nil, 0, nil
}

func (s *stubContributorRepository) DeleteContributor(ctx context.Context, id string) error {
	return nil
}

func (s *stubContributorRepository) IsContributor(ctx context.Context, projectID, userID string) (bool, error) {
	for _, member := range s.membership[projectID] {
		if member == userID {
			return true, nil
		}
	}
	return false, nil
}

func testService(issues *stubIssueRepository, projects *stubProjectRepository, contributors *stubContributorRepository) Service {
	if issues == nil {
		issues = &stubIssueRepository{}
	}
	if projects == nil {
		projects = &stubProjectRepository{}
	}
	if contributors == nil {
		contributors = &stubContributorRepository{}
	}
	return Service{
		issues:       issues,
		projects:     projects,
		contributors: contributors,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func trackerFixture() (*stubProjectRepository, *stubContributorRepository) {
	projects := &stubProjectRepository{projects: map[string]domain.Project{
		"proj-1": {ID: "proj-1", Title: "Tracker", Type: domain.ProjectTypeBackend, AuthorID: "owner-1"},
	}}
	contributors := &stubContributorRepository{membership: map[string][]string{
		"proj-1": {"owner-1", "member-2"},
	}}
	return projects, contributors
}

func TestCreateRequiresMembership(t *testing.T) {
	projects, contributors := trackerFixture()
	svc := testService(nil, projects, contributors)

	input := CreateInput{ProjectID: "proj-1", Title: "Crash", Tag: "bug", Priority: "high", AssigneeID: "owner-1"}
	if _, err := svc.Create(context.Background(), "stranger", input); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "member-2", input); err != nil {
		t.Fatalf("contributor create failed: %v", err)
	}
}

func TestCreateDefaultsStatusAndNormalizesEnums(t *testing.T) {
	issues := &stubIssueRepository{}
	projects, contributors := trackerFixture()
	svc := testService(issues, projects, contributors)

	created, err := svc.Create(context.Background(), "owner-1", CreateInput{
		ProjectID:  "proj-1",
		Title:      "Crash on save",
		Tag:        "bug",
		Priority:   "High",
		AssigneeID: "member-2",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Status != domain.IssueStatusTodo {
		t.Fatalf("expected default status TODO, got %q", created.Status)
	}
	if created.Tag != domain.IssueTagBug || created.Priority != domain.IssuePriorityHigh {
		t.Fatalf("expected normalized enums, got tag=%q priority=%q", created.Tag, created.Priority)
	}
	if created.AuthorID != "owner-1" {
		t.Fatalf("expected author owner-1, got %q", created.AuthorID)
	}
}

func TestCreateRejectsOutsideAssignee(t *testing.T) {
	projects, contributors := trackerFixture()
	svc := testService(nil, projects, contributors)

	input := CreateInput{ProjectID: "proj-1", Title: "Crash", Tag: "bug", Priority: "low", AssigneeID: "stranger"}
	if _, err := svc.Create(context.Background(), "owner-1", input); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for outside assignee, got %v", err)
	}
	input.AssigneeID = ""
	if _, err := svc.Create(context.Background(), "owner-1", input); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty assignee, got %v", err)
	}
}

func TestCreateRejectsBadEnums(t *testing.T) {
	projects, contributors := trackerFixture()
	svc := testService(nil, projects, contributors)

	base := CreateInput{ProjectID: "proj-1", Title: "Crash", Tag: "bug", Priority: "low", AssigneeID: "owner-1"}

	bad := base
	bad.Tag = "DEFECT"
	if _, err := svc.Create(context.Background(), "owner-1", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for tag, got %v", err)
	}
	bad = base
	bad.Priority = "URGENT"
	if _, err := svc.Create(context.Background(), "owner-1", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for priority, got %v", err)
	}
	bad = base
	bad.Status = "DONE"
	if _, err := svc.Create(context.Background(), "owner-1", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for status, got %v", err)
	}
}

func TestUpdateAuthorOnly(t *testing.T) {
	issues := &stubIssueRepository{issues: map[string]domain.Issue{
		"issue-1": {
			ID: "issue-1", ProjectID: "proj-1", Title: "Crash",
			Tag: domain.IssueTagBug, Priority: domain.IssuePriorityLow,
			Status: domain.IssueStatusTodo, AuthorID: "owner-1", AssigneeID: "owner-1",
		},
	}}
	projects, contributors := trackerFixture()
	svc := testService(issues, projects, contributors)

	status := "in_progress"
	if _, err := svc.Update(context.Background(), "member-2", "issue-1", UpdateInput{Status: &status}); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author update, got %v", err)
	}
	updated, err := svc.Update(context.Background(), "owner-1", "issue-1", UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("author update failed: %v", err)
	}
	if updated.Status != domain.IssueStatusInProgress {
		t.Fatalf("expected status IN_PROGRESS, got %q", updated.Status)
	}
}

func TestGetVisibleToContributors(t *testing.T) {
	issues := &stubIssueRepository{issues: map[string]domain.Issue{
		"issue-1": {ID: "issue-1", ProjectID: "proj-1", Title: "Crash", AuthorID: "owner-1"},
	}}
	projects, contributors := trackerFixture()
	svc := testService(issues, projects, contributors)

	if _, err := svc.Get(context.Background(), "member-2", "issue-1"); err != nil {
		t.Fatalf("contributor read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), "stranger", "issue-1"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider read, got %v", err)
	}
}

func TestListNormalizesFilter(t *testing.T) {
	issues := &stubIssueRepository{}
	projects, contributors := trackerFixture()
	svc := testService(issues, projects, contributors)

	if _, _, err := svc.List(context.Background(), "owner-1", ListFilter{ProjectID: "proj-1", Tag: "feature", Status: "todo"}, 10, 0); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(issues.filters) != 1 {
		t.Fatalf("expected one repository call, got %d", len(issues.filters))
	}
	filter := issues.filters[0]
	if filter.Tag != domain.IssueTagFeature || filter.Status != domain.IssueStatusTodo {
		t.Fatalf("expected normalized filter, got %+v", filter)
	}
	if _, _, err := svc.List(context.Background(), "owner-1", ListFilter{ProjectID: "proj-1", Tag: "nope"}, 10, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad tag filter, got %v", err)
	}
	if _, _, err := svc.List(context.Background(), "owner-1", ListFilter{}, 10, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing project, got %v", err)
	}
}

func TestDeleteAuthorOnly(t *testing.T) {
	issues := &stubIssueRepository{issues: map[string]domain.Issue{
		"issue-1": {ID: "issue-1", ProjectID: "proj-1", Title: "Crash", AuthorID: "owner-1"},
	}}
	projects, contributors := trackerFixture()
	svc := testService(issues, projects, contributors)

	if err := svc.Delete(context.Background(), "member-2", "issue-1"); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), "owner-1", "issue-1"); err != nil {
		t.Fatalf("author delete failed: %v", err)
	}
	if len(issues.issues) != 0 {
		t.Fatalf("expected issue removed, got %d left", len(issues.issues))
	}
}
