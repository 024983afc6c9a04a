package httpx

import (
	"time"

	"github.com/taskforge/api/internal/domain"
)

// Response shapes for API payloads. Credential hashes never leave the server.

type userResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Age             int       `json:"age"`
	CanBeContacted  bool      `json:"can_be_contacted"`
	CanDataBeShared bool      `json:"can_data_be_shared"`
	CreatedAt       time.Time `json:"created_time"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Age:             u.Age,
		CanBeContacted:  u.CanBeContacted,
		CanDataBeShared: u.CanDataBeShared,
		CreatedAt:       u.CreatedAt,
	}
}

func toUserResponses(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type projectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	AuthorID    string    `json:"author"`
	CreatedAt   time.Time `json:"created_time"`
}

func toProjectResponse(p domain.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		AuthorID:    p.AuthorID,
		CreatedAt:   p.CreatedAt,
	}
}

func toProjectResponses(projects []domain.Project) []projectResponse {
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	return out
}

type contributorResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project"`
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"created_time"`
}

func toContributorResponse(c domain.Contributor) contributorResponse {
	return contributorResponse{ID: c.ID, ProjectID: c.ProjectID, UserID: c.UserID, CreatedAt: c.CreatedAt}
}

func toContributorResponses(contributors []domain.Contributor) []contributorResponse {
	out := make([]contributorResponse, 0, len(contributors))
	for _, c := range contributors {
		out = append(out, toContributorResponse(c))
	}
	return out
}

type issueResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tag         string    `json:"tag"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	AuthorID    string    `json:"author"`
	AssigneeID  string    `json:"assignee"`
	CreatedAt   time.Time `json:"created_time"`
}

func toIssueResponse(i domain.Issue) issueResponse {
	return issueResponse{
		ID:          i.ID,
		ProjectID:   i.ProjectID,
		Title:       i.Title,
		Description: i.Description,
		Tag:         i.Tag,
		Priority:    i.Priority,
		Status:      i.Status,
		AuthorID:    i.AuthorID,
		AssigneeID:  i.AssigneeID,
		CreatedAt:   i.CreatedAt,
	}
}

func toIssueResponses(issues []domain.Issue) []issueResponse {
	out := make([]issueResponse, 0, len(issues))
	for _, i := range issues {
		out = append(out, toIssueResponse(i))
	}
	return out
}

type commentResponse struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue"`
	Description string    `json:"description"`
	AuthorID    string    `json:"author"`
	CreatedAt   time.Time `json:"created_time"`
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{ID: c.ID, IssueID: c.IssueID, Description: c.Description, AuthorID: c.AuthorID, CreatedAt: c.CreatedAt}
}

func toCommentResponses(comments []domain.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	return out
}
