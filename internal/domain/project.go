package domain

import "time"

// Project type values.
const (
	ProjectTypeBackend  = "BACKEND"
	ProjectTypeFrontend = "FRONTEND"
	ProjectTypeIOS      = "IOS"
	ProjectTypeAndroid  = "ANDROID"
)

// ProjectTypes lists the accepted project types.
var ProjectTypes = []string{ProjectTypeBackend, ProjectTypeFrontend, ProjectTypeIOS, ProjectTypeAndroid}

// Project groups issues under a single author-owned workspace.
type Project struct {
	ID          string
	Title       string
	Description string
	Type        string
	AuthorID    string
	CreatedAt   time.Time
}

// Contributor links a user to a project. Membership is unique per
// (project, user) pair.
type Contributor struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedAt time.Time
}
