package domain

import "time"

// Issue tag values.
const (
	IssueTagBug     = "BUG"
	IssueTagFeature = "FEATURE"
	IssueTagTask    = "TASK"
)

// Issue priority values.
const (
	IssuePriorityLow    = "LOW"
	IssuePriorityMedium = "MEDIUM"
	IssuePriorityHigh   = "HIGH"
)

// Issue status values.
const (
	IssueStatusTodo       = "TODO"
	IssueStatusInProgress = "IN_PROGRESS"
	IssueStatusFinished   = "FINISHED"
)

// Accepted enum values per issue field.
var (
	IssueTags       = []string{IssueTagBug, IssueTagFeature, IssueTagTask}
	IssuePriorities = []string{IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh}
	IssueStatuses   = []string{IssueStatusTodo, IssueStatusInProgress, IssueStatusFinished}
)

// Issue is a tracked unit of work inside a project. The assignee must be the
// project author or one of its contributors.
type Issue struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Tag         string
	Priority    string
	Status      string
	AuthorID    string
	AssigneeID  string
	CreatedAt   time.Time
}
