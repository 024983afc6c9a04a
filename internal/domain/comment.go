package domain

import "time"

// Comment is a note attached to an issue. IDs are server-generated UUIDs.
type Comment struct {
	ID          string
	IssueID     string
	Description string
	AuthorID    string
	CreatedAt   time.Time
}
