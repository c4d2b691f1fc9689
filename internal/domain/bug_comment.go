package domain

import "time"

// Comment content bounds, counted in runes after trimming.
const (
	CommentMinLength = 1
	CommentMaxLength = 2000
)

// BugComment is one entry in a bug's discussion thread.
type BugComment struct {
	ID        string
	BugID     string
	UserID    *string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
