package domain

import "time"

// HistoryAction captures what kind of mutation an audit entry records.
type HistoryAction string

const (
	ActionCreated        HistoryAction = "created"
	ActionAssigned       HistoryAction = "assigned"
	ActionStatusChanged  HistoryAction = "status_changed"
	ActionCommented      HistoryAction = "commented"
	ActionCommentUpdated HistoryAction = "comment_updated"
	ActionCommentDeleted HistoryAction = "comment_deleted"
)

// HistorySnapshotLimit bounds the length of comment content captured in
// audit snapshots.
const HistorySnapshotLimit = 200

// BugHistory is an immutable audit trail entry. Rows are only ever removed
// when the parent bug is deleted. Old and new values are point-in-time string
// snapshots, never live references.
type BugHistory struct {
	ID        string
	BugID     string
	UserID    *string
	Action    HistoryAction
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
