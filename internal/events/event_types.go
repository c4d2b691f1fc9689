package events

import (
	"time"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBugCreated       EventType = "bug_created"
	EventBugAssigned      EventType = "bug_assigned"
	EventBugStatusChanged EventType = "bug_status_changed"
	EventBugCommented     EventType = "bug_commented"
	EventBugDeleted       EventType = "bug_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BugID     string      `json:"bug_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BugCreatedPayload payload.
type BugCreatedPayload struct {
	Title    string             `json:"title"`
	Priority domain.BugPriority `json:"priority"`
	Severity domain.BugSeverity `json:"severity"`
}

// BugAssignedPayload payload.
type BugAssignedPayload struct {
	AssigneeID     string  `json:"assignee_id"`
	PrevAssigneeID *string `json:"prev_assignee_id,omitempty"`
}

// BugStatusChangedPayload payload.
type BugStatusChangedPayload struct {
	OldStatus domain.BugStatus `json:"old_status"`
	NewStatus domain.BugStatus `json:"new_status"`
}

// BugCommentedPayload payload.
type BugCommentedPayload struct {
	CommentID      string `json:"comment_id"`
	ContentPreview string `json:"content_preview"`
}

// BugDeletedPayload payload.
type BugDeletedPayload struct {
	Title string `json:"title"`
}
