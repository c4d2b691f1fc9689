package dto

import (
	"time"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// CreateBugRequest payload.
type CreateBugRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    domain.BugPriority `json:"priority"`
	Severity    domain.BugSeverity `json:"severity"`
}

// AssignBugRequest payload.
type AssignBugRequest struct {
	DeveloperID string `json:"developer_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.BugStatus `json:"status"`
}

// UserRefResponse is the display projection of a user embedded in responses.
type UserRefResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// BugSummary response.
type BugSummary struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Status    domain.BugStatus   `json:"status"`
	Priority  domain.BugPriority `json:"priority"`
	Severity  domain.BugSeverity `json:"severity"`
	Creator   *UserRefResponse   `json:"creator"`
	Assignee  *UserRefResponse   `json:"assignee"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// BugDetailResponse provides full bug info.
type BugDetailResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      domain.BugStatus   `json:"status"`
	Priority    domain.BugPriority `json:"priority"`
	Severity    domain.BugSeverity `json:"severity"`
	Creator     *UserRefResponse   `json:"creator"`
	Assignee    *UserRefResponse   `json:"assignee"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// BugPageResponse is a paginated bug listing.
type BugPageResponse struct {
	Items    []BugSummary `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// CommentRequest payload for add and edit.
type CommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID        string           `json:"id"`
	BugID     string           `json:"bug_id"`
	Author    *UserRefResponse `json:"author"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// HistoryResponse represents an audit entry.
type HistoryResponse struct {
	ID        string               `json:"id"`
	Action    domain.HistoryAction `json:"action"`
	Actor     *UserRefResponse     `json:"actor"`
	OldValue  *string              `json:"old_value"`
	NewValue  *string              `json:"new_value"`
	CreatedAt time.Time            `json:"created_at"`
}
