package domain

import "time"

// BugStatus enumerates lifecycle states for bugs.
type BugStatus string

const (
	BugStatusOpen       BugStatus = "open"
	BugStatusAssigned   BugStatus = "assigned"
	BugStatusInProgress BugStatus = "in_progress"
	BugStatusResolved   BugStatus = "resolved"
	BugStatusRejected   BugStatus = "rejected"
	BugStatusClosed     BugStatus = "closed"
)

// Valid reports whether the status is a known member of the enum.
func (s BugStatus) Valid() bool {
	switch s {
	case BugStatusOpen, BugStatusAssigned, BugStatusInProgress,
		BugStatusResolved, BugStatusRejected, BugStatusClosed:
		return true
	}
	return false
}

// BugPriority enumerates triage urgency.
type BugPriority string

const (
	BugPriorityLow      BugPriority = "low"
	BugPriorityMedium   BugPriority = "medium"
	BugPriorityHigh     BugPriority = "high"
	BugPriorityCritical BugPriority = "critical"
)

// Valid reports whether the priority is a known member of the enum.
func (p BugPriority) Valid() bool {
	switch p {
	case BugPriorityLow, BugPriorityMedium, BugPriorityHigh, BugPriorityCritical:
		return true
	}
	return false
}

// BugSeverity enumerates defect impact.
type BugSeverity string

const (
	BugSeverityMinor    BugSeverity = "minor"
	BugSeverityMajor    BugSeverity = "major"
	BugSeverityCritical BugSeverity = "critical"
)

// Valid reports whether the severity is a known member of the enum.
func (s BugSeverity) Valid() bool {
	switch s {
	case BugSeverityMinor, BugSeverityMajor, BugSeverityCritical:
		return true
	}
	return false
}

// Bug is the aggregate for defect reports. Creator and assignee are soft
// references: deleting a user nulls them without rewriting history.
//
// Invariants: status "assigned" implies a non-nil assignee; status "open"
// implies a nil assignee.
type Bug struct {
	ID          string
	Title       string
	Description string
	Priority    BugPriority
	Severity    BugSeverity
	Status      BugStatus
	CreatorID   *string
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
