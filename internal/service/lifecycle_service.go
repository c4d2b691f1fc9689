package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/events"
	"github.com/spec-kit/bug-tracker/internal/policy"
	"github.com/spec-kit/bug-tracker/internal/repository"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// LifecycleService is the engine behind every bug mutation: it validates the
// access policy, applies the change, and appends the audit entry inside one
// transaction. No mutation commits without its history row.
type LifecycleService struct {
	store      repository.Store
	dispatcher events.Dispatcher
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{store: deps.Store, dispatcher: deps.Dispatcher}
}

// BugCreateInput describes the file-bug payload.
type BugCreateInput struct {
	Title       string
	Description string
	Priority    domain.BugPriority
	Severity    domain.BugSeverity
}

// BugListFilter describes listing parameters before the caller's visibility
// scope is applied.
type BugListFilter struct {
	Statuses   []domain.BugStatus
	Priorities []domain.BugPriority
	Severities []domain.BugSeverity
	Page       int
	PageSize   int
}

// BugWithRefs is a bug with its creator and assignee display info resolved.
type BugWithRefs struct {
	domain.Bug
	Creator  *domain.UserRef
	Assignee *domain.UserRef
}

// BugPage is one page of visible bugs; Total counts visible rows only.
type BugPage struct {
	Items    []BugWithRefs
	Total    int
	Page     int
	PageSize int
}

// HistoryEntry is an audit row with its actor display info resolved.
type HistoryEntry struct {
	domain.BugHistory
	Actor *domain.UserRef
}

// CreateBug files a new bug for the acting tester or admin. The bug always
// starts open and unassigned.
func (s *LifecycleService) CreateBug(ctx context.Context, actor *domain.User, input BugCreateInput) (*domain.Bug, error) {
	if !policy.CanPerform(actor.Role, actor.ID, policy.ActionCreate, nil) {
		return nil, apperrors.NewForbidden("role cannot file bugs")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.BugPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	severity := input.Severity
	if severity == "" {
		severity = domain.BugSeverityMinor
	}
	if !severity.Valid() {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": input.Severity})
	}

	creatorID := actor.ID
	bug := &domain.Bug{
		ID:          domain.NewID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Severity:    severity,
		Status:      domain.BugStatusOpen,
		CreatorID:   &creatorID,
	}

	snapshot, err := json.Marshal(map[string]any{
		"title":       bug.Title,
		"description": bug.Description,
		"priority":    bug.Priority,
		"severity":    bug.Severity,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Bugs().Create(ctx, bug); err != nil {
			return apperrors.MapError(err)
		}
		return appendHistory(ctx, tx, bug.ID, actor.ID, domain.ActionCreated, nil, strPtr(string(snapshot)))
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventBugCreated,
		BugID:   bug.ID,
		ActorID: actor.ID,
		Payload: events.BugCreatedPayload{
			Title:    bug.Title,
			Priority: bug.Priority,
			Severity: bug.Severity,
		},
	})
	return bug, nil
}

// ListBugs returns the page of bugs visible to the caller. The visibility
// scope narrows the query before pagination, so Total reflects only rows the
// caller may see.
func (s *LifecycleService) ListBugs(ctx context.Context, actor *domain.User, filter BugListFilter) (*BugPage, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
	}
	for _, severity := range filter.Severities {
		if !severity.Valid() {
			return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": severity})
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	visibility := policy.VisibilityFor(actor.Role, actor.ID)
	repoFilter := repository.BugFilter{
		CreatorID:  visibility.CreatorID,
		AssigneeID: visibility.AssigneeID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Severities: filter.Severities,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	bugs, err := s.store.Bugs().List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.store.Bugs().Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	items, err := s.attachUserRefs(ctx, bugs)
	if err != nil {
		return nil, err
	}
	return &BugPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetBug fetches a single bug the caller is allowed to view.
func (s *LifecycleService) GetBug(ctx context.Context, actor *domain.User, bugID string) (*BugWithRefs, error) {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor.Role, actor.ID, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}
	items, err := s.attachUserRefs(ctx, []domain.Bug{*bug})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// AssignBug binds a bug to a developer and resets its status to assigned,
// regardless of any in-flight progress. The audit entry snapshots the old and
// new assignee display names.
func (s *LifecycleService) AssignBug(ctx context.Context, actor *domain.User, bugID, developerID string) (*domain.Bug, error) {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor.Role, actor.ID, policy.ActionAssign, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}

	assignee, err := s.store.Users().GetByID(ctx, developerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("developer not found", map[string]any{"developer_id": developerID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleDeveloper {
		return nil, apperrors.NewValidationError("assignee must have developer role", map[string]any{"developer_id": developerID})
	}

	var oldDisplayName *string
	if bug.AssigneeID != nil {
		if prev, err := s.store.Users().GetByID(ctx, *bug.AssigneeID); err == nil {
			name := prev.DisplayName
			oldDisplayName = &name
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	prevAssigneeID := bug.AssigneeID
	bug.AssigneeID = &assignee.ID
	bug.Status = domain.BugStatusAssigned

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Bugs().Update(ctx, bug); err != nil {
			return apperrors.MapError(err)
		}
		return appendHistory(ctx, tx, bug.ID, actor.ID, domain.ActionAssigned, oldDisplayName, strPtr(assignee.DisplayName))
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventBugAssigned,
		BugID:   bug.ID,
		ActorID: actor.ID,
		Payload: events.BugAssignedPayload{
			AssigneeID:     assignee.ID,
			PrevAssigneeID: prevAssigneeID,
		},
	})
	return bug, nil
}

// ChangeStatus moves a bug through the lifecycle state machine. No-op
// transitions are accepted and still audited. Setting "open" clears the
// assignee; setting "assigned" requires one on record.
func (s *LifecycleService) ChangeStatus(ctx context.Context, actor *domain.User, bugID string, newStatus domain.BugStatus) (*domain.Bug, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor.Role, actor.ID, policy.ActionChangeStatus, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !policy.CanTransition(actor.Role, bug.Status, newStatus) {
		return nil, apperrors.NewForbidden("status transition not allowed")
	}
	if newStatus == domain.BugStatusAssigned && bug.AssigneeID == nil {
		return nil, apperrors.NewValidationError("cannot mark assigned without an assignee", nil)
	}

	oldStatus := bug.Status
	bug.Status = newStatus
	if newStatus == domain.BugStatusOpen {
		bug.AssigneeID = nil
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Bugs().Update(ctx, bug); err != nil {
			return apperrors.MapError(err)
		}
		return appendHistory(ctx, tx, bug.ID, actor.ID, domain.ActionStatusChanged,
			strPtr(string(oldStatus)), strPtr(string(newStatus)))
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventBugStatusChanged,
		BugID:   bug.ID,
		ActorID: actor.ID,
		Payload: events.BugStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return bug, nil
}

// DeleteBug removes a bug together with its comments and history. Deletion
// is destructive: the audit trail of the bug goes with it.
func (s *LifecycleService) DeleteBug(ctx context.Context, actor *domain.User, bugID string) error {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor.Role, actor.ID, policy.ActionDelete, bug) {
		return apperrors.NewForbidden("only admins may delete bugs")
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Bugs().Delete(ctx, bugID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventBugDeleted,
		BugID:   bugID,
		ActorID: actor.ID,
		Payload: events.BugDeletedPayload{Title: bug.Title},
	})
	return nil
}

// ListHistory returns the audit trail newest-first, with actor display info
// resolved in one batched lookup.
func (s *LifecycleService) ListHistory(ctx context.Context, actor *domain.User, bugID string) ([]HistoryEntry, error) {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor.Role, actor.ID, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}

	entries, err := s.store.History().ListByBug(ctx, bugID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ids := make([]string, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		if entry.UserID == nil {
			continue
		}
		if _, ok := seen[*entry.UserID]; ok {
			continue
		}
		seen[*entry.UserID] = struct{}{}
		ids = append(ids, *entry.UserID)
	}
	refs, err := s.store.Users().RefsByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		item := HistoryEntry{BugHistory: entry}
		if entry.UserID != nil {
			if ref, ok := refs[*entry.UserID]; ok {
				item.Actor = &ref
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func fetchBug(ctx context.Context, store repository.Store, bugID string) (*domain.Bug, error) {
	bug, err := store.Bugs().GetByID(ctx, bugID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("bug", map[string]any{"bug_id": bugID})
		}
		return nil, apperrors.MapError(err)
	}
	return bug, nil
}

func (s *LifecycleService) attachUserRefs(ctx context.Context, bugs []domain.Bug) ([]BugWithRefs, error) {
	ids := make([]string, 0, len(bugs)*2)
	seen := map[string]struct{}{}
	collect := func(id *string) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for i := range bugs {
		collect(bugs[i].CreatorID)
		collect(bugs[i].AssigneeID)
	}

	refs, err := s.store.Users().RefsByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]BugWithRefs, 0, len(bugs))
	for i := range bugs {
		item := BugWithRefs{Bug: bugs[i]}
		if bugs[i].CreatorID != nil {
			if ref, ok := refs[*bugs[i].CreatorID]; ok {
				item.Creator = &ref
			}
		}
		if bugs[i].AssigneeID != nil {
			if ref, ok := refs[*bugs[i].AssigneeID]; ok {
				item.Assignee = &ref
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func appendHistory(ctx context.Context, tx repository.Store, bugID, actorID string, action domain.HistoryAction, oldValue, newValue *string) error {
	entry := &domain.BugHistory{
		ID:       domain.NewID(),
		BugID:    bugID,
		UserID:   &actorID,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
	}
	if err := tx.History().Create(ctx, entry); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func strPtr(v string) *string {
	return &v
}
