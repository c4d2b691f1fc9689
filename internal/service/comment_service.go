package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/events"
	"github.com/spec-kit/bug-tracker/internal/policy"
	"github.com/spec-kit/bug-tracker/internal/repository"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// CommentService manages a bug's discussion thread. Every add, edit, and
// delete writes its audit entry in the same transaction as the change.
type CommentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{store: deps.Store, dispatcher: deps.Dispatcher}
}

// CommentWithRef is a comment with its author display info resolved.
type CommentWithRef struct {
	domain.BugComment
	Author *domain.UserRef
}

// AddComment appends a comment to a bug the caller can view. The audit
// snapshot chains to the previous comment entry so consecutive snapshots
// read as a lightweight diff.
func (s *CommentService) AddComment(ctx context.Context, actor *domain.User, bugID, content string) (*domain.BugComment, error) {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor.Role, actor.ID, policy.ActionComment, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}

	trimmed, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	comment := &domain.BugComment{
		ID:      domain.NewID(),
		BugID:   bugID,
		UserID:  &actorID,
		Content: trimmed,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return apperrors.MapError(err)
		}
		prev, err := tx.History().LatestByAction(ctx, bugID, domain.ActionCommented)
		if err != nil {
			return apperrors.MapError(err)
		}
		var oldValue *string
		if prev != nil {
			oldValue = prev.NewValue
		}
		return appendHistory(ctx, tx, bugID, actor.ID, domain.ActionCommented,
			oldValue, strPtr(truncateRunes(trimmed, domain.HistorySnapshotLimit)))
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventBugCommented,
		BugID:   bugID,
		ActorID: actor.ID,
		Payload: events.BugCommentedPayload{
			CommentID:      comment.ID,
			ContentPreview: truncateRunes(trimmed, domain.HistorySnapshotLimit),
		},
	})
	return comment, nil
}

// EditComment rewrites a comment's content. Only the author or an admin may
// edit; the audit entry snapshots the old and new content.
func (s *CommentService) EditComment(ctx context.Context, actor *domain.User, bugID, commentID, content string) (*domain.BugComment, error) {
	comment, err := s.fetchComment(ctx, bugID, commentID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyComment(actor.Role, actor.ID, comment) {
		return nil, apperrors.NewForbidden("only the author or an admin may edit a comment")
	}

	trimmed, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	oldContent := comment.Content
	comment.Content = trimmed

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Comments().Update(ctx, comment); err != nil {
			return apperrors.MapError(err)
		}
		return appendHistory(ctx, tx, bugID, actor.ID, domain.ActionCommentUpdated,
			strPtr(truncateRunes(oldContent, domain.HistorySnapshotLimit)),
			strPtr(truncateRunes(trimmed, domain.HistorySnapshotLimit)))
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment hard-deletes a comment. Only the author or an admin may
// delete; the audit entry keeps a snapshot of what was removed.
func (s *CommentService) DeleteComment(ctx context.Context, actor *domain.User, bugID, commentID string) error {
	comment, err := s.fetchComment(ctx, bugID, commentID)
	if err != nil {
		return err
	}
	if !policy.CanModifyComment(actor.Role, actor.ID, comment) {
		return apperrors.NewForbidden("only the author or an admin may delete a comment")
	}

	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Comments().Delete(ctx, commentID); err != nil {
			return apperrors.MapError(err)
		}
		return appendHistory(ctx, tx, bugID, actor.ID, domain.ActionCommentDeleted,
			strPtr(truncateRunes(comment.Content, domain.HistorySnapshotLimit)), nil)
	})
}

// ListComments returns the thread oldest-first with author display info
// resolved in one batched lookup.
func (s *CommentService) ListComments(ctx context.Context, actor *domain.User, bugID string) ([]CommentWithRef, error) {
	bug, err := fetchBug(ctx, s.store, bugID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor.Role, actor.ID, bug) {
		return nil, apperrors.NewForbidden("access denied")
	}

	comments, err := s.store.Comments().ListByBug(ctx, bugID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ids := make([]string, 0, len(comments))
	seen := map[string]struct{}{}
	for _, comment := range comments {
		if comment.UserID == nil {
			continue
		}
		if _, ok := seen[*comment.UserID]; ok {
			continue
		}
		seen[*comment.UserID] = struct{}{}
		ids = append(ids, *comment.UserID)
	}
	refs, err := s.store.Users().RefsByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]CommentWithRef, 0, len(comments))
	for _, comment := range comments {
		item := CommentWithRef{BugComment: comment}
		if comment.UserID != nil {
			if ref, ok := refs[*comment.UserID]; ok {
				item.Author = &ref
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *CommentService) fetchComment(ctx context.Context, bugID, commentID string) (*domain.BugComment, error) {
	comment, err := s.store.Comments().GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("comment", map[string]any{"comment_id": commentID})
		}
		return nil, apperrors.MapError(err)
	}
	if comment.BugID != bugID {
		return nil, apperrors.NewValidationError("comment does not belong to this bug", nil)
	}
	return comment, nil
}

func validateCommentContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	length := utf8.RuneCountInString(trimmed)
	if length < domain.CommentMinLength {
		return "", apperrors.NewValidationError("comment content required", nil)
	}
	if length > domain.CommentMaxLength {
		return "", apperrors.NewValidationError("comment content too long", map[string]any{
			"max_length": domain.CommentMaxLength,
		})
	}
	return trimmed, nil
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
