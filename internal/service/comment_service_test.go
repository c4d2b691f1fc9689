package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

func newCommentFixture(t *testing.T) (*CommentService, *LifecycleService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	lifecycle := NewLifecycleService(LifecycleDependencies{Store: store})
	comments := NewCommentService(CommentDependencies{Store: store})
	return comments, lifecycle, store
}

func TestAddComment(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	admin, dev, _, tester, tester2 := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "discuss"})
	require.NoError(t, err)

	comment, err := comments.AddComment(ctx, tester, bug.ID, "  reproduced on staging  ")
	require.NoError(t, err)
	assert.Equal(t, "reproduced on staging", comment.Content)
	require.NotNil(t, comment.UserID)
	assert.Equal(t, tester.ID, *comment.UserID)

	// Only callers who can see the bug may comment.
	_, err = comments.AddComment(ctx, tester2, bug.ID, "drive-by")
	assertErrCode(t, err, "FORBIDDEN")
	_, err = comments.AddComment(ctx, dev, bug.ID, "not mine yet")
	assertErrCode(t, err, "FORBIDDEN")
	_, err = comments.AddComment(ctx, admin, "missing", "hello")
	assertErrCode(t, err, "NOT_FOUND")

	entries, err := lifecycle.ListHistory(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommented, entries[0].Action)
	assert.Nil(t, entries[0].OldValue)
	require.NotNil(t, entries[0].NewValue)
	assert.Equal(t, "reproduced on staging", *entries[0].NewValue)
}

func TestAddCommentChainsSnapshots(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	admin, _, _, tester, _ := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "thread"})
	require.NoError(t, err)

	_, err = comments.AddComment(ctx, tester, bug.ID, "first")
	require.NoError(t, err)
	_, err = comments.AddComment(ctx, tester, bug.ID, "second")
	require.NoError(t, err)

	entries, err := lifecycle.ListHistory(ctx, admin, bug.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)
	latest := entries[0]
	assert.Equal(t, domain.ActionCommented, latest.Action)
	require.NotNil(t, latest.OldValue)
	assert.Equal(t, "first", *latest.OldValue)
	require.NotNil(t, latest.NewValue)
	assert.Equal(t, "second", *latest.NewValue)
}

func TestCommentContentBounds(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	_, _, _, tester, _ := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "bounds"})
	require.NoError(t, err)

	_, err = comments.AddComment(ctx, tester, bug.ID, "   ")
	assertErrCode(t, err, "VALIDATION_FAILED")

	atLimit := strings.Repeat("x", domain.CommentMaxLength)
	_, err = comments.AddComment(ctx, tester, bug.ID, atLimit)
	require.NoError(t, err)

	_, err = comments.AddComment(ctx, tester, bug.ID, atLimit+"x")
	assertErrCode(t, err, "VALIDATION_FAILED")

	// Audit snapshots are capped even when the comment is longer.
	entries, err := comments.store.History().ListByBug(ctx, bug.ID)
	require.NoError(t, err)
	require.NotNil(t, entries[0].NewValue)
	assert.Len(t, []rune(*entries[0].NewValue), domain.HistorySnapshotLimit)
}

func TestEditComment(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	admin, _, _, tester, tester2 := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "editable"})
	require.NoError(t, err)
	comment, err := comments.AddComment(ctx, tester, bug.ID, "draft")
	require.NoError(t, err)

	// Author edits.
	edited, err := comments.EditComment(ctx, tester, bug.ID, comment.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)

	// Admin edits anyone's comment.
	_, err = comments.EditComment(ctx, admin, bug.ID, comment.ID, "moderated")
	require.NoError(t, err)

	// Everyone else is rejected.
	_, err = comments.EditComment(ctx, tester2, bug.ID, comment.ID, "hijack")
	assertErrCode(t, err, "FORBIDDEN")

	// Edits are audited with both snapshots.
	entries, err := lifecycle.ListHistory(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommentUpdated, entries[0].Action)
	require.NotNil(t, entries[0].OldValue)
	assert.Equal(t, "final", *entries[0].OldValue)
	require.NotNil(t, entries[0].NewValue)
	assert.Equal(t, "moderated", *entries[0].NewValue)

	// The comment must belong to the addressed bug.
	other, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "other"})
	require.NoError(t, err)
	_, err = comments.EditComment(ctx, tester, other.ID, comment.ID, "misrouted")
	assertErrCode(t, err, "VALIDATION_FAILED")

	_, err = comments.EditComment(ctx, tester, bug.ID, "missing", "nothing")
	assertErrCode(t, err, "NOT_FOUND")
}

func TestDeleteComment(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	admin, _, _, tester, tester2 := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "cleanup"})
	require.NoError(t, err)
	comment, err := comments.AddComment(ctx, tester, bug.ID, "regret this")
	require.NoError(t, err)

	err = comments.DeleteComment(ctx, tester2, bug.ID, comment.ID)
	assertErrCode(t, err, "FORBIDDEN")

	require.NoError(t, comments.DeleteComment(ctx, tester, bug.ID, comment.ID))

	listed, err := comments.ListComments(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// The deletion keeps a snapshot of what was removed.
	entries, err := lifecycle.ListHistory(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommentDeleted, entries[0].Action)
	require.NotNil(t, entries[0].OldValue)
	assert.Equal(t, "regret this", *entries[0].OldValue)
	assert.Nil(t, entries[0].NewValue)

	err = comments.DeleteComment(ctx, tester, bug.ID, comment.ID)
	assertErrCode(t, err, "NOT_FOUND")
}

func TestListComments(t *testing.T) {
	comments, lifecycle, store := newCommentFixture(t)
	admin, _, _, tester, tester2 := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "thread"})
	require.NoError(t, err)
	_, err = comments.AddComment(ctx, tester, bug.ID, "first")
	require.NoError(t, err)
	_, err = comments.AddComment(ctx, admin, bug.ID, "second")
	require.NoError(t, err)

	listed, err := comments.ListComments(ctx, tester, bug.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Oldest first, authors resolved.
	assert.Equal(t, "first", listed[0].Content)
	require.NotNil(t, listed[0].Author)
	assert.Equal(t, "Tester One", listed[0].Author.DisplayName)
	assert.Equal(t, "second", listed[1].Content)
	require.NotNil(t, listed[1].Author)
	assert.Equal(t, "Admin", listed[1].Author.DisplayName)

	_, err = comments.ListComments(ctx, tester2, bug.ID)
	assertErrCode(t, err, "FORBIDDEN")
}
