package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

func newUserFixture(t *testing.T) (*UserService, *LifecycleService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	users := NewUserService(UserDependencies{Store: store, BcryptCost: 4})
	lifecycle := NewLifecycleService(LifecycleDependencies{Store: store})
	return users, lifecycle, store
}

func TestCreateUser(t *testing.T) {
	users, _, _ := newUserFixture(t)
	ctx := context.Background()

	created, err := users.CreateUser(ctx, UserCreateInput{
		Username: "carol",
		Password: "s3cret",
		Role:     domain.RoleDeveloper,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "carol", created.Username)
	// Display name falls back to the username.
	assert.Equal(t, "carol", created.DisplayName)
	assert.NotEqual(t, "s3cret", created.PasswordHash)

	_, err = users.CreateUser(ctx, UserCreateInput{Username: "carol", Password: "x", Role: domain.RoleTester})
	assertErrCode(t, err, "CONFLICT")

	_, err = users.CreateUser(ctx, UserCreateInput{Username: "", Password: "x", Role: domain.RoleTester})
	assertErrCode(t, err, "VALIDATION_FAILED")
	_, err = users.CreateUser(ctx, UserCreateInput{Username: "dave", Password: "", Role: domain.RoleTester})
	assertErrCode(t, err, "VALIDATION_FAILED")
	_, err = users.CreateUser(ctx, UserCreateInput{Username: "dave", Password: "x", Role: "superuser"})
	assertErrCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateUser(t *testing.T) {
	users, _, store := newUserFixture(t)
	_, dev, _, _, _ := newTestUsers(store)
	ctx := context.Background()

	newName := "Renamed"
	newRole := domain.RoleTester
	updated, err := users.UpdateUser(ctx, dev.ID, UserUpdateInput{DisplayName: &newName, Role: &newRole})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, domain.RoleTester, updated.Role)

	empty := "   "
	_, err = users.UpdateUser(ctx, dev.ID, UserUpdateInput{DisplayName: &empty})
	assertErrCode(t, err, "VALIDATION_FAILED")

	bad := domain.Role("root")
	_, err = users.UpdateUser(ctx, dev.ID, UserUpdateInput{Role: &bad})
	assertErrCode(t, err, "VALIDATION_FAILED")

	_, err = users.UpdateUser(ctx, "missing", UserUpdateInput{DisplayName: &newName})
	assertErrCode(t, err, "NOT_FOUND")
}

func TestDeleteUserReleasesAssignments(t *testing.T) {
	users, lifecycle, store := newUserFixture(t)
	admin, dev, _, tester, _ := newTestUsers(store)
	ctx := context.Background()

	bug, err := lifecycle.CreateBug(ctx, tester, BugCreateInput{Title: "orphaned work"})
	require.NoError(t, err)
	_, err = lifecycle.AssignBug(ctx, admin, bug.ID, dev.ID)
	require.NoError(t, err)
	_, err = lifecycle.ChangeStatus(ctx, dev, bug.ID, domain.BugStatusInProgress)
	require.NoError(t, err)

	require.NoError(t, users.DeleteUser(ctx, admin, dev.ID))

	// The bug falls back to open with no assignee, so the state machine's
	// "assigned means someone is on it" rule still holds.
	got, err := lifecycle.GetBug(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BugStatusOpen, got.Status)
	assert.Nil(t, got.AssigneeID)

	// The release is audited like any other status change.
	entries, err := lifecycle.ListHistory(ctx, admin, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusChanged, entries[0].Action)
	require.NotNil(t, entries[0].OldValue)
	assert.Equal(t, string(domain.BugStatusInProgress), *entries[0].OldValue)
	require.NotNil(t, entries[0].NewValue)
	assert.Equal(t, string(domain.BugStatusOpen), *entries[0].NewValue)

	_, err = users.GetUser(ctx, dev.ID)
	assertErrCode(t, err, "NOT_FOUND")
}

func TestDeleteUserGuards(t *testing.T) {
	users, _, store := newUserFixture(t)
	admin, _, _, _, _ := newTestUsers(store)
	ctx := context.Background()

	err := users.DeleteUser(ctx, admin, admin.ID)
	assertErrCode(t, err, "VALIDATION_FAILED")

	err = users.DeleteUser(ctx, admin, "missing")
	assertErrCode(t, err, "NOT_FOUND")
}

func TestListUsers(t *testing.T) {
	users, _, store := newUserFixture(t)
	newTestUsers(store)
	ctx := context.Background()

	page, err := users.ListUsers(ctx, UserListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	role := domain.RoleDeveloper
	devs, err := users.ListUsers(ctx, UserListFilter{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, 2, devs.Total)

	clamped, err := users.ListUsers(ctx, UserListFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, clamped.PageSize)
}
