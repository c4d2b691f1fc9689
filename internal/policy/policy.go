// Package policy holds the pure access rules of the tracker: which bugs a
// caller may see, and which actions a caller may perform on a given bug.
// Everything here is a side-effect-free function over domain values so the
// rules can be covered exhaustively in tests.
package policy

import (
	"github.com/spec-kit/bug-tracker/internal/domain"
)

// Action enumerates the policy-gated operations on a bug.
type Action int

const (
	ActionCreate Action = iota
	ActionAssign
	ActionChangeStatus
	ActionDelete
	ActionComment
)

// Visibility is the per-role predicate over bugs, expressed as optional
// column constraints so storage can apply it before pagination. A zero value
// means unrestricted (admin).
type Visibility struct {
	CreatorID  *string
	AssigneeID *string
}

// VisibilityFor returns the listing scope for a caller: admins see all bugs,
// developers see bugs assigned to them, testers see bugs they reported.
func VisibilityFor(role domain.Role, userID string) Visibility {
	switch role {
	case domain.RoleAdmin:
		return Visibility{}
	case domain.RoleDeveloper:
		return Visibility{AssigneeID: &userID}
	case domain.RoleTester:
		return Visibility{CreatorID: &userID}
	}
	// Unknown roles see nothing; constrain to an impossible owner.
	none := ""
	return Visibility{CreatorID: &none, AssigneeID: &none}
}

// Matches reports whether a bug falls inside the visibility scope.
func (v Visibility) Matches(bug *domain.Bug) bool {
	if bug == nil {
		return false
	}
	if v.CreatorID != nil && (bug.CreatorID == nil || *bug.CreatorID != *v.CreatorID) {
		return false
	}
	if v.AssigneeID != nil && (bug.AssigneeID == nil || *bug.AssigneeID != *v.AssigneeID) {
		return false
	}
	return true
}

// CanView reports whether the caller may read the bug, its comments, and its
// history.
func CanView(role domain.Role, userID string, bug *domain.Bug) bool {
	return VisibilityFor(role, userID).Matches(bug)
}

// CanPerform decides whether the caller may execute the action on the bug.
// For ActionCreate the bug argument is ignored and may be nil.
func CanPerform(role domain.Role, userID string, action Action, bug *domain.Bug) bool {
	switch action {
	case ActionCreate:
		return role == domain.RoleTester || role == domain.RoleAdmin
	case ActionAssign:
		switch role {
		case domain.RoleAdmin:
			return true
		case domain.RoleTester:
			// Testers may (re)assign only bugs they reported.
			return bug != nil && bug.CreatorID != nil && *bug.CreatorID == userID
		case domain.RoleDeveloper:
			return false
		}
		return false
	case ActionChangeStatus:
		switch role {
		case domain.RoleAdmin:
			return true
		case domain.RoleDeveloper:
			return bug != nil && bug.AssigneeID != nil && *bug.AssigneeID == userID
		case domain.RoleTester:
			return false
		}
		return false
	case ActionComment:
		return CanView(role, userID, bug)
	case ActionDelete:
		return role == domain.RoleAdmin
	}
	return false
}

// CanModifyComment reports whether the caller may edit or delete the comment:
// its author, or an admin.
func CanModifyComment(role domain.Role, userID string, comment *domain.BugComment) bool {
	if comment == nil {
		return false
	}
	if role == domain.RoleAdmin {
		return true
	}
	return comment.UserID != nil && *comment.UserID == userID
}
