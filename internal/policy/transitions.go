package policy

import "github.com/spec-kit/bug-tracker/internal/domain"

// developerTransitions is the forward-only edge set developers may follow on
// bugs they own. Admins are unrestricted: reopening and state skips model
// triage authority. "closed" is terminal for developers.
var developerTransitions = map[domain.BugStatus][]domain.BugStatus{
	domain.BugStatusOpen:       {},
	domain.BugStatusAssigned:   {domain.BugStatusInProgress},
	domain.BugStatusInProgress: {domain.BugStatusResolved, domain.BugStatusRejected, domain.BugStatusClosed},
	domain.BugStatusResolved:   {domain.BugStatusClosed},
	domain.BugStatusRejected:   {domain.BugStatusClosed},
	domain.BugStatusClosed:     {},
}

// CanTransition reports whether the role may move a bug from one status to
// another. A no-op transition (from == to) is always permitted for callers
// that pass CanPerform; it is still audited.
func CanTransition(role domain.Role, from, to domain.BugStatus) bool {
	if from == to {
		return true
	}
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleDeveloper:
		for _, next := range developerTransitions[from] {
			if next == to {
				return true
			}
		}
		return false
	case domain.RoleTester:
		return false
	}
	return false
}
