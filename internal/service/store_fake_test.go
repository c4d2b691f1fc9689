package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
)

// fakeStore is an in-memory Store for service tests. It mirrors the schema's
// behavior where services depend on it: bug deletion cascades to comments and
// history, and listings follow the repository sort orders.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	bugs     map[string]*domain.Bug
	comments map[string]*domain.BugComment
	history  []*domain.BugHistory
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*domain.User{},
		bugs:     map[string]*domain.Bug{},
		comments: map[string]*domain.BugComment{},
	}
}

func (f *fakeStore) Users() repository.UserRepository       { return &fakeUserRepo{f} }
func (f *fakeStore) Bugs() repository.BugRepository         { return &fakeBugRepo{f} }
func (f *fakeStore) Comments() repository.CommentRepository { return &fakeCommentRepo{f} }
func (f *fakeStore) History() repository.HistoryRepository  { return &fakeHistoryRepo{f} }

func (f *fakeStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

// nextTime yields strictly increasing timestamps so DESC orderings are stable.
func (f *fakeStore) nextTime() time.Time {
	f.seq++
	return time.Unix(1700000000, 0).Add(time.Duration(f.seq) * time.Second)
}

func (f *fakeStore) addUser(user *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.nextTime()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID] = user
	return user
}

type fakeUserRepo struct{ f *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.f.addUser(user)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.f.nextTime()
	r.f.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.f.users, id)
	// ON DELETE SET NULL
	for _, bug := range r.f.bugs {
		if bug.CreatorID != nil && *bug.CreatorID == id {
			bug.CreatorID = nil
		}
		if bug.AssigneeID != nil && *bug.AssigneeID == id {
			bug.AssigneeID = nil
		}
	}
	for _, comment := range r.f.comments {
		if comment.UserID != nil && *comment.UserID == id {
			comment.UserID = nil
		}
	}
	for _, entry := range r.f.history {
		if entry.UserID != nil && *entry.UserID == id {
			entry.UserID = nil
		}
	}
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, user := range r.f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []domain.User
	for _, user := range r.f.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, filter repository.UserFilter) (int, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	total := 0
	for _, user := range r.f.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		total++
	}
	return total, nil
}

func (r *fakeUserRepo) RefsByIDs(ctx context.Context, ids []string) (map[string]domain.UserRef, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	result := make(map[string]domain.UserRef, len(ids))
	for _, id := range ids {
		if user, ok := r.f.users[id]; ok {
			result[id] = user.Ref()
		}
	}
	return result, nil
}

type fakeBugRepo struct{ f *fakeStore }

func (r *fakeBugRepo) Create(ctx context.Context, bug *domain.Bug) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	now := r.f.nextTime()
	bug.CreatedAt = now
	bug.UpdatedAt = now
	copied := *bug
	r.f.bugs[bug.ID] = &copied
	return nil
}

func (r *fakeBugRepo) Update(ctx context.Context, bug *domain.Bug) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.bugs[bug.ID]; !ok {
		return pgx.ErrNoRows
	}
	bug.UpdatedAt = r.f.nextTime()
	copied := *bug
	r.f.bugs[bug.ID] = &copied
	return nil
}

func (r *fakeBugRepo) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.bugs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.f.bugs, id)
	// ON DELETE CASCADE
	for commentID, comment := range r.f.comments {
		if comment.BugID == id {
			delete(r.f.comments, commentID)
		}
	}
	kept := r.f.history[:0]
	for _, entry := range r.f.history {
		if entry.BugID != id {
			kept = append(kept, entry)
		}
	}
	r.f.history = kept
	return nil
}

func (r *fakeBugRepo) GetByID(ctx context.Context, id string) (*domain.Bug, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	bug, ok := r.f.bugs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *bug
	return &copied, nil
}

func (r *fakeBugRepo) matches(bug *domain.Bug, filter repository.BugFilter) bool {
	if filter.CreatorID != nil && (bug.CreatorID == nil || *bug.CreatorID != *filter.CreatorID) {
		return false
	}
	if filter.AssigneeID != nil && (bug.AssigneeID == nil || *bug.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, bug.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, bug.Priority) {
		return false
	}
	if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, bug.Severity) {
		return false
	}
	return true
}

func (r *fakeBugRepo) visible(filter repository.BugFilter) []domain.Bug {
	var result []domain.Bug
	for _, bug := range r.f.bugs {
		if r.matches(bug, filter) {
			result = append(result, *bug)
		}
	}
	// created_at DESC
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].CreatedAt.After(result[i].CreatedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}

func (r *fakeBugRepo) List(ctx context.Context, filter repository.BugFilter) ([]domain.Bug, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	result := r.visible(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *fakeBugRepo) Count(ctx context.Context, filter repository.BugFilter) (int, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return len(r.visible(filter)), nil
}

type fakeCommentRepo struct{ f *fakeStore }

func (r *fakeCommentRepo) Create(ctx context.Context, comment *domain.BugComment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	now := r.f.nextTime()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	copied := *comment
	r.f.comments[comment.ID] = &copied
	return nil
}

func (r *fakeCommentRepo) Update(ctx context.Context, comment *domain.BugComment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.comments[comment.ID]; !ok {
		return pgx.ErrNoRows
	}
	comment.UpdatedAt = r.f.nextTime()
	copied := *comment
	r.f.comments[comment.ID] = &copied
	return nil
}

func (r *fakeCommentRepo) Delete(ctx context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.f.comments, id)
	return nil
}

func (r *fakeCommentRepo) GetByID(ctx context.Context, id string) (*domain.BugComment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	comment, ok := r.f.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (r *fakeCommentRepo) ListByBug(ctx context.Context, bugID string) ([]domain.BugComment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []domain.BugComment
	for _, comment := range r.f.comments {
		if comment.BugID == bugID {
			result = append(result, *comment)
		}
	}
	// created_at ASC
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].CreatedAt.Before(result[i].CreatedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

type fakeHistoryRepo struct{ f *fakeStore }

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.BugHistory) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	entry.CreatedAt = r.f.nextTime()
	copied := *entry
	r.f.history = append(r.f.history, &copied)
	return nil
}

func (r *fakeHistoryRepo) ListByBug(ctx context.Context, bugID string) ([]domain.BugHistory, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []domain.BugHistory
	// newest first
	for i := len(r.f.history) - 1; i >= 0; i-- {
		if r.f.history[i].BugID == bugID {
			result = append(result, *r.f.history[i])
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) LatestByAction(ctx context.Context, bugID string, action domain.HistoryAction) (*domain.BugHistory, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for i := len(r.f.history) - 1; i >= 0; i-- {
		if r.f.history[i].BugID == bugID && r.f.history[i].Action == action {
			copied := *r.f.history[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func containsStatus(list []domain.BugStatus, v domain.BugStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.BugPriority, v domain.BugPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsSeverity(list []domain.BugSeverity, v domain.BugSeverity) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
