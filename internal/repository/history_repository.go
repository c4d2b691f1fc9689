package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// HistoryRepository stores the append-only audit trail. Entries are never
// updated; they disappear only through the parent bug's cascade delete.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.BugHistory) error
	ListByBug(ctx context.Context, bugID string) ([]domain.BugHistory, error)
	LatestByAction(ctx context.Context, bugID string, action domain.HistoryAction) (*domain.BugHistory, error)
}

type historyRepository struct {
	db DB
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(db DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.BugHistory) error {
	const query = `
        INSERT INTO bug_history (id, bug_id, user_id, action, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		entry.ID,
		entry.BugID,
		entry.UserID,
		entry.Action,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.CreatedAt)
}

// ListByBug returns entries newest-first.
func (r *historyRepository) ListByBug(ctx context.Context, bugID string) ([]domain.BugHistory, error) {
	const query = `
        SELECT id, bug_id, user_id, action, old_value, new_value, created_at
        FROM bug_history WHERE bug_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, bugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BugHistory
	for rows.Next() {
		var entry domain.BugHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.BugID,
			&entry.UserID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// LatestByAction returns the most recent entry with the given action, or nil
// when the bug has none. Used to chain consecutive comment snapshots.
func (r *historyRepository) LatestByAction(ctx context.Context, bugID string, action domain.HistoryAction) (*domain.BugHistory, error) {
	const query = `
        SELECT id, bug_id, user_id, action, old_value, new_value, created_at
        FROM bug_history WHERE bug_id=$1 AND action=$2
        ORDER BY created_at DESC, id DESC LIMIT 1`
	var entry domain.BugHistory
	if err := r.db.QueryRow(ctx, query, bugID, action).Scan(
		&entry.ID,
		&entry.BugID,
		&entry.UserID,
		&entry.Action,
		&entry.OldValue,
		&entry.NewValue,
		&entry.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
