package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// BugFilter captures listing parameters. CreatorID and AssigneeID carry the
// caller's visibility scope and are applied before pagination, so totals
// count only visible rows.
type BugFilter struct {
	CreatorID  *string
	AssigneeID *string
	Statuses   []domain.BugStatus
	Priorities []domain.BugPriority
	Severities []domain.BugSeverity
	Limit      int
	Offset     int
}

// BugRepository encapsulates bug persistence.
type BugRepository interface {
	Create(ctx context.Context, bug *domain.Bug) error
	Update(ctx context.Context, bug *domain.Bug) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Bug, error)
	List(ctx context.Context, filter BugFilter) ([]domain.Bug, error)
	Count(ctx context.Context, filter BugFilter) (int, error)
}

type bugRepository struct {
	db DB
}

// NewBugRepository instantiates the repository.
func NewBugRepository(db DB) BugRepository {
	return &bugRepository{db: db}
}

func (r *bugRepository) Create(ctx context.Context, bug *domain.Bug) error {
	const query = `
        INSERT INTO bugs (id, title, description, priority, severity, status, creator_id, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		bug.ID,
		bug.Title,
		bug.Description,
		bug.Priority,
		bug.Severity,
		bug.Status,
		bug.CreatorID,
		bug.AssigneeID,
	).Scan(&bug.CreatedAt, &bug.UpdatedAt)
}

func (r *bugRepository) Update(ctx context.Context, bug *domain.Bug) error {
	const query = `
        UPDATE bugs SET title=$1, description=$2, priority=$3, severity=$4,
            status=$5, assignee_id=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		bug.Title,
		bug.Description,
		bug.Priority,
		bug.Severity,
		bug.Status,
		bug.AssigneeID,
		bug.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the bug row; comments and history cascade at the schema
// level.
func (r *bugRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bugs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bugRepository) GetByID(ctx context.Context, id string) (*domain.Bug, error) {
	const query = `
        SELECT id, title, description, priority, severity, status, creator_id, assignee_id, created_at, updated_at
        FROM bugs WHERE id=$1`
	var bug domain.Bug
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&bug.ID,
		&bug.Title,
		&bug.Description,
		&bug.Priority,
		&bug.Severity,
		&bug.Status,
		&bug.CreatorID,
		&bug.AssigneeID,
		&bug.CreatedAt,
		&bug.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &bug, nil
}

func (r *bugRepository) List(ctx context.Context, filter BugFilter) ([]domain.Bug, error) {
	clauses, args := bugFilterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT id, title, description, priority, severity, status, creator_id, assignee_id, created_at, updated_at
        FROM bugs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBugs(rows)
}

func (r *bugRepository) Count(ctx context.Context, filter BugFilter) (int, error) {
	clauses, args := bugFilterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM bugs WHERE %s`, strings.Join(clauses, " AND "))

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func bugFilterClauses(filter BugFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, severity := range filter.Severities {
			args = append(args, severity)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

func scanBugs(rows pgx.Rows) ([]domain.Bug, error) {
	var result []domain.Bug
	for rows.Next() {
		var bug domain.Bug
		if err := rows.Scan(
			&bug.ID,
			&bug.Title,
			&bug.Description,
			&bug.Priority,
			&bug.Severity,
			&bug.Status,
			&bug.CreatorID,
			&bug.AssigneeID,
			&bug.CreatedAt,
			&bug.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, bug)
	}
	return result, rows.Err()
}
