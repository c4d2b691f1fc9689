package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// CommentRepository manages bug discussion threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.BugComment) error
	Update(ctx context.Context, comment *domain.BugComment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.BugComment, error)
	ListByBug(ctx context.Context, bugID string) ([]domain.BugComment, error)
}

type commentRepository struct {
	db DB
}

// NewCommentRepository builds the repository.
func NewCommentRepository(db DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.BugComment) error {
	const query = `
        INSERT INTO bug_comments (id, bug_id, user_id, content)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		comment.ID,
		comment.BugID,
		comment.UserID,
		comment.Content,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.BugComment) error {
	const query = `
        UPDATE bug_comments SET content=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, comment.Content, comment.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bug_comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.BugComment, error) {
	const query = `
        SELECT id, bug_id, user_id, content, created_at, updated_at
        FROM bug_comments WHERE id=$1`
	var comment domain.BugComment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.BugID,
		&comment.UserID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByBug(ctx context.Context, bugID string) ([]domain.BugComment, error) {
	const query = `
        SELECT id, bug_id, user_id, content, created_at, updated_at
        FROM bug_comments WHERE bug_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, bugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BugComment
	for rows.Next() {
		var comment domain.BugComment
		if err := rows.Scan(
			&comment.ID,
			&comment.BugID,
			&comment.UserID,
			&comment.Content,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
