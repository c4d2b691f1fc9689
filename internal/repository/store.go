package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// Store is the storage context handed to services. WithinTx runs the given
// function against a Store bound to a single transaction: this is how a
// record mutation and its audit entry commit or roll back as one unit.
type Store interface {
	Users() UserRepository
	Bugs() BugRepository
	Comments() CommentRepository
	History() HistoryRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db   DB
	pool *pgxpool.Pool // nil when already transaction-bound
}

// NewStore builds a Store over a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &sqlStore{db: pool, pool: pool}
}

func (s *sqlStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *sqlStore) Bugs() BugRepository         { return NewBugRepository(s.db) }
func (s *sqlStore) Comments() CommentRepository { return NewCommentRepository(s.db) }
func (s *sqlStore) History() HistoryRepository  { return NewHistoryRepository(s.db) }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Nested call inside an open transaction joins it.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	if err := fn(&sqlStore{db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}
