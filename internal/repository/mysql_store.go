package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// MySQLStore runs units of work inside MySQL transactions.
type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore { return &MySQLStore{db: db} }

// mysqlTx binds every repository to the same *sqlx.Tx.
type mysqlTx struct {
	*UserRepo
	*RelationRepo
	*TaskListRepo
	*TaskCommentRepo
	*TokenRepo
}

func newMySQLTx(tx *sqlx.Tx) *mysqlTx {
	return &mysqlTx{
		UserRepo:        NewUserRepo(tx),
		RelationRepo:    NewRelationRepo(tx),
		TaskListRepo:    NewTaskListRepo(tx),
		TaskCommentRepo: NewTaskCommentRepo(tx),
		TokenRepo:       NewTokenRepo(tx),
	}
}

// WithinTx begins a transaction, hands it to fn and commits when fn
// returns nil. Any error rolls everything back.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(newMySQLTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
