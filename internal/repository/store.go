package repository

import (
	"context"
	"time"

	"github.com/iliyamo/mentorship-system/internal/model"
)

// Store runs units of work atomically. Every mutating service operation
// reads, validates and writes inside a single WithinTx call; when fn
// returns an error nothing it wrote is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserQueries covers the user directory consumed by the core.
type UserQueries interface {
	UserByID(ctx context.Context, id uint64) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	// LockUsers serialises concurrent work touching the same users. Ids are
	// locked in ascending order to avoid deadlocks.
	LockUsers(ctx context.Context, ids ...uint64) error
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	ListAdmins(ctx context.Context) ([]model.User, error)
	CountAdmins(ctx context.Context) (int, error)
	// DeleteUnverifiedBefore removes users that never confirmed their email
	// and registered before cutoff, skipping users referenced by relations.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RelationQueries covers mentorship relations. Lists are returned in
// storage order (ascending id).
type RelationQueries interface {
	CreateRelation(ctx context.Context, r *model.Relation) error
	// RelationByID loads a relation and holds it for update until the
	// surrounding transaction ends.
	RelationByID(ctx context.Context, id uint64) (*model.Relation, error)
	UpdateRelation(ctx context.Context, r *model.Relation) error
	// DeleteRelation removes the relation together with its task list and
	// the comments attached to it.
	DeleteRelation(ctx context.Context, r *model.Relation) error
	RelationsByUser(ctx context.Context, userID uint64, state *model.RelationState) ([]model.Relation, error)
	HasAcceptedRelation(ctx context.Context, userID uint64) (bool, error)
	ExpiredAcceptedRelations(ctx context.Context, now time.Time) ([]model.Relation, error)
}

// TaskListQueries covers the task list owned by each relation.
type TaskListQueries interface {
	CreateTaskList(ctx context.Context, l *model.TaskList) error
	TaskListByID(ctx context.Context, id uint64) (*model.TaskList, error)
	SaveTaskList(ctx context.Context, l *model.TaskList) error
}

// CommentQueries covers task comments.
type CommentQueries interface {
	CreateComment(ctx context.Context, c *model.TaskComment) error
	CommentByID(ctx context.Context, id uint64) (*model.TaskComment, error)
	CommentsByTask(ctx context.Context, taskID, relationID uint64) ([]model.TaskComment, error)
	CommentsByUser(ctx context.Context, userID uint64) ([]model.TaskComment, error)
	UpdateComment(ctx context.Context, c *model.TaskComment) error
	DeleteComment(ctx context.Context, id uint64) error
}

// Tx is the set of queries available inside a unit of work.
type Tx interface {
	UserQueries
	RelationQueries
	TaskListQueries
	CommentQueries
	TokenQueries
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*mysqlTx)(nil)
	_ Tx    = (*memTx)(nil)
)
