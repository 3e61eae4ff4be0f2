package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/mentorship-system/internal/model"
)

type commentRecord struct {
	ID               uint64       `db:"id"`
	UserID           uint64       `db:"user_id"`
	TaskID           uint64       `db:"task_id"`
	RelationID       uint64       `db:"relation_id"`
	Comment          string       `db:"comment"`
	CreationDate     time.Time    `db:"creation_date"`
	ModificationDate sql.NullTime `db:"modification_date"`
}

var commentColumns = []string{
	"id", "user_id", "task_id", "relation_id", "comment", "creation_date", "modification_date",
}

func (r commentRecord) toModel() model.TaskComment {
	c := model.TaskComment{
		ID:           r.ID,
		UserID:       r.UserID,
		TaskID:       r.TaskID,
		RelationID:   r.RelationID,
		Comment:      r.Comment,
		CreationDate: r.CreationDate,
	}
	if r.ModificationDate.Valid {
		t := r.ModificationDate.Time
		c.ModificationDate = &t
	}
	return c
}

// TaskCommentRepo reads and writes task comments.
type TaskCommentRepo struct{ q sqlx.ExtContext }

func NewTaskCommentRepo(q sqlx.ExtContext) *TaskCommentRepo { return &TaskCommentRepo{q: q} }

func (r *TaskCommentRepo) CreateComment(ctx context.Context, c *model.TaskComment) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO tasks_comments (user_id, task_id, relation_id, comment, creation_date, modification_date)
		 VALUES (?,?,?,?,?,?)`,
		c.UserID, c.TaskID, c.RelationID, c.Comment, c.CreationDate.UTC(), nullTime(c.ModificationDate))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *TaskCommentRepo) CommentByID(ctx context.Context, id uint64) (*model.TaskComment, error) {
	q, args, err := squirrel.Select(commentColumns...).
		From("tasks_comments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var rec commentRecord
	if err := sqlx.GetContext(ctx, r.q, &rec, q, args...); err != nil {
		return nil, notFound(err)
	}
	c := rec.toModel()
	return &c, nil
}

// CommentsByTask lists the comments on one task of one relation, oldest
// first.
func (r *TaskCommentRepo) CommentsByTask(ctx context.Context, taskID, relationID uint64) ([]model.TaskComment, error) {
	return r.list(ctx, squirrel.Eq{"task_id": taskID, "relation_id": relationID})
}

// CommentsByUser lists every comment authored by userID, oldest first.
func (r *TaskCommentRepo) CommentsByUser(ctx context.Context, userID uint64) ([]model.TaskComment, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID})
}

func (r *TaskCommentRepo) UpdateComment(ctx context.Context, c *model.TaskComment) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE tasks_comments SET comment=?, modification_date=? WHERE id=?`,
		c.Comment, nullTime(c.ModificationDate), c.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return requireAffected(res)
}

func (r *TaskCommentRepo) DeleteComment(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tasks_comments WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireAffected(res)
}

func (r *TaskCommentRepo) list(ctx context.Context, where squirrel.Sqlizer) ([]model.TaskComment, error) {
	q, args, err := squirrel.Select(commentColumns...).
		From("tasks_comments").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	var recs []commentRecord
	if err := sqlx.SelectContext(ctx, r.q, &recs, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.TaskComment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}
