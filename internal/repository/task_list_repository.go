package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/mentorship-system/internal/model"
)

type taskListRecord struct {
	ID         uint64 `db:"id"`
	Tasks      []byte `db:"tasks"`
	NextTaskID uint64 `db:"next_task_id"`
}

// TaskListRepo stores task lists as a versioned JSON document plus the id
// counter.
type TaskListRepo struct{ q sqlx.ExtContext }

func NewTaskListRepo(q sqlx.ExtContext) *TaskListRepo { return &TaskListRepo{q: q} }

// CreateTaskList inserts l and assigns its generated ID.
func (r *TaskListRepo) CreateTaskList(ctx context.Context, l *model.TaskList) error {
	doc, err := l.EncodeTasks()
	if err != nil {
		return err
	}
	if l.NextTaskID == 0 {
		l.NextTaskID = 1
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO tasks_list (tasks, next_task_id) VALUES (?, ?)`, doc, l.NextTaskID)
	if err != nil {
		return fmt.Errorf("insert task list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// TaskListByID loads a task list with a row lock.
func (r *TaskListRepo) TaskListByID(ctx context.Context, id uint64) (*model.TaskList, error) {
	var rec taskListRecord
	if err := sqlx.GetContext(ctx, r.q, &rec,
		`SELECT id, tasks, next_task_id FROM tasks_list WHERE id=? FOR UPDATE`, id); err != nil {
		return nil, notFound(err)
	}
	tasks, err := model.DecodeTasks(rec.Tasks)
	if err != nil {
		return nil, fmt.Errorf("task list %d: %w", rec.ID, err)
	}
	return &model.TaskList{ID: rec.ID, Tasks: tasks, NextTaskID: rec.NextTaskID}, nil
}

// SaveTaskList writes back the tasks and the id counter.
func (r *TaskListRepo) SaveTaskList(ctx context.Context, l *model.TaskList) error {
	doc, err := l.EncodeTasks()
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE tasks_list SET tasks=?, next_task_id=? WHERE id=?`, doc, l.NextTaskID, l.ID)
	if err != nil {
		return fmt.Errorf("save task list: %w", err)
	}
	return requireAffected(res)
}
