package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// TaskService manages the task list of an ACCEPTED relation on behalf of
// its participants.
type TaskService struct {
	store repository.Store
	now   Clock
}

func NewTaskService(store repository.Store, clock Clock) *TaskService {
	if clock == nil {
		clock = SystemClock
	}
	return &TaskService{store: store, now: clock}
}

// taskScope is what every task and comment operation needs once access to
// the relation has been checked.
type taskScope struct {
	relation *model.Relation
	list     *model.TaskList
}

// openRelation checks that the relation exists, that actorID takes part in
// it and that it is ACCEPTED, then loads its task list.
func openRelation(ctx context.Context, tx repository.Tx, actorID, relationID uint64) (*taskScope, error) {
	if _, err := loadActor(ctx, tx, actorID); err != nil {
		return nil, err
	}
	rel, err := tx.RelationByID(ctx, relationID)
	if err != nil {
		return nil, orNotFound(err, msgRelationNotFound)
	}
	if !rel.IsParticipant(actorID) {
		return nil, forbidden(msgNotInvolved)
	}
	if rel.State != model.StateAccepted {
		return nil, conflict(msgNotAccepted)
	}
	list, err := tx.TaskListByID(ctx, rel.TaskListID)
	if err != nil {
		return nil, err
	}
	return &taskScope{relation: rel, list: list}, nil
}

// openTask is openRelation plus a check that taskID exists in the list.
func openTask(ctx context.Context, tx repository.Tx, actorID, relationID, taskID uint64) (*taskScope, error) {
	scope, err := openRelation(ctx, tx, actorID, relationID)
	if err != nil {
		return nil, err
	}
	if _, ok := scope.list.FindByID(taskID); !ok {
		return nil, notFound(msgTaskNotFound)
	}
	return scope, nil
}

func validText(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n > 0 && utf8.RuneCountInString(s) <= model.CommentMaxLength
}

// Create appends a task to the relation's list.
func (s *TaskService) Create(ctx context.Context, actorID, relationID uint64, description string) (Result, error) {
	if !validText(description) {
		return Result{}, invalid(msgInvalidDescription)
	}
	var task model.Task
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		scope, err := openRelation(ctx, tx, actorID, relationID)
		if err != nil {
			return err
		}
		task = scope.list.AddTask(description, s.now())
		return tx.SaveTaskList(ctx, scope.list)
	})
	if err != nil {
		return Result{}, err
	}
	return createdResult(msgTaskWasCreated, task.ID), nil
}

// List returns the relation's tasks in insertion order.
func (s *TaskService) List(ctx context.Context, actorID, relationID uint64) ([]model.Task, error) {
	var tasks []model.Task
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		scope, err := openRelation(ctx, tx, actorID, relationID)
		if err != nil {
			return err
		}
		tasks = scope.list.Tasks
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Delete removes one task. Its id is never reused.
func (s *TaskService) Delete(ctx context.Context, actorID, relationID, taskID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		scope, err := openTask(ctx, tx, actorID, relationID, taskID)
		if err != nil {
			return err
		}
		scope.list.DeleteTask(taskID)
		return tx.SaveTaskList(ctx, scope.list)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgTaskWasDeleted), nil
}

// Complete marks a task done and stamps completed_at. Completing a done
// task is a conflict.
func (s *TaskService) Complete(ctx context.Context, actorID, relationID, taskID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		scope, err := openTask(ctx, tx, actorID, relationID, taskID)
		if err != nil {
			return err
		}
		if err := scope.list.CompleteTask(taskID, s.now()); err != nil {
			if errors.Is(err, model.ErrTaskAlreadyDone) {
				return conflict(msgTaskAlreadyDone)
			}
			return notFound(msgTaskNotFound)
		}
		return tx.SaveTaskList(ctx, scope.list)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgTaskWasAchieved), nil
}
