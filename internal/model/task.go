package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TaskListSchemaVersion tags the JSON document stored in tasks_list.tasks.
const TaskListSchemaVersion = 1

var (
	// ErrTaskNotFound is returned when no task carries the requested id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskAlreadyDone is returned when completing a finished task.
	ErrTaskAlreadyDone = errors.New("task already done")
)

// Task is one entry of a relation's task list.
type Task struct {
	ID          uint64     `json:"id"`
	Description string     `json:"description"`
	IsDone      bool       `json:"is_done"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskUpdate carries the fields of a partial update. Nil fields are left
// untouched.
type TaskUpdate struct {
	Description *string
	IsDone      *bool
	CompletedAt *time.Time
}

// TaskList is the ordered set of tasks owned by a single relation.
// NextTaskID only ever grows so ids stay unique after deletions.
type TaskList struct {
	ID         uint64 // tasks_list.id
	Tasks      []Task // tasks_list.tasks (versioned JSON)
	NextTaskID uint64 // tasks_list.next_task_id
}

// NewTaskList returns an empty list whose first task will get id 1.
func NewTaskList() *TaskList {
	return &TaskList{Tasks: []Task{}, NextTaskID: 1}
}

// AddTask appends a task with the next unused id and returns it.
func (l *TaskList) AddTask(description string, createdAt time.Time) Task {
	if l.NextTaskID == 0 {
		l.NextTaskID = 1
	}
	t := Task{
		ID:          l.NextTaskID,
		Description: description,
		CreatedAt:   createdAt,
	}
	l.NextTaskID++
	l.Tasks = append(l.Tasks, t)
	return t
}

// UpdateTask applies u to the task with the given id. Unknown ids are
// ignored; callers check existence first.
func (l *TaskList) UpdateTask(id uint64, u TaskUpdate) {
	for i := range l.Tasks {
		if l.Tasks[i].ID != id {
			continue
		}
		if u.Description != nil {
			l.Tasks[i].Description = *u.Description
		}
		if u.IsDone != nil {
			l.Tasks[i].IsDone = *u.IsDone
		}
		if u.CompletedAt != nil {
			ts := *u.CompletedAt
			l.Tasks[i].CompletedAt = &ts
		}
		return
	}
}

// DeleteTask removes the task with the given id, if present.
func (l *TaskList) DeleteTask(id uint64) {
	kept := make([]Task, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	l.Tasks = kept
}

// FindByID returns a copy of the task with the given id.
func (l *TaskList) FindByID(id uint64) (Task, bool) {
	for _, t := range l.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// CompleteTask marks a task as done and stamps its completion time.
func (l *TaskList) CompleteTask(id uint64, now time.Time) error {
	t, ok := l.FindByID(id)
	if !ok {
		return ErrTaskNotFound
	}
	if t.IsDone {
		return ErrTaskAlreadyDone
	}
	done := true
	l.UpdateTask(id, TaskUpdate{IsDone: &done, CompletedAt: &now})
	return nil
}

// IsEmpty reports whether the list has no tasks.
func (l *TaskList) IsEmpty() bool { return len(l.Tasks) == 0 }

type taskDocument struct {
	Version int    `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// EncodeTasks serialises the tasks into the stored document format.
func (l *TaskList) EncodeTasks() ([]byte, error) {
	tasks := l.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return json.Marshal(taskDocument{Version: TaskListSchemaVersion, Tasks: tasks})
}

// DecodeTasks parses a stored document. An empty column decodes to an
// empty list.
func DecodeTasks(raw []byte) ([]Task, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Task{}, nil
	}
	var doc taskDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if doc.Version != TaskListSchemaVersion {
		return nil, fmt.Errorf("decode tasks: unsupported schema version %d", doc.Version)
	}
	if doc.Tasks == nil {
		doc.Tasks = []Task{}
	}
	return doc.Tasks, nil
}
