package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskList_AddTaskAssignsSequentialIDs(t *testing.T) {
	l := NewTaskList()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := l.AddTask("read the docs", now)
	second := l.AddTask("write README", now)

	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, uint64(3), l.NextTaskID)
	assert.Len(t, l.Tasks, 2)
	assert.False(t, second.IsDone)
	assert.Nil(t, second.CompletedAt)
}

func TestTaskList_IDsNotReusedAfterDelete(t *testing.T) {
	l := NewTaskList()
	now := time.Now().UTC()

	a := l.AddTask("a", now)
	b := l.AddTask("b", now)
	l.DeleteTask(b.ID)
	l.DeleteTask(a.ID)
	c := l.AddTask("c", now)

	assert.Equal(t, uint64(3), c.ID)
	assert.True(t, l.NextTaskID > c.ID)
}

func TestTaskList_DeleteThenFind(t *testing.T) {
	l := NewTaskList()
	task := l.AddTask("write README", time.Now().UTC())

	l.DeleteTask(task.ID)
	_, ok := l.FindByID(task.ID)

	assert.False(t, ok)
	assert.True(t, l.IsEmpty())
}

func TestTaskList_DeleteUnknownIsNoop(t *testing.T) {
	l := NewTaskList()
	l.AddTask("keep", time.Now().UTC())

	l.DeleteTask(42)

	assert.Len(t, l.Tasks, 1)
}

func TestTaskList_UpdateTaskPartial(t *testing.T) {
	l := NewTaskList()
	task := l.AddTask("old", time.Now().UTC())
	desc := "new"

	l.UpdateTask(task.ID, TaskUpdate{Description: &desc})
	got, ok := l.FindByID(task.ID)

	require.True(t, ok)
	assert.Equal(t, "new", got.Description)
	assert.False(t, got.IsDone)
	assert.Nil(t, got.CompletedAt)

	l.UpdateTask(99, TaskUpdate{Description: &desc})
	assert.Len(t, l.Tasks, 1)
}

func TestTaskList_CompleteTask(t *testing.T) {
	l := NewTaskList()
	task := l.AddTask("ship it", time.Now().UTC())
	doneAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.CompleteTask(task.ID, doneAt))
	got, _ := l.FindByID(task.ID)
	assert.True(t, got.IsDone)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, doneAt, *got.CompletedAt)

	err := l.CompleteTask(task.ID, doneAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrTaskAlreadyDone)
	got, _ = l.FindByID(task.ID)
	assert.Equal(t, doneAt, *got.CompletedAt)

	assert.ErrorIs(t, l.CompleteTask(77, doneAt), ErrTaskNotFound)
}

func TestTaskList_EncodeDecode(t *testing.T) {
	l := NewTaskList()
	l.AddTask("one", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	raw, err := l.EncodeTasks()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version":1`)

	tasks, err := DecodeTasks(raw)
	require.NoError(t, err)
	assert.Equal(t, l.Tasks, tasks)
}

func TestDecodeTasks_EmptyAndBadVersion(t *testing.T) {
	tasks, err := DecodeTasks(nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = DecodeTasks([]byte(`{"version":7,"tasks":[]}`))
	assert.Error(t, err)

	_, err = DecodeTasks([]byte(`not json`))
	assert.Error(t, err)
}
