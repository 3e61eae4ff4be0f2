package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mentorship-system/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

var relationRow = []string{
	"id", "mentor_id", "mentee_id", "action_user_id", "state", "creation_date",
	"accept_date", "start_date", "end_date", "notes", "tasks_list_id",
}

func TestMySQLStore_WithinTxCommits(t *testing.T) {
	db, mock := newMock(t)
	store := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tasks_list`).
		WithArgs(sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	var list *model.TaskList
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		list = model.NewTaskList()
		return tx.CreateTaskList(context.Background(), list)
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(7), list.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WithinTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewMySQLStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UserByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id=\?`).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.UserByID(context.Background(), 9)

	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UserByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	reg := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id=\?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "username", "email", "password_hash", "is_admin",
			"available_to_mentor", "need_mentoring", "is_email_verified", "registration_date",
		}).AddRow(3, "Ada", "ada", "ada@example.com", "hash", false, true, false, true, reg))

	u, err := repo.UserByID(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, u.AvailableToMentor)
	assert.True(t, u.IsEmailVerified)
	assert.Equal(t, reg, u.RegistrationDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateUserDuplicates(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
	}{
		{name: "username", msg: "Duplicate entry 'ada' for key 'uq_users_username'", want: ErrUsernameExists},
		{name: "email", msg: "Duplicate entry 'ada@example.com' for key 'uq_users_email'", want: ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepo(db)

			mock.ExpectExec(`INSERT INTO users`).
				WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry, Message: tt.msg})

			err := repo.CreateUser(context.Background(), &model.User{Username: "ada", Email: " Ada@Example.com "})

			assert.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_CreateUserNormalisesEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	u := &model.User{Name: "Ada", Username: "ada", Email: " Ada@Example.com "}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("Ada", "ada", "ada@example.com", sqlmock.AnyArg(), false, false, false, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	require.NoError(t, repo.CreateUser(context.Background(), u))
	assert.Equal(t, uint64(12), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_LockUsersOrdersIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE id IN (?,?) ORDER BY id FOR UPDATE`)).
		WithArgs(uint64(4), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(4))

	require.NoError(t, repo.LockUsers(context.Background(), 4, 2))
	require.NoError(t, repo.LockUsers(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateUserMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateUser(context.Background(), &model.User{ID: 5})

	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteUnverifiedBefore(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM users\s+WHERE is_email_verified=0 AND registration_date < \?`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteUnverifiedBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationRepo_RelationByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelationRepo(db)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := created.Add(8 * 7 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM mentorship_relations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(relationRow).
			AddRow(1, 2, 3, 3, "PENDING", created, nil, nil, end, "hi", 10))

	rel, err := repo.RelationByID(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, model.StatePending, rel.State)
	assert.Nil(t, rel.AcceptDate)
	assert.Equal(t, "hi", rel.Notes)
	assert.Equal(t, uint64(10), rel.TaskListID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationRepo_RelationByIDUnknownState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelationRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM mentorship_relations`).
		WillReturnRows(sqlmock.NewRows(relationRow).
			AddRow(1, 2, 3, 3, "ARCHIVED", now, nil, nil, now, nil, 10))

	_, err := repo.RelationByID(context.Background(), 1)

	assert.Error(t, err)
}

func TestRelationRepo_RelationsByUserWithState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelationRepo(db)
	now := time.Now().UTC()
	accepted := model.StateAccepted

	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE ((mentor_id = ? OR mentee_id = ?) AND state = ?) ORDER BY id ASC`)).
		WithArgs(uint64(2), uint64(2), "ACCEPTED").
		WillReturnRows(sqlmock.NewRows(relationRow).
			AddRow(4, 2, 3, 3, "ACCEPTED", now, now, now, now, "", 11).
			AddRow(6, 5, 2, 5, "ACCEPTED", now, now, now, now, "", 12))

	rels, err := repo.RelationsByUser(context.Background(), 2, &accepted)

	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, uint64(4), rels[0].ID)
	require.NotNil(t, rels[1].StartDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationRepo_HasAcceptedRelation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelationRepo(db)

	query := regexp.QuoteMeta(`SELECT id FROM mentorship_relations WHERE state=? AND (mentor_id=? OR mentee_id=?) LIMIT 1 LOCK IN SHARE MODE`)
	mock.ExpectQuery(query).
		WithArgs("ACCEPTED", uint64(8), uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(query).
		WithArgs("ACCEPTED", uint64(9), uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ok, err := repo.HasAcceptedRelation(context.Background(), 8)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasAcceptedRelation(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Accept must see relations committed by a concurrent accept that held the
// user locks first, so the accepted-relation checks are locking reads taken
// after the user locks.
func TestMySQLStore_AcceptChecksAreLockingReads(t *testing.T) {
	db, mock := newMock(t)
	store := NewMySQLStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE id IN (?,?) ORDER BY id FOR UPDATE`)).
		WithArgs(uint64(2), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectQuery(`FROM mentorship_relations WHERE .* LIMIT 1 LOCK IN SHARE MODE$`).
		WithArgs("ACCEPTED", uint64(1), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectRollback()

	errBusy := errors.New("busy")
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		if err := tx.LockUsers(context.Background(), 2, 1); err != nil {
			return err
		}
		busy, err := tx.HasAcceptedRelation(context.Background(), 1)
		if err != nil {
			return err
		}
		if busy {
			return errBusy
		}
		return nil
	})

	assert.ErrorIs(t, err, errBusy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationRepo_DeleteRelationCascades(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRelationRepo(db)

	mock.ExpectExec(`DELETE FROM tasks_comments WHERE relation_id=\?`).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM mentorship_relations WHERE id=\?`).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM tasks_list WHERE id=\?`).
		WithArgs(uint64(30)).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteRelation(context.Background(), &model.Relation{ID: 3, TaskListID: 30})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRepo_RoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskListRepo(db)

	mock.ExpectQuery(`SELECT id, tasks, next_task_id FROM tasks_list WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tasks", "next_task_id"}).
			AddRow(5, []byte(`{"version":1,"tasks":[{"id":2,"description":"x","is_done":false,"created_at":"2026-01-01T00:00:00Z","completed_at":null}]}`), 3))
	mock.ExpectExec(`UPDATE tasks_list SET tasks=\?, next_task_id=\? WHERE id=\?`).
		WithArgs(sqlmock.AnyArg(), uint64(4), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	l, err := repo.TaskListByID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, l.Tasks, 1)
	assert.Equal(t, uint64(2), l.Tasks[0].ID)

	added := l.AddTask("y", time.Now().UTC())
	assert.Equal(t, uint64(3), added.ID)
	require.NoError(t, repo.SaveTaskList(context.Background(), l))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCommentRepo_CommentsByTask(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskCommentRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM tasks_comments WHERE .*relation_id = \? AND task_id = \?.* ORDER BY id ASC`).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "task_id", "relation_id", "comment", "creation_date", "modification_date",
		}).AddRow(1, 9, 2, 1, "looks good", now, nil).AddRow(2, 8, 2, 1, "thanks", now, now))

	comments, err := repo.CommentsByTask(context.Background(), 2, 1)

	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Nil(t, comments[0].ModificationDate)
	assert.NotNil(t, comments[1].ModificationDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCommentRepo_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskCommentRepo(db)

	mock.ExpectExec(`DELETE FROM tasks_comments WHERE id=\?`).
		WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteComment(context.Background(), 4), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
