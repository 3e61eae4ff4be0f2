package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/mentorship-system/internal/model"
)

// relationRecord mirrors the 'mentorship_relations' table.
type relationRecord struct {
	ID           uint64         `db:"id"`
	MentorID     uint64         `db:"mentor_id"`
	MenteeID     uint64         `db:"mentee_id"`
	ActionUserID uint64         `db:"action_user_id"`
	State        string         `db:"state"`
	CreationDate time.Time      `db:"creation_date"`
	AcceptDate   sql.NullTime   `db:"accept_date"`
	StartDate    sql.NullTime   `db:"start_date"`
	EndDate      time.Time      `db:"end_date"`
	Notes        sql.NullString `db:"notes"`
	TaskListID   uint64         `db:"tasks_list_id"`
}

var relationColumns = []string{
	"id", "mentor_id", "mentee_id", "action_user_id", "state", "creation_date",
	"accept_date", "start_date", "end_date", "notes", "tasks_list_id",
}

func (r relationRecord) toModel() (*model.Relation, error) {
	st, err := model.ParseRelationState(r.State)
	if err != nil {
		return nil, fmt.Errorf("relation %d: %w", r.ID, err)
	}
	rel := &model.Relation{
		ID:           r.ID,
		MentorID:     r.MentorID,
		MenteeID:     r.MenteeID,
		ActionUserID: r.ActionUserID,
		State:        st,
		CreationDate: r.CreationDate,
		EndDate:      r.EndDate,
		Notes:        r.Notes.String,
		TaskListID:   r.TaskListID,
	}
	if r.AcceptDate.Valid {
		t := r.AcceptDate.Time
		rel.AcceptDate = &t
	}
	if r.StartDate.Valid {
		t := r.StartDate.Time
		rel.StartDate = &t
	}
	return rel, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// RelationRepo reads and writes mentorship relations.
type RelationRepo struct{ q sqlx.ExtContext }

func NewRelationRepo(q sqlx.ExtContext) *RelationRepo { return &RelationRepo{q: q} }

// CreateRelation inserts r and assigns its generated ID.
func (r *RelationRepo) CreateRelation(ctx context.Context, rel *model.Relation) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO mentorship_relations
		 (mentor_id, mentee_id, action_user_id, state, creation_date, accept_date, start_date, end_date, notes, tasks_list_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rel.MentorID, rel.MenteeID, rel.ActionUserID, rel.State.String(),
		rel.CreationDate.UTC(), nullTime(rel.AcceptDate), nullTime(rel.StartDate),
		rel.EndDate.UTC(), rel.Notes, rel.TaskListID)
	if err != nil {
		return fmt.Errorf("insert relation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rel.ID = uint64(id)
	return nil
}

// RelationByID loads a relation with a row lock.
func (r *RelationRepo) RelationByID(ctx context.Context, id uint64) (*model.Relation, error) {
	q, args, err := squirrel.Select(relationColumns...).
		From("mentorship_relations").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rec relationRecord
	if err := sqlx.GetContext(ctx, r.q, &rec, q, args...); err != nil {
		return nil, notFound(err)
	}
	return rec.toModel()
}

// UpdateRelation persists state and dates. Participants, end date and the
// owned task list never change after creation.
func (r *RelationRepo) UpdateRelation(ctx context.Context, rel *model.Relation) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE mentorship_relations SET state=?, accept_date=?, start_date=? WHERE id=?`,
		rel.State.String(), nullTime(rel.AcceptDate), nullTime(rel.StartDate), rel.ID)
	if err != nil {
		return fmt.Errorf("update relation: %w", err)
	}
	return requireAffected(res)
}

// DeleteRelation removes the relation, its comments and its task list.
func (r *RelationRepo) DeleteRelation(ctx context.Context, rel *model.Relation) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM tasks_comments WHERE relation_id=?`, rel.ID); err != nil {
		return fmt.Errorf("delete relation comments: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM mentorship_relations WHERE id=?`, rel.ID)
	if err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM tasks_list WHERE id=?`, rel.TaskListID); err != nil {
		return fmt.Errorf("delete task list: %w", err)
	}
	return nil
}

// RelationsByUser returns the relations where userID is mentor or mentee,
// optionally filtered by state, in ascending id order.
func (r *RelationRepo) RelationsByUser(ctx context.Context, userID uint64, state *model.RelationState) ([]model.Relation, error) {
	where := squirrel.And{squirrel.Or{
		squirrel.Eq{"mentor_id": userID},
		squirrel.Eq{"mentee_id": userID},
	}}
	if state != nil {
		where = append(where, squirrel.Eq{"state": state.String()})
	}
	q, args, err := squirrel.Select(relationColumns...).
		From("mentorship_relations").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.selectRelations(ctx, q, args...)
}

// HasAcceptedRelation reports whether userID takes part in an ACCEPTED
// relation. The read is locking so it sees rows committed after the
// transaction's snapshot was taken.
func (r *RelationRepo) HasAcceptedRelation(ctx context.Context, userID uint64) (bool, error) {
	var id uint64
	err := sqlx.GetContext(ctx, r.q, &id,
		`SELECT id FROM mentorship_relations WHERE state=? AND (mentor_id=? OR mentee_id=?) LIMIT 1 LOCK IN SHARE MODE`,
		model.StateAccepted.String(), userID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ExpiredAcceptedRelations returns ACCEPTED relations whose end date is
// before now, locked for update.
func (r *RelationRepo) ExpiredAcceptedRelations(ctx context.Context, now time.Time) ([]model.Relation, error) {
	q, args, err := squirrel.Select(relationColumns...).
		From("mentorship_relations").
		Where(squirrel.Eq{"state": model.StateAccepted.String()}).
		Where(squirrel.Lt{"end_date": now.UTC()}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.selectRelations(ctx, q, args...)
}

func (r *RelationRepo) selectRelations(ctx context.Context, q string, args ...interface{}) ([]model.Relation, error) {
	var recs []relationRecord
	if err := sqlx.SelectContext(ctx, r.q, &recs, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.Relation, 0, len(recs))
	for _, rec := range recs {
		rel, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *rel)
	}
	return out, nil
}
