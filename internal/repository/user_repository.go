package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/mentorship-system/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062

// userRecord mirrors the 'users' table.
type userRecord struct {
	ID                uint64    `db:"id"`
	Name              string    `db:"name"`
	Username          string    `db:"username"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	IsAdmin           bool      `db:"is_admin"`
	AvailableToMentor bool      `db:"available_to_mentor"`
	NeedMentoring     bool      `db:"need_mentoring"`
	IsEmailVerified   bool      `db:"is_email_verified"`
	RegistrationDate  time.Time `db:"registration_date"`
}

const userColumns = "id,name,username,email,password_hash,is_admin,available_to_mentor,need_mentoring,is_email_verified,registration_date"

func (r userRecord) toModel() *model.User {
	return &model.User{
		ID:                r.ID,
		Name:              r.Name,
		Username:          r.Username,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		IsAdmin:           r.IsAdmin,
		AvailableToMentor: r.AvailableToMentor,
		NeedMentoring:     r.NeedMentoring,
		IsEmailVerified:   r.IsEmailVerified,
		RegistrationDate:  r.RegistrationDate,
	}
}

// UserRepo reads and writes the users table through q, which is either
// the pool or an open transaction.
type UserRepo struct{ q sqlx.ExtContext }

func NewUserRepo(q sqlx.ExtContext) *UserRepo { return &UserRepo{q: q} }

// UserByID fetches a user by id.
func (r *UserRepo) UserByID(ctx context.Context, id uint64) (*model.User, error) {
	var rec userRecord
	err := sqlx.GetContext(ctx, r.q, &rec,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// UserByEmail fetches a user by normalized email.
func (r *UserRepo) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rec userRecord
	err := sqlx.GetContext(ctx, r.q, &rec,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

func (r *UserRepo) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var rec userRecord
	err := sqlx.GetContext(ctx, r.q, &rec,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// LockUsers takes row locks on the given users. Must run inside a
// transaction to have any effect.
func (r *UserRepo) LockUsers(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := squirrel.Select("id").From("users").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}
	var locked []uint64
	return sqlx.SelectContext(ctx, r.q, &locked, q, args...)
}

// CreateUser inserts u and assigns its generated ID. Duplicate usernames
// and emails are reported as ErrUsernameExists and ErrEmailExists.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (name, username, email, password_hash, is_admin, available_to_mentor, need_mentoring, is_email_verified, registration_date)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Name, u.Username, u.Email, u.PasswordHash, u.IsAdmin,
		u.AvailableToMentor, u.NeedMentoring, u.IsEmailVerified, u.RegistrationDate)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			if strings.Contains(me.Message, "username") {
				return ErrUsernameExists
			}
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// UpdateUser persists the mutable flags and profile name of u.
func (r *UserRepo) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET name=?, is_admin=?, available_to_mentor=?, need_mentoring=?, is_email_verified=? WHERE id=?`,
		u.Name, u.IsAdmin, u.AvailableToMentor, u.NeedMentoring, u.IsEmailVerified, u.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListAdmins returns every admin ordered by id.
func (r *UserRepo) ListAdmins(ctx context.Context) ([]model.User, error) {
	var recs []userRecord
	if err := sqlx.SelectContext(ctx, r.q, &recs,
		"SELECT "+userColumns+" FROM users WHERE is_admin=1 ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toModel())
	}
	return out, nil
}

// CountAdmins returns the number of admins.
func (r *UserRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM users WHERE is_admin=1")
	return n, err
}

// DeleteUnverifiedBefore removes stale unverified users that no relation
// references.
func (r *UserRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM users
		 WHERE is_email_verified=0 AND registration_date < ?
		   AND NOT EXISTS (SELECT 1 FROM mentorship_relations mr WHERE mr.mentor_id = users.id OR mr.mentee_id = users.id)`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected returns ErrNotFound when an UPDATE or DELETE matched no
// rows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
