package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/mentorship-system/internal/model"
)

// MemoryStore keeps everything in process memory. A single mutex is held
// for the duration of each unit of work; a failed unit restores the
// snapshot taken when it started.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	users     map[uint64]model.User
	relations map[uint64]model.Relation
	lists     map[uint64]model.TaskList
	comments  map[uint64]model.TaskComment
	tokens    map[string]memToken

	lastUserID     uint64
	lastRelationID uint64
	lastListID     uint64
	lastCommentID  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		users:     make(map[uint64]model.User),
		relations: make(map[uint64]model.Relation),
		lists:     make(map[uint64]model.TaskList),
		comments:  make(map[uint64]model.TaskComment),
		tokens:    make(map[string]memToken),
	}}
}

func (s *memState) clone() *memState {
	c := *s
	c.users = make(map[uint64]model.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.relations = make(map[uint64]model.Relation, len(s.relations))
	for k, v := range s.relations {
		c.relations[k] = v
	}
	c.lists = make(map[uint64]model.TaskList, len(s.lists))
	for k, v := range s.lists {
		c.lists[k] = copyList(v)
	}
	c.comments = make(map[uint64]model.TaskComment, len(s.comments))
	for k, v := range s.comments {
		c.comments[k] = v
	}
	c.tokens = make(map[string]memToken, len(s.tokens))
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return &c
}

func copyList(l model.TaskList) model.TaskList {
	tasks := make([]model.Task, len(l.Tasks))
	copy(tasks, l.Tasks)
	l.Tasks = tasks
	return l
}

// WithinTx runs fn with exclusive access to the store.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&memTx{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

type memTx struct{ st *memState }

func (t *memTx) UserByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) UserByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range t.st.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range t.st.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// LockUsers is a no-op; the store mutex already serialises units of work.
func (t *memTx) LockUsers(context.Context, ...uint64) error { return nil }

func (t *memTx) CreateUser(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range t.st.users {
		if other.Username == u.Username {
			return ErrUsernameExists
		}
		if other.Email == u.Email {
			return ErrEmailExists
		}
	}
	t.st.lastUserID++
	u.ID = t.st.lastUserID
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) UpdateUser(_ context.Context, u *model.User) error {
	cur, ok := t.st.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = u.Name
	cur.IsAdmin = u.IsAdmin
	cur.AvailableToMentor = u.AvailableToMentor
	cur.NeedMentoring = u.NeedMentoring
	cur.IsEmailVerified = u.IsEmailVerified
	t.st.users[u.ID] = cur
	return nil
}

func (t *memTx) ListAdmins(context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range t.st.users {
		if u.IsAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CountAdmins(ctx context.Context) (int, error) {
	admins, _ := t.ListAdmins(ctx)
	return len(admins), nil
}

func (t *memTx) DeleteUnverifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	referenced := make(map[uint64]bool)
	for _, r := range t.st.relations {
		referenced[r.MentorID] = true
		referenced[r.MenteeID] = true
	}
	var n int64
	for id, u := range t.st.users {
		if u.IsEmailVerified || !u.RegistrationDate.Before(cutoff) || referenced[id] {
			continue
		}
		delete(t.st.users, id)
		for cid, c := range t.st.comments {
			if c.UserID == id {
				delete(t.st.comments, cid)
			}
		}
		for h, tok := range t.st.tokens {
			if tok.userID == id {
				delete(t.st.tokens, h)
			}
		}
		n++
	}
	return n, nil
}

func (t *memTx) CreateRelation(_ context.Context, r *model.Relation) error {
	t.st.lastRelationID++
	r.ID = t.st.lastRelationID
	t.st.relations[r.ID] = *r
	return nil
}

func (t *memTx) RelationByID(_ context.Context, id uint64) (*model.Relation, error) {
	r, ok := t.st.relations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) UpdateRelation(_ context.Context, r *model.Relation) error {
	cur, ok := t.st.relations[r.ID]
	if !ok {
		return ErrNotFound
	}
	cur.State = r.State
	cur.AcceptDate = r.AcceptDate
	cur.StartDate = r.StartDate
	t.st.relations[r.ID] = cur
	return nil
}

func (t *memTx) DeleteRelation(_ context.Context, r *model.Relation) error {
	if _, ok := t.st.relations[r.ID]; !ok {
		return ErrNotFound
	}
	for id, c := range t.st.comments {
		if c.RelationID == r.ID {
			delete(t.st.comments, id)
		}
	}
	delete(t.st.relations, r.ID)
	delete(t.st.lists, r.TaskListID)
	return nil
}

func (t *memTx) RelationsByUser(_ context.Context, userID uint64, state *model.RelationState) ([]model.Relation, error) {
	out := []model.Relation{}
	for _, r := range t.st.relations {
		if !r.IsParticipant(userID) {
			continue
		}
		if state != nil && r.State != *state {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) HasAcceptedRelation(_ context.Context, userID uint64) (bool, error) {
	for _, r := range t.st.relations {
		if r.State == model.StateAccepted && r.IsParticipant(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ExpiredAcceptedRelations(_ context.Context, now time.Time) ([]model.Relation, error) {
	out := []model.Relation{}
	for _, r := range t.st.relations {
		if r.State == model.StateAccepted && r.HasEnded(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateTaskList(_ context.Context, l *model.TaskList) error {
	if l.NextTaskID == 0 {
		l.NextTaskID = 1
	}
	t.st.lastListID++
	l.ID = t.st.lastListID
	t.st.lists[l.ID] = copyList(*l)
	return nil
}

func (t *memTx) TaskListByID(_ context.Context, id uint64) (*model.TaskList, error) {
	l, ok := t.st.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	l = copyList(l)
	return &l, nil
}

func (t *memTx) SaveTaskList(_ context.Context, l *model.TaskList) error {
	if _, ok := t.st.lists[l.ID]; !ok {
		return ErrNotFound
	}
	t.st.lists[l.ID] = copyList(*l)
	return nil
}

func (t *memTx) CreateComment(_ context.Context, c *model.TaskComment) error {
	t.st.lastCommentID++
	c.ID = t.st.lastCommentID
	t.st.comments[c.ID] = *c
	return nil
}

func (t *memTx) CommentByID(_ context.Context, id uint64) (*model.TaskComment, error) {
	c, ok := t.st.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memTx) CommentsByTask(_ context.Context, taskID, relationID uint64) ([]model.TaskComment, error) {
	return t.filterComments(func(c model.TaskComment) bool {
		return c.TaskID == taskID && c.RelationID == relationID
	}), nil
}

func (t *memTx) CommentsByUser(_ context.Context, userID uint64) ([]model.TaskComment, error) {
	return t.filterComments(func(c model.TaskComment) bool { return c.UserID == userID }), nil
}

func (t *memTx) UpdateComment(_ context.Context, c *model.TaskComment) error {
	cur, ok := t.st.comments[c.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Comment = c.Comment
	cur.ModificationDate = c.ModificationDate
	t.st.comments[c.ID] = cur
	return nil
}

func (t *memTx) DeleteComment(_ context.Context, id uint64) error {
	if _, ok := t.st.comments[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.comments, id)
	return nil
}

func (t *memTx) filterComments(keep func(model.TaskComment) bool) []model.TaskComment {
	out := []model.TaskComment{}
	for _, c := range t.st.comments {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func (t *memTx) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	t.st.tokens[tokenHash] = memToken{userID: userID, exp: exp}
	return nil
}

func (t *memTx) RefreshOwner(_ context.Context, tokenHash string, now time.Time) (uint64, error) {
	tok, ok := t.st.tokens[tokenHash]
	if !ok || tok.revoked || !now.Before(tok.exp) {
		return 0, ErrNotFound
	}
	return tok.userID, nil
}

func (t *memTx) RevokeRefresh(_ context.Context, tokenHash string, _ time.Time) error {
	if tok, ok := t.st.tokens[tokenHash]; ok {
		tok.revoked = true
		t.st.tokens[tokenHash] = tok
	}
	return nil
}

func (t *memTx) RevokeAllRefresh(_ context.Context, userID uint64, _ time.Time) error {
	for h, tok := range t.st.tokens {
		if tok.userID == userID {
			tok.revoked = true
			t.st.tokens[h] = tok
		}
	}
	return nil
}
