package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func weeks(n int) time.Duration { return time.Duration(n) * 7 * 24 * time.Hour }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []queue.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.NotificationEvent(nil), n.events...)
}

type fixture struct {
	ctx       context.Context
	store     *repository.MemoryStore
	clock     *fakeClock
	notifier  *recordingNotifier
	relations *RelationService
	tasks     *TaskService
	comments  *CommentService
	users     *UserService
	admins    *AdminService
	sweep     *ExpirationSweep
	purge     *UnverifiedUserPurge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &fakeClock{now: t0}
	n := &recordingNotifier{}
	return &fixture{
		ctx:       context.Background(),
		store:     store,
		clock:     clock,
		notifier:  n,
		relations: NewRelationService(store, n, clock.Now),
		tasks:     NewTaskService(store, clock.Now),
		comments:  NewCommentService(store, clock.Now),
		users: NewUserService(store, n, clock.Now, UserConfig{
			TokenSecret:     "test-secret",
			EmailTokenTTL:   24 * time.Hour,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:      4,
		}),
		admins: NewAdminService(store),
		sweep:  NewExpirationSweep(store, clock.Now),
		purge:  NewUnverifiedUserPurge(store, clock.Now, 30*24*time.Hour),
	}
}

// addUser stores a verified user who can both mentor and be mentored.
func (f *fixture) addUser(t *testing.T, username string, opts ...func(*model.User)) uint64 {
	t.Helper()
	u := &model.User{
		Name:              username,
		Username:          username,
		Email:             username + "@example.com",
		PasswordHash:      "x",
		AvailableToMentor: true,
		NeedMentoring:     true,
		IsEmailVerified:   true,
		RegistrationDate:  f.clock.Now(),
	}
	for _, o := range opts {
		o(u)
	}
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx repository.Tx) error {
		return tx.CreateUser(f.ctx, u)
	}))
	return u.ID
}

func unverified(u *model.User) { u.IsEmailVerified = false }
func admin(u *model.User)      { u.IsAdmin = true }

func (f *fixture) endIn(d time.Duration) float64 {
	return float64(f.clock.Now().Add(d).Unix())
}

// request creates a PENDING relation sent by actor and returns its id.
func (f *fixture) request(t *testing.T, actor, mentor, mentee uint64) uint64 {
	t.Helper()
	res, err := f.relations.Create(f.ctx, actor, CreateRelationInput{
		MentorID: mentor,
		MenteeID: mentee,
		EndDate:  f.endIn(weeks(8)),
		Notes:    "let's work together",
	})
	require.NoError(t, err)
	require.NotZero(t, res.ID)
	return res.ID
}

// accepted creates a relation mentor -> mentee and accepts it as mentee.
func (f *fixture) accepted(t *testing.T, mentor, mentee uint64) uint64 {
	t.Helper()
	id := f.request(t, mentor, mentor, mentee)
	_, err := f.relations.Accept(f.ctx, mentee, id)
	require.NoError(t, err)
	return id
}

func (f *fixture) relation(t *testing.T, id uint64) *model.Relation {
	t.Helper()
	var rel *model.Relation
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx repository.Tx) error {
		var err error
		rel, err = tx.RelationByID(f.ctx, id)
		return err
	}))
	return rel
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "expected *service.Error, got %T: %v", err, err)
	require.Equal(t, kind, se.Kind, se.Message)
}
