package service

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

func TestRelationService_CreateSuccess(t *testing.T) {
	f := newFixture(t)
	mentor := f.addUser(t, "ada")
	mentee := f.addUser(t, "bob")

	res, err := f.relations.Create(f.ctx, mentor, CreateRelationInput{
		MentorID: mentor, MenteeID: mentee, EndDate: f.endIn(weeks(8)), Notes: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	rel := f.relation(t, res.ID)
	assert.Equal(t, model.StatePending, rel.State)
	assert.Equal(t, mentor, rel.ActionUserID)
	assert.NotEqual(t, rel.MentorID, rel.MenteeID)
	assert.Equal(t, t0, rel.CreationDate)
	assert.Equal(t, t0.Add(weeks(8)), rel.EndDate)
	assert.Nil(t, rel.AcceptDate)

	tasks, err := f.tasks.List(f.ctx, mentor, res.ID)
	requireKind(t, err, KindConflict) // task list exists but relation is not accepted yet
	assert.Nil(t, tasks)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.KindRelationRequested, events[0].Kind)
	assert.Equal(t, mentee, events[0].RecipientID)
	assert.Equal(t, "bob@example.com", events[0].RecipientEmail)
	assert.Equal(t, res.ID, events[0].RelationID)
}

func TestRelationService_CreateFailures(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	busyMentor := f.addUser(t, "carol")
	busyMentee := f.addUser(t, "dave")
	f.accepted(t, busyMentor, busyMentee)
	noMentor := f.addUser(t, "erin", func(u *model.User) { u.AvailableToMentor = false })
	noMentee := f.addUser(t, "frank", func(u *model.User) { u.NeedMentoring = false })
	ghost := f.addUser(t, "ghost", unverified)

	tests := []struct {
		name  string
		actor uint64
		in    CreateRelationInput
		kind  Kind
	}{
		{"actor not a party", busyMentee, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(weeks(8))}, KindInvalidRequest},
		{"mentor equals mentee", ada, CreateRelationInput{MentorID: ada, MenteeID: ada, EndDate: f.endIn(weeks(8))}, KindInvalidRequest},
		{"end date not a number", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: math.NaN()}, KindInvalidRequest},
		{"end date zero", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: 0}, KindInvalidRequest},
		{"end date in the past", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(-time.Hour)}, KindInvalidRequest},
		{"shorter than four weeks", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(weeks(4) - time.Second)}, KindInvalidRequest},
		{"longer than twenty four weeks", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(weeks(24) + time.Second)}, KindInvalidRequest},
		{"notes too long", ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(weeks(8)), Notes: strings.Repeat("n", 401)}, KindInvalidRequest},
		{"mentor missing", ada, CreateRelationInput{MentorID: 999, MenteeID: ada, EndDate: f.endIn(weeks(8))}, KindNotFound},
		{"mentee missing", ada, CreateRelationInput{MentorID: ada, MenteeID: 999, EndDate: f.endIn(weeks(8))}, KindNotFound},
		{"mentor not available", bob, CreateRelationInput{MentorID: noMentor, MenteeID: bob, EndDate: f.endIn(weeks(8))}, KindPreconditionFailed},
		{"mentee not needing mentoring", ada, CreateRelationInput{MentorID: ada, MenteeID: noMentee, EndDate: f.endIn(weeks(8))}, KindPreconditionFailed},
		{"mentor already accepted", ada, CreateRelationInput{MentorID: busyMentor, MenteeID: ada, EndDate: f.endIn(weeks(8))}, KindPreconditionFailed},
		{"mentee already accepted", ada, CreateRelationInput{MentorID: ada, MenteeID: busyMentee, EndDate: f.endIn(weeks(8))}, KindPreconditionFailed},
		{"actor email not verified", ghost, CreateRelationInput{MentorID: ghost, MenteeID: bob, EndDate: f.endIn(weeks(8))}, KindForbidden},
		{"actor missing", 999, CreateRelationInput{MentorID: 999, MenteeID: bob, EndDate: f.endIn(weeks(8))}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.relations.Create(f.ctx, tt.actor, tt.in)
			requireKind(t, err, tt.kind)
		})
	}

	// Failed requests leave nothing behind.
	all, err := f.relations.List(f.ctx, ada, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRelationService_CreateDurationBoundsInclusive(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")

	_, err := f.relations.Create(f.ctx, ada, CreateRelationInput{MentorID: ada, MenteeID: bob, EndDate: f.endIn(weeks(4))})
	require.NoError(t, err)
	_, err = f.relations.Create(f.ctx, ada, CreateRelationInput{MentorID: ada, MenteeID: carol, EndDate: f.endIn(weeks(24))})
	require.NoError(t, err)
}

func TestRelationService_AcceptCancelScenario(t *testing.T) {
	f := newFixture(t)
	mentor := f.addUser(t, "ada")
	mentee := f.addUser(t, "bob")

	id := f.request(t, mentor, mentor, mentee)
	f.clock.Advance(time.Hour)

	res, err := f.relations.Accept(f.ctx, mentee, id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	rel := f.relation(t, id)
	assert.Equal(t, model.StateAccepted, rel.State)
	require.NotNil(t, rel.AcceptDate)
	require.NotNil(t, rel.StartDate)
	assert.Equal(t, t0.Add(time.Hour), *rel.AcceptDate)

	events := f.notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, queue.KindRelationAccepted, events[1].Kind)
	assert.Equal(t, mentor, events[1].RecipientID)

	res, err = f.relations.Cancel(f.ctx, mentor, id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, model.StateCancelled, f.relation(t, id).State)

	_, err = f.relations.Accept(f.ctx, mentee, id)
	requireKind(t, err, KindConflict)
}

func TestRelationService_AcceptGuards(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	outsider := f.addUser(t, "eve")
	id := f.request(t, ada, ada, bob)

	_, err := f.relations.Accept(f.ctx, ada, id)
	requireKind(t, err, KindForbidden)

	_, err = f.relations.Accept(f.ctx, outsider, id)
	requireKind(t, err, KindForbidden)

	_, err = f.relations.Accept(f.ctx, bob, 404)
	requireKind(t, err, KindNotFound)

	assert.Equal(t, model.StatePending, f.relation(t, id).State)
}

func TestRelationService_AcceptRespectsSingleAcceptedRelation(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	dave := f.addUser(t, "dave")

	adaBob := f.request(t, ada, ada, bob)
	adaCarol := f.request(t, ada, ada, carol)
	daveBob := f.request(t, dave, dave, bob)

	_, err := f.relations.Accept(f.ctx, bob, adaBob)
	require.NoError(t, err)

	// bob is already in an accepted relation.
	_, err = f.relations.Accept(f.ctx, bob, daveBob)
	requireKind(t, err, KindForbidden)

	// ada, the counterparty, is already in an accepted relation.
	_, err = f.relations.Accept(f.ctx, carol, adaCarol)
	requireKind(t, err, KindForbidden)

	accepted, err := f.relations.List(f.ctx, ada, "accepted")
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
}

func TestRelationService_ConcurrentAcceptsSerialize(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	first := f.request(t, ada, ada, bob)
	second := f.request(t, ada, ada, carol)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tc := range []struct{ actor, id uint64 }{{bob, first}, {carol, second}} {
		wg.Add(1)
		go func(i int, actor, id uint64) {
			defer wg.Done()
			_, errs[i] = f.relations.Accept(f.ctx, actor, id)
		}(i, tc.actor, tc.id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrForbidden), err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRelationService_Reject(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	eve := f.addUser(t, "eve")
	id := f.request(t, bob, ada, bob)

	_, err := f.relations.Reject(f.ctx, bob, id)
	requireKind(t, err, KindForbidden)
	_, err = f.relations.Reject(f.ctx, eve, id)
	requireKind(t, err, KindForbidden)

	res, err := f.relations.Reject(f.ctx, ada, id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, model.StateRejected, f.relation(t, id).State)

	_, err = f.relations.Reject(f.ctx, ada, id)
	requireKind(t, err, KindConflict)
	_, err = f.relations.Cancel(f.ctx, ada, id)
	requireKind(t, err, KindConflict)
}

func TestRelationService_CancelGuards(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	eve := f.addUser(t, "eve")
	pending := f.request(t, ada, ada, bob)

	_, err := f.relations.Cancel(f.ctx, ada, pending)
	requireKind(t, err, KindConflict)

	_, err = f.relations.Accept(f.ctx, bob, pending)
	require.NoError(t, err)
	_, err = f.relations.Cancel(f.ctx, eve, pending)
	requireKind(t, err, KindForbidden)

	// Either participant may cancel, including the receiver.
	_, err = f.relations.Cancel(f.ctx, bob, pending)
	require.NoError(t, err)
}

func TestRelationService_Delete(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	id := f.request(t, ada, ada, bob)
	rel := f.relation(t, id)

	_, err := f.relations.Delete(f.ctx, bob, id)
	requireKind(t, err, KindForbidden)

	res, err := f.relations.Delete(f.ctx, ada, id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	_, err = f.relations.Delete(f.ctx, ada, id)
	requireKind(t, err, KindNotFound)
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx repository.Tx) error {
		_, err := tx.TaskListByID(f.ctx, rel.TaskListID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	}))

	accepted := f.accepted(t, ada, bob)
	_, err = f.relations.Delete(f.ctx, ada, accepted)
	requireKind(t, err, KindConflict)
}

func TestRelationService_ListAnnotatesSentByMe(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	sent := f.request(t, ada, ada, bob)
	received := f.request(t, carol, carol, ada)

	views, err := f.relations.List(f.ctx, ada, "")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, sent, views[0].ID)
	assert.True(t, views[0].SentByMe)
	assert.Equal(t, received, views[1].ID)
	assert.False(t, views[1].SentByMe)

	views, err = f.relations.List(f.ctx, ada, "PENDING")
	require.NoError(t, err)
	assert.Len(t, views, 2)
	views, err = f.relations.List(f.ctx, ada, "completed")
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = f.relations.List(f.ctx, ada, "ARCHIVED")
	requireKind(t, err, KindInvalidRequest)
}

func TestRelationService_CurrentPendingPast(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")

	cur, err := f.relations.Current(f.ctx, ada)
	require.NoError(t, err)
	assert.Nil(t, cur)

	pending := f.request(t, carol, carol, ada)
	active := f.accepted(t, ada, bob)

	cur, err = f.relations.Current(f.ctx, ada)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, active, cur.ID)
	assert.True(t, cur.SentByMe)

	pend, err := f.relations.Pending(f.ctx, ada)
	require.NoError(t, err)
	require.Len(t, pend, 1)
	assert.Equal(t, pending, pend[0].ID)
	assert.False(t, pend[0].SentByMe)

	past, err := f.relations.Past(f.ctx, ada)
	require.NoError(t, err)
	assert.Empty(t, past)

	f.clock.Advance(weeks(9))

	pend, err = f.relations.Pending(f.ctx, ada)
	require.NoError(t, err)
	assert.Empty(t, pend)
	past, err = f.relations.Past(f.ctx, ada)
	require.NoError(t, err)
	assert.Len(t, past, 2)
}

func TestRelationService_CurrentIsFirstAcceptedByID(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "ada")

	// Two ACCEPTED rows can only exist through direct writes; the first one
	// in storage order wins.
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx repository.Tx) error {
		for _, other := range []uint64{10, 11} {
			r := &model.Relation{MentorID: ada, MenteeID: other, ActionUserID: other, State: model.StateAccepted, EndDate: t0.Add(weeks(5))}
			if err := tx.CreateRelation(f.ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	cur, err := f.relations.Current(f.ctx, ada)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, uint64(1), cur.ID)
}

func TestRelationService_NotifierFailureKeepsMutation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	ada := f.addUser(t, "ada")
	bob := f.addUser(t, "bob")

	id := f.request(t, ada, ada, bob)
	_, err := f.relations.Accept(f.ctx, bob, id)

	require.NoError(t, err)
	assert.Equal(t, model.StateAccepted, f.relation(t, id).State)
}
