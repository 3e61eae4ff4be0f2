package service

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// Bounds on end_date - now when a relation is requested.
const (
	MinRelationDuration = 4 * 7 * 24 * time.Hour
	MaxRelationDuration = 24 * 7 * 24 * time.Hour
)

// CreateRelationInput is the body of a mentorship request. EndDate is a
// unix timestamp in seconds.
type CreateRelationInput struct {
	MentorID uint64
	MenteeID uint64
	EndDate  float64
	Notes    string
}

// RelationService drives the relation state machine and answers the
// registry queries.
type RelationService struct {
	store    repository.Store
	notifier Notifier
	now      Clock
}

func NewRelationService(store repository.Store, notifier Notifier, clock Clock) *RelationService {
	if clock == nil {
		clock = SystemClock
	}
	return &RelationService{store: store, notifier: notifier, now: clock}
}

// maxUnixSeconds is 9999-12-31T23:59:59Z.
const maxUnixSeconds = 253402300799

// parseEndDate converts a unix timestamp in seconds into a UTC time.
func parseEndDate(ts float64) (time.Time, bool) {
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts <= 0 || ts > maxUnixSeconds {
		return time.Time{}, false
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Create sends a mentorship request from actorID, who must be either the
// mentor or the mentee. The relation starts PENDING with an empty task
// list.
func (s *RelationService) Create(ctx context.Context, actorID uint64, in CreateRelationInput) (Result, error) {
	var (
		rel              model.Relation
		sender, receiver *model.User
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		if actorID != in.MentorID && actorID != in.MenteeID {
			return invalid(msgMatchMentorOrMentee)
		}
		if in.MentorID == in.MenteeID {
			return invalid(msgMentorSameAsMentee)
		}
		end, ok := parseEndDate(in.EndDate)
		if !ok {
			return invalid(msgInvalidEndDate)
		}
		now := s.now()
		if end.Before(now) {
			return invalid(msgEndDateInPast)
		}
		switch d := end.Sub(now); {
		case d > MaxRelationDuration:
			return invalid(msgDurationTooLong)
		case d < MinRelationDuration:
			return invalid(msgDurationTooShort)
		}
		if utf8.RuneCountInString(in.Notes) > model.CommentMaxLength {
			return invalid(msgNotesTooLong)
		}

		if err := tx.LockUsers(ctx, in.MentorID, in.MenteeID); err != nil {
			return err
		}
		mentor, err := tx.UserByID(ctx, in.MentorID)
		if err != nil {
			return orNotFound(err, msgMentorNotFound)
		}
		if !mentor.AvailableToMentor {
			return precondition(msgMentorNotAvailable)
		}
		mentee, err := tx.UserByID(ctx, in.MenteeID)
		if err != nil {
			return orNotFound(err, msgMenteeNotFound)
		}
		if !mentee.NeedMentoring {
			return precondition(msgMenteeNotAvailable)
		}
		if busy, err := tx.HasAcceptedRelation(ctx, mentor.ID); err != nil {
			return err
		} else if busy {
			return precondition(msgMentorInRelation)
		}
		if busy, err := tx.HasAcceptedRelation(ctx, mentee.ID); err != nil {
			return err
		} else if busy {
			return precondition(msgMenteeInRelation)
		}

		list := model.NewTaskList()
		if err := tx.CreateTaskList(ctx, list); err != nil {
			return err
		}
		rel = model.Relation{
			MentorID:     mentor.ID,
			MenteeID:     mentee.ID,
			ActionUserID: actorID,
			State:        model.StatePending,
			CreationDate: now,
			EndDate:      end,
			Notes:        in.Notes,
			TaskListID:   list.ID,
		}
		if err := tx.CreateRelation(ctx, &rel); err != nil {
			return err
		}
		sender, receiver = mentor, mentee
		if actorID == mentee.ID {
			sender, receiver = mentee, mentor
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	notify(ctx, s.notifier, queue.NotificationEvent{
		Kind:           queue.KindRelationRequested,
		RecipientID:    receiver.ID,
		RecipientName:  receiver.Name,
		RecipientEmail: receiver.Email,
		ActorID:        sender.ID,
		ActorName:      sender.Name,
		RelationID:     rel.ID,
	})
	return createdResult(msgRelationWasSent, rel.ID), nil
}

// Accept moves a PENDING relation to ACCEPTED. Only the receiver may
// accept, and neither participant may already be in an ACCEPTED relation.
func (s *RelationService) Accept(ctx context.Context, actorID, relationID uint64) (Result, error) {
	var (
		rel    *model.Relation
		actor  *model.User
		sender *model.User
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if actor, err = loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		if rel, err = tx.RelationByID(ctx, relationID); err != nil {
			return orNotFound(err, msgRelationNotFound)
		}
		if rel.State != model.StatePending {
			return conflict(msgNotPending)
		}
		if rel.ActionUserID == actorID {
			return forbidden(msgCantAcceptOwnRequest)
		}
		if !rel.IsParticipant(actorID) {
			return forbidden(msgCantAcceptUninvolved)
		}

		// Serialise against any other accept touching either participant.
		if err := tx.LockUsers(ctx, rel.MentorID, rel.MenteeID); err != nil {
			return err
		}
		if busy, err := tx.HasAcceptedRelation(ctx, actorID); err != nil {
			return err
		} else if busy {
			return forbidden(msgUserInRelation)
		}
		other := rel.Counterparty(actorID)
		if busy, err := tx.HasAcceptedRelation(ctx, other); err != nil {
			return err
		} else if busy {
			if other == rel.MentorID {
				return forbidden(msgMentorInRelation)
			}
			return forbidden(msgMenteeInRelation)
		}

		now := s.now()
		rel.State = model.StateAccepted
		rel.AcceptDate = &now
		rel.StartDate = &now
		if err := tx.UpdateRelation(ctx, rel); err != nil {
			return err
		}
		if sender, err = tx.UserByID(ctx, rel.ActionUserID); err != nil {
			return orNotFound(err, msgUserNotFound)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	notify(ctx, s.notifier, queue.NotificationEvent{
		Kind:           queue.KindRelationAccepted,
		RecipientID:    sender.ID,
		RecipientName:  sender.Name,
		RecipientEmail: sender.Email,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		RelationID:     rel.ID,
	})
	return okResult(msgRelationWasAccepted), nil
}

// Reject moves a PENDING relation to REJECTED. The sender cannot reject
// their own request.
func (s *RelationService) Reject(ctx context.Context, actorID, relationID uint64) (Result, error) {
	err := s.transition(ctx, actorID, relationID, func(rel *model.Relation) error {
		if rel.State != model.StatePending {
			return conflict(msgNotPending)
		}
		if rel.ActionUserID == actorID {
			return forbidden(msgCantRejectOwnRequest)
		}
		if !rel.IsParticipant(actorID) {
			return forbidden(msgCantRejectUninvolved)
		}
		rel.State = model.StateRejected
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgRelationWasRejected), nil
}

// Cancel moves an ACCEPTED relation to CANCELLED. Either participant may
// cancel.
func (s *RelationService) Cancel(ctx context.Context, actorID, relationID uint64) (Result, error) {
	err := s.transition(ctx, actorID, relationID, func(rel *model.Relation) error {
		if rel.State != model.StateAccepted {
			return conflict(msgNotAccepted)
		}
		if !rel.IsParticipant(actorID) {
			return forbidden(msgCantCancelUninvolved)
		}
		rel.State = model.StateCancelled
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgRelationWasCancelled), nil
}

// transition loads the relation, lets apply validate and mutate it, and
// persists the result.
func (s *RelationService) transition(ctx context.Context, actorID, relationID uint64, apply func(*model.Relation) error) error {
	return s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		rel, err := tx.RelationByID(ctx, relationID)
		if err != nil {
			return orNotFound(err, msgRelationNotFound)
		}
		from := rel.State
		if err := apply(rel); err != nil {
			return err
		}
		if !from.CanTransitionTo(rel.State) {
			return conflict(msgInvalidState)
		}
		return tx.UpdateRelation(ctx, rel)
	})
}

// Delete removes a PENDING relation together with its task list. Only the
// sender may delete.
func (s *RelationService) Delete(ctx context.Context, actorID, relationID uint64) (Result, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		rel, err := tx.RelationByID(ctx, relationID)
		if err != nil {
			return orNotFound(err, msgRelationNotFound)
		}
		if rel.State != model.StatePending {
			return conflict(msgNotPending)
		}
		if rel.ActionUserID != actorID {
			return forbidden(msgCantDeleteUninvolved)
		}
		return tx.DeleteRelation(ctx, rel)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(msgRelationWasDeleted), nil
}

// List returns every relation of actorID, optionally restricted to one
// state. Unknown states are rejected.
func (s *RelationService) List(ctx context.Context, actorID uint64, state string) ([]model.RelationView, error) {
	var filter *model.RelationState
	if state != "" {
		st, err := model.ParseRelationState(state)
		if err != nil {
			return nil, invalid(msgInvalidState)
		}
		filter = &st
	}
	return s.query(ctx, actorID, filter, func(model.Relation, time.Time) bool { return true })
}

// Current returns the first ACCEPTED relation of actorID in storage order,
// or nil when there is none.
func (s *RelationService) Current(ctx context.Context, actorID uint64) (*model.RelationView, error) {
	accepted := model.StateAccepted
	views, err := s.query(ctx, actorID, &accepted, func(model.Relation, time.Time) bool { return true })
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return &views[0], nil
}

// Pending returns the PENDING relations of actorID that have not ended.
func (s *RelationService) Pending(ctx context.Context, actorID uint64) ([]model.RelationView, error) {
	pending := model.StatePending
	return s.query(ctx, actorID, &pending, func(r model.Relation, now time.Time) bool {
		return r.EndDate.After(now)
	})
}

// Past returns the relations of actorID whose end date has elapsed,
// whatever their state.
func (s *RelationService) Past(ctx context.Context, actorID uint64) ([]model.RelationView, error) {
	return s.query(ctx, actorID, nil, func(r model.Relation, now time.Time) bool {
		return r.HasEnded(now)
	})
}

func (s *RelationService) query(ctx context.Context, actorID uint64, state *model.RelationState, keep func(model.Relation, time.Time) bool) ([]model.RelationView, error) {
	views := []model.RelationView{}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := loadActor(ctx, tx, actorID); err != nil {
			return err
		}
		rels, err := tx.RelationsByUser(ctx, actorID, state)
		if err != nil {
			return err
		}
		now := s.now()
		for _, r := range rels {
			if keep(r, now) {
				views = append(views, r.ViewFor(actorID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
