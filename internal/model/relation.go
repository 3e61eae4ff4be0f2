package model

import (
	"fmt"
	"strings"
	"time"
)

// RelationState is the lifecycle state of a mentorship relation.
type RelationState string

const (
	StatePending   RelationState = "PENDING"
	StateAccepted  RelationState = "ACCEPTED"
	StateRejected  RelationState = "REJECTED"
	StateCancelled RelationState = "CANCELLED"
	StateCompleted RelationState = "COMPLETED"
)

// RelationStates lists every known state in declaration order.
var RelationStates = []RelationState{
	StatePending, StateAccepted, StateRejected, StateCancelled, StateCompleted,
}

// transitions holds the allowed state changes. Deletion of a PENDING
// relation is not a transition and is handled by the caller.
var transitions = map[RelationState][]RelationState{
	StatePending:  {StateAccepted, StateRejected},
	StateAccepted: {StateCancelled, StateCompleted},
}

// ParseRelationState converts raw input into a RelationState. Matching is
// case-insensitive; unknown values return an error.
func ParseRelationState(s string) (RelationState, error) {
	v := RelationState(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range RelationStates {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown relation state %q", s)
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s RelationState) CanTransitionTo(next RelationState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RelationState) IsTerminal() bool { return len(transitions[s]) == 0 }

func (s RelationState) String() string { return string(s) }

// Relation records one mentor–mentee pairing. It owns exactly one task
// list which is created alongside it and removed with it.
//
// Fields:
//  ID           – primary key identifier.
//  MentorID     – user acting as mentor.
//  MenteeID     – user acting as mentee.
//  ActionUserID – user who sent the request; may not accept or reject it.
//  State        – lifecycle state.
//  CreationDate – when the request was sent.
//  AcceptDate   – when the request was accepted (nil before).
//  StartDate    – when the mentorship started (nil before acceptance).
//  EndDate      – when the mentorship is due to finish.
//  Notes        – free text supplied with the request.
//  TaskListID   – owned task list.
type Relation struct {
	ID           uint64        // mentorship_relations.id
	MentorID     uint64        // mentorship_relations.mentor_id
	MenteeID     uint64        // mentorship_relations.mentee_id
	ActionUserID uint64        // mentorship_relations.action_user_id
	State        RelationState // mentorship_relations.state
	CreationDate time.Time     // mentorship_relations.creation_date
	AcceptDate   *time.Time    // mentorship_relations.accept_date (nullable)
	StartDate    *time.Time    // mentorship_relations.start_date (nullable)
	EndDate      time.Time     // mentorship_relations.end_date
	Notes        string        // mentorship_relations.notes
	TaskListID   uint64        // mentorship_relations.tasks_list_id
}

// IsParticipant reports whether userID is the mentor or the mentee.
func (r *Relation) IsParticipant(userID uint64) bool {
	return r.MentorID == userID || r.MenteeID == userID
}

// Counterparty returns the other participant. The result is meaningless
// when userID is not a participant.
func (r *Relation) Counterparty(userID uint64) uint64 {
	if r.MentorID == userID {
		return r.MenteeID
	}
	return r.MentorID
}

// ReceiverID returns the participant who did not send the request.
func (r *Relation) ReceiverID() uint64 { return r.Counterparty(r.ActionUserID) }

// HasEnded reports whether the end date lies before now.
func (r *Relation) HasEnded(now time.Time) bool { return r.EndDate.Before(now) }

// RelationView is a relation annotated from the perspective of the user
// who queried it.
type RelationView struct {
	Relation
	SentByMe bool
}

// ViewFor annotates r for the given user.
func (r Relation) ViewFor(userID uint64) RelationView {
	return RelationView{Relation: r, SentByMe: r.ActionUserID == userID}
}
