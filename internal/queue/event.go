// Package queue defines the notification messages exchanged over the
// message broker, the publisher that sends them and the consumer that
// turns them into mock emails.
package queue

// NotificationsQueue is the durable queue carrying NotificationEvent.
const NotificationsQueue = "mentorship.notifications"

// NotificationKind names what happened.
type NotificationKind string

const (
	// KindRelationRequested goes to the receiver of a new mentorship request.
	KindRelationRequested NotificationKind = "relation.requested"
	// KindRelationAccepted goes to the sender of an accepted request.
	KindRelationAccepted NotificationKind = "relation.accepted"
	// KindEmailVerification carries a confirmation token for a new user.
	KindEmailVerification NotificationKind = "user.email_verification"
)

// NotificationEvent carries enough to render an email without querying the
// primary database.
type NotificationEvent struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	RecipientID    uint64           `json:"recipient_id"`
	RecipientName  string           `json:"recipient_name"`
	RecipientEmail string           `json:"recipient_email"`
	ActorID        uint64           `json:"actor_id,omitempty"`
	ActorName      string           `json:"actor_name,omitempty"`
	RelationID     uint64           `json:"relation_id,omitempty"`
	Token          string           `json:"token,omitempty"`
	OccurredAt     string           `json:"occurred_at"`
}

// Subject is the email subject used for the event kind.
func (e NotificationEvent) Subject() string {
	switch e.Kind {
	case KindRelationRequested:
		return "Mentorship System - You have a new mentorship request"
	case KindRelationAccepted:
		return "Mentorship System - Your mentorship request was accepted"
	case KindEmailVerification:
		return "Mentorship System - Please confirm your email"
	}
	return "Mentorship System"
}
