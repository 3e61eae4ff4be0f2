package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation. Callers map kinds to transport
// responses; the message is safe to show to the end user.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindAlreadyExists
	KindPreconditionFailed
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindAlreadyExists:
		return "already_exists"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is the typed failure returned by every service operation. A
// failed operation never leaves partial writes behind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
)

func invalid(msg string) error      { return &Error{Kind: KindInvalidRequest, Message: msg} }
func notFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func exists(msg string) error       { return &Error{Kind: KindAlreadyExists, Message: msg} }
func precondition(msg string) error { return &Error{Kind: KindPreconditionFailed, Message: msg} }
func unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

// KindOf returns the kind carried by err, or 0 when err is not a service
// error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// User facing messages.
const (
	msgUserNotFound            = "user does not exist"
	msgEmailNotVerified        = "please verify your email before continuing"
	msgMatchMentorOrMentee     = "your ID has to match either the mentor ID or the mentee ID"
	msgMentorSameAsMentee      = "you cannot have a mentorship relation with yourself"
	msgInvalidEndDate          = "invalid end date"
	msgEndDateInPast           = "end date is before the present time"
	msgDurationTooLong         = "mentorship relation maximum duration is 24 weeks"
	msgDurationTooShort        = "mentorship relation minimum duration is 4 weeks"
	msgNotesTooLong            = "notes must be at most 400 characters"
	msgMentorNotFound          = "mentor does not exist"
	msgMenteeNotFound          = "mentee does not exist"
	msgMentorNotAvailable      = "mentor user is not available to mentor"
	msgMenteeNotAvailable      = "mentee user is not available to be mentored"
	msgMentorInRelation        = "mentor user is already in a relationship"
	msgMenteeInRelation        = "mentee user is already in a relationship"
	msgRelationNotFound        = "this mentorship relation does not exist"
	msgNotPending              = "this mentorship relation is not in the pending state"
	msgNotAccepted             = "this mentorship relation is not in the accepted state"
	msgCantAcceptOwnRequest    = "you cannot accept a mentorship request sent by yourself"
	msgCantAcceptUninvolved    = "you cannot accept a mentorship relation where you are not involved"
	msgCantRejectOwnRequest    = "you cannot reject a mentorship request sent by yourself"
	msgCantRejectUninvolved    = "you cannot reject a mentorship relation where you are not involved"
	msgCantCancelUninvolved    = "you cannot cancel a mentorship relation where you are not involved"
	msgCantDeleteUninvolved    = "you cannot delete a mentorship request that you did not send"
	msgUserInRelation          = "you are currently involved in a mentorship relation"
	msgNotInvolved             = "you are not involved in this mentorship relation"
	msgInvalidState            = "invalid mentorship relation state"
	msgTaskNotFound            = "task does not exist"
	msgTaskAlreadyDone         = "task was already achieved"
	msgInvalidDescription      = "task description must be between 1 and 400 characters"
	msgCommentNotFound         = "task comment does not exist"
	msgCommentNotYours         = "you have not created the comment and therefore cannot modify it"
	msgCommentNotYoursDelete   = "you have not created the comment and therefore cannot delete it"
	msgCommentWrongTask        = "task comment with given task id does not exist"
	msgInvalidComment          = "comment must be between 1 and 400 characters"
	msgUsernameTaken           = "a user with that username already exists"
	msgEmailTaken              = "a user with that email already exists"
	msgInvalidToken            = "the confirmation link is invalid or has expired"
	msgNotAdmin                = "you don't have admin status"
	msgCannotAssignSelf        = "you cannot assign yourself as an admin"
	msgAlreadyAdmin            = "user is already an admin"
	msgNotAnAdmin              = "user is not an admin"
	msgCannotRevokeLastAdmin   = "you cannot revoke your admin status because you are the only admin"
	msgInvalidRegistration     = "name, username, email and a password of at least 8 characters are required"
	msgRelationWasSent         = "mentorship relation was sent successfully"
	msgRelationWasAccepted     = "mentorship relation was accepted successfully"
	msgRelationWasRejected     = "mentorship relation was rejected successfully"
	msgRelationWasCancelled    = "mentorship relation was cancelled successfully"
	msgRelationWasDeleted      = "mentorship relation was deleted successfully"
	msgTaskWasCreated          = "task was created successfully"
	msgTaskWasDeleted          = "task was deleted successfully"
	msgTaskWasAchieved         = "task was achieved successfully"
	msgCommentWasCreated       = "task comment was created successfully"
	msgCommentWasUpdated       = "task comment was updated successfully"
	msgCommentWasDeleted       = "task comment was deleted successfully"
	msgUserWasCreated          = "user was created successfully, a confirmation email was sent"
	msgEmailConfirmed          = "you have confirmed your account, thanks"
	msgEmailAlreadyConfirmed   = "account already confirmed"
	msgUserIsNowAdmin          = "user is now an admin"
	msgUserAdminStatusRevoked  = "user admin status was revoked"
	msgInvalidCredentials      = "username/email or password is wrong"
	msgInvalidRefresh          = "refresh token is invalid, expired or revoked"
	msgLoggedOut               = "all sessions were signed out"
)
