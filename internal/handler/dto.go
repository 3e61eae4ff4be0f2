package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/middleware"
	"github.com/iliyamo/mentorship-system/internal/model"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actor returns the authenticated caller. Routes using it sit behind
// JWTAuth, so a missing id is a wiring error.
func actor(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing user")
	}
	return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// unix renders t as seconds since the epoch, the format end_date is
// accepted in.
func unix(t time.Time) float64 { return float64(t.UnixNano()) / 1e9 }

func unixPtr(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	v := unix(*t)
	return &v
}

type userResp struct {
	ID                uint64  `json:"id"`
	Name              string  `json:"name"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	IsAdmin           bool    `json:"is_admin"`
	AvailableToMentor bool    `json:"available_to_mentor"`
	NeedMentoring     bool    `json:"need_mentoring"`
	IsEmailVerified   bool    `json:"is_email_verified"`
	RegistrationDate  float64 `json:"registration_date"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:                u.ID,
		Name:              u.Name,
		Username:          u.Username,
		Email:             u.Email,
		IsAdmin:           u.IsAdmin,
		AvailableToMentor: u.AvailableToMentor,
		NeedMentoring:     u.NeedMentoring,
		IsEmailVerified:   u.IsEmailVerified,
		RegistrationDate:  unix(u.RegistrationDate),
	}
}

type relationResp struct {
	ID           uint64   `json:"id"`
	MentorID     uint64   `json:"mentor_id"`
	MenteeID     uint64   `json:"mentee_id"`
	ActionUserID uint64   `json:"action_user_id"`
	SentByMe     bool     `json:"sent_by_me"`
	State        string   `json:"state"`
	CreationDate float64  `json:"creation_date"`
	AcceptDate   *float64 `json:"accept_date"`
	StartDate    *float64 `json:"start_date"`
	EndDate      float64  `json:"end_date"`
	Notes        string   `json:"notes"`
}

func toRelationResp(v model.RelationView) relationResp {
	return relationResp{
		ID:           v.ID,
		MentorID:     v.MentorID,
		MenteeID:     v.MenteeID,
		ActionUserID: v.ActionUserID,
		SentByMe:     v.SentByMe,
		State:        v.State.String(),
		CreationDate: unix(v.CreationDate),
		AcceptDate:   unixPtr(v.AcceptDate),
		StartDate:    unixPtr(v.StartDate),
		EndDate:      unix(v.EndDate),
		Notes:        v.Notes,
	}
}

func toRelationList(views []model.RelationView) []relationResp {
	out := make([]relationResp, 0, len(views))
	for _, v := range views {
		out = append(out, toRelationResp(v))
	}
	return out
}

type commentResp struct {
	ID               uint64   `json:"id"`
	UserID           uint64   `json:"user_id"`
	TaskID           uint64   `json:"task_id"`
	RelationID       uint64   `json:"relation_id"`
	Comment          string   `json:"comment"`
	CreationDate     float64  `json:"creation_date"`
	ModificationDate *float64 `json:"modification_date"`
}

func toCommentResp(c model.TaskComment) commentResp {
	return commentResp{
		ID:               c.ID,
		UserID:           c.UserID,
		TaskID:           c.TaskID,
		RelationID:       c.RelationID,
		Comment:          c.Comment,
		CreationDate:     unix(c.CreationDate),
		ModificationDate: unixPtr(c.ModificationDate),
	}
}

func toCommentList(cs []model.TaskComment) []commentResp {
	out := make([]commentResp, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCommentResp(c))
	}
	return out
}
