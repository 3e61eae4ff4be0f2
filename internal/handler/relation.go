package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/service"
)

// msgNoCurrentRelation is returned with 200 when the caller has no
// ACCEPTED relation.
const msgNoCurrentRelation = "you are not in a current mentorship relation"

// RelationHandler exposes the relation state machine and registry.
type RelationHandler struct {
	Relations *service.RelationService
}

func NewRelationHandler(relations *service.RelationService) *RelationHandler {
	return &RelationHandler{Relations: relations}
}

type sendRequestReq struct {
	MentorID uint64  `json:"mentor_id"`
	MenteeID uint64  `json:"mentee_id"`
	EndDate  float64 `json:"end_date"` // unix seconds
	Notes    string  `json:"notes"`
}

// SendRequest creates a PENDING relation.
func (h *RelationHandler) SendRequest(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	var req sendRequestReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Relations.Create(ctx, uid, service.CreateRelationInput{
		MentorID: req.MentorID,
		MenteeID: req.MenteeID,
		EndDate:  req.EndDate,
		Notes:    req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

// List returns the caller's relations, optionally filtered with
// ?relation_state=.
func (h *RelationHandler) List(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	views, err := h.Relations.List(ctx, uid, c.QueryParam("relation_state"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRelationList(views))
}

func (h *RelationHandler) Accept(c echo.Context) error { return h.transition(c, h.Relations.Accept) }
func (h *RelationHandler) Reject(c echo.Context) error { return h.transition(c, h.Relations.Reject) }
func (h *RelationHandler) Cancel(c echo.Context) error { return h.transition(c, h.Relations.Cancel) }
func (h *RelationHandler) Delete(c echo.Context) error { return h.transition(c, h.Relations.Delete) }

func (h *RelationHandler) transition(c echo.Context, op func(context.Context, uint64, uint64) (service.Result, error)) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest("invalid relation id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := op(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *RelationHandler) Current(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := h.Relations.Current(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if cur == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": msgNoCurrentRelation})
	}
	return c.JSON(http.StatusOK, toRelationResp(*cur))
}

func (h *RelationHandler) Pending(c echo.Context) error { return h.listing(c, h.Relations.Pending) }
func (h *RelationHandler) Past(c echo.Context) error    { return h.listing(c, h.Relations.Past) }

func (h *RelationHandler) listing(c echo.Context, q func(context.Context, uint64) ([]model.RelationView, error)) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	views, err := q(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRelationList(views))
}
