package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/service"
)

// CommentHandler serves comments on relation tasks.
type CommentHandler struct {
	Comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{Comments: comments}
}

type commentReq struct {
	Comment string `json:"comment"`
}

func (h *CommentHandler) Create(c echo.Context) error {
	p, err := parseTaskPath(c, true)
	if err != nil {
		return err
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Comments.Create(ctx, p.user, p.relation, p.task, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *CommentHandler) ListByTask(c echo.Context) error {
	p, err := parseTaskPath(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cs, err := h.Comments.ListByTask(ctx, p.user, p.relation, p.task)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCommentList(cs))
}

func (h *CommentHandler) Modify(c echo.Context) error {
	p, err := parseTaskPath(c, true)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "comment_id")
	if !ok {
		return badRequest("invalid comment id")
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Comments.Modify(ctx, p.user, p.relation, p.task, id, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *CommentHandler) Delete(c echo.Context) error {
	p, err := parseTaskPath(c, true)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "comment_id")
	if !ok {
		return badRequest("invalid comment id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Comments.Delete(ctx, p.user, p.relation, p.task, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

// Get returns one comment by id.
func (h *CommentHandler) Get(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "comment_id")
	if !ok {
		return badRequest("invalid comment id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tc, err := h.Comments.Get(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCommentResp(*tc))
}

// Mine lists the caller's comments across all relations.
func (h *CommentHandler) Mine(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cs, err := h.Comments.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCommentList(cs))
}
