package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/service"
)

// AdminHandler toggles admin rights. Authorization happens in the service
// against the stored is_admin flag.
type AdminHandler struct {
	Admins *service.AdminService
}

func NewAdminHandler(admins *service.AdminService) *AdminHandler {
	return &AdminHandler{Admins: admins}
}

type adminReq struct {
	UserID uint64 `json:"user_id"`
}

func (h *AdminHandler) Assign(c echo.Context) error { return h.toggle(c, h.Admins.Assign) }
func (h *AdminHandler) Revoke(c echo.Context) error { return h.toggle(c, h.Admins.Revoke) }

func (h *AdminHandler) toggle(c echo.Context, op func(context.Context, uint64, uint64) (service.Result, error)) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	var req adminReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return badRequest("user_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := op(ctx, uid, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

// List returns every admin except the caller.
func (h *AdminHandler) List(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	admins, err := h.Admins.List(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]userResp, 0, len(admins))
	for _, a := range admins {
		out = append(out, toUserResp(a))
	}
	return c.JSON(http.StatusOK, out)
}
