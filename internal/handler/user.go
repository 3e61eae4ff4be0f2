package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/service"
)

// UserHandler serves registration, email confirmation and sessions.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type registerReq struct {
	Name              string `json:"name"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	NeedMentoring     bool   `json:"need_mentoring"`
	AvailableToMentor bool   `json:"available_to_mentor"`
}

type confirmReq struct {
	Token string `json:"token"`
}

type loginReq struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type sessionResp struct {
	UserID  uint64    `json:"user_id"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toSessionResp(s service.Session) sessionResp {
	return sessionResp{
		UserID:  s.UserID,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	}
}

// Register creates an unverified account and sends the confirmation token.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Users.Register(ctx, service.RegisterInput{
		Name:              req.Name,
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		NeedMentoring:     req.NeedMentoring,
		AvailableToMentor: req.AvailableToMentor,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *UserHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return badRequest("token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Users.ConfirmEmail(ctx, req.Token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResp(sess))
}

// Refresh exchanges a refresh token for a new pair; the old one is revoked.
func (h *UserHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return badRequest("refresh_token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Users.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResp(sess))
}

// Logout revokes all refresh tokens of the caller.
func (h *UserHandler) Logout(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Users.Logout(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c echo.Context) error {
	uid, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(*u))
}
