// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/mentorship-system/internal/handler"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health    echo.HandlerFunc
	Users     *handler.UserHandler
	Relations *handler.RelationHandler
	Tasks     *handler.TaskHandler
	Comments  *handler.CommentHandler
	Admins    *handler.AdminHandler
}

// New returns an echo instance with the full API registered. auth guards
// the protected routes; limit is applied to every /v1 route.
func New(h Handlers, auth, limit echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	RegisterRoutes(e, h)
	RegisterPublic(e.Group("/v1", limit), h.Users)
	RegisterProtected(e.Group("/v1", limit, auth), h)
	return e
}

// RegisterRoutes registers routes outside the versioned API.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)
}

// RegisterPublic registers the endpoints that do not need a session.
func RegisterPublic(g *echo.Group, u *handler.UserHandler) {
	g.POST("/users", u.Register)
	g.POST("/users/confirm", u.Confirm)
	g.POST("/login", u.Login)
	g.POST("/refresh", u.Refresh)
}

// RegisterProtected registers the endpoints that act on behalf of the
// authenticated user.
func RegisterProtected(g *echo.Group, h Handlers) {
	g.GET("/user", h.Users.Me)
	g.POST("/logout", h.Users.Logout)

	r := h.Relations
	g.POST("/mentorship_relation/send_request", r.SendRequest)
	g.GET("/mentorship_relations", r.List)
	g.GET("/mentorship_relations/current", r.Current)
	g.GET("/mentorship_relations/pending", r.Pending)
	g.GET("/mentorship_relations/past", r.Past)
	g.PUT("/mentorship_relation/:id/accept", r.Accept)
	g.PUT("/mentorship_relation/:id/reject", r.Reject)
	g.PUT("/mentorship_relation/:id/cancel", r.Cancel)
	g.DELETE("/mentorship_relation/:id", r.Delete)

	t := h.Tasks
	g.POST("/mentorship_relation/:id/task", t.Create)
	g.GET("/mentorship_relation/:id/task", t.List)
	g.GET("/mentorship_relation/:id/tasks", t.List)
	g.DELETE("/mentorship_relation/:id/task/:task_id", t.Delete)
	g.PUT("/mentorship_relation/:id/task/:task_id/complete", t.Complete)

	c := h.Comments
	g.POST("/mentorship_relation/:id/task/:task_id/comment", c.Create)
	g.GET("/mentorship_relation/:id/task/:task_id/comments", c.ListByTask)
	g.PUT("/mentorship_relation/:id/task/:task_id/comment/:comment_id", c.Modify)
	g.DELETE("/mentorship_relation/:id/task/:task_id/comment/:comment_id", c.Delete)
	g.GET("/user/task_comments", c.Mine)
	g.GET("/task_comment/:comment_id", c.Get)

	a := h.Admins
	g.POST("/admin/new", a.Assign)
	g.POST("/admin/remove", a.Revoke)
	g.GET("/admins", a.List)
}
