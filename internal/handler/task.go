package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-system/internal/service"
)

// TaskHandler manages the task list of a relation.
type TaskHandler struct {
	Tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

type taskReq struct {
	Description string `json:"description"`
}

// taskPath holds the ids addressed by a task route.
type taskPath struct {
	user, relation, task uint64
}

// parseTaskPath reads the caller, :id and, when withTask, :task_id.
func parseTaskPath(c echo.Context, withTask bool) (taskPath, error) {
	var p taskPath
	var err error
	if p.user, err = actor(c); err != nil {
		return p, err
	}
	var ok bool
	if p.relation, ok = pathID(c, "id"); !ok {
		return p, badRequest("invalid relation id")
	}
	if withTask {
		if p.task, ok = pathID(c, "task_id"); !ok {
			return p, badRequest("invalid task id")
		}
	}
	return p, nil
}

func (h *TaskHandler) Create(c echo.Context) error {
	p, err := parseTaskPath(c, false)
	if err != nil {
		return err
	}
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Tasks.Create(ctx, p.user, p.relation, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}

func (h *TaskHandler) List(c echo.Context) error {
	p, err := parseTaskPath(c, false)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tasks, err := h.Tasks.List(ctx, p.user, p.relation)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Delete(c echo.Context) error   { return h.onTask(c, h.Tasks.Delete) }
func (h *TaskHandler) Complete(c echo.Context) error { return h.onTask(c, h.Tasks.Complete) }

func (h *TaskHandler) onTask(c echo.Context, op func(context.Context, uint64, uint64, uint64) (service.Result, error)) error {
	p, err := parseTaskPath(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := op(ctx, p.user, p.relation, p.task)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res.Status, res)
}
