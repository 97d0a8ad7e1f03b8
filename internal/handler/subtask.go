package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/repository"
)

// SubtaskHandler owns subtask CRUD.
type SubtaskHandler struct {
	Subtasks *repository.SubtaskRepo
	Audit    audit.Recorder
}

func NewSubtaskHandler(s *repository.SubtaskRepo, rec audit.Recorder) *SubtaskHandler {
	return &SubtaskHandler{Subtasks: s, Audit: rec}
}

type subtaskCreateReq struct {
	TaskID uint64 `json:"task_id"`
	Title  string `json:"title"`
}

type subtaskUpdateReq struct {
	Title       *string `json:"title"`
	IsCompleted *bool   `json:"is_completed"`
}

func subtaskJSON(s repository.Subtask) echo.Map {
	return echo.Map{
		"id":           s.ID,
		"task_id":      s.TaskID,
		"title":        s.Title,
		"is_completed": s.IsCompleted,
	}
}

// Create adds a checklist item to a task the caller owns.
func (h *SubtaskHandler) Create(c echo.Context) error {
	var req subtaskCreateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.TaskID == 0 || strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusUnprocessableEntity, "task_id and title are required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Subtasks.Create(ctx, req.TaskID, getUserID(c), req.Title)
	if err != nil {
		return repoError(c, err, "Task not found", "A subtask with this title already exists on this task")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "subtasks", RecordID: s.ID, Action: "INSERT",
		Changes: map[string]any{"task_id": s.TaskID, "title": s.Title},
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusCreated, "Subtask created successfully", subtaskJSON(s))
}

// ListByTask returns a task's subtasks in creation order.
func (h *SubtaskHandler) ListByTask(c echo.Context) error {
	taskID, err := strconv.ParseUint(c.Param("task_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "task_id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	subs, err := h.Subtasks.ListByTask(ctx, taskID, getUserID(c))
	if err != nil {
		return repoError(c, err, "Task not found", "")
	}
	out := make([]echo.Map, 0, len(subs))
	for _, s := range subs {
		out = append(out, subtaskJSON(s))
	}
	return ok(c, http.StatusOK, "Subtasks fetched successfully", out)
}

// Update renames a subtask or flips its completion flag.
func (h *SubtaskHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	var req subtaskUpdateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.Title == nil && req.IsCompleted == nil {
		return fail(c, http.StatusUnprocessableEntity, "no fields to update", "VALIDATION_ERROR")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fail(c, http.StatusUnprocessableEntity, "title: must not be empty", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Subtasks.Update(ctx, id, getUserID(c), req.Title, req.IsCompleted)
	if err != nil {
		return repoError(c, err, "Subtask not found", "A subtask with this title already exists on this task")
	}

	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = s.Title
	}
	if req.IsCompleted != nil {
		changes["is_completed"] = s.IsCompleted
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "subtasks", RecordID: s.ID, Action: "UPDATE",
		Changes: changes, ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Subtask updated successfully", subtaskJSON(s))
}

// Delete removes one subtask.
func (h *SubtaskHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Subtasks.Delete(ctx, id, getUserID(c)); err != nil {
		return repoError(c, err, "Subtask not found", "")
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "subtasks", RecordID: id, Action: "DELETE",
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Subtask deleted successfully", nil)
}
