package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/repository"
)

// TaskHandler owns task CRUD and positional moves.
type TaskHandler struct {
	Tasks *repository.TaskRepo
	Audit audit.Recorder
}

func NewTaskHandler(t *repository.TaskRepo, rec audit.Recorder) *TaskHandler {
	return &TaskHandler{Tasks: t, Audit: rec}
}

type taskCreateReq struct {
	ColumnID    uint64 `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type taskUpdateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ColumnID    *uint64 `json:"column_id"`
}

type taskMoveReq struct {
	TaskID              uint64 `json:"task_id"`
	SourceColumnID      uint64 `json:"source_column_id"`
	DestinationColumnID uint64 `json:"destination_column_id"`
	DestinationPosition int    `json:"destination_position"`
}

func taskJSON(t repository.Task, status string) echo.Map {
	m := echo.Map{
		"id":          t.ID,
		"column_id":   t.ColumnID,
		"title":       t.Title,
		"description": nil,
		"position":    t.Position,
	}
	if t.Description.Valid {
		m["description"] = t.Description.String
	}
	if status != "" {
		m["status"] = status
	}
	return m
}

// Create appends a task to the end of a column the caller owns.
func (h *TaskHandler) Create(c echo.Context) error {
	var req taskCreateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.ColumnID == 0 || strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusUnprocessableEntity, "column_id and title are required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, status, err := h.Tasks.Create(ctx, req.ColumnID, getUserID(c), req.Title, req.Description)
	if err != nil {
		return repoError(c, err, "Column not found", "A task with this title already exists in this column")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "tasks", RecordID: t.ID, Action: "INSERT",
		Changes: map[string]any{"column_id": t.ColumnID, "title": t.Title, "position": t.Position},
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusCreated, "Task created successfully", taskJSON(t, status))
}

// ListByColumn returns a column's tasks ordered by position.
func (h *TaskHandler) ListByColumn(c echo.Context) error {
	columnID, err := strconv.ParseUint(c.Param("column_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "column_id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tasks, err := h.Tasks.ListByColumn(ctx, columnID, getUserID(c))
	if err != nil {
		return repoError(c, err, "Column not found", "")
	}
	out := make([]echo.Map, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskJSON(t.Task, t.Status))
	}
	return ok(c, http.StatusOK, "Tasks fetched successfully", out)
}

// Get returns one task the caller owns through its board.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.GetByID(ctx, id, getUserID(c))
	if err != nil {
		return repoError(c, err, "Task not found", "")
	}
	return ok(c, http.StatusOK, "Task fetched successfully", taskJSON(t.Task, t.Status))
}

// Update edits title, description or parent column.
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	var req taskUpdateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.Title == nil && req.Description == nil && req.ColumnID == nil {
		return fail(c, http.StatusUnprocessableEntity, "no fields to update", "VALIDATION_ERROR")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fail(c, http.StatusUnprocessableEntity, "title: must not be empty", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.Update(ctx, id, getUserID(c), req.Title, req.Description, req.ColumnID)
	if err != nil {
		return repoError(c, err, "Task or column not found", "A task with this title already exists in this column")
	}

	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = t.Title
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.ColumnID != nil {
		changes["column_id"] = t.ColumnID
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "tasks", RecordID: t.ID, Action: "UPDATE",
		Changes: changes, ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Task updated successfully", taskJSON(t, ""))
}

// Delete removes a task and closes the position gap it leaves behind.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tasks.Delete(ctx, id, getUserID(c)); err != nil {
		return repoError(c, err, "Task not found", "")
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "tasks", RecordID: id, Action: "DELETE",
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}

// Move relocates a task inside or between columns, shifting neighbours to
// keep each column's positions dense.
func (h *TaskHandler) Move(c echo.Context) error {
	var req taskMoveReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.TaskID == 0 || req.SourceColumnID == 0 || req.DestinationColumnID == 0 {
		return fail(c, http.StatusUnprocessableEntity, "task_id, source_column_id and destination_column_id are required", "VALIDATION_ERROR")
	}
	if req.DestinationPosition < 1 {
		return fail(c, http.StatusUnprocessableEntity, "destination_position: must be at least 1", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Tasks.Move(ctx, getUserID(c), req.TaskID, req.SourceColumnID, req.DestinationColumnID, req.DestinationPosition)
	if err != nil {
		return repoError(c, err, "Task or column not found", "")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "tasks", RecordID: req.TaskID, Action: "UPDATE",
		Changes: map[string]any{
			"source_column_id":      req.SourceColumnID,
			"destination_column_id": req.DestinationColumnID,
			"destination_position":  req.DestinationPosition,
		},
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Task moved successfully", nil)
}
