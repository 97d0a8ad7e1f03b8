package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/repository"
)

// BoardHandler owns board CRUD plus the nested details view.
type BoardHandler struct {
	Boards *repository.BoardRepo
	Audit  audit.Recorder
}

func NewBoardHandler(b *repository.BoardRepo, rec audit.Recorder) *BoardHandler {
	return &BoardHandler{Boards: b, Audit: rec}
}

type boardCreateReq struct {
	Name     string   `json:"name"`
	IsActive *bool    `json:"is_active"`
	Columns  []string `json:"columns"`
}

type boardColumnPatchReq struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type boardUpdateReq struct {
	Name     *string                `json:"name"`
	IsActive *bool                  `json:"is_active"`
	Columns  *[]boardColumnPatchReq `json:"columns"`
}

func boardJSON(b repository.Board, cols []repository.BoardColumn) echo.Map {
	out := make([]echo.Map, 0, len(cols))
	for _, c := range cols {
		out = append(out, echo.Map{"id": c.ID, "board_id": c.BoardID, "name": c.Name})
	}
	return echo.Map{
		"id":        b.ID,
		"user_id":   b.UserID,
		"name":      b.Name,
		"is_active": b.IsActive,
		"columns":   out,
	}
}

// Create makes a board together with its initial columns in one shot.
func (h *BoardHandler) Create(c echo.Context) error {
	var req boardCreateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, http.StatusUnprocessableEntity, "name: required", "VALIDATION_ERROR")
	}
	for _, col := range req.Columns {
		if strings.TrimSpace(col) == "" {
			return fail(c, http.StatusUnprocessableEntity, "columns: column names must not be empty", "VALIDATION_ERROR")
		}
	}

	b := repository.Board{UserID: getUserID(c), Name: req.Name, IsActive: true}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cols, err := h.Boards.CreateWithColumns(ctx, &b, req.Columns)
	if err != nil {
		return repoError(c, err, "Board not found", "A board with this name already exists")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "boards", RecordID: b.ID, Action: "INSERT",
		Changes: map[string]any{"name": b.Name, "columns": req.Columns},
		ActorID: b.UserID, SourceIP: clientIP(c),
	})
	return ok(c, http.StatusCreated, "Board created successfully", boardJSON(b, cols))
}

// List returns every board the caller owns.
func (h *BoardHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	boards, err := h.Boards.ListByUser(ctx, getUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	out := make([]echo.Map, 0, len(boards))
	for _, b := range boards {
		out = append(out, echo.Map{"id": b.ID, "user_id": b.UserID, "name": b.Name, "is_active": b.IsActive})
	}
	return ok(c, http.StatusOK, "Boards fetched successfully", out)
}

// Get returns one owned board with its columns.
func (h *BoardHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Boards.GetByID(ctx, id, getUserID(c))
	if err != nil {
		return repoError(c, err, "Board not found", "")
	}
	cols, err := h.Boards.Columns(ctx, b.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	return ok(c, http.StatusOK, "Board fetched successfully", boardJSON(b, cols))
}

// Update renames or toggles a board and, when a columns list is sent,
// reconciles the column set against it.
func (h *BoardHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	var req boardUpdateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fail(c, http.StatusUnprocessableEntity, "name: must not be empty", "VALIDATION_ERROR")
	}

	var patches []repository.ColumnPatch
	if req.Columns != nil {
		patches = make([]repository.ColumnPatch, 0, len(*req.Columns))
		for _, p := range *req.Columns {
			if strings.TrimSpace(p.Name) == "" {
				return fail(c, http.StatusUnprocessableEntity, "columns: column names must not be empty", "VALIDATION_ERROR")
			}
			patches = append(patches, repository.ColumnPatch{ID: p.ID, Name: p.Name})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, cols, err := h.Boards.Update(ctx, id, getUserID(c), req.Name, req.IsActive, patches)
	if err != nil {
		return repoError(c, err, "Board or column not found", "A board or column with this name already exists")
	}

	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = b.Name
	}
	if req.IsActive != nil {
		changes["is_active"] = b.IsActive
	}
	if req.Columns != nil {
		changes["columns"] = len(cols)
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "boards", RecordID: b.ID, Action: "UPDATE",
		Changes: changes, ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Board updated successfully", boardJSON(b, cols))
}

// Delete removes a board; columns, tasks and subtasks go with it.
func (h *BoardHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Boards.Delete(ctx, id, getUserID(c)); err != nil {
		return repoError(c, err, "Board not found", "")
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "boards", RecordID: id, Action: "DELETE",
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Board deleted successfully", nil)
}

// Details returns the caller's boards as a nested view down to subtasks.
func (h *BoardHandler) Details(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	details, err := h.Boards.DetailsByUser(ctx, getUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}

	out := make([]echo.Map, 0, len(details))
	for _, b := range details {
		cols := make([]echo.Map, 0, len(b.Columns))
		for _, col := range b.Columns {
			tasks := make([]echo.Map, 0, len(col.Tasks))
			for _, t := range col.Tasks {
				subs := make([]echo.Map, 0, len(t.Subtasks))
				for _, s := range t.Subtasks {
					subs = append(subs, echo.Map{"title": s.Title, "is_completed": s.IsCompleted})
				}
				tasks = append(tasks, echo.Map{
					"title":       t.Title,
					"description": t.Description,
					"status":      t.Status,
					"subtasks":    subs,
				})
			}
			cols = append(cols, echo.Map{"name": col.Name, "tasks": tasks})
		}
		out = append(out, echo.Map{"name": b.Name, "is_active": b.IsActive, "columns": cols})
	}
	return ok(c, http.StatusOK, "Board details fetched successfully", out)
}
