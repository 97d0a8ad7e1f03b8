package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/repository"
)

// ColumnHandler owns standalone column CRUD.
type ColumnHandler struct {
	Columns *repository.ColumnRepo
	Audit   audit.Recorder
}

func NewColumnHandler(col *repository.ColumnRepo, rec audit.Recorder) *ColumnHandler {
	return &ColumnHandler{Columns: col, Audit: rec}
}

type columnCreateReq struct {
	BoardID uint64 `json:"board_id"`
	Name    string `json:"name"`
}

type columnUpdateReq struct {
	Name string `json:"name"`
}

func columnJSON(col repository.BoardColumn) echo.Map {
	return echo.Map{"id": col.ID, "board_id": col.BoardID, "name": col.Name}
}

// Create adds a column to a board the caller owns. Names that normalize to
// an existing column on the same board are rejected.
func (h *ColumnHandler) Create(c echo.Context) error {
	var req columnCreateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid request body", "VALIDATION_ERROR")
	}
	if req.BoardID == 0 || strings.TrimSpace(req.Name) == "" {
		return fail(c, http.StatusUnprocessableEntity, "board_id and name are required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	col, err := h.Columns.Create(ctx, req.BoardID, getUserID(c), req.Name)
	if err != nil {
		return repoError(c, err, "Board not found", "A column with this name already exists on this board")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "board_columns", RecordID: col.ID, Action: "INSERT",
		Changes: map[string]any{"board_id": col.BoardID, "name": col.Name},
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusCreated, "Column created successfully", columnJSON(col))
}

// ListByBoard returns the columns of one owned board.
func (h *ColumnHandler) ListByBoard(c echo.Context) error {
	boardID, err := strconv.ParseUint(c.Param("board_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "board_id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cols, err := h.Columns.ListByBoard(ctx, boardID, getUserID(c))
	if err != nil {
		return repoError(c, err, "Board not found", "")
	}
	out := make([]echo.Map, 0, len(cols))
	for _, col := range cols {
		out = append(out, columnJSON(col))
	}
	return ok(c, http.StatusOK, "Columns fetched successfully", out)
}

// Get returns one column if its board belongs to the caller.
func (h *ColumnHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	col, err := h.Columns.GetByID(ctx, id, getUserID(c))
	if err != nil {
		return repoError(c, err, "Column not found", "")
	}
	return ok(c, http.StatusOK, "Column fetched successfully", columnJSON(col))
}

// Update renames a column.
func (h *ColumnHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	var req columnUpdateReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fail(c, http.StatusUnprocessableEntity, "name: required", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	col, err := h.Columns.Rename(ctx, id, getUserID(c), req.Name)
	if err != nil {
		return repoError(c, err, "Column not found", "A column with this name already exists on this board")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "board_columns", RecordID: col.ID, Action: "UPDATE",
		Changes: map[string]any{"name": col.Name},
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Column updated successfully", columnJSON(col))
}

// Delete removes a column along with its tasks.
func (h *ColumnHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Columns.Delete(ctx, id, getUserID(c)); err != nil {
		return repoError(c, err, "Column not found", "")
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "board_columns", RecordID: id, Action: "DELETE",
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "Column deleted successfully", nil)
}
