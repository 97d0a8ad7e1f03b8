package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taskify/internal/utils"
)

// Board mirrors the 'boards' table.
type Board struct {
	ID       uint64
	UserID   uint64
	Name     string
	IsActive bool
}

// ColumnPatch describes one column entry in a board update request. ID zero
// means "create"; a non-zero ID renames that existing column. Existing
// columns absent from the patch list are deleted.
type ColumnPatch struct {
	ID   uint64
	Name string
}

type BoardRepo struct{ DB *sql.DB }

func NewBoardRepo(db *sql.DB) *BoardRepo { return &BoardRepo{DB: db} }

// boardNameTaken reports whether the user already has a board with the same
// name, compared case-insensitively with whitespace stripped. excludeID
// skips the board being renamed.
func boardNameTaken(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, userID uint64, name string, excludeID uint64) (bool, error) {
	normalized := strings.ReplaceAll(strings.ToLower(name), " ", "")
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM boards WHERE user_id=? AND REPLACE(LOWER(name),' ','')=? AND id<>? LIMIT 1",
		userID, normalized, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateWithColumns inserts a board and its initial columns as one atomic
// unit. Duplicate normalized column names inside the request, or a board
// name the user already uses, abort with ErrConflict and nothing persists.
// On success b.ID is populated and the created columns are returned with
// their IDs.
func (r *BoardRepo) CreateWithColumns(ctx context.Context, b *Board, columns []string) ([]BoardColumn, error) {
	taken, err := boardNameTaken(ctx, r.DB, b.UserID, b.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	seen := make(map[string]bool, len(columns))
	for _, name := range columns {
		n := utils.NormalizeName(name)
		if seen[n] {
			return nil, ErrConflict
		}
		seen[n] = true
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO boards (user_id, name, is_active) VALUES (?,?,?)",
		b.UserID, strings.TrimSpace(b.Name), b.IsActive)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)

	created := make([]BoardColumn, 0, len(columns))
	for _, name := range columns {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO board_columns (board_id, name) VALUES (?,?)",
			b.ID, strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		cid, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		created = append(created, BoardColumn{ID: uint64(cid), BoardID: b.ID, Name: strings.TrimSpace(name)})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// ListByUser returns all boards owned by the user.
func (r *BoardRepo) ListByUser(ctx context.Context, userID uint64) ([]Board, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,name,is_active FROM boards WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.IsActive); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID fetches one board owned by the user, else ErrNotFound.
func (r *BoardRepo) GetByID(ctx context.Context, boardID, userID uint64) (Board, error) {
	var b Board
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,name,is_active FROM boards WHERE id=? AND user_id=? LIMIT 1",
		boardID, userID).Scan(&b.ID, &b.UserID, &b.Name, &b.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

// Update renames or (de)activates a board and reconciles its column list in
// one transaction: patched IDs are renamed, ID-less entries are created and
// existing columns missing from the patch are deleted. name and isActive
// are optional; nil leaves the field untouched.
func (r *BoardRepo) Update(ctx context.Context, boardID, userID uint64, name *string, isActive *bool, columns []ColumnPatch) (Board, []BoardColumn, error) {
	b, err := r.GetByID(ctx, boardID, userID)
	if err != nil {
		return Board{}, nil, err
	}

	if name != nil {
		taken, err := boardNameTaken(ctx, r.DB, userID, *name, boardID)
		if err != nil {
			return Board{}, nil, err
		}
		if taken {
			return Board{}, nil, ErrConflict
		}
		b.Name = strings.TrimSpace(*name)
	}
	if isActive != nil {
		b.IsActive = *isActive
	}

	if columns != nil {
		seen := make(map[string]bool, len(columns))
		for _, col := range columns {
			n := utils.NormalizeName(col.Name)
			if seen[n] {
				return Board{}, nil, ErrConflict
			}
			seen[n] = true
		}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Board{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE boards SET name=?, is_active=? WHERE id=?", b.Name, b.IsActive, b.ID); err != nil {
		return Board{}, nil, err
	}

	if columns != nil {
		existing, err := columnsByBoardTx(ctx, tx, boardID)
		if err != nil {
			return Board{}, nil, err
		}
		byID := make(map[uint64]BoardColumn, len(existing))
		for _, c := range existing {
			byID[c.ID] = c
		}
		keep := make(map[uint64]bool, len(columns))
		for _, col := range columns {
			if col.ID != 0 {
				if _, ok := byID[col.ID]; !ok {
					return Board{}, nil, ErrNotFound
				}
				if _, err := tx.ExecContext(ctx,
					"UPDATE board_columns SET name=? WHERE id=?",
					strings.TrimSpace(col.Name), col.ID); err != nil {
					return Board{}, nil, err
				}
				keep[col.ID] = true
			} else {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO board_columns (board_id, name) VALUES (?,?)",
					boardID, strings.TrimSpace(col.Name)); err != nil {
					return Board{}, nil, err
				}
			}
		}
		for id := range byID {
			if !keep[id] {
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM board_columns WHERE id=?", id); err != nil {
					return Board{}, nil, err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Board{}, nil, err
	}

	final, err := r.Columns(ctx, boardID)
	if err != nil {
		return Board{}, nil, err
	}
	return b, final, nil
}

// Columns returns the board's columns in insertion order.
func (r *BoardRepo) Columns(ctx context.Context, boardID uint64) ([]BoardColumn, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,board_id,name FROM board_columns WHERE board_id=? ORDER BY id", boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanColumns(rows)
}

func columnsByBoardTx(ctx context.Context, tx *sql.Tx, boardID uint64) ([]BoardColumn, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id,board_id,name FROM board_columns WHERE board_id=? ORDER BY id", boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanColumns(rows)
}

// Delete removes a board owned by the user; children cascade.
func (r *BoardRepo) Delete(ctx context.Context, boardID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM boards WHERE id=? AND user_id=?", boardID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// BoardDetail is the nested board -> columns -> tasks -> subtasks view.
type BoardDetail struct {
	Name     string
	IsActive bool
	Columns  []ColumnDetail
}

type ColumnDetail struct {
	Name  string
	Tasks []TaskDetail
}

type TaskDetail struct {
	Title       string
	Description string
	Status      string
	Subtasks    []SubtaskDetail
}

type SubtaskDetail struct {
	Title       string
	IsCompleted bool
}

// DetailsByUser loads every board of the user with columns, position-ordered
// tasks and subtasks.
func (r *BoardRepo) DetailsByUser(ctx context.Context, userID uint64) ([]BoardDetail, error) {
	boards, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	details := make([]BoardDetail, 0, len(boards))
	for _, b := range boards {
		bd := BoardDetail{Name: b.Name, IsActive: b.IsActive, Columns: []ColumnDetail{}}
		cols, err := r.Columns(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		for _, col := range cols {
			cd := ColumnDetail{Name: col.Name, Tasks: []TaskDetail{}}
			tasks, err := r.tasksInColumn(ctx, col.ID)
			if err != nil {
				return nil, err
			}
			for _, t := range tasks {
				td := TaskDetail{Title: t.Title, Description: t.Description.String, Status: col.Name, Subtasks: []SubtaskDetail{}}
				subs, err := r.subtasksOfTask(ctx, t.ID)
				if err != nil {
					return nil, err
				}
				td.Subtasks = subs
				cd.Tasks = append(cd.Tasks, td)
			}
			bd.Columns = append(bd.Columns, cd)
		}
		details = append(details, bd)
	}
	return details, nil
}

func (r *BoardRepo) tasksInColumn(ctx context.Context, columnID uint64) ([]Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,column_id,title,description,position FROM tasks WHERE column_id=? ORDER BY position", columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Description, &t.Position); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *BoardRepo) subtasksOfTask(ctx context.Context, taskID uint64) ([]SubtaskDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT title,is_completed FROM subtasks WHERE task_id=? ORDER BY id", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SubtaskDetail{}
	for rows.Next() {
		var s SubtaskDetail
		if err := rows.Scan(&s.Title, &s.IsCompleted); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
