package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taskify/internal/utils"
)

// Task mirrors the 'tasks' table. Position is a dense 1-based integer
// ordering within the task's column: at rest the positions of a column's
// tasks form a contiguous strictly increasing sequence.
type Task struct {
	ID          uint64
	ColumnID    uint64
	Title       string
	Description sql.NullString
	Position    int
}

// TaskWithStatus pairs a task with the name of its column, which the API
// exposes as the task's status.
type TaskWithStatus struct {
	Task
	Status string
}

type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

// ownedColumn loads a column and verifies ownership through the
// column -> board -> user chain.
func (r *TaskRepo) ownedColumn(ctx context.Context, columnID, userID uint64) (BoardColumn, error) {
	var c BoardColumn
	err := r.DB.QueryRowContext(ctx,
		"SELECT c.id,c.board_id,c.name FROM board_columns c JOIN boards b ON b.id=c.board_id WHERE c.id=? AND b.user_id=? LIMIT 1",
		columnID, userID).Scan(&c.ID, &c.BoardID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// Create appends a task to the end of a column: the new position is
// max(existing positions)+1, or 1 for an empty column. The duplicate-title
// check and the insert run in one transaction. Returns the task and the
// column name (status).
func (r *TaskRepo) Create(ctx context.Context, columnID, userID uint64, title, description string) (Task, string, error) {
	col, err := r.ownedColumn(ctx, columnID, userID)
	if err != nil {
		return Task{}, "", err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE column_id=? AND "+utils.NormalizeSQL("title")+"=? LIMIT 1",
		columnID, utils.NormalizeName(title)).Scan(&one)
	if err == nil {
		return Task{}, "", ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Task{}, "", err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position),0)+1 FROM tasks WHERE column_id=?", columnID).Scan(&next); err != nil {
		return Task{}, "", err
	}

	t := Task{ColumnID: columnID, Title: strings.TrimSpace(title), Position: next}
	if description != "" {
		t.Description = sql.NullString{String: description, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO tasks (column_id, title, description, position) VALUES (?,?,?,?)",
		t.ColumnID, t.Title, t.Description, t.Position)
	if err != nil {
		return Task{}, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, "", err
	}
	t.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return Task{}, "", err
	}
	return t, col.Name, nil
}

// ListByColumn returns the column's tasks in position order, each carrying
// the column name as status.
func (r *TaskRepo) ListByColumn(ctx context.Context, columnID, userID uint64) ([]TaskWithStatus, error) {
	if _, err := r.ownedColumn(ctx, columnID, userID); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT t.id,t.column_id,t.title,t.description,t.position,c.name FROM tasks t JOIN board_columns c ON c.id=t.column_id WHERE t.column_id=? ORDER BY t.position",
		columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TaskWithStatus{}
	for rows.Next() {
		var t TaskWithStatus
		if err := rows.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Description, &t.Position, &t.Status); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID fetches one task with ownership verified through the
// column -> board -> user chain.
func (r *TaskRepo) GetByID(ctx context.Context, taskID, userID uint64) (TaskWithStatus, error) {
	var t TaskWithStatus
	err := r.DB.QueryRowContext(ctx,
		"SELECT t.id,t.column_id,t.title,t.description,t.position,c.name FROM tasks t JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE t.id=? AND b.user_id=? LIMIT 1",
		taskID, userID).Scan(&t.ID, &t.ColumnID, &t.Title, &t.Description, &t.Position, &t.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// Update changes title, description and/or parent column of a task. Title
// renames collide case-insensitively with siblings. A column change here
// does not renumber positions; use Move for positional changes.
func (r *TaskRepo) Update(ctx context.Context, taskID, userID uint64, title, description *string, columnID *uint64) (Task, error) {
	cur, err := r.GetByID(ctx, taskID, userID)
	if err != nil {
		return Task{}, err
	}
	t := cur.Task

	if title != nil {
		var one int
		err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM tasks WHERE column_id=? AND LOWER(title)=LOWER(?) AND id<>? LIMIT 1",
			t.ColumnID, *title, taskID).Scan(&one)
		if err == nil {
			return Task{}, ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Task{}, err
		}
		t.Title = strings.TrimSpace(*title)
	}
	if description != nil {
		t.Description = sql.NullString{String: *description, Valid: true}
	}
	if columnID != nil {
		if _, err := r.ownedColumn(ctx, *columnID, userID); err != nil {
			return Task{}, err
		}
		t.ColumnID = *columnID
	}

	_, err = r.DB.ExecContext(ctx,
		"UPDATE tasks SET title=?, description=?, column_id=? WHERE id=?",
		t.Title, t.Description, t.ColumnID, t.ID)
	return t, err
}

// Delete removes a task owned (transitively) by the user and closes the
// position gap so the column stays dense.
func (r *TaskRepo) Delete(ctx context.Context, taskID, userID uint64) error {
	cur, err := r.GetByID(ctx, taskID, userID)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", taskID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET position=position-1 WHERE column_id=? AND position>?",
		cur.ColumnID, cur.Position); err != nil {
		return err
	}
	return tx.Commit()
}

// Move repositions a task within or across columns as a single atomic
// unit. Inside one transaction it:
//
//  1. loads the moving task FOR UPDATE (ownership verified), else ErrNotFound
//  2. verifies the destination column's ownership, else ErrNotFound
//  3. closes the gap in the source column (positions > old decrement)
//  4. opens a slot in the destination (positions >= destPosition increment)
//  5. re-homes the task at (destColumnID, destPosition)
//
// Steps 3 and 4 must run in that order: when source and destination are
// the same column the decrement has to settle before the slot opens, or
// density breaks. destPosition is taken as-is; a value past the end of
// the destination column leaves the task stranded at that position with
// a gap before it.
func (r *TaskRepo) Move(ctx context.Context, userID, taskID, sourceColumnID, destColumnID uint64, destPosition int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Row lock on the moving task serializes concurrent moves of the
	// same task.
	var oldPosition int
	err = tx.QueryRowContext(ctx,
		"SELECT t.position FROM tasks t JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE t.id=? AND b.user_id=? FOR UPDATE",
		taskID, userID).Scan(&oldPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var one int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM board_columns c JOIN boards b ON b.id=c.board_id WHERE c.id=? AND b.user_id=? LIMIT 1",
		destColumnID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET position=position-1 WHERE column_id=? AND position>?",
		sourceColumnID, oldPosition); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET position=position+1 WHERE column_id=? AND position>=?",
		destColumnID, destPosition); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET column_id=?, position=? WHERE id=?",
		destColumnID, destPosition, taskID); err != nil {
		return err
	}

	return tx.Commit()
}
