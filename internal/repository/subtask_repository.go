package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Subtask mirrors the 'subtasks' table.
type Subtask struct {
	ID          uint64
	TaskID      uint64
	Title       string
	IsCompleted bool
}

type SubtaskRepo struct{ DB *sql.DB }

func NewSubtaskRepo(db *sql.DB) *SubtaskRepo { return &SubtaskRepo{DB: db} }

// ownedTask verifies that the task belongs to the user through the
// task -> column -> board chain.
func (r *SubtaskRepo) ownedTask(ctx context.Context, taskID, userID uint64) error {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM tasks t JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE t.id=? AND b.user_id=? LIMIT 1",
		taskID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Create inserts a subtask. Titles are unique per task case-insensitively.
func (r *SubtaskRepo) Create(ctx context.Context, taskID, userID uint64, title string) (Subtask, error) {
	if err := r.ownedTask(ctx, taskID, userID); err != nil {
		return Subtask{}, err
	}
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM subtasks WHERE task_id=? AND LOWER(title)=LOWER(?) LIMIT 1",
		taskID, title).Scan(&one)
	if err == nil {
		return Subtask{}, ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Subtask{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO subtasks (task_id, title, is_completed) VALUES (?,?,false)",
		taskID, strings.TrimSpace(title))
	if err != nil {
		return Subtask{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Subtask{}, err
	}
	return Subtask{ID: uint64(id), TaskID: taskID, Title: strings.TrimSpace(title)}, nil
}

// ListByTask returns all subtasks of a task owned by the user.
func (r *SubtaskRepo) ListByTask(ctx context.Context, taskID, userID uint64) ([]Subtask, error) {
	if err := r.ownedTask(ctx, taskID, userID); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,task_id,title,is_completed FROM subtasks WHERE task_id=? ORDER BY id", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subtask{}
	for rows.Next() {
		var s Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// getOwned fetches one subtask with ownership verified.
func (r *SubtaskRepo) getOwned(ctx context.Context, subtaskID, userID uint64) (Subtask, error) {
	var s Subtask
	err := r.DB.QueryRowContext(ctx,
		"SELECT s.id,s.task_id,s.title,s.is_completed FROM subtasks s JOIN tasks t ON t.id=s.task_id JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE s.id=? AND b.user_id=? LIMIT 1",
		subtaskID, userID).Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// Update renames and/or toggles completion of a subtask.
func (r *SubtaskRepo) Update(ctx context.Context, subtaskID, userID uint64, title *string, completed *bool) (Subtask, error) {
	s, err := r.getOwned(ctx, subtaskID, userID)
	if err != nil {
		return Subtask{}, err
	}
	if title != nil {
		var one int
		err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM subtasks WHERE task_id=? AND LOWER(title)=LOWER(?) AND id<>? LIMIT 1",
			s.TaskID, *title, subtaskID).Scan(&one)
		if err == nil {
			return Subtask{}, ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Subtask{}, err
		}
		s.Title = strings.TrimSpace(*title)
	}
	if completed != nil {
		s.IsCompleted = *completed
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE subtasks SET title=?, is_completed=? WHERE id=?",
		s.Title, s.IsCompleted, s.ID)
	return s, err
}

// Delete removes a subtask owned by the user.
func (r *SubtaskRepo) Delete(ctx context.Context, subtaskID, userID uint64) error {
	if _, err := r.getOwned(ctx, subtaskID, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM subtasks WHERE id=?", subtaskID)
	return err
}
