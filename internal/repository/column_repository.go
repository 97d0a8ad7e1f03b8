package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taskify/internal/utils"
)

// BoardColumn mirrors the 'board_columns' table.
type BoardColumn struct {
	ID      uint64
	BoardID uint64
	Name    string
}

type ColumnRepo struct{ DB *sql.DB }

func NewColumnRepo(db *sql.DB) *ColumnRepo { return &ColumnRepo{DB: db} }

func scanColumns(rows *sql.Rows) ([]BoardColumn, error) {
	var out []BoardColumn
	for rows.Next() {
		var c BoardColumn
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// columnNameTaken checks the normalized-name uniqueness rule among sibling
// columns, excluding excludeID when renaming.
func (r *ColumnRepo) columnNameTaken(ctx context.Context, boardID uint64, name string, excludeID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM board_columns WHERE board_id=? AND "+utils.NormalizeSQL("name")+"=? AND id<>? LIMIT 1",
		boardID, utils.NormalizeName(name), excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a column into a board owned by the user. ErrNotFound when
// the board is absent or foreign, ErrConflict on a normalized-name clash.
func (r *ColumnRepo) Create(ctx context.Context, boardID, userID uint64, name string) (BoardColumn, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM boards WHERE id=? AND user_id=? LIMIT 1", boardID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return BoardColumn{}, ErrNotFound
	}
	if err != nil {
		return BoardColumn{}, err
	}

	taken, err := r.columnNameTaken(ctx, boardID, name, 0)
	if err != nil {
		return BoardColumn{}, err
	}
	if taken {
		return BoardColumn{}, ErrConflict
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO board_columns (board_id, name) VALUES (?,?)",
		boardID, strings.TrimSpace(name))
	if err != nil {
		return BoardColumn{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return BoardColumn{}, err
	}
	return BoardColumn{ID: uint64(id), BoardID: boardID, Name: strings.TrimSpace(name)}, nil
}

// ListByBoard returns the columns of a board owned by the user.
func (r *ColumnRepo) ListByBoard(ctx context.Context, boardID, userID uint64) ([]BoardColumn, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM boards WHERE id=? AND user_id=? LIMIT 1", boardID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,board_id,name FROM board_columns WHERE board_id=? ORDER BY id", boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanColumns(rows)
}

// GetByID fetches one column, verifying ownership through the board.
func (r *ColumnRepo) GetByID(ctx context.Context, columnID, userID uint64) (BoardColumn, error) {
	var c BoardColumn
	err := r.DB.QueryRowContext(ctx,
		"SELECT c.id,c.board_id,c.name FROM board_columns c JOIN boards b ON b.id=c.board_id WHERE c.id=? AND b.user_id=? LIMIT 1",
		columnID, userID).Scan(&c.ID, &c.BoardID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// Rename changes a column's name under the normalized uniqueness rule.
func (r *ColumnRepo) Rename(ctx context.Context, columnID, userID uint64, name string) (BoardColumn, error) {
	c, err := r.GetByID(ctx, columnID, userID)
	if err != nil {
		return BoardColumn{}, err
	}
	taken, err := r.columnNameTaken(ctx, c.BoardID, name, columnID)
	if err != nil {
		return BoardColumn{}, err
	}
	if taken {
		return BoardColumn{}, ErrConflict
	}
	c.Name = strings.TrimSpace(name)
	_, err = r.DB.ExecContext(ctx,
		"UPDATE board_columns SET name=? WHERE id=?", c.Name, c.ID)
	return c, err
}

// Delete removes a column owned (transitively) by the user; tasks cascade.
func (r *ColumnRepo) Delete(ctx context.Context, columnID, userID uint64) error {
	if _, err := r.GetByID(ctx, columnID, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM board_columns WHERE id=?", columnID)
	return err
}
