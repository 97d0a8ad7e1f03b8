package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

const (
	moveLockQuery = "SELECT t.position FROM tasks t JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE t.id=? AND b.user_id=? FOR UPDATE"
	moveDestQuery = "SELECT 1 FROM board_columns c JOIN boards b ON b.id=c.board_id WHERE c.id=? AND b.user_id=? LIMIT 1"
	moveCloseGap  = "UPDATE tasks SET position=position-1 WHERE column_id=? AND position>?"
	moveOpenSlot  = "UPDATE tasks SET position=position+1 WHERE column_id=? AND position>=?"
	moveRehome    = "UPDATE tasks SET column_id=?, position=? WHERE id=?"
)

// Moving the last task of column 10 ([1,2,3]) to the head of empty column
// 20 leaves the source dense at [1,2] and the task at position 1.
func TestMoveAcrossColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(moveLockQuery).
		WithArgs(uint64(3), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(3))
	mock.ExpectQuery(moveDestQuery).
		WithArgs(uint64(20), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(moveCloseGap).
		WithArgs(uint64(10), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(moveOpenSlot).
		WithArgs(uint64(20), 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(moveRehome).
		WithArgs(uint64(20), 1, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Move(context.Background(), 1, 3, 10, 20, 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A same-column move must close the source gap before opening the
// destination slot; the expectations are ordered, so a swapped sequence
// fails the test.
func TestMoveWithinColumnStepOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(moveLockQuery).
		WithArgs(uint64(7), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(1))
	mock.ExpectQuery(moveDestQuery).
		WithArgs(uint64(5), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(moveCloseGap).
		WithArgs(uint64(5), 1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(moveOpenSlot).
		WithArgs(uint64(5), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(moveRehome).
		WithArgs(uint64(5), 2, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Move(context.Background(), 1, 7, 5, 5, 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// destination_position is applied verbatim: moving into an empty column at
// position 100 parks the task there, gap and all.
func TestMovePastEndKeepsRequestedPosition(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(moveLockQuery).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(1))
	mock.ExpectQuery(moveDestQuery).
		WithArgs(uint64(30), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(moveCloseGap).
		WithArgs(uint64(10), 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(moveOpenSlot).
		WithArgs(uint64(30), 100).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(moveRehome).
		WithArgs(uint64(30), 100, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Move(context.Background(), 1, 4, 10, 30, 100)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveUnknownTask(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(moveLockQuery).
		WithArgs(uint64(99), uint64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Move(context.Background(), 1, 99, 10, 20, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveUnknownDestColumn(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(moveLockQuery).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(2))
	mock.ExpectQuery(moveDestQuery).
		WithArgs(uint64(77), uint64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Move(context.Background(), 1, 4, 10, 77, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

const (
	taskOwnedColumn = "SELECT c.id,c.board_id,c.name FROM board_columns c JOIN boards b ON b.id=c.board_id WHERE c.id=? AND b.user_id=? LIMIT 1"
	taskDupCheck    = "SELECT 1 FROM tasks WHERE column_id=? AND REPLACE(REPLACE(REPLACE(LOWER(title), ' ', ''), '-', ''), '_', '')=? LIMIT 1"
	taskNextPos     = "SELECT COALESCE(MAX(position),0)+1 FROM tasks WHERE column_id=?"
	taskInsert      = "INSERT INTO tasks (column_id, title, description, position) VALUES (?,?,?,?)"
)

// A new task always lands at max(position)+1 of its column.
func TestCreateAppendsAtEnd(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectQuery(taskOwnedColumn).
		WithArgs(uint64(10), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "board_id", "name"}).AddRow(10, 2, "Doing"))
	mock.ExpectBegin()
	mock.ExpectQuery(taskDupCheck).
		WithArgs(uint64(10), "shipit").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(taskNextPos).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(taskInsert).
		WithArgs(uint64(10), "Ship it", sql.NullString{}, 3).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	task, status, err := repo.Create(context.Background(), 10, 1, "Ship it", "")
	require.NoError(t, err)
	require.Equal(t, uint64(9), task.ID)
	require.Equal(t, 3, task.Position)
	require.Equal(t, "Doing", status)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Deleting a task shifts every later sibling down one so the column stays
// dense.
func TestDeleteClosesGap(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectQuery("SELECT t.id,t.column_id,t.title,t.description,t.position,c.name FROM tasks t JOIN board_columns c ON c.id=t.column_id JOIN boards b ON b.id=c.board_id WHERE t.id=? AND b.user_id=? LIMIT 1").
		WithArgs(uint64(6), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "column_id", "title", "description", "position", "name"}).
			AddRow(6, 10, "Middle", nil, 2, "Doing"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tasks WHERE id=?").
		WithArgs(uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(moveCloseGap).
		WithArgs(uint64(10), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 6, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Titles that normalize to an existing sibling are rejected before any
// insert happens. A column already holding "Design Review" refuses
// "design review": case and separators are ignored by the comparison.
func TestCreateDuplicateTitle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectQuery(taskOwnedColumn).
		WithArgs(uint64(10), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "board_id", "name"}).AddRow(10, 2, "Doing"))
	mock.ExpectBegin()
	mock.ExpectQuery(taskDupCheck).
		WithArgs(uint64(10), "designreview").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := repo.Create(context.Background(), 10, 1, "design review", "")
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
