package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

func newTimetableMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryListWindowsBySection(t *testing.T) {
	db, mock, cleanup := newTimetableMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "section_id", "start_date", "end_date", "created_by", "created_at", "updated_at"}).
		AddRow("window-2", "section-9a", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC), nil, time.Now(), time.Now()).
		AddRow("window-1", "section-9a", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, section_id, start_date, end_date").
		WithArgs("section-9a").
		WillReturnRows(rows)

	windows, err := repo.ListWindowsBySection(context.Background(), "section-9a")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "window-2", windows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListSlotsByWindow(t *testing.T) {
	db, mock, cleanup := newTimetableMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "window_id", "weekday", "period", "start_time", "end_time", "subject_id", "created_by", "created_at", "subject_name", "subject_code"}).
		AddRow("slot-1", "window-1", models.Monday, 2, "08:50", "09:40", "subject-math", nil, time.Now(), "Mathematics", "MATH")
	mock.ExpectQuery("SELECT gs.id, gs.window_id, gs.weekday, gs.period").
		WithArgs("window-1").
		WillReturnRows(rows)

	slots, err := repo.ListSlotsByWindow(context.Background(), "window-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Monday, slots[0].Weekday)
	assert.Equal(t, "Mathematics", slots[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateSlotAndDeleteWindow(t *testing.T) {
	db, mock, cleanup := newTimetableMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO grid_slots").
		WithArgs(sqlmock.AnyArg(), "window-1", models.Monday, 2, "08:50", "09:40", "subject-math", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateSlot(context.Background(), &models.GridSlotAssignment{
		WindowID:  "window-1",
		Weekday:   models.Monday,
		Period:    2,
		StartTime: "08:50",
		EndTime:   "09:40",
		SubjectID: "subject-math",
	})
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM validity_windows").
		WithArgs("window-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.DeleteWindow(context.Background(), "window-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
