package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

func newSectionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSectionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "school_year", "shift", "active", "current_schedule", "schedule_rebuilt_at", "created_by", "created_at", "updated_at"}).
		AddRow("section-9a", "9A", "2026", "MORNING", true, []byte(`{}`), nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, school_year, shift, active, current_schedule, schedule_rebuilt_at, created_by, created_at, updated_at").
		WithArgs("section-9a").
		WillReturnRows(rows)

	section, err := repo.FindByID(context.Background(), "section-9a")
	require.NoError(t, err)
	assert.Equal(t, "9A", section.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec("INSERT INTO sections").
		WithArgs(sqlmock.AnyArg(), "9A", "2026", "MORNING", true, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	section := &models.Section{Name: "9A", SchoolYear: "2026", Shift: "MORNING", Active: true}
	require.NoError(t, repo.Create(context.Background(), section))
	assert.NotEmpty(t, section.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryReplaceScheduleSnapshot(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	snapshot := []byte(`{"entries":[]}`)
	rebuiltAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sections SET current_schedule = $1, schedule_rebuilt_at = $2 WHERE id = $3`)).
		WithArgs(snapshot, rebuiltAt, "section-9a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReplaceScheduleSnapshot(context.Background(), "section-9a", snapshot, rebuiltAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryReplaceScheduleSnapshotMissingRow(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sections SET current_schedule = $1, schedule_rebuilt_at = $2 WHERE id = $3`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReplaceScheduleSnapshot(context.Background(), "missing", []byte(`{}`), time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
