package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type mockSectionReader struct {
	sections map[string]*models.Section
}

func (m *mockSectionReader) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if section, ok := m.sections[id]; ok {
		return section, nil
	}
	return nil, sql.ErrNoRows
}

type mockStaffReader struct {
	staff map[string]*models.StaffMember
}

func (m *mockStaffReader) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	if member, ok := m.staff[id]; ok {
		return member, nil
	}
	return nil, sql.ErrNoRows
}

func scheduleFixtureSnapshot() []byte {
	return []byte(`{"entries":[{"weekday":1,"period":1,"start_time":"08:00","end_time":"08:50","subject_id":"math","subject_name":"Mathematics","counterpart_id":"t1","counterpart_name":"Ada Sousa"}]}`)
}

func TestGetSectionScheduleDecodesSnapshot(t *testing.T) {
	rebuilt := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	sections := &mockSectionReader{sections: map[string]*models.Section{
		"9a": {ID: "9a", Name: "9A", CurrentSchedule: scheduleFixtureSnapshot(), ScheduleRebuiltAt: &rebuilt},
	}}
	svc := NewScheduleService(sections, &mockStaffReader{}, nil, 0, zap.NewNop())

	schedule, err := svc.GetSectionSchedule(context.Background(), "9a")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerSection, schedule.Owner.Kind)
	assert.Equal(t, "9a", schedule.Owner.ID)
	require.Len(t, schedule.Entries, 1)
	assert.Equal(t, "Mathematics", schedule.Entries[0].SubjectName)
	assert.Equal(t, "Ada Sousa", schedule.Entries[0].CounterpartName)
	require.NotNil(t, schedule.RebuiltAt)
	assert.Equal(t, rebuilt, *schedule.RebuiltAt)
}

func TestGetSectionScheduleNeverRebuilt(t *testing.T) {
	sections := &mockSectionReader{sections: map[string]*models.Section{
		"9a": {ID: "9a", Name: "9A"},
	}}
	svc := NewScheduleService(sections, &mockStaffReader{}, nil, 0, zap.NewNop())

	schedule, err := svc.GetSectionSchedule(context.Background(), "9a")
	require.NoError(t, err)
	assert.Empty(t, schedule.Entries)
	assert.NotNil(t, schedule.Entries)
	assert.Nil(t, schedule.RebuiltAt)
}

func TestGetSectionScheduleNotFound(t *testing.T) {
	svc := NewScheduleService(&mockSectionReader{}, &mockStaffReader{}, nil, 0, zap.NewNop())

	_, err := svc.GetSectionSchedule(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGetStaffScheduleDecodesSnapshot(t *testing.T) {
	staff := &mockStaffReader{staff: map[string]*models.StaffMember{
		"t1": {ID: "t1", FullName: "Ada Sousa", CurrentSchedule: []byte(`{"entries":[{"weekday":2,"period":3,"subject_id":"math","subject_name":"Mathematics","counterpart_id":"9a","counterpart_name":"9A"}]}`)},
	}}
	svc := NewScheduleService(&mockSectionReader{}, staff, nil, 0, zap.NewNop())

	schedule, err := svc.GetStaffSchedule(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerStaff, schedule.Owner.Kind)
	require.Len(t, schedule.Entries, 1)
	assert.Equal(t, "9A", schedule.Entries[0].CounterpartName)
}

func TestOwnerForStaff(t *testing.T) {
	userID := "u1"
	staff := &mockStaffReader{staff: map[string]*models.StaffMember{
		"t1": {ID: "t1", UserID: &userID},
		"t2": {ID: "t2"},
	}}
	svc := NewScheduleService(&mockSectionReader{}, staff, nil, 0, zap.NewNop())

	owner, err := svc.OwnerForStaff(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	owner, err = svc.OwnerForStaff(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "", owner)
}

func TestExportScheduleCSV(t *testing.T) {
	svc := NewScheduleService(&mockSectionReader{}, &mockStaffReader{}, nil, 0, zap.NewNop())
	schedule := &models.CurrentSchedule{
		Owner: models.OwnerRef{Kind: models.OwnerSection, ID: "9a"},
		Entries: []models.ScheduleEntry{
			{Weekday: models.Monday, Period: 1, StartTime: "08:00", EndTime: "08:50", SubjectName: "Mathematics", CounterpartName: "Ada Sousa"},
		},
	}

	payload, contentType, err := svc.ExportSchedule(schedule, "9A schedule", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Weekday,Period,Start,End,Subject,Teacher"))
	assert.Contains(t, body, "Monday,1,08:00,08:50,Mathematics,Ada Sousa")
}

func TestExportSchedulePDF(t *testing.T) {
	svc := NewScheduleService(&mockSectionReader{}, &mockStaffReader{}, nil, 0, zap.NewNop())
	schedule := &models.CurrentSchedule{
		Owner:   models.OwnerRef{Kind: models.OwnerStaff, ID: "t1"},
		Entries: []models.ScheduleEntry{{Weekday: models.Tuesday, Period: 2, SubjectName: "History", CounterpartName: "9A"}},
	}

	payload, contentType, err := svc.ExportSchedule(schedule, "Ada Sousa schedule", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportScheduleUnsupportedFormat(t *testing.T) {
	svc := NewScheduleService(&mockSectionReader{}, &mockStaffReader{}, nil, 0, zap.NewNop())
	_, _, err := svc.ExportSchedule(&models.CurrentSchedule{}, "title", "xlsx")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
