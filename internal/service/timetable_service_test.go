package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type mockTimetableRepo struct {
	windows map[string]models.ValidityWindow
	slots   map[string]models.GridSlotAssignment

	createdWindow *models.ValidityWindow
	createdSlot   *models.GridSlotAssignment
	deleted       []string
}

func (m *mockTimetableRepo) ListWindowsBySection(ctx context.Context, sectionID string) ([]models.ValidityWindow, error) {
	var list []models.ValidityWindow
	for _, window := range m.windows {
		if window.SectionID == sectionID {
			list = append(list, window)
		}
	}
	return list, nil
}

func (m *mockTimetableRepo) FindWindowByID(ctx context.Context, id string) (*models.ValidityWindow, error) {
	if window, ok := m.windows[id]; ok {
		return &window, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) CreateWindow(ctx context.Context, window *models.ValidityWindow) error {
	if m.windows == nil {
		m.windows = make(map[string]models.ValidityWindow)
	}
	if window.ID == "" {
		window.ID = "new-window"
	}
	m.windows[window.ID] = *window
	m.createdWindow = window
	return nil
}

func (m *mockTimetableRepo) UpdateWindow(ctx context.Context, window *models.ValidityWindow) error {
	m.windows[window.ID] = *window
	return nil
}

func (m *mockTimetableRepo) DeleteWindow(ctx context.Context, id string) error {
	if _, ok := m.windows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.windows, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTimetableRepo) ListSlotsByWindow(ctx context.Context, windowID string) ([]models.GridSlotDetail, error) {
	var list []models.GridSlotDetail
	for _, slot := range m.slots {
		if slot.WindowID == windowID {
			list = append(list, models.GridSlotDetail{GridSlotAssignment: slot})
		}
	}
	return list, nil
}

func (m *mockTimetableRepo) FindSlotByID(ctx context.Context, id string) (*models.GridSlotAssignment, error) {
	if slot, ok := m.slots[id]; ok {
		return &slot, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) CreateSlot(ctx context.Context, slot *models.GridSlotAssignment) error {
	if m.slots == nil {
		m.slots = make(map[string]models.GridSlotAssignment)
	}
	if slot.ID == "" {
		slot.ID = "new-slot"
	}
	m.slots[slot.ID] = *slot
	m.createdSlot = slot
	return nil
}

func (m *mockTimetableRepo) UpdateSlot(ctx context.Context, slot *models.GridSlotAssignment) error {
	m.slots[slot.ID] = *slot
	return nil
}

func (m *mockTimetableRepo) DeleteSlot(ctx context.Context, id string) error {
	if _, ok := m.slots[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.slots, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func timetableFixture() *mockTimetableRepo {
	return &mockTimetableRepo{
		windows: map[string]models.ValidityWindow{
			"w1": {ID: "w1", SectionID: "9a", StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)},
		},
		slots: map[string]models.GridSlotAssignment{
			"g1": {ID: "g1", WindowID: "w1", Weekday: models.Monday, Period: 1, SubjectID: "math"},
		},
	}
}

func TestCreateWindowNotifiesRebuild(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	window, err := svc.CreateWindow(context.Background(), CreateWindowRequest{SectionID: "9a", StartDate: "2026-04-01", EndDate: "2026-04-30"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "9a", window.SectionID)
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeValidityWindow, notifier.changes[0].Kind)
	assert.Equal(t, "9a", notifier.changes[0].SectionID)
}

func TestCreateWindowRejectsInvertedRange(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewTimetableService(timetableFixture(), stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	_, err := svc.CreateWindow(context.Background(), CreateWindowRequest{SectionID: "9a", StartDate: "2026-04-30", EndDate: "2026-04-01"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.changes)
}

func TestUpdateWindowNotifiesRebuild(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	window, err := svc.UpdateWindow(context.Background(), "w1", UpdateWindowRequest{StartDate: "2026-03-05", EndDate: "2026-03-25"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), window.StartDate)
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeValidityWindow, notifier.changes[0].Kind)
}

func TestDeleteWindowNotifiesRebuild(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	require.NoError(t, svc.DeleteWindow(context.Background(), "w1"))
	assert.Contains(t, repo.deleted, "w1")
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeValidityWindow, notifier.changes[0].Kind)
	assert.Equal(t, "9a", notifier.changes[0].SectionID)
}

func TestCreateSlotNotifiesRebuild(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	slot, err := svc.CreateSlot(context.Background(), CreateSlotRequest{WindowID: "w1", Weekday: models.Monday, Period: 2, StartTime: "08:50", EndTime: "09:40", SubjectID: "math"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Period)
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeGridSlot, notifier.changes[0].Kind)
	assert.Equal(t, "9a", notifier.changes[0].SectionID)
}

func TestCreateSlotOccupiedCellConflicts(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewTimetableService(timetableFixture(), stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	_, err := svc.CreateSlot(context.Background(), CreateSlotRequest{WindowID: "w1", Weekday: models.Monday, Period: 1, SubjectID: "hist"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.changes)
}

func TestCreateSlotRejectsBadWeekday(t *testing.T) {
	svc := NewTimetableService(timetableFixture(), stubSectionReader{}, stubSubjectReader{}, &mockNotifier{}, validator.New(), zap.NewNop())

	_, err := svc.CreateSlot(context.Background(), CreateSlotRequest{WindowID: "w1", Weekday: 8, Period: 1, SubjectID: "math"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateSlotMovesCell(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	slot, err := svc.UpdateSlot(context.Background(), "g1", UpdateSlotRequest{Weekday: models.Tuesday, Period: 3, SubjectID: "math"})
	require.NoError(t, err)
	assert.Equal(t, models.Tuesday, slot.Weekday)
	assert.Equal(t, 3, slot.Period)
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeGridSlot, notifier.changes[0].Kind)
}

func TestDeleteSlotNotifiesRebuild(t *testing.T) {
	repo := timetableFixture()
	notifier := &mockNotifier{}
	svc := NewTimetableService(repo, stubSectionReader{}, stubSubjectReader{}, notifier, validator.New(), zap.NewNop())

	require.NoError(t, svc.DeleteSlot(context.Background(), "g1"))
	assert.Contains(t, repo.deleted, "g1")
	require.Len(t, notifier.changes, 1)
	assert.Equal(t, models.ChangeGridSlot, notifier.changes[0].Kind)
	assert.Equal(t, "9a", notifier.changes[0].SectionID)
}
