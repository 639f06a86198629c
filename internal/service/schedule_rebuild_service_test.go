package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

type mockTimetableSource struct {
	windows    map[string][]models.ValidityWindow
	slots      map[string][]models.GridSlotDetail
	windowsErr error
}

func (m *mockTimetableSource) ListWindowsBySection(ctx context.Context, sectionID string) ([]models.ValidityWindow, error) {
	if m.windowsErr != nil {
		return nil, m.windowsErr
	}
	return m.windows[sectionID], nil
}

func (m *mockTimetableSource) ListSlotsByWindow(ctx context.Context, windowID string) ([]models.GridSlotDetail, error) {
	return m.slots[windowID], nil
}

type mockAssignmentSource struct {
	bySection map[string][]models.TeacherSectionDetail
	byStaff   map[string][]models.TeacherSectionDetail
	staffIDs  map[string][]string
}

func (m *mockAssignmentSource) ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error) {
	return m.bySection[sectionID], nil
}

func (m *mockAssignmentSource) ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error) {
	return m.byStaff[staffID], nil
}

func (m *mockAssignmentSource) ListStaffIDsBySection(ctx context.Context, sectionID string) ([]string, error) {
	return m.staffIDs[sectionID], nil
}

type mockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	rebuiltAt map[string]time.Time
	writes    int
	err       error
}

func (m *mockSnapshotStore) ReplaceScheduleSnapshot(ctx context.Context, ownerID string, snapshot []byte, rebuiltAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.snapshots == nil {
		m.snapshots = make(map[string][]byte)
		m.rebuiltAt = make(map[string]time.Time)
	}
	m.snapshots[ownerID] = snapshot
	m.rebuiltAt[ownerID] = rebuiltAt
	m.writes++
	return nil
}

func dateAt(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

// gradeNineFixture models a section with one active window: MATH on Monday
// periods 1-2 taught by staff t1, HIST on Tuesday period 1 taught by t2.
func gradeNineFixture() (*mockTimetableSource, *mockAssignmentSource) {
	timetables := &mockTimetableSource{
		windows: map[string][]models.ValidityWindow{
			"9a": {
				{ID: "w1", SectionID: "9a", StartDate: dateAt(1), EndDate: dateAt(31)},
			},
		},
		slots: map[string][]models.GridSlotDetail{
			"w1": {
				{GridSlotAssignment: models.GridSlotAssignment{ID: "g1", WindowID: "w1", Weekday: models.Monday, Period: 1, StartTime: "08:00", EndTime: "08:50", SubjectID: "math"}, SubjectName: "Mathematics"},
				{GridSlotAssignment: models.GridSlotAssignment{ID: "g2", WindowID: "w1", Weekday: models.Monday, Period: 2, StartTime: "08:50", EndTime: "09:40", SubjectID: "math"}, SubjectName: "Mathematics"},
				{GridSlotAssignment: models.GridSlotAssignment{ID: "g3", WindowID: "w1", Weekday: models.Tuesday, Period: 1, StartTime: "08:00", EndTime: "08:50", SubjectID: "hist"}, SubjectName: "History"},
			},
		},
	}
	assignments := &mockAssignmentSource{
		bySection: map[string][]models.TeacherSectionDetail{
			"9a": {
				{TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a1", StaffID: "t1"}, SectionID: "9a", SectionName: "9A", SubjectID: "math", SubjectName: "Mathematics", StaffName: "Ada Sousa"},
				{TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a2", StaffID: "t2"}, SectionID: "9a", SectionName: "9A", SubjectID: "hist", SubjectName: "History", StaffName: "Bento Lima"},
			},
		},
		byStaff: map[string][]models.TeacherSectionDetail{
			"t1": {
				{TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a1", StaffID: "t1"}, SectionID: "9a", SectionName: "9A", SubjectID: "math", SubjectName: "Mathematics", StaffName: "Ada Sousa"},
			},
		},
		staffIDs: map[string][]string{"9a": {"t1", "t2"}},
	}
	return timetables, assignments
}

func newRebuildService(timetables *mockTimetableSource, assignments *mockAssignmentSource, sections, staff *mockSnapshotStore) *ScheduleRebuildService {
	svc := NewScheduleRebuildService(timetables, assignments, sections, staff, nil, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return dateAt(15) }
	return svc
}

func TestRebuildSectionBuildsEntriesInOrder(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))

	snapshot := decodeSnapshot(t, sections.snapshots["9a"])
	require.Len(t, snapshot, 3)
	assert.Equal(t, models.Monday, snapshot[0].Weekday)
	assert.Equal(t, 1, snapshot[0].Period)
	assert.Equal(t, "math", snapshot[0].SubjectID)
	assert.Equal(t, "t1", snapshot[0].CounterpartID)
	assert.Equal(t, "Ada Sousa", snapshot[0].CounterpartName)
	assert.Equal(t, 2, snapshot[1].Period)
	assert.Equal(t, models.Tuesday, snapshot[2].Weekday)
	assert.Equal(t, "t2", snapshot[2].CounterpartID)
	assert.Equal(t, dateAt(15), sections.rebuiltAt["9a"])
}

func TestRebuildSectionRecordsQueryMetrics(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	metrics := NewMetricsService()
	svc := NewScheduleRebuildService(timetables, assignments, &mockSnapshotStore{}, &mockSnapshotStore{}, nil, metrics, nil, zap.NewNop())
	svc.now = func() time.Time { return dateAt(15) }

	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))

	// Windows, slots, assignments and the snapshot write each count once.
	assert.Equal(t, uint64(4), metrics.Snapshot().DBQueryCount)
}

func TestRebuildSectionLeavesCounterpartEmptyWhenUnstaffed(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	assignments.bySection["9a"] = assignments.bySection["9a"][:1]
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))

	snapshot := decodeSnapshot(t, sections.snapshots["9a"])
	require.Len(t, snapshot, 3)
	assert.Equal(t, "", snapshot[2].CounterpartID)
	assert.Equal(t, "", snapshot[2].CounterpartName)
}

func TestRebuildSectionIsIdempotent(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))
	first := sections.snapshots["9a"]
	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))

	assert.Equal(t, first, sections.snapshots["9a"])
}

func TestRebuildSectionNoActiveWindow(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	timetables.windows["9a"] = nil
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	err := svc.RebuildSection(context.Background(), "9a", dateAt(15))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActiveWindow)
	assert.Zero(t, sections.writes)
}

func TestRebuildSectionEmptyWindowProducesEmptySnapshot(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	timetables.slots["w1"] = nil
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	require.NoError(t, svc.RebuildSection(context.Background(), "9a", dateAt(15)))
	assert.JSONEq(t, `{"entries":[]}`, string(sections.snapshots["9a"]))
}

func TestRebuildStaffCollectsOnlyTaughtSubjects(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, &mockSnapshotStore{}, staff)

	require.NoError(t, svc.RebuildStaff(context.Background(), "t1", dateAt(15)))

	snapshot := decodeSnapshot(t, staff.snapshots["t1"])
	require.Len(t, snapshot, 2)
	for _, entry := range snapshot {
		assert.Equal(t, "math", entry.SubjectID)
		assert.Equal(t, "9a", entry.CounterpartID)
		assert.Equal(t, "9A", entry.CounterpartName)
	}
	assert.Equal(t, 1, snapshot[0].Period)
	assert.Equal(t, 2, snapshot[1].Period)
}

func TestRebuildStaffSkipsSectionsWithoutActiveWindow(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	assignments.byStaff["t1"] = append(assignments.byStaff["t1"], models.TeacherSectionDetail{
		TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a3", StaffID: "t1"},
		SectionID:                "9b", SectionName: "9B", SubjectID: "math", SubjectName: "Mathematics",
	})
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, &mockSnapshotStore{}, staff)

	require.NoError(t, svc.RebuildStaff(context.Background(), "t1", dateAt(15)))
	snapshot := decodeSnapshot(t, staff.snapshots["t1"])
	require.Len(t, snapshot, 2)
}

func TestRebuildStaffNoAssignmentsEmptySnapshot(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, &mockSnapshotStore{}, staff)

	require.NoError(t, svc.RebuildStaff(context.Background(), "t9", dateAt(15)))
	assert.JSONEq(t, `{"entries":[]}`, string(staff.snapshots["t9"]))
}

func TestNotifyChangeGridSlotFansOutToAssignedStaff(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	assignments.byStaff["t2"] = []models.TeacherSectionDetail{
		{TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a2", StaffID: "t2"}, SectionID: "9a", SectionName: "9A", SubjectID: "hist", SubjectName: "History", StaffName: "Bento Lima"},
	}
	sections := &mockSnapshotStore{}
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, staff)

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeGridSlot, SectionID: "9a"})

	assert.Contains(t, sections.snapshots, "9a")
	assert.Contains(t, staff.snapshots, "t1")
	assert.Contains(t, staff.snapshots, "t2")
}

func TestNotifyChangeSubjectSectionRebuildsSectionOnly(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	sections := &mockSnapshotStore{}
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, staff)

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeSubjectSection, SectionID: "9a"})

	assert.Contains(t, sections.snapshots, "9a")
	assert.Empty(t, staff.snapshots)
}

func TestNotifyChangeTeacherSectionRebuildsBothOwners(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	sections := &mockSnapshotStore{}
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, staff)

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeTeacherSection, SectionID: "9a", StaffID: "t1"})

	assert.Contains(t, sections.snapshots, "9a")
	assert.Contains(t, staff.snapshots, "t1")
	assert.NotContains(t, staff.snapshots, "t2")
}

func TestNotifyChangeFailureDoesNotStopOtherOwners(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	sections := &mockSnapshotStore{err: errors.New("disk full")}
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, staff)

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeTeacherSection, SectionID: "9a", StaffID: "t1"})

	assert.Empty(t, sections.snapshots)
	assert.Contains(t, staff.snapshots, "t1")
}

func TestNotifyChangeNeverPanicsOnSourceError(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	timetables.windowsErr = errors.New("connection reset")
	sections := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, &mockSnapshotStore{})

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeSubjectSection, SectionID: "9a"})
	assert.Empty(t, sections.snapshots)
}

// Mirrors the weekly grid edit scenario: adding a Monday period 2 slot shows
// up in both owner snapshots, deleting it removes it from both.
func TestGridSlotEditAndDeleteRoundTrip(t *testing.T) {
	timetables, assignments := gradeNineFixture()
	assignments.byStaff["t2"] = []models.TeacherSectionDetail{
		{TeacherSectionAssignment: models.TeacherSectionAssignment{ID: "a2", StaffID: "t2"}, SectionID: "9a", SectionName: "9A", SubjectID: "hist", SubjectName: "History", StaffName: "Bento Lima"},
	}
	sections := &mockSnapshotStore{}
	staff := &mockSnapshotStore{}
	svc := newRebuildService(timetables, assignments, sections, staff)

	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeGridSlot, SectionID: "9a"})
	require.Len(t, decodeSnapshot(t, sections.snapshots["9a"]), 3)
	require.Len(t, decodeSnapshot(t, staff.snapshots["t1"]), 2)

	// Slot g2 (Monday period 2) is removed from the grid.
	timetables.slots["w1"] = []models.GridSlotDetail{timetables.slots["w1"][0], timetables.slots["w1"][2]}
	svc.NotifyChange(context.Background(), models.SourceChange{Kind: models.ChangeGridSlot, SectionID: "9a"})

	sectionEntries := decodeSnapshot(t, sections.snapshots["9a"])
	require.Len(t, sectionEntries, 2)
	staffEntries := decodeSnapshot(t, staff.snapshots["t1"])
	require.Len(t, staffEntries, 1)
	assert.Equal(t, 1, staffEntries[0].Period)
}

func TestResolveActiveWindowContainment(t *testing.T) {
	windows := []models.ValidityWindow{
		{ID: "w1", StartDate: dateAt(1), EndDate: dateAt(10)},
		{ID: "w2", StartDate: dateAt(11), EndDate: dateAt(20)},
	}

	window, ok := resolveActiveWindow(windows, dateAt(15))
	require.True(t, ok)
	assert.Equal(t, "w2", window.ID)
}

func TestResolveActiveWindowFallsBackToMostRecentStarted(t *testing.T) {
	windows := []models.ValidityWindow{
		{ID: "w1", StartDate: dateAt(1), EndDate: dateAt(5)},
		{ID: "w2", StartDate: dateAt(6), EndDate: dateAt(10)},
		{ID: "w3", StartDate: dateAt(20), EndDate: dateAt(25)},
	}

	window, ok := resolveActiveWindow(windows, dateAt(15))
	require.True(t, ok)
	assert.Equal(t, "w2", window.ID)
}

func TestResolveActiveWindowTieBreaksOnLatestStart(t *testing.T) {
	windows := []models.ValidityWindow{
		{ID: "w1", StartDate: dateAt(1), EndDate: dateAt(20)},
		{ID: "w2", StartDate: dateAt(10), EndDate: dateAt(20)},
	}

	window, ok := resolveActiveWindow(windows, dateAt(15))
	require.True(t, ok)
	assert.Equal(t, "w2", window.ID)
}

func TestResolveActiveWindowIgnoresFutureWindows(t *testing.T) {
	windows := []models.ValidityWindow{
		{ID: "w1", StartDate: dateAt(20), EndDate: dateAt(25)},
	}

	_, ok := resolveActiveWindow(windows, dateAt(15))
	assert.False(t, ok)
}

func decodeSnapshot(t *testing.T, raw []byte) []models.ScheduleEntry {
	t.Helper()
	require.NotNil(t, raw)
	var payload struct {
		Entries []models.ScheduleEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload.Entries
}
