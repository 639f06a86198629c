package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/jobs"
)

type timetableSource interface {
	ListWindowsBySection(ctx context.Context, sectionID string) ([]models.ValidityWindow, error)
	ListSlotsByWindow(ctx context.Context, windowID string) ([]models.GridSlotDetail, error)
}

type assignmentSource interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error)
	ListStaffIDsBySection(ctx context.Context, sectionID string) ([]string, error)
}

type snapshotStore interface {
	ReplaceScheduleSnapshot(ctx context.Context, ownerID string, snapshot []byte, rebuiltAt time.Time) error
}

// ErrNoActiveWindow is reported when a section has no validity window
// covering the reference date and none has started yet.
var ErrNoActiveWindow = appErrors.New("NO_ACTIVE_WINDOW", 422, "no active validity window")

// ScheduleRebuildService keeps the denormalized schedule snapshots on
// sections and staff members consistent with the three source-of-truth
// relations. Rebuilds run as a fenced side effect of source writes: a
// rebuild failure is logged and leaves the previous snapshot in place, it
// never propagates to the triggering operation.
type ScheduleRebuildService struct {
	timetables  timetableSource
	assignments assignmentSource
	sections    snapshotStore
	staff       snapshotStore
	cache       *CacheService
	metrics     *MetricsService
	queue       *jobs.KeyedQueue
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduleRebuildService builds the engine. The queue is optional; when
// present, NotifyChange defers rebuilds to it instead of running inline.
func NewScheduleRebuildService(
	timetables timetableSource,
	assignments assignmentSource,
	sections snapshotStore,
	staff snapshotStore,
	cache *CacheService,
	metrics *MetricsService,
	queue *jobs.KeyedQueue,
	logger *zap.Logger,
) *ScheduleRebuildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRebuildService{
		timetables:  timetables,
		assignments: assignments,
		sections:    sections,
		staff:       staff,
		cache:       cache,
		metrics:     metrics,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
	}
}

// NotifyChange is the entry point the CRUD layer calls after committing a
// write to a source relation. It resolves the full affected owner set up
// front, then rebuilds each owner independently. It never returns an error:
// failures are logged and the stale snapshot stays in place.
func (s *ScheduleRebuildService) NotifyChange(ctx context.Context, change models.SourceChange) {
	owners, err := s.ownersFor(ctx, change)
	if err != nil {
		s.logger.Warn("failed to resolve owners affected by source change",
			zap.String("kind", string(change.Kind)),
			zap.String("section_id", change.SectionID),
			zap.Error(err),
		)
		return
	}

	refDate := s.today()
	for _, owner := range owners {
		if s.queue != nil {
			s.enqueue(owner, refDate)
			continue
		}
		s.rebuildLogged(ctx, owner, refDate)
	}
}

// ownersFor expands a source change into the owners whose snapshots depend
// on it. The fan-out is computed in full before any rebuild runs so a grid
// change cannot miss a transitively affected staff member.
func (s *ScheduleRebuildService) ownersFor(ctx context.Context, change models.SourceChange) ([]models.OwnerRef, error) {
	owners := []models.OwnerRef{{Kind: models.OwnerSection, ID: change.SectionID}}

	switch change.Kind {
	case models.ChangeSubjectSection:
		// Section only.
	case models.ChangeTeacherSection:
		if change.StaffID != "" {
			owners = append(owners, models.OwnerRef{Kind: models.OwnerStaff, ID: change.StaffID})
		}
	case models.ChangeGridSlot, models.ChangeValidityWindow:
		staffIDs, err := s.assignments.ListStaffIDsBySection(ctx, change.SectionID)
		if err != nil {
			return nil, fmt.Errorf("resolve staff for section %s: %w", change.SectionID, err)
		}
		for _, id := range staffIDs {
			owners = append(owners, models.OwnerRef{Kind: models.OwnerStaff, ID: id})
		}
	default:
		return nil, fmt.Errorf("unknown source change kind %q", change.Kind)
	}

	return owners, nil
}

func (s *ScheduleRebuildService) enqueue(owner models.OwnerRef, refDate time.Time) {
	ownerCopy := owner
	s.queue.Submit(jobs.Task{
		Key: fmt.Sprintf("%s:%s", ownerCopy.Kind, ownerCopy.ID),
		Run: func(ctx context.Context) error {
			s.rebuildLogged(ctx, ownerCopy, refDate)
			return nil
		},
	})
}

func (s *ScheduleRebuildService) rebuildLogged(ctx context.Context, owner models.OwnerRef, refDate time.Time) {
	start := time.Now()
	err := s.RebuildOwner(ctx, owner, refDate)
	if s.metrics != nil {
		s.metrics.ObserveScheduleRebuild(string(owner.Kind), time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("schedule rebuild failed, snapshot left stale",
			zap.String("owner_kind", string(owner.Kind)),
			zap.String("owner_id", owner.ID),
			zap.Error(err),
		)
	}
}

// observeQuery feeds rebuild source-query timings into the db_query
// histogram so snapshot cost stays visible per query shape.
func (s *ScheduleRebuildService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func (s *ScheduleRebuildService) listWindows(ctx context.Context, sectionID string) ([]models.ValidityWindow, error) {
	defer s.observeQuery("list_windows_by_section", time.Now())
	return s.timetables.ListWindowsBySection(ctx, sectionID)
}

func (s *ScheduleRebuildService) listSlots(ctx context.Context, windowID string) ([]models.GridSlotDetail, error) {
	defer s.observeQuery("list_slots_by_window", time.Now())
	return s.timetables.ListSlotsByWindow(ctx, windowID)
}

func (s *ScheduleRebuildService) listSectionAssignments(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error) {
	defer s.observeQuery("list_assignments_by_section", time.Now())
	return s.assignments.ListBySection(ctx, sectionID)
}

func (s *ScheduleRebuildService) listStaffAssignments(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error) {
	defer s.observeQuery("list_assignments_by_staff", time.Now())
	return s.assignments.ListByStaff(ctx, staffID)
}

// RebuildOwner recomputes and stores the snapshot for a single owner.
func (s *ScheduleRebuildService) RebuildOwner(ctx context.Context, owner models.OwnerRef, refDate time.Time) error {
	switch owner.Kind {
	case models.OwnerSection:
		return s.RebuildSection(ctx, owner.ID, refDate)
	case models.OwnerStaff:
		return s.RebuildStaff(ctx, owner.ID, refDate)
	}
	return fmt.Errorf("unknown owner kind %q", owner.Kind)
}

// RebuildSection recomputes a section's snapshot from its active validity
// window. Deterministic for a fixed refDate.
func (s *ScheduleRebuildService) RebuildSection(ctx context.Context, sectionID string, refDate time.Time) error {
	windows, err := s.listWindows(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("list windows for section %s: %w", sectionID, err)
	}
	window, ok := resolveActiveWindow(windows, refDate)
	if !ok {
		return appErrors.Wrap(ErrNoActiveWindow, ErrNoActiveWindow.Code, ErrNoActiveWindow.Status, fmt.Sprintf("section %s has no active validity window at %s", sectionID, refDate.Format("2006-01-02")))
	}

	slots, err := s.listSlots(ctx, window.ID)
	if err != nil {
		return fmt.Errorf("list slots for window %s: %w", window.ID, err)
	}

	assignments, err := s.listSectionAssignments(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("list teacher assignments for section %s: %w", sectionID, err)
	}
	teacherBySubject := make(map[string]models.TeacherSectionDetail, len(assignments))
	for _, assignment := range assignments {
		if _, taken := teacherBySubject[assignment.SubjectID]; !taken {
			teacherBySubject[assignment.SubjectID] = assignment
		}
	}

	entries := make([]models.ScheduleEntry, 0, len(slots))
	for _, slot := range slots {
		entry := models.ScheduleEntry{
			Weekday:     slot.Weekday,
			Period:      slot.Period,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			SubjectID:   slot.SubjectID,
			SubjectName: slot.SubjectName,
		}
		if teacher, taught := teacherBySubject[slot.SubjectID]; taught {
			entry.CounterpartID = teacher.StaffID
			entry.CounterpartName = teacher.StaffName
		}
		entries = append(entries, entry)
	}
	sortEntries(entries)

	return s.store(ctx, s.sections, models.OwnerRef{Kind: models.OwnerSection, ID: sectionID}, entries)
}

// RebuildStaff recomputes a staff member's snapshot by walking every
// section the member teaches in and collecting the slots for the subjects
// taught there. Sections without an active window contribute nothing.
func (s *ScheduleRebuildService) RebuildStaff(ctx context.Context, staffID string, refDate time.Time) error {
	assignments, err := s.listStaffAssignments(ctx, staffID)
	if err != nil {
		return fmt.Errorf("list assignments for staff %s: %w", staffID, err)
	}

	type sectionSubjects struct {
		name     string
		subjects map[string]struct{}
	}
	bySection := make(map[string]*sectionSubjects)
	var sectionIDs []string
	for _, assignment := range assignments {
		group, seen := bySection[assignment.SectionID]
		if !seen {
			group = &sectionSubjects{name: assignment.SectionName, subjects: make(map[string]struct{})}
			bySection[assignment.SectionID] = group
			sectionIDs = append(sectionIDs, assignment.SectionID)
		}
		group.subjects[assignment.SubjectID] = struct{}{}
	}
	sort.Strings(sectionIDs)

	var entries []models.ScheduleEntry
	for _, sectionID := range sectionIDs {
		group := bySection[sectionID]

		windows, err := s.listWindows(ctx, sectionID)
		if err != nil {
			return fmt.Errorf("list windows for section %s: %w", sectionID, err)
		}
		window, ok := resolveActiveWindow(windows, refDate)
		if !ok {
			continue
		}
		slots, err := s.listSlots(ctx, window.ID)
		if err != nil {
			return fmt.Errorf("list slots for window %s: %w", window.ID, err)
		}

		for _, slot := range slots {
			if _, taught := group.subjects[slot.SubjectID]; !taught {
				continue
			}
			entries = append(entries, models.ScheduleEntry{
				Weekday:         slot.Weekday,
				Period:          slot.Period,
				StartTime:       slot.StartTime,
				EndTime:         slot.EndTime,
				SubjectID:       slot.SubjectID,
				SubjectName:     slot.SubjectName,
				CounterpartID:   sectionID,
				CounterpartName: group.name,
			})
		}
	}
	sortEntries(entries)

	return s.store(ctx, s.staff, models.OwnerRef{Kind: models.OwnerStaff, ID: staffID}, entries)
}

// store serializes the entries and replaces the owner's snapshot wholesale,
// then drops the read cache for the owner so readers pick up the new value.
func (s *ScheduleRebuildService) store(ctx context.Context, dest snapshotStore, owner models.OwnerRef, entries []models.ScheduleEntry) error {
	snapshot, err := EncodeScheduleSnapshot(entries)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s %s: %w", owner.Kind, owner.ID, err)
	}
	writeStart := time.Now()
	err = dest.ReplaceScheduleSnapshot(ctx, owner.ID, snapshot, s.now().UTC())
	s.observeQuery("replace_schedule_snapshot", writeStart)
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ScheduleCacheKey(owner)); err != nil {
			s.logger.Warn("failed to invalidate schedule cache",
				zap.String("owner_id", owner.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *ScheduleRebuildService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// EncodeScheduleSnapshot renders entries into the canonical snapshot bytes.
// Encoding is deterministic: identical entries yield identical bytes.
func EncodeScheduleSnapshot(entries []models.ScheduleEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	return json.Marshal(struct {
		Entries []models.ScheduleEntry `json:"entries"`
	}{Entries: entries})
}

// ScheduleCacheKey names the Redis entry caching an owner's snapshot.
func ScheduleCacheKey(owner models.OwnerRef) string {
	return fmt.Sprintf("schedule:%s:%s", owner.Kind, owner.ID)
}

// resolveActiveWindow picks the validity window whose date range contains
// the reference date. When none contains it, the most recently started past
// window wins; ties break toward the latest start date. Windows starting in
// the future never match.
func resolveActiveWindow(windows []models.ValidityWindow, refDate time.Time) (models.ValidityWindow, bool) {
	var containing []models.ValidityWindow
	var started []models.ValidityWindow
	for _, window := range windows {
		if window.StartDate.After(refDate) {
			continue
		}
		started = append(started, window)
		if !window.EndDate.Before(refDate) {
			containing = append(containing, window)
		}
	}

	pickLatest := func(candidates []models.ValidityWindow) models.ValidityWindow {
		best := candidates[0]
		for _, candidate := range candidates[1:] {
			if candidate.StartDate.After(best.StartDate) {
				best = candidate
			}
		}
		return best
	}

	if len(containing) > 0 {
		return pickLatest(containing), true
	}
	if len(started) > 0 {
		return pickLatest(started), true
	}
	return models.ValidityWindow{}, false
}

func sortEntries(entries []models.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Weekday != entries[j].Weekday {
			return entries[i].Weekday < entries[j].Weekday
		}
		if entries[i].Period != entries[j].Period {
			return entries[i].Period < entries[j].Period
		}
		return entries[i].CounterpartID < entries[j].CounterpartID
	})
}
