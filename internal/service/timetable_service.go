package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type timetableRepository interface {
	ListWindowsBySection(ctx context.Context, sectionID string) ([]models.ValidityWindow, error)
	FindWindowByID(ctx context.Context, id string) (*models.ValidityWindow, error)
	CreateWindow(ctx context.Context, window *models.ValidityWindow) error
	UpdateWindow(ctx context.Context, window *models.ValidityWindow) error
	DeleteWindow(ctx context.Context, id string) error
	ListSlotsByWindow(ctx context.Context, windowID string) ([]models.GridSlotDetail, error)
	FindSlotByID(ctx context.Context, id string) (*models.GridSlotAssignment, error)
	CreateSlot(ctx context.Context, slot *models.GridSlotAssignment) error
	UpdateSlot(ctx context.Context, slot *models.GridSlotAssignment) error
	DeleteSlot(ctx context.Context, id string) error
}

const dateLayout = "2006-01-02"

// CreateWindowRequest opens a validity window for a section's timetable.
type CreateWindowRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// UpdateWindowRequest adjusts a window's date range.
type UpdateWindowRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// CreateSlotRequest places a subject on the weekly grid of a window.
type CreateSlotRequest struct {
	WindowID  string `json:"window_id" validate:"required"`
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	Period    int    `json:"period" validate:"required,min=1"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// UpdateSlotRequest modifies an existing grid slot.
type UpdateSlotRequest struct {
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	Period    int    `json:"period" validate:"required,min=1"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// TimetableService manages validity windows and grid-slot assignments, the
// timetable sources of truth feeding the schedule snapshots. Every
// successful write hands a change to the rebuild engine.
type TimetableService struct {
	repo      timetableRepository
	sections  assignmentSectionReader
	subjects  assignmentSubjectReader
	rebuilds  scheduleNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService creates a new timetable service.
func NewTimetableService(repo timetableRepository, sections assignmentSectionReader, subjects assignmentSubjectReader, rebuilds scheduleNotifier, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:      repo,
		sections:  sections,
		subjects:  subjects,
		rebuilds:  rebuilds,
		validator: validate,
		logger:    logger,
	}
}

// ListWindows returns a section's validity windows, newest first.
func (s *TimetableService) ListWindows(ctx context.Context, sectionID string) ([]models.ValidityWindow, error) {
	windows, err := s.repo.ListWindowsBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list validity windows")
	}
	return windows, nil
}

// CreateWindow opens a new validity window.
func (s *TimetableService) CreateWindow(ctx context.Context, req CreateWindowRequest, actorID string) (*models.ValidityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window payload")
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	window := &models.ValidityWindow{
		SectionID: req.SectionID,
		StartDate: start,
		EndDate:   end,
	}
	if actorID != "" {
		window.CreatedBy = &actorID
	}

	if err := s.repo.CreateWindow(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create validity window")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeValidityWindow, SectionID: window.SectionID})
	return window, nil
}

// UpdateWindow adjusts the date range of an existing window.
func (s *TimetableService) UpdateWindow(ctx context.Context, id string, req UpdateWindowRequest) (*models.ValidityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window payload")
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	window, err := s.repo.FindWindowByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "validity window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}

	window.StartDate = start
	window.EndDate = end

	if err := s.repo.UpdateWindow(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update validity window")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeValidityWindow, SectionID: window.SectionID})
	return window, nil
}

// DeleteWindow removes a window together with its grid slots.
func (s *TimetableService) DeleteWindow(ctx context.Context, id string) error {
	window, err := s.repo.FindWindowByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "validity window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}

	if err := s.repo.DeleteWindow(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "validity window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete validity window")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeValidityWindow, SectionID: window.SectionID})
	return nil
}

// ListSlots returns the grid slots of a window ordered by weekday and period.
func (s *TimetableService) ListSlots(ctx context.Context, windowID string) ([]models.GridSlotDetail, error) {
	if _, err := s.repo.FindWindowByID(ctx, windowID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "validity window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}
	slots, err := s.repo.ListSlotsByWindow(ctx, windowID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grid slots")
	}
	return slots, nil
}

// CreateSlot places a subject on the grid and triggers rebuilds.
func (s *TimetableService) CreateSlot(ctx context.Context, req CreateSlotRequest, actorID string) (*models.GridSlotAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	window, err := s.repo.FindWindowByID(ctx, req.WindowID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "validity window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.ensureSlotFree(ctx, req.WindowID, req.Weekday, req.Period, ""); err != nil {
		return nil, err
	}

	slot := &models.GridSlotAssignment{
		WindowID:  req.WindowID,
		Weekday:   req.Weekday,
		Period:    req.Period,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SubjectID: req.SubjectID,
	}
	if actorID != "" {
		slot.CreatedBy = &actorID
	}

	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grid slot")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeGridSlot, SectionID: window.SectionID})
	return slot, nil
}

// UpdateSlot modifies a slot in place and triggers rebuilds.
func (s *TimetableService) UpdateSlot(ctx context.Context, id string, req UpdateSlotRequest) (*models.GridSlotAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	slot, err := s.repo.FindSlotByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grid slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grid slot")
	}
	window, err := s.repo.FindWindowByID(ctx, slot.WindowID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.ensureSlotFree(ctx, slot.WindowID, req.Weekday, req.Period, slot.ID); err != nil {
		return nil, err
	}

	slot.Weekday = req.Weekday
	slot.Period = req.Period
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.SubjectID = req.SubjectID

	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grid slot")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeGridSlot, SectionID: window.SectionID})
	return slot, nil
}

// DeleteSlot removes a slot from the grid and triggers rebuilds.
func (s *TimetableService) DeleteSlot(ctx context.Context, id string) error {
	slot, err := s.repo.FindSlotByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grid slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grid slot")
	}
	window, err := s.repo.FindWindowByID(ctx, slot.WindowID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validity window")
	}

	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grid slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grid slot")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeGridSlot, SectionID: window.SectionID})
	return nil
}

// ensureSlotFree rejects a second subject on the same (weekday, period) cell.
func (s *TimetableService) ensureSlotFree(ctx context.Context, windowID string, weekday, period int, excludeID string) error {
	slots, err := s.repo.ListSlotsByWindow(ctx, windowID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grid occupancy")
	}
	for _, existing := range slots {
		if existing.ID == excludeID {
			continue
		}
		if existing.Weekday == weekday && existing.Period == period {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("slot %s period %d already occupied", models.WeekdayName(weekday), period))
		}
	}
	return nil
}

func parseDateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	return start, end, nil
}
