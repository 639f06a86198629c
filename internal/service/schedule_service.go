package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/export"
)

type sectionScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type staffScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ScheduleService serves the denormalized schedule snapshots. Reads never
// touch the source-of-truth relations; they only decode the stored snapshot,
// optionally through the Redis cache.
type ScheduleService struct {
	sections sectionScheduleReader
	staff    staffScheduleReader
	cache    *CacheService
	cacheTTL time.Duration
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewScheduleService constructs the snapshot read service.
func NewScheduleService(sections sectionScheduleReader, staff staffScheduleReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		sections: sections,
		staff:    staff,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// GetSectionSchedule returns the current snapshot for a section.
func (s *ScheduleService) GetSectionSchedule(ctx context.Context, sectionID string) (*models.CurrentSchedule, error) {
	owner := models.OwnerRef{Kind: models.OwnerSection, ID: sectionID}
	if cached := s.fromCache(ctx, owner); cached != nil {
		return cached, nil
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, fmt.Errorf("load section %s: %w", sectionID, err)
	}

	schedule, err := decodeCurrentSchedule(owner, section.CurrentSchedule, section.ScheduleRebuiltAt)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, owner, schedule)
	return schedule, nil
}

// GetStaffSchedule returns the current snapshot for a staff member.
func (s *ScheduleService) GetStaffSchedule(ctx context.Context, staffID string) (*models.CurrentSchedule, error) {
	owner := models.OwnerRef{Kind: models.OwnerStaff, ID: staffID}
	if cached := s.fromCache(ctx, owner); cached != nil {
		return cached, nil
	}

	member, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, fmt.Errorf("load staff member %s: %w", staffID, err)
	}

	schedule, err := decodeCurrentSchedule(owner, member.CurrentSchedule, member.ScheduleRebuiltAt)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, owner, schedule)
	return schedule, nil
}

// OwnerForStaff resolves which user, if any, a staff schedule belongs to.
// The policy layer needs it to settle OWNER-conditional reads.
func (s *ScheduleService) OwnerForStaff(ctx context.Context, staffID string) (string, error) {
	member, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return "", err
	}
	return member.OwnerUserID(), nil
}

// ExportSchedule renders a snapshot into CSV or PDF bytes.
func (s *ScheduleService) ExportSchedule(schedule *models.CurrentSchedule, title string, format string) ([]byte, string, error) {
	if schedule == nil {
		return nil, "", fmt.Errorf("schedule nil")
	}
	dataset := scheduleDataset(schedule)
	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		return payload, "text/csv", err
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		return payload, "application/pdf", err
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ScheduleService) fromCache(ctx context.Context, owner models.OwnerRef) *models.CurrentSchedule {
	if s.cache == nil {
		return nil
	}
	var schedule models.CurrentSchedule
	hit, err := s.cache.Get(ctx, ScheduleCacheKey(owner), &schedule)
	if err != nil || !hit {
		return nil
	}
	return &schedule
}

func (s *ScheduleService) toCache(ctx context.Context, owner models.OwnerRef, schedule *models.CurrentSchedule) {
	if s.cache == nil || schedule == nil {
		return
	}
	if err := s.cache.Set(ctx, ScheduleCacheKey(owner), schedule, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache schedule", zap.String("owner_id", owner.ID), zap.Error(err))
	}
}

// decodeCurrentSchedule turns the stored snapshot column into the API
// projection. A never-rebuilt owner yields an empty entry list.
func decodeCurrentSchedule(owner models.OwnerRef, raw []byte, rebuiltAt *time.Time) (*models.CurrentSchedule, error) {
	schedule := &models.CurrentSchedule{
		Owner:     owner,
		Entries:   []models.ScheduleEntry{},
		RebuiltAt: rebuiltAt,
	}
	if len(raw) == 0 || string(raw) == "null" {
		return schedule, nil
	}
	var payload struct {
		Entries []models.ScheduleEntry `json:"entries"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s %s: %w", owner.Kind, owner.ID, err)
	}
	if payload.Entries != nil {
		schedule.Entries = payload.Entries
	}
	return schedule, nil
}

func scheduleDataset(schedule *models.CurrentSchedule) export.Dataset {
	counterpartHeader := "Teacher"
	if schedule.Owner.Kind == models.OwnerStaff {
		counterpartHeader = "Section"
	}
	headers := []string{"Weekday", "Period", "Start", "End", "Subject", counterpartHeader}
	rows := make([]map[string]string, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		rows = append(rows, map[string]string{
			"Weekday":         models.WeekdayName(entry.Weekday),
			"Period":          fmt.Sprintf("%d", entry.Period),
			"Start":           entry.StartTime,
			"End":             entry.EndTime,
			"Subject":         entry.SubjectName,
			counterpartHeader: entry.CounterpartName,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
