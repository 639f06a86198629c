package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type subjectSectionRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.SubjectSectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.SubjectSectionAssignment, error)
	Exists(ctx context.Context, sectionID, subjectID, schoolYear string) (bool, error)
	Create(ctx context.Context, assignment *models.SubjectSectionAssignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type assignmentSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// scheduleNotifier receives committed source-relation changes. The rebuild
// engine implements it; services call it after every successful write.
type scheduleNotifier interface {
	NotifyChange(ctx context.Context, change models.SourceChange)
}

// CreateSubjectSectionRequest binds a subject to a section for a school year.
type CreateSubjectSectionRequest struct {
	SectionID  string `json:"section_id" validate:"required"`
	SubjectID  string `json:"subject_id" validate:"required"`
	SchoolYear string `json:"school_year" validate:"required"`
}

// SubjectSectionService manages the subject-to-section relation, the first
// source of truth feeding the schedule snapshots.
type SubjectSectionService struct {
	repo      subjectSectionRepository
	sections  assignmentSectionReader
	subjects  assignmentSubjectReader
	rebuilds  scheduleNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectSectionService creates a new subject-section service.
func NewSubjectSectionService(repo subjectSectionRepository, sections assignmentSectionReader, subjects assignmentSubjectReader, rebuilds scheduleNotifier, validate *validator.Validate, logger *zap.Logger) *SubjectSectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectSectionService{
		repo:      repo,
		sections:  sections,
		subjects:  subjects,
		rebuilds:  rebuilds,
		validator: validate,
		logger:    logger,
	}
}

// ListBySection returns the subjects assigned to a section.
func (s *SubjectSectionService) ListBySection(ctx context.Context, sectionID string) ([]models.SubjectSectionDetail, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	assignments, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject assignments")
	}
	return assignments, nil
}

// Create binds a subject to a section and triggers a snapshot rebuild.
func (s *SubjectSectionService) Create(ctx context.Context, req CreateSubjectSectionRequest, actorID string) (*models.SubjectSectionAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	exists, err := s.repo.Exists(ctx, req.SectionID, req.SubjectID, req.SchoolYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already assigned to section for school year")
	}

	assignment := &models.SubjectSectionAssignment{
		SectionID:  req.SectionID,
		SubjectID:  req.SubjectID,
		SchoolYear: req.SchoolYear,
	}
	if actorID != "" {
		assignment.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeSubjectSection, SectionID: assignment.SectionID})
	return assignment, nil
}

// Delete removes the binding and triggers a snapshot rebuild.
func (s *SubjectSectionService) Delete(ctx context.Context, id string) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{Kind: models.ChangeSubjectSection, SectionID: assignment.SectionID})
	return nil
}
