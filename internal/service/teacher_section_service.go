package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type teacherSectionRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherSectionAssignment, error)
	Exists(ctx context.Context, staffID, subjectSectionID string) (bool, error)
	Create(ctx context.Context, assignment *models.TeacherSectionAssignment) error
	Delete(ctx context.Context, id string) error
}

type subjectSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.SubjectSectionAssignment, error)
}

type assignmentStaffReader interface {
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
}

// CreateTeacherSectionRequest binds a staff member to a subject-section pair.
type CreateTeacherSectionRequest struct {
	StaffID          string `json:"staff_id" validate:"required"`
	SubjectSectionID string `json:"subject_section_id" validate:"required"`
}

// TeacherSectionService manages the teacher-to-subject-section relation,
// the second source of truth feeding the schedule snapshots.
type TeacherSectionService struct {
	repo            teacherSectionRepository
	subjectSections subjectSectionReader
	staff           assignmentStaffReader
	rebuilds        scheduleNotifier
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewTeacherSectionService creates a new teacher-section service.
func NewTeacherSectionService(repo teacherSectionRepository, subjectSections subjectSectionReader, staff assignmentStaffReader, rebuilds scheduleNotifier, validate *validator.Validate, logger *zap.Logger) *TeacherSectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherSectionService{
		repo:            repo,
		subjectSections: subjectSections,
		staff:           staff,
		rebuilds:        rebuilds,
		validator:       validate,
		logger:          logger,
	}
}

// ListBySection returns the teaching assignments within a section.
func (s *TeacherSectionService) ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error) {
	assignments, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	return assignments, nil
}

// ListByStaff returns the teaching assignments of a staff member.
func (s *TeacherSectionService) ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error) {
	assignments, err := s.repo.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	return assignments, nil
}

// Create binds a staff member to a subject-section pair and triggers
// snapshot rebuilds for both the section and the staff member.
func (s *TeacherSectionService) Create(ctx context.Context, req CreateTeacherSectionRequest, actorID string) (*models.TeacherSectionAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	member, err := s.staff.FindByID(ctx, req.StaffID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if !member.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "staff member is inactive")
	}

	subjectSection, err := s.subjectSections.FindByID(ctx, req.SubjectSectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject-section assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject-section assignment")
	}

	exists, err := s.repo.Exists(ctx, req.StaffID, req.SubjectSectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff member already assigned to subject-section")
	}

	assignment := &models.TeacherSectionAssignment{
		StaffID:          req.StaffID,
		SubjectSectionID: req.SubjectSectionID,
	}
	if actorID != "" {
		assignment.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.rebuilds.NotifyChange(ctx, models.SourceChange{
		Kind:      models.ChangeTeacherSection,
		SectionID: subjectSection.SectionID,
		StaffID:   assignment.StaffID,
	})
	return assignment, nil
}

// Delete removes the binding and triggers rebuilds for both owners.
func (s *TeacherSectionService) Delete(ctx context.Context, id string) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	subjectSection, err := s.subjectSections.FindByID(ctx, assignment.SubjectSectionID)
	if err != nil && err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject-section assignment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}

	change := models.SourceChange{Kind: models.ChangeTeacherSection, StaffID: assignment.StaffID}
	if subjectSection != nil {
		change.SectionID = subjectSection.SectionID
	}
	s.rebuilds.NotifyChange(ctx, change)
	return nil
}
