package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type staffRepository interface {
	List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error)
	FindByID(ctx context.Context, id string) (*models.StaffMember, error)
	Create(ctx context.Context, staff *models.StaffMember) error
	Update(ctx context.Context, staff *models.StaffMember) error
}

// CreateStaffRequest captures fields for registering a staff member.
type CreateStaffRequest struct {
	FullName     string  `json:"full_name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Registration *string `json:"registration"`
	Phone        *string `json:"phone"`
	UserID       *string `json:"user_id"`
}

// UpdateStaffRequest modifies staff fields.
type UpdateStaffRequest struct {
	FullName     string  `json:"full_name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Registration *string `json:"registration"`
	Phone        *string `json:"phone"`
	UserID       *string `json:"user_id"`
	Active       *bool   `json:"active"`
}

// StaffService handles staff member workflows.
type StaffService struct {
	repo      staffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService creates a new staff service.
func NewStaffService(repo staffRepository, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated staff members.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, *models.Pagination, error) {
	staff, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return staff, pagination, nil
}

// Get returns a staff member by identifier.
func (s *StaffService) Get(ctx context.Context, id string) (*models.StaffMember, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	return member, nil
}

// Create registers a new staff member.
func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest) (*models.StaffMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	member := &models.StaffMember{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Registration: req.Registration,
		Phone:        req.Phone,
		UserID:       req.UserID,
		Active:       true,
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff member")
	}
	return member, nil
}

// Update modifies an existing staff member.
func (s *StaffService) Update(ctx context.Context, id string, req UpdateStaffRequest) (*models.StaffMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	member.FullName = strings.TrimSpace(req.FullName)
	member.Email = strings.ToLower(strings.TrimSpace(req.Email))
	member.Registration = req.Registration
	member.Phone = req.Phone
	member.UserID = req.UserID
	if req.Active != nil {
		member.Active = *req.Active
	}

	if err := s.repo.Update(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staff member")
	}
	return member, nil
}
