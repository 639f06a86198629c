package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

// StaffRepository persists staff members and their schedule snapshots.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns staff members matching filter criteria.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error) {
	base := "FROM staff_members WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":  true,
		"email":      true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, user_id, registration, email, full_name, phone, active, current_schedule, schedule_rebuilt_at, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var staff []models.StaffMember
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff members: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff members: %w", err)
	}
	return staff, total, nil
}

// FindByID fetches a single staff member.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	const query = `SELECT id, user_id, registration, email, full_name, phone, active, current_schedule, schedule_rebuilt_at, created_at, updated_at
FROM staff_members WHERE id = $1`
	var staff models.StaffMember
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// Create inserts a new staff member.
func (r *StaffRepository) Create(ctx context.Context, staff *models.StaffMember) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now
	const query = `INSERT INTO staff_members (id, user_id, registration, email, full_name, phone, active, created_at, updated_at)
		VALUES (:id, :user_id, :registration, :email, :full_name, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("create staff member: %w", err)
	}
	return nil
}

// Update modifies mutable staff fields.
func (r *StaffRepository) Update(ctx context.Context, staff *models.StaffMember) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff_members SET user_id = :user_id, registration = :registration, email = :email, full_name = :full_name, phone = :phone, active = :active, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("update staff member: %w", err)
	}
	return nil
}

// ReplaceScheduleSnapshot overwrites the cached schedule wholesale.
func (r *StaffRepository) ReplaceScheduleSnapshot(ctx context.Context, staffID string, snapshot []byte, rebuiltAt time.Time) error {
	const query = `UPDATE staff_members SET current_schedule = $1, schedule_rebuilt_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, snapshot, rebuiltAt, staffID)
	if err != nil {
		return fmt.Errorf("replace staff schedule snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check replaced snapshot rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("staff member %s not found for snapshot replace", staffID)
	}
	return nil
}
