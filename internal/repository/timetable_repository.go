package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

// TimetableRepository persists validity windows and their grid slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListWindowsBySection returns every validity window bound to a section,
// most recent start date first.
func (r *TimetableRepository) ListWindowsBySection(ctx context.Context, sectionID string) ([]models.ValidityWindow, error) {
	const query = `SELECT id, section_id, start_date, end_date, created_by, created_at, updated_at
FROM validity_windows WHERE section_id = $1 ORDER BY start_date DESC`
	var windows []models.ValidityWindow
	if err := r.db.SelectContext(ctx, &windows, query, sectionID); err != nil {
		return nil, fmt.Errorf("list validity windows: %w", err)
	}
	return windows, nil
}

// FindWindowByID fetches a single validity window.
func (r *TimetableRepository) FindWindowByID(ctx context.Context, id string) (*models.ValidityWindow, error) {
	const query = `SELECT id, section_id, start_date, end_date, created_by, created_at, updated_at
FROM validity_windows WHERE id = $1`
	var window models.ValidityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// CreateWindow inserts a validity window.
func (r *TimetableRepository) CreateWindow(ctx context.Context, window *models.ValidityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	window.UpdatedAt = now
	const query = `INSERT INTO validity_windows (id, section_id, start_date, end_date, created_by, created_at, updated_at)
		VALUES (:id, :section_id, :start_date, :end_date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create validity window: %w", err)
	}
	return nil
}

// UpdateWindow modifies a window's date range.
func (r *TimetableRepository) UpdateWindow(ctx context.Context, window *models.ValidityWindow) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE validity_windows SET start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("update validity window: %w", err)
	}
	return nil
}

// DeleteWindow removes a window and cascades to its grid slots.
func (r *TimetableRepository) DeleteWindow(ctx context.Context, id string) error {
	const query = `DELETE FROM validity_windows WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete validity window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted window rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSlotsByWindow returns the grid slots under a window with subject
// details, ordered the way snapshots are laid out.
func (r *TimetableRepository) ListSlotsByWindow(ctx context.Context, windowID string) ([]models.GridSlotDetail, error) {
	const query = `
SELECT gs.id, gs.window_id, gs.weekday, gs.period, gs.start_time, gs.end_time, gs.subject_id, gs.created_by, gs.created_at,
       sub.name AS subject_name, sub.code AS subject_code
FROM grid_slots gs
JOIN subjects sub ON sub.id = gs.subject_id
WHERE gs.window_id = $1
ORDER BY gs.weekday ASC, gs.period ASC`
	var slots []models.GridSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, windowID); err != nil {
		return nil, fmt.Errorf("list grid slots: %w", err)
	}
	return slots, nil
}

// FindSlotByID fetches a single grid slot.
func (r *TimetableRepository) FindSlotByID(ctx context.Context, id string) (*models.GridSlotAssignment, error) {
	const query = `SELECT id, window_id, weekday, period, start_time, end_time, subject_id, created_by, created_at
FROM grid_slots WHERE id = $1`
	var slot models.GridSlotAssignment
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateSlot inserts a grid slot.
func (r *TimetableRepository) CreateSlot(ctx context.Context, slot *models.GridSlotAssignment) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grid_slots (id, window_id, weekday, period, start_time, end_time, subject_id, created_by, created_at)
		VALUES (:id, :window_id, :weekday, :period, :start_time, :end_time, :subject_id, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create grid slot: %w", err)
	}
	return nil
}

// UpdateSlot modifies a grid slot.
func (r *TimetableRepository) UpdateSlot(ctx context.Context, slot *models.GridSlotAssignment) error {
	const query = `UPDATE grid_slots SET weekday = :weekday, period = :period, start_time = :start_time, end_time = :end_time, subject_id = :subject_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update grid slot: %w", err)
	}
	return nil
}

// DeleteSlot removes a grid slot.
func (r *TimetableRepository) DeleteSlot(ctx context.Context, id string) error {
	const query = `DELETE FROM grid_slots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete grid slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
