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

// TeacherSectionRepository persists teacher-section assignments, the
// relation binding a staff member to a subject taught in a section.
type TeacherSectionRepository struct {
	db *sqlx.DB
}

// NewTeacherSectionRepository constructs the repository.
func NewTeacherSectionRepository(db *sqlx.DB) *TeacherSectionRepository {
	return &TeacherSectionRepository{db: db}
}

const teacherSectionDetailColumns = `
SELECT ts.id, ts.staff_id, ts.subject_section_id, ts.created_by, ts.created_at,
       ss.section_id, sec.name AS section_name, ss.subject_id, sub.name AS subject_name,
       st.full_name AS staff_name
FROM teacher_sections ts
JOIN subject_sections ss ON ss.id = ts.subject_section_id
JOIN sections sec ON sec.id = ss.section_id
JOIN subjects sub ON sub.id = ss.subject_id
JOIN staff_members st ON st.id = ts.staff_id`

// ListBySection returns assignments into a section with resolved details.
func (r *TeacherSectionRepository) ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error) {
	query := teacherSectionDetailColumns + `
WHERE ss.section_id = $1
ORDER BY sub.name ASC, st.full_name ASC`
	var assignments []models.TeacherSectionDetail
	if err := r.db.SelectContext(ctx, &assignments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list teacher sections by section: %w", err)
	}
	return assignments, nil
}

// ListByStaff returns assignments held by a staff member with details.
func (r *TeacherSectionRepository) ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error) {
	query := teacherSectionDetailColumns + `
WHERE ts.staff_id = $1
ORDER BY sec.name ASC, sub.name ASC`
	var assignments []models.TeacherSectionDetail
	if err := r.db.SelectContext(ctx, &assignments, query, staffID); err != nil {
		return nil, fmt.Errorf("list teacher sections by staff: %w", err)
	}
	return assignments, nil
}

// ListStaffIDsBySection returns the distinct staff teaching in a section.
// The rebuild engine uses it to fan a grid change out to every affected
// staff snapshot.
func (r *TeacherSectionRepository) ListStaffIDsBySection(ctx context.Context, sectionID string) ([]string, error) {
	const query = `
SELECT DISTINCT ts.staff_id
FROM teacher_sections ts
JOIN subject_sections ss ON ss.id = ts.subject_section_id
WHERE ss.section_id = $1
ORDER BY ts.staff_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sectionID); err != nil {
		return nil, fmt.Errorf("list staff ids by section: %w", err)
	}
	return ids, nil
}

// FindByID fetches a single assignment.
func (r *TeacherSectionRepository) FindByID(ctx context.Context, id string) (*models.TeacherSectionAssignment, error) {
	const query = `SELECT id, staff_id, subject_section_id, created_by, created_at FROM teacher_sections WHERE id = $1`
	var assignment models.TeacherSectionAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Exists checks whether the staff already teaches the subject section.
func (r *TeacherSectionRepository) Exists(ctx context.Context, staffID, subjectSectionID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_sections WHERE staff_id = $1 AND subject_section_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, staffID, subjectSectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher section: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *TeacherSectionRepository) Create(ctx context.Context, assignment *models.TeacherSectionAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_sections (id, staff_id, subject_section_id, created_by, created_at)
		VALUES (:id, :staff_id, :subject_section_id, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teacher section: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *TeacherSectionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teacher_sections WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete teacher section: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted teacher section rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
