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

// SubjectSectionRepository persists subject-section assignments.
type SubjectSectionRepository struct {
	db *sqlx.DB
}

// NewSubjectSectionRepository constructs the repository.
func NewSubjectSectionRepository(db *sqlx.DB) *SubjectSectionRepository {
	return &SubjectSectionRepository{db: db}
}

// ListBySection returns assignments for a section with subject details.
func (r *SubjectSectionRepository) ListBySection(ctx context.Context, sectionID string) ([]models.SubjectSectionDetail, error) {
	const query = `
SELECT ss.id, ss.section_id, ss.subject_id, ss.school_year, ss.created_by, ss.created_at,
       sec.name AS section_name, sub.name AS subject_name, sub.code AS subject_code
FROM subject_sections ss
JOIN sections sec ON sec.id = ss.section_id
JOIN subjects sub ON sub.id = ss.subject_id
WHERE ss.section_id = $1
ORDER BY sub.name ASC`
	var assignments []models.SubjectSectionDetail
	if err := r.db.SelectContext(ctx, &assignments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list subject sections: %w", err)
	}
	return assignments, nil
}

// FindByID fetches a single assignment.
func (r *SubjectSectionRepository) FindByID(ctx context.Context, id string) (*models.SubjectSectionAssignment, error) {
	const query = `SELECT id, section_id, subject_id, school_year, created_by, created_at FROM subject_sections WHERE id = $1`
	var assignment models.SubjectSectionAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Exists checks whether the section-subject-year tuple already exists.
func (r *SubjectSectionRepository) Exists(ctx context.Context, sectionID, subjectID, schoolYear string) (bool, error) {
	const query = `SELECT 1 FROM subject_sections WHERE section_id = $1 AND subject_id = $2 AND school_year = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, sectionID, subjectID, schoolYear); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject section: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *SubjectSectionRepository) Create(ctx context.Context, assignment *models.SubjectSectionAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subject_sections (id, section_id, subject_id, school_year, created_by, created_at)
		VALUES (:id, :section_id, :subject_id, :school_year, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create subject section: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *SubjectSectionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM subject_sections WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete subject section: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted subject section rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
