package models

import "time"

// SubjectSectionAssignment links a section to a subject for a school year.
// It is one of the three source-of-truth relations feeding the schedule
// rebuild engine.
type SubjectSectionAssignment struct {
	ID         string    `db:"id" json:"id"`
	SectionID  string    `db:"section_id" json:"section_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	SchoolYear string    `db:"school_year" json:"school_year"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CreatorID exposes the created-by reference for ownership checks.
func (a *SubjectSectionAssignment) CreatorID() string {
	if a == nil || a.CreatedBy == nil {
		return ""
	}
	return *a.CreatedBy
}

// SubjectSectionDetail enriches an assignment with descriptive fields.
type SubjectSectionDetail struct {
	SubjectSectionAssignment
	SectionName string `db:"section_name" json:"section_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}

// TeacherSectionAssignment links a staff member to a subject-section
// assignment (a teacher teaching a subject in a section). Source-of-truth
// relation #2 for the rebuild engine.
type TeacherSectionAssignment struct {
	ID               string    `db:"id" json:"id"`
	StaffID          string    `db:"staff_id" json:"staff_id"`
	SubjectSectionID string    `db:"subject_section_id" json:"subject_section_id"`
	CreatedBy        *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// CreatorID exposes the created-by reference for ownership checks.
func (a *TeacherSectionAssignment) CreatorID() string {
	if a == nil || a.CreatedBy == nil {
		return ""
	}
	return *a.CreatedBy
}

// TeacherSectionDetail joins in the section and subject the assignment
// ultimately points at; the rebuild engine resolves counterparts from it.
type TeacherSectionDetail struct {
	TeacherSectionAssignment
	SectionID   string `db:"section_id" json:"section_id"`
	SectionName string `db:"section_name" json:"section_name"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	StaffName   string `db:"staff_name" json:"staff_name"`
}
