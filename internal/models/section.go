package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Section represents a class/cohort grouping of students for a school year.
// It carries the denormalized current-schedule snapshot maintained by the
// rebuild engine; the snapshot column is only ever replaced wholesale.
type Section struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	SchoolYear        string         `db:"school_year" json:"school_year"`
	Shift             string         `db:"shift" json:"shift"`
	Active            bool           `db:"active" json:"active"`
	CurrentSchedule   types.JSONText `db:"current_schedule" json:"current_schedule,omitempty"`
	ScheduleRebuiltAt *time.Time     `db:"schedule_rebuilt_at" json:"schedule_rebuilt_at,omitempty"`
	CreatedBy         *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// CreatorID exposes the created-by reference for ownership checks.
func (s *Section) CreatorID() string {
	if s == nil || s.CreatedBy == nil {
		return ""
	}
	return *s.CreatedBy
}

// SectionFilter defines filter criteria for listing sections.
type SectionFilter struct {
	SchoolYear string
	Shift      string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
