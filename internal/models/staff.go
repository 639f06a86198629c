package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// StaffMember represents a teacher or other staff record. Like Section it
// owns a cached current-schedule snapshot.
type StaffMember struct {
	ID                string         `db:"id" json:"id"`
	UserID            *string        `db:"user_id" json:"user_id,omitempty"`
	Registration      *string        `db:"registration" json:"registration,omitempty"`
	Email             string         `db:"email" json:"email"`
	FullName          string         `db:"full_name" json:"full_name"`
	Phone             *string        `db:"phone" json:"phone,omitempty"`
	Active            bool           `db:"active" json:"active"`
	CurrentSchedule   types.JSONText `db:"current_schedule" json:"current_schedule,omitempty"`
	ScheduleRebuiltAt *time.Time     `db:"schedule_rebuilt_at" json:"schedule_rebuilt_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// OwnerUserID exposes the belongs-to-user reference for ownership checks.
func (s *StaffMember) OwnerUserID() string {
	if s == nil || s.UserID == nil {
		return ""
	}
	return *s.UserID
}

// StaffFilter captures filtering options for listing staff members.
type StaffFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
