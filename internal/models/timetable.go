package models

import "time"

// Weekday numbering used across timetables: 1 = Monday .. 7 = Sunday.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

var weekdayNames = map[int]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// WeekdayName returns the English name for a 1-7 weekday number.
func WeekdayName(weekday int) string {
	if name, ok := weekdayNames[weekday]; ok {
		return name
	}
	return "Unknown"
}

// ValidityWindow is a date range during which a set of grid-slot
// assignments is the authoritative schedule for a section. A section may
// hold several non-overlapping windows across a school year.
type ValidityWindow struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreatorID exposes the created-by reference for ownership checks.
func (w *ValidityWindow) CreatorID() string {
	if w == nil || w.CreatedBy == nil {
		return ""
	}
	return *w.CreatedBy
}

// GridSlotAssignment binds a (weekday, period, subject) tuple to a validity
// window. Source-of-truth relation #3 for the rebuild engine.
type GridSlotAssignment struct {
	ID        string    `db:"id" json:"id"`
	WindowID  string    `db:"window_id" json:"window_id"`
	Weekday   int       `db:"weekday" json:"weekday"`
	Period    int       `db:"period" json:"period"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreatorID exposes the created-by reference for ownership checks.
func (g *GridSlotAssignment) CreatorID() string {
	if g == nil || g.CreatedBy == nil {
		return ""
	}
	return *g.CreatedBy
}

// GridSlotDetail joins in subject information for snapshot construction.
type GridSlotDetail struct {
	GridSlotAssignment
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}
