package models

import "time"

// OwnerKind identifies which entity kind a schedule snapshot belongs to.
type OwnerKind string

const (
	OwnerSection OwnerKind = "SECTION"
	OwnerStaff   OwnerKind = "STAFF"
)

// OwnerRef identifies a single schedule owner.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// ScheduleEntry is one row of a denormalized schedule snapshot. For a
// section owner the counterpart is the teacher; for a staff owner it is the
// section.
type ScheduleEntry struct {
	Weekday         int    `json:"weekday"`
	Period          int    `json:"period"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	SubjectID       string `json:"subject_id"`
	SubjectName     string `json:"subject_name,omitempty"`
	CounterpartID   string `json:"counterpart_id,omitempty"`
	CounterpartName string `json:"counterpart_name,omitempty"`
}

// CurrentSchedule is the read-optimized projection returned to consumers.
// Entries are ordered by (weekday, period) ascending. RebuiltAt lets
// readers detect degraded freshness after a failed rebuild.
type CurrentSchedule struct {
	Owner     OwnerRef        `json:"owner"`
	Entries   []ScheduleEntry `json:"entries"`
	RebuiltAt *time.Time      `json:"rebuilt_at,omitempty"`
}

// ChangeKind names the source-of-truth relation a mutation touched.
type ChangeKind string

const (
	ChangeSubjectSection ChangeKind = "SUBJECT_SECTION"
	ChangeTeacherSection ChangeKind = "TEACHER_SECTION"
	ChangeGridSlot       ChangeKind = "GRID_SLOT"
	ChangeValidityWindow ChangeKind = "VALIDITY_WINDOW"
)

// SourceChange describes a committed create/update/delete on a source
// relation. The surrounding CRUD layer constructs one after each successful
// write and hands it to the rebuild engine.
type SourceChange struct {
	Kind      ChangeKind `json:"kind"`
	SectionID string     `json:"section_id"`
	StaffID   string     `json:"staff_id,omitempty"`
}
