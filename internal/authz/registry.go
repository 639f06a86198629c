package authz

import "github.com/diogopelaes/cemep-digital/internal/models"

// Resource names used to look up policies in the registry.
const (
	ResourceSections        = "sections"
	ResourceStaff           = "staff"
	ResourceSubjects        = "subjects"
	ResourceSubjectSections = "subject_sections"
	ResourceTeacherSections = "teacher_sections"
	ResourceTimetables      = "timetables"
	ResourceSectionSchedule = "section_schedules"
	ResourceStaffSchedule   = "staff_schedules"
	ResourceUsers           = "users"
	ResourceSystem          = "system"
)

// ActionExport is the named non-CRUD action for schedule file exports.
const ActionExport = "export"

var (
	administrative = RuleSet{RoleToken(models.RoleManagement), RoleToken(models.RoleRegistrar)}
	anyLoggedIn    = RuleSet{Authenticated}
)

// DefaultPolicies is the policy table wired into the HTTP routes. Catalog
// data is readable by any authenticated principal while every mutation is
// reserved for administrative roles; staff schedules additionally open up
// to the staff member's own linked account.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ResourceSections: {
			Create: administrative,
			Read:   anyLoggedIn,
			Update: administrative,
			Delete: RuleSet{None},
		},
		ResourceStaff: {
			Create: administrative,
			Read:   anyLoggedIn,
			Update: administrative,
			Delete: RuleSet{None},
		},
		ResourceSubjects: {
			Create: administrative,
			Read:   anyLoggedIn,
			Update: administrative,
			Delete: administrative,
		},
		ResourceSubjectSections: {
			Create: administrative,
			Read:   anyLoggedIn,
			Delete: administrative,
		},
		ResourceTeacherSections: {
			Create: administrative,
			Read:   anyLoggedIn,
			Delete: administrative,
		},
		ResourceTimetables: {
			Create: administrative,
			Read:   anyLoggedIn,
			Update: administrative,
			Delete: administrative,
		},
		ResourceSectionSchedule: {
			Read:   anyLoggedIn,
			Custom: map[string]RuleSet{ActionExport: anyLoggedIn},
		},
		ResourceStaffSchedule: {
			Read: RuleSet{RoleToken(models.RoleManagement), RoleToken(models.RoleRegistrar), RoleToken(models.RoleMonitor), Owner},
			Custom: map[string]RuleSet{
				ActionExport: {RoleToken(models.RoleManagement), RoleToken(models.RoleRegistrar), RoleToken(models.RoleMonitor), Owner},
			},
		},
		ResourceUsers: {
			Create: RuleSet{RoleToken(models.RoleManagement)},
			Read:   RuleSet{RoleToken(models.RoleManagement), Owner},
			Update: RuleSet{RoleToken(models.RoleManagement)},
			Delete: RuleSet{RoleToken(models.RoleManagement)},
		},
		ResourceSystem: {
			Read: RuleSet{RoleToken(models.RoleManagement)},
		},
	}
}
