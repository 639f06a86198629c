package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

func TestDefaultPoliciesCoverAllResources(t *testing.T) {
	policies := DefaultPolicies()
	for _, resource := range []string{
		ResourceSections, ResourceStaff, ResourceSubjects,
		ResourceSubjectSections, ResourceTeacherSections, ResourceTimetables,
		ResourceSectionSchedule, ResourceStaffSchedule, ResourceUsers,
	} {
		_, ok := policies[resource]
		require.True(t, ok, resource)
	}
}

func TestSectionMutationsAdministrativeOnly(t *testing.T) {
	policy := DefaultPolicies()[ResourceSections]

	registrar := Principal{UserID: "u1", Role: models.RoleRegistrar, Authenticated: true}
	teacher := Principal{UserID: "u2", Role: models.RoleTeacher, Authenticated: true}

	assert.Equal(t, Allow, policy.Admit(registrar, "create"))
	assert.Equal(t, Deny, policy.Admit(teacher, "create"))
	assert.Equal(t, Allow, policy.Admit(teacher, "read"))
	assert.Equal(t, Deny, policy.Admit(Principal{}, "read"))
}

func TestSectionDeleteDisabledForEveryone(t *testing.T) {
	policy := DefaultPolicies()[ResourceSections]
	management := Principal{UserID: "u1", Role: models.RoleManagement, Authenticated: true}

	assert.Equal(t, Deny, policy.Admit(management, "delete"))
}

func TestStaffScheduleOwnerConditional(t *testing.T) {
	policy := DefaultPolicies()[ResourceStaffSchedule]

	teacher := Principal{UserID: "u1", Role: models.RoleTeacher, Authenticated: true}
	monitor := Principal{UserID: "u2", Role: models.RoleMonitor, Authenticated: true}

	assert.Equal(t, Conditional, policy.Admit(teacher, "read"))
	assert.Equal(t, Allow, policy.Admit(monitor, "read"))

	userID := "u1"
	own := &models.StaffMember{ID: "t1", UserID: &userID}
	assert.True(t, policy.Authorize(teacher, "read", own))
	other := Principal{UserID: "u9", Role: models.RoleTeacher, Authenticated: true}
	assert.False(t, policy.Authorize(other, "read", own))
}

func TestStaffScheduleExportMirrorsRead(t *testing.T) {
	policy := DefaultPolicies()[ResourceStaffSchedule]
	teacher := Principal{UserID: "u1", Role: models.RoleTeacher, Authenticated: true}

	assert.Equal(t, Conditional, policy.Admit(teacher, ActionExport))
}

func TestUsersReadSelf(t *testing.T) {
	policy := DefaultPolicies()[ResourceUsers]
	student := Principal{UserID: "u1", Role: models.RoleStudent, Authenticated: true}

	assert.Equal(t, Conditional, policy.Admit(student, "read"))
	assert.Equal(t, Deny, policy.Admit(student, "create"))
}
