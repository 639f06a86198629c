package models

import "time"

// UserRole represents the closed set of roles recognised by the access policy engine.
type UserRole string

const (
	RoleManagement UserRole = "MANAGEMENT"
	RoleRegistrar  UserRole = "REGISTRAR"
	RoleTeacher    UserRole = "TEACHER"
	RoleMonitor    UserRole = "MONITOR"
	RoleStudent    UserRole = "STUDENT"
	RoleGuardian   UserRole = "GUARDIAN"
)

// Roles enumerates every recognised role tag.
var Roles = []UserRole{
	RoleManagement,
	RoleRegistrar,
	RoleTeacher,
	RoleMonitor,
	RoleStudent,
	RoleGuardian,
}

// Valid reports whether the role belongs to the closed set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleManagement, RoleRegistrar, RoleTeacher, RoleMonitor, RoleStudent, RoleGuardian:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// OwnerUserID reports the account a user record belongs to, which is the
// record itself. Lets self-service reads settle OWNER-conditional policies.
func (u *User) OwnerUserID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
