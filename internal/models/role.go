package models

// Role is the school-management role of the authenticated user.
type Role string

const (
	RoleStudent         Role = "student"
	RoleTeacher         Role = "teacher"
	RoleCoordinator     Role = "coordinator"
	RoleDirector        Role = "director"
	RoleSecretary       Role = "secretary"
	RoleRegionalManager Role = "regional_manager"
)

var Roles = []Role{
	RoleStudent,
	RoleTeacher,
	RoleCoordinator,
	RoleDirector,
	RoleSecretary,
	RoleRegionalManager,
}

func IsRole(r Role) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}
