package auth

import "strings"

// Role is the role requested at registration or derived from an account state.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleHOC        Role = "HOC"
	RoleInstructor Role = "INSTRUCTOR"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleHOC, RoleInstructor:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts user input into a Role. Matching is case insensitive and
// unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", false
	}
	return r, true
}

// GetAllRoles returns every requestable role.
func GetAllRoles() []Role {
	return []Role{RoleStudent, RoleHOC, RoleInstructor}
}

func roleStrings() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
