package auth

import "errors"

// Role is an authorisation tier.
type Role string

const (
	// RoleViewer can list devices, programs and execution history.
	RoleViewer Role = "viewer"

	// RoleOperator can also send commands and run programs.
	RoleOperator Role = "operator"

	// RoleAdmin can also register devices.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role in ascending order of privilege.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrForbidden    = errors.New("auth: insufficient permissions")
)
