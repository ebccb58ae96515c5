package auth

// Permission is a named capability.
type Permission string

const (
	PermDeviceRead      Permission = "device:read"
	PermDeviceOperate   Permission = "device:operate"
	PermDeviceConfigure Permission = "device:configure"
	PermProgramRead     Permission = "program:read"
	PermProgramRun      Permission = "program:run"
	PermAuditRead       Permission = "audit:read"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDeviceRead,
		PermProgramRead,
	},
	RoleOperator: {
		PermDeviceRead,
		PermDeviceOperate,
		PermProgramRead,
		PermProgramRun,
	},
	RoleAdmin: {
		PermDeviceRead,
		PermDeviceOperate,
		PermDeviceConfigure,
		PermProgramRead,
		PermProgramRun,
		PermAuditRead,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
