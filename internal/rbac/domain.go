package rbac

// Role is the coarse-grained identity classification. A session carries
// exactly one role, assigned by the identity provider.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleSalesperson Role = "salesperson"
)

// Permission is an atomic capability gating one dashboard action.
type Permission string

const (
	PermViewRequests    Permission = "view_requests"
	PermCreateRequest   Permission = "create_request"
	PermEditRequest     Permission = "edit_request"
	PermDeleteRequest   Permission = "delete_request"
	PermViewAllRequests Permission = "view_all_requests"
	PermExportRequests  Permission = "export_requests"
)

// ParseRole maps a provider-supplied role name onto a known Role.
// Unknown names return false; callers must fail closed.
func ParseRole(name string) (Role, bool) {
	switch Role(name) {
	case RoleOwner:
		return RoleOwner, true
	case RoleSalesperson:
		return RoleSalesperson, true
	default:
		return "", false
	}
}

// rolePermissions is the static permission table. Defined once at process
// start and never mutated; salesperson holds everything owner does except
// delete_request and export_requests.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermViewRequests,
		PermCreateRequest,
		PermEditRequest,
		PermDeleteRequest,
		PermViewAllRequests,
		PermExportRequests,
	},
	RoleSalesperson: {
		PermViewRequests,
		PermCreateRequest,
		PermEditRequest,
		PermViewAllRequests,
	},
}
