package auth

// Permission codenames are the stable programmatic keys; display names and
// descriptions are reference data only.
const (
	PermManageUsers = "manage_users"
	PermManageRoles = "manage_roles"
	PermManageMenus = "manage_menus"
	PermViewUsers   = "view_users"
)

// BuiltinPermissions are ensured at startup; inserting them twice is a no-op.
var BuiltinPermissions = []Permission{
	{Name: "Manage users", Codename: PermManageUsers, Description: "Create user accounts"},
	{Name: "Manage roles", Codename: PermManageRoles, Description: "Create, deactivate and assign roles"},
	{Name: "Manage menus", Codename: PermManageMenus, Description: "Create and edit navigation entries"},
	{Name: "View users", Codename: PermViewUsers, Description: "List user accounts"},
}
