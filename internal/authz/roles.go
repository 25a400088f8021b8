package authz

const (
	RoleSales      = 10
	RoleOperations = 20
	RoleAudit      = 30
	RoleManagement = 40
	RoleAdmin      = 50
)

// Action is a pipeline operation an adapter may offer.
type Action string

const (
	ActionView         Action = "view"
	ActionEdit         Action = "edit"
	ActionMoveStage    Action = "move_stage"
	ActionViewForecast Action = "view_forecast"
)

var permissions = map[Action][]int{
	ActionView:         {RoleSales, RoleOperations, RoleAudit, RoleManagement, RoleAdmin},
	ActionEdit:         {RoleSales, RoleOperations, RoleManagement, RoleAdmin},
	ActionMoveStage:    {RoleSales, RoleOperations, RoleManagement, RoleAdmin},
	ActionViewForecast: {RoleOperations, RoleAudit, RoleManagement, RoleAdmin},
}

// RolesFor lists the roles allowed to perform a.
func RolesFor(a Action) []int {
	return append([]int(nil), permissions[a]...)
}

// Can reports whether roleID may perform a.
func Can(roleID int, a Action) bool {
	for _, r := range permissions[a] {
		if r == roleID {
			return true
		}
	}
	return false
}

func IsElevated(roleID int) bool {
	return roleID == RoleOperations || roleID == RoleManagement || roleID == RoleAdmin
}

func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}
