package application

import "strings"

// Role is a named operator role as issued by the remote API.
type Role string

const (
	RoleAdministrator Role = "Administrador"
	RoleSupervisor    Role = "Supervisor"
	RoleTechnician    Role = "Tecnico"
)

// Capability is a named permission checked before an operation or view.
type Capability string

const (
	CapViewDashboard   Capability = "canViewDashboard"
	CapManageUsers     Capability = "canManageUsers"
	CapManageClients   Capability = "canManageClients"
	CapManageVisits    Capability = "canManageVisits"
	CapViewMyVisits    Capability = "canViewMyVisits"
	CapViewTodayVisits Capability = "canViewTodayVisits"
	CapPlanVisits      Capability = "canPlanVisits"
	CapViewTeamBoard   Capability = "canViewTeamBoard"
	CapDeleteVisits    Capability = "canDeleteVisits"
)

// roleCapabilities is the complete grant table. There is no inheritance
// between roles.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdministrator: {
		CapViewDashboard:   true,
		CapManageUsers:     true,
		CapManageClients:   true,
		CapManageVisits:    true,
		CapViewMyVisits:    true,
		CapViewTodayVisits: true,
		CapPlanVisits:      true,
		CapViewTeamBoard:   true,
		CapDeleteVisits:    true,
	},
	RoleSupervisor: {
		CapViewDashboard: true,
		CapManageClients: true,
		CapManageVisits:  true,
		CapViewMyVisits:  true,
		CapPlanVisits:    true,
		CapViewTeamBoard: true,
	},
	RoleTechnician: {
		CapViewDashboard:   true,
		CapViewMyVisits:    true,
		CapViewTodayVisits: true,
	},
}

// HasPermission reports whether role is granted capability. Unknown and empty
// roles have no capabilities.
func HasPermission(role Role, capability Capability) bool {
	return roleCapabilities[role][capability]
}

// Capabilities lists the capabilities granted to role in declaration order.
func Capabilities(role Role) []Capability {
	granted := roleCapabilities[role]
	if len(granted) == 0 {
		return nil
	}
	out := make([]Capability, 0, len(granted))
	for _, c := range []Capability{
		CapViewDashboard, CapManageUsers, CapManageClients, CapManageVisits, CapViewMyVisits,
		CapViewTodayVisits, CapPlanVisits, CapViewTeamBoard, CapDeleteVisits,
	} {
		if granted[c] {
			out = append(out, c)
		}
	}
	return out
}

// PrimaryRole returns the first role of the list, which is the effective role
// for permission checks.
func PrimaryRole(roles []string) Role {
	for _, r := range roles {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			return Role(trimmed)
		}
	}
	return ""
}

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role Role) bool {
	_, ok := roleCapabilities[role]
	return ok
}
