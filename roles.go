package hospital

// Role is the account role, fixed at creation
type Role string

const (
	// RolePatient is a self-registered or invited patient
	RolePatient Role = "patient"
	// RoleDoctor is clinic staff
	RoleDoctor Role = "doctor"
	// RoleAdmin has the same privileges as a doctor on staff routes
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may manage patient records
func (r Role) IsStaff() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// RequiresActivation reports whether password login is gated on activation.
// Only patients are gated.
func (r Role) RequiresActivation() bool {
	return r == RolePatient
}

func (r Role) String() string {
	return string(r)
}

// StaffRoles are the roles allowed on staff-only routes
func StaffRoles() []string {
	return []string{string(RoleDoctor), string(RoleAdmin)}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
