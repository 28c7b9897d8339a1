package identity

// UserRole is the user's role
type UserRole string

const (
	// RoleViewer can read admin content but not change it
	RoleViewer UserRole = "viewer"
	// RoleAuthor can create and edit their own content
	RoleAuthor UserRole = "author"
	// RoleEditor can edit any content and manage sessions
	RoleEditor UserRole = "editor"
	// RoleAdmin can manage users, invitations, and account lifecycle
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleViewer, RoleAuthor, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role belongs to the staff tier that may hold
// an authenticated admin session (change password, manage own sessions).
func (r UserRole) IsStaff() bool {
	switch r {
	case RoleAuthor, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsPrivileged reports whether the role may act on other accounts
// (suspend, reactivate, send invitations).
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleViewer: 0,
		RoleAuthor: 1,
		RoleEditor: 2,
		RoleAdmin:  3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleViewer,
		RoleAuthor,
		RoleEditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// RoleLabel maps a canonical role to the human label the admin UI displays.
// Total: unknown roles fall back to the viewer label.
func RoleLabel(r UserRole) string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleEditor:
		return "Editor"
	case RoleAuthor:
		return "Author"
	case RoleViewer:
		return "Viewer"
	default:
		return "Viewer"
	}
}

// RoleFromLabel is the inverse of RoleLabel. Total: unknown labels fall back
// to RoleViewer so gate logic always operates on a canonical role.
func RoleFromLabel(label string) UserRole {
	switch label {
	case "Administrator":
		return RoleAdmin
	case "Editor":
		return RoleEditor
	case "Author":
		return RoleAuthor
	case "Viewer":
		return RoleViewer
	default:
		return RoleViewer
	}
}
