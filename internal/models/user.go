package models

// UserRole represents the permission groups of an instance user.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleEditor    UserRole = "editor"
	RoleUser      UserRole = "user"
)

// Capability names a permission checked by handlers and services.
type Capability string

const (
	CapabilityEditInstanceSettings Capability = "edit_instance_settings"
	CapabilityModeratePost         Capability = "moderate_post"
	CapabilityEditBook             Capability = "edit_book"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin:     {CapabilityEditInstanceSettings, CapabilityModeratePost, CapabilityEditBook},
	RoleModerator: {CapabilityModeratePost, CapabilityEditBook},
	RoleEditor:    {CapabilityEditBook},
}

// Has reports whether the role grants the capability.
func (r UserRole) Has(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleEditor, RoleUser:
		return true
	}
	return false
}
