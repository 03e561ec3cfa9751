package models

import "time"

type Role string

const (
	RoleRegular    Role = "regular"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
)

// IsPrivileged reports whether the role may moderate chat.
func (r Role) IsPrivileged() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleOwner:
		return true
	}
	return false
}

type PresenceEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type BanRecord struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	BannedBy  string    `json:"banned_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the caller described by a bearer token.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) Presence() PresenceEntry {
	return PresenceEntry{UserID: i.UserID, Username: i.Username, Role: i.Role}
}
