// Package model holds the shared value types exchanged between session,
// game entity, game manager, matchmaking, and handler packages: player
// identity, network descriptors, and matchmaking rule sets.
package model

// Role is a player's authorization level.
type Role int

const (
	RoleDefault Role = iota
	RoleAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSuperAdmin:
		return "SuperAdmin"
	default:
		return "Default"
	}
}

// Player is the account identity record. PasswordHash is nil for
// upstream-origin accounts (OriginLogin), which authenticate via the
// retriever collaborator instead of a local password.
type Player struct {
	ID           int32
	Email        string
	DisplayName  string
	PasswordHash *string
	Role         Role
}

// IsUpstreamOrigin reports whether this account has no local password and
// must authenticate via the upstream retriever.
func (p *Player) IsUpstreamOrigin() bool {
	return p.PasswordHash == nil
}
