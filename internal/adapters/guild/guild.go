// Package guild defines the role backend of a chat guild and an in-memory
// implementation of it.
package guild

import (
	"context"

	"github.com/okian/autorole/internal/domain/model"
)

// Guild reads and mutates member roles.
type Guild interface {
	// MemberRoles returns the roles memberID holds right now.
	MemberRoles(ctx context.Context, guildID, memberID string) (model.RoleSet, error)
	// AddRole grants roleID; reason is recorded in the guild's audit log.
	AddRole(ctx context.Context, guildID, memberID, roleID, reason string) error
	// RemoveRole revokes roleID; reason is recorded in the guild's audit log.
	RemoveRole(ctx context.Context, guildID, memberID, roleID, reason string) error
	// RoleName returns the display name of roleID.
	RoleName(ctx context.Context, guildID, roleID string) (string, error)
}

// Op is a role mutation kind.
type Op string

// Mutation kinds.
const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Mutation is one applied role change.
type Mutation struct {
	GuildID  string
	MemberID string
	RoleID   string
	Op       Op
	Reason   string
}
