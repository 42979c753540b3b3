package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/autorole/internal/adapters/guild"
	"github.com/okian/autorole/internal/domain/model"
)

// Guild implements guild.Guild over the Discord REST API. Role names are
// cached per guild and refreshed when an unknown role id is asked for.
type Guild struct {
	session Session

	mu    sync.Mutex
	names map[string]map[string]string // guild id -> role id -> name
}

var _ guild.Guild = (*Guild)(nil)

// NewGuild creates a role backend over s.
func NewGuild(s Session) *Guild {
	return &Guild{session: s, names: make(map[string]map[string]string)}
}

// MemberRoles returns the roles memberID holds right now.
func (g *Guild) MemberRoles(ctx context.Context, guildID, memberID string) (model.RoleSet, error) {
	m, err := g.session.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", guild.ErrUnknownMember, memberID)
		}
		return nil, fmt.Errorf("fetch member %s: %w", memberID, err)
	}
	return model.NewRoleSet(m.Roles...), nil
}

// AddRole grants roleID with reason recorded in the audit log.
func (g *Guild) AddRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	err := g.session.GuildMemberRoleAdd(guildID, memberID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("add role %s: %w", roleID, err)
	}
	return nil
}

// RemoveRole revokes roleID with reason recorded in the audit log.
func (g *Guild) RemoveRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	err := g.session.GuildMemberRoleRemove(guildID, memberID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("remove role %s: %w", roleID, err)
	}
	return nil
}

// RoleName returns the display name of roleID.
func (g *Guild) RoleName(ctx context.Context, guildID, roleID string) (string, error) {
	g.mu.Lock()
	name, ok := g.names[guildID][roleID]
	g.mu.Unlock()
	if ok {
		return name, nil
	}

	roles, err := g.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch roles of %s: %w", guildID, err)
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	g.mu.Lock()
	g.names[guildID] = names
	g.mu.Unlock()

	if name, ok = names[roleID]; !ok {
		return "", fmt.Errorf("%w: %s", guild.ErrUnknownRole, roleID)
	}
	return name, nil
}
