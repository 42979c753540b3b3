package guild

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/metrics"
)

// Memory is a Guild held in process memory. It keeps an audit trail of the
// mutations it applied. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	members map[string]map[string]model.RoleSet // guild -> member -> roles
	roles   map[string]string                   // role id -> name
	strict  bool
	audit   []Mutation
}

var _ Guild = (*Memory)(nil)

// NewMemory creates an empty in-memory guild backend.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		members: make(map[string]map[string]model.RoleSet),
		roles:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMemberRoles replaces the roles of memberID.
func (m *Memory) SetMemberRoles(guildID, memberID string, roleIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.member(guildID, memberID)
	m.members[guildID][memberID] = model.NewRoleSet(roleIDs...)
}

// member returns the role set of memberID, creating it. Callers hold mu.
func (m *Memory) member(guildID, memberID string) model.RoleSet {
	g, ok := m.members[guildID]
	if !ok {
		g = make(map[string]model.RoleSet)
		m.members[guildID] = g
	}
	s, ok := g[memberID]
	if !ok {
		s = model.NewRoleSet()
		g[memberID] = s
	}
	return s
}

// MemberRoles returns a copy of the roles memberID holds.
func (m *Memory) MemberRoles(_ context.Context, guildID, memberID string) (model.RoleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.members[guildID][memberID]
	if !ok {
		if m.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, memberID)
		}
		return model.NewRoleSet(), nil
	}
	return model.NewRoleSet(s.IDs()...), nil
}

// AddRole grants roleID to memberID.
func (m *Memory) AddRole(_ context.Context, guildID, memberID, roleID, reason string) error {
	return m.mutate(guildID, memberID, roleID, OpAdd, reason)
}

// RemoveRole revokes roleID from memberID.
func (m *Memory) RemoveRole(_ context.Context, guildID, memberID, roleID, reason string) error {
	return m.mutate(guildID, memberID, roleID, OpRemove, reason)
}

func (m *Memory) mutate(guildID, memberID, roleID string, op Op, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, known := m.roles[roleID]; roleID == "" || (len(m.roles) > 0 && !known) {
		metrics.RecordErrorByComponent("guild", "unknown_role")
		return fmt.Errorf("%w: %q", ErrUnknownRole, roleID)
	}
	s := m.member(guildID, memberID)
	switch op {
	case OpAdd:
		s[roleID] = struct{}{}
	case OpRemove:
		delete(s, roleID)
	}
	m.audit = append(m.audit, Mutation{GuildID: guildID, MemberID: memberID, RoleID: roleID, Op: op, Reason: reason})
	return nil
}

// RoleName returns the registered name of roleID.
func (m *Memory) RoleName(_ context.Context, _ string, roleID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.roles[roleID]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, roleID)
	}
	return name, nil
}

// Mutations returns the audit trail in application order.
func (m *Memory) Mutations() []Mutation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Mutation(nil), m.audit...)
}
