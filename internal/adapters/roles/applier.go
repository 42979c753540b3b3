// Package roles applies role diffs to guild members.
package roles

import (
	"context"

	"github.com/okian/autorole/internal/adapters/guild"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Mutation results recorded in metrics.
const (
	resultOK     = "ok"
	resultError  = "error"
	resultDryRun = "dry_run"
)

// Applier applies each add and remove of a diff independently. A failed
// mutation is reported and never rolls back the others.
type Applier struct {
	guild  guild.Guild
	dryRun bool
	logger logger.Logger
}

// NewApplier creates an applier over g.
func NewApplier(g guild.Guild, opts ...Option) *Applier {
	a := &Applier{guild: g, logger: logger.Get().Named("roles")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply grants diff.ToAdd and revokes diff.ToRemove on memberID on behalf of
// actor. Names in the result fall back to role ids when a name cannot be
// resolved.
func (a *Applier) Apply(ctx context.Context, guildID, memberID, actor string, diff model.RoleDiff) model.Applied {
	out := model.Applied{Failures: make(map[string]error)}
	log := a.logger.With(
		logger.String("guild", guildID),
		logger.String("member", memberID),
		logger.String("actor", actor),
	)

	for _, id := range diff.ToAdd {
		name := a.name(ctx, guildID, id)
		if err := a.mutate(ctx, log, guild.OpAdd, guildID, memberID, id, name, "Added by autorole for "+actor); err != nil {
			out.Failures[id] = err
			continue
		}
		out.Added = append(out.Added, name)
	}
	for _, id := range diff.ToRemove {
		name := a.name(ctx, guildID, id)
		if err := a.mutate(ctx, log, guild.OpRemove, guildID, memberID, id, name, "Removed by autorole for "+actor); err != nil {
			out.Failures[id] = err
			continue
		}
		out.Removed = append(out.Removed, name)
	}
	return out
}

func (a *Applier) mutate(ctx context.Context, log logger.Logger, op guild.Op, guildID, memberID, roleID, name, reason string) error {
	fields := []logger.Field{logger.String("op", string(op)), logger.String("role_id", roleID), logger.String("role", name)}
	if a.dryRun {
		metrics.RecordRoleMutation(string(op), resultDryRun)
		log.Info(ctx, "dry run: role mutation skipped", fields...)
		return nil
	}

	var err error
	switch op {
	case guild.OpAdd:
		err = a.guild.AddRole(ctx, guildID, memberID, roleID, reason)
	case guild.OpRemove:
		err = a.guild.RemoveRole(ctx, guildID, memberID, roleID, reason)
	}
	if err != nil {
		metrics.RecordRoleMutation(string(op), resultError)
		metrics.RecordErrorByComponent("roles", string(op)+"_failed")
		log.Error(ctx, "role mutation failed", append(fields, logger.Error(err))...)
		return err
	}
	metrics.RecordRoleMutation(string(op), resultOK)
	log.Info(ctx, "role mutation applied", fields...)
	return nil
}

func (a *Applier) name(ctx context.Context, guildID, roleID string) string {
	name, err := a.guild.RoleName(ctx, guildID, roleID)
	if err != nil || name == "" {
		return roleID
	}
	return name
}
