package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
)

// roleGranter adapts the platform role API to the ledger's RoleGranter:
// grant keys are ledger-side names, resolved to guild roles here so the
// ledger never sees platform ids.
type roleGranter struct {
	dir    platform.Directory
	roles  platform.RoleManager
	guild  *platform.GuildRef
	names  map[string]string // grant key -> role name
	logger logging.Logger
}

func newRoleGranter(dir platform.Directory, roles platform.RoleManager, guild *platform.GuildRef, names map[string]string, logger logging.Logger) *roleGranter {
	return &roleGranter{
		dir:    dir,
		roles:  roles,
		guild:  guild,
		names:  names,
		logger: logger.With("module", "granter"),
	}
}

func (g *roleGranter) resolve(ctx context.Context, grantKey string) (platform.Guild, *platform.Role, error) {
	guild, ok := g.guild.Get()
	if !ok {
		return platform.Guild{}, nil, fmt.Errorf("no guild context yet: %w", common.ErrInternal)
	}

	name, ok := g.names[grantKey]
	if !ok {
		return platform.Guild{}, nil, fmt.Errorf("unknown grant key %q: %w", grantKey, common.ErrInternal)
	}

	role, err := g.dir.RoleByName(ctx, guild.ID, name)
	if err != nil {
		return platform.Guild{}, nil, fmt.Errorf("resolve role %q: %w", name, err)
	}
	return guild, role, nil
}

func (g *roleGranter) Grant(ctx context.Context, userID, grantKey string) error {
	guild, role, err := g.resolve(ctx, grantKey)
	if err != nil {
		return err
	}
	return g.roles.AddRole(ctx, guild.ID, userID, role.ID)
}

// Revoke removes the granted role if the member still exists and still
// holds it; a vanished member or role leaves nothing to do.
func (g *roleGranter) Revoke(ctx context.Context, userID, grantKey string) error {
	guild, role, err := g.resolve(ctx, grantKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			g.logger.Debug(ctx, "granted role no longer exists", "grant", grantKey)
			return nil
		}
		return err
	}

	member, err := g.dir.Member(ctx, guild.ID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("fetch member %s: %w", userID, err)
	}

	if !member.HasRole(role.ID) {
		return nil
	}

	return g.roles.RemoveRole(ctx, guild.ID, userID, role.ID)
}
