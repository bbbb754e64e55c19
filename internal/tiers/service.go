// Package tiers promotes members from the spectator role to the creator
// role when they post their first work. The transition is one-way; there is
// no demotion path.
package tiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
)

type Service struct {
	dir    platform.Directory
	roles  platform.RoleManager
	msgs   platform.Messenger
	logger logging.Logger

	spectatorName string
	creatorName   string
}

func NewService(dir platform.Directory, roles platform.RoleManager, msgs platform.Messenger, spectatorName, creatorName string, logger logging.Logger) *Service {
	return &Service{
		dir:           dir,
		roles:         roles,
		msgs:          msgs,
		spectatorName: spectatorName,
		creatorName:   creatorName,
		logger:        logger.With("module", "tiers"),
	}
}

// HandleAttachmentPost fires the spectator→creator transition when the
// author holds the spectator role and not yet the creator role. The two
// role mutations are attempted independently: a partial failure (member
// briefly holding both roles) is logged and left to self-correct on the
// next attempt. The congratulation is only sent once the creator role is
// actually on.
func (s *Service) HandleAttachmentPost(ctx context.Context, msg *platform.Message) error {
	if len(msg.Attachments) == 0 || msg.Author.Bot {
		return nil
	}

	spectator, err := s.dir.RoleByName(ctx, msg.GuildID, s.spectatorName)
	if err != nil {
		return s.roleLookupErr(ctx, s.spectatorName, err)
	}
	creator, err := s.dir.RoleByName(ctx, msg.GuildID, s.creatorName)
	if err != nil {
		return s.roleLookupErr(ctx, s.creatorName, err)
	}

	member, err := s.dir.Member(ctx, msg.GuildID, msg.Author.ID)
	if err != nil {
		return fmt.Errorf("fetch member %s: %w", msg.Author.ID, err)
	}

	if !member.HasRole(spectator.ID) || member.HasRole(creator.ID) {
		return nil
	}

	if err := s.roles.RemoveRole(ctx, msg.GuildID, msg.Author.ID, spectator.ID); err != nil {
		s.logger.Warn(ctx, "could not remove spectator role", "user", msg.Author.ID, "error", err)
	}

	if err := s.roles.AddRole(ctx, msg.GuildID, msg.Author.ID, creator.ID); err != nil {
		s.logger.Warn(ctx, "could not add creator role", "user", msg.Author.ID, "error", err)
		return nil
	}

	s.logger.Info(ctx, "member promoted to creator", "user", msg.Author.ID)

	notice := fmt.Sprintf("Congratulations %s, your first work is up! You are now a %s.", msg.Author.Mention(), s.creatorName)
	if err := s.msgs.SendMessage(ctx, msg.ChannelID, notice); err != nil {
		s.logger.Warn(ctx, "could not send promotion notice", "user", msg.Author.ID, "error", err)
	}
	return nil
}

// A guild without the tier roles simply has promotions disabled.
func (s *Service) roleLookupErr(ctx context.Context, name string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Debug(ctx, "tier role does not exist, skipping promotion", "role", name)
		return nil
	}
	return fmt.Errorf("resolve role %q: %w", name, err)
}
