package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/bot/config"
	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/gallery"
	"github.com/dmitrijs2005/atelier/internal/ledger"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
	"github.com/dmitrijs2005/atelier/internal/tiers"
)

// Recognized chat commands. Matching is exact on the whole message body;
// there are no flags or arguments.
const (
	cmdCheckIn      = "check-in"
	cmdQueryBalance = "query-balance"
	cmdPurchaseRole = "purchase-weekly-role"
	cmdBulkAssign   = "bulk-assign-default-role"
	cmdPing         = "ping"
)

// Handlers contains the bot's inbound event handlers. Every method runs on
// the dispatcher's single goroutine; remote-call failures are converted to
// user-facing replies or logs and never escape.
type Handlers struct {
	cfg     *config.Config
	ledger  *ledger.Service
	gallery *gallery.Service
	tiers   *tiers.Service
	msgs    platform.Messenger
	dir     platform.Directory
	roles   platform.RoleManager
	logger  logging.Logger
}

func NewHandlers(
	cfg *config.Config,
	ledgerSvc *ledger.Service,
	gallerySvc *gallery.Service,
	tiersSvc *tiers.Service,
	msgs platform.Messenger,
	dir platform.Directory,
	roles platform.RoleManager,
	logger logging.Logger,
) *Handlers {
	return &Handlers{
		cfg:     cfg,
		ledger:  ledgerSvc,
		gallery: gallerySvc,
		tiers:   tiersSvc,
		msgs:    msgs,
		dir:     dir,
		roles:   roles,
		logger:  logger.With("module", "handlers"),
	}
}

// HandleMessage dispatches one inbound message: first the fixed command
// set, then the attachment-driven tier promotion.
func (h *Handlers) HandleMessage(ctx context.Context, msg *platform.Message) error {
	if msg.Author.Bot || msg.GuildID == "" {
		return nil
	}

	switch msg.Content {
	case cmdCheckIn:
		return h.checkIn(ctx, msg)
	case cmdQueryBalance:
		return h.queryBalance(ctx, msg)
	case cmdPurchaseRole:
		return h.purchaseWeeklyRole(ctx, msg)
	case cmdBulkAssign:
		return h.bulkAssignDefaultRole(ctx, msg)
	case cmdPing:
		return h.msgs.SendMessage(ctx, msg.ChannelID, "pong")
	}

	if len(msg.Attachments) > 0 {
		return h.tiers.HandleAttachmentPost(ctx, msg)
	}
	return nil
}

// HandleReaction feeds reaction-added events into the curation pipeline.
func (h *Handlers) HandleReaction(ctx context.Context, ev platform.ReactionEvent) error {
	return h.gallery.HandleReaction(ctx, ev)
}

// HandleMemberJoin puts the spectator role on every new member. A guild
// without the role simply skips the welcome tier.
func (h *Handlers) HandleMemberJoin(ctx context.Context, guildID, userID string) error {
	role, err := h.dir.RoleByName(ctx, guildID, h.cfg.SpectatorRoleName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.logger.Debug(ctx, "no spectator role, skipping welcome grant", "guild", guildID)
			return nil
		}
		return fmt.Errorf("resolve role %q: %w", h.cfg.SpectatorRoleName, err)
	}

	if err := h.roles.AddRole(ctx, guildID, userID, role.ID); err != nil {
		return fmt.Errorf("assign spectator to %s: %w", userID, err)
	}

	h.logger.Info(ctx, "assigned spectator role to new member", "user", userID)
	return nil
}

// HandleMemberLeave posts a farewell to the chat channel, if one exists.
func (h *Handlers) HandleMemberLeave(ctx context.Context, guildID string, user platform.Author) error {
	ch, err := h.dir.ChannelByName(ctx, guildID, h.cfg.ChatChannelName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("resolve channel %q: %w", h.cfg.ChatChannelName, err)
	}

	return h.msgs.SendMessage(ctx, ch.ID, fmt.Sprintf("Member %s has left the server.", user.Name))
}

func (h *Handlers) checkIn(ctx context.Context, msg *platform.Message) error {
	credited, balance, err := h.ledger.CheckIn(ctx, msg.Author.ID)
	if err != nil {
		return err
	}

	if !credited {
		return h.msgs.SendMessage(ctx, msg.ChannelID, "You already checked in today, come back tomorrow!")
	}

	return h.msgs.SendMessage(ctx, msg.ChannelID,
		fmt.Sprintf("Check-in complete! You earned %d clay and now have %d clay.", h.cfg.DailyReward, balance))
}

func (h *Handlers) queryBalance(ctx context.Context, msg *platform.Message) error {
	balance, err := h.ledger.Balance(ctx, msg.Author.ID)
	if err != nil {
		return err
	}
	return h.msgs.SendMessage(ctx, msg.ChannelID, fmt.Sprintf("You currently have %d clay.", balance))
}

func (h *Handlers) purchaseWeeklyRole(ctx context.Context, msg *platform.Message) error {
	balance, err := h.ledger.Purchase(ctx, msg.Author.ID, h.cfg.StarRoleCost, h.cfg.StarGrantKey, h.cfg.StarRoleDuration)

	switch {
	case err == nil:
		days := int(h.cfg.StarRoleDuration.Hours() / 24)
		return h.msgs.SendMessage(ctx, msg.ChannelID,
			fmt.Sprintf("Congratulations! The %q role is yours for the next %d days. That cost %d clay, leaving you %d.",
				h.cfg.StarRoleName, days, h.cfg.StarRoleCost, balance))

	case errors.Is(err, common.ErrInsufficientFunds):
		return h.msgs.SendMessage(ctx, msg.ChannelID,
			fmt.Sprintf("Not enough clay! The %q role costs %d and you only have %d.",
				h.cfg.StarRoleName, h.cfg.StarRoleCost, balance))

	case errors.Is(err, common.ErrNotFound):
		return h.msgs.SendMessage(ctx, msg.ChannelID,
			fmt.Sprintf("Error: there is no role named %q on this server.", h.cfg.StarRoleName))

	case errors.Is(err, common.ErrPermissionDenied):
		return h.msgs.SendMessage(ctx, msg.ChannelID,
			"Sorry, I don't have permission to manage that role.")

	default:
		h.logger.Error(ctx, "purchase failed", "user", msg.Author.ID, "error", err)
		return h.msgs.SendMessage(ctx, msg.ChannelID, "Sorry, something went wrong on my end.")
	}
}

// bulkAssignDefaultRole walks the whole member list and grants the
// spectator role to every human member holding neither tier role.
// Administrator-only.
func (h *Handlers) bulkAssignDefaultRole(ctx context.Context, msg *platform.Message) error {
	isAdmin, err := h.dir.IsAdmin(ctx, msg.ChannelID, msg.Author.ID)
	if err != nil {
		return fmt.Errorf("check permissions for %s: %w", msg.Author.ID, err)
	}
	if !isAdmin {
		return h.msgs.SendMessage(ctx, msg.ChannelID, "Sorry, only administrators can run this command.")
	}

	spectator, err := h.dir.RoleByName(ctx, msg.GuildID, h.cfg.SpectatorRoleName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return h.msgs.SendMessage(ctx, msg.ChannelID,
				fmt.Sprintf("Error: create the %q role first.", h.cfg.SpectatorRoleName))
		}
		return fmt.Errorf("resolve role %q: %w", h.cfg.SpectatorRoleName, err)
	}

	// The creator role is optional here: without it, only the spectator
	// role gates the grant.
	var creatorID string
	if creator, err := h.dir.RoleByName(ctx, msg.GuildID, h.cfg.CreatorRoleName); err == nil {
		creatorID = creator.ID
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("resolve role %q: %w", h.cfg.CreatorRoleName, err)
	}

	if err := h.msgs.SendMessage(ctx, msg.ChannelID,
		"Assigning the default role to existing members, this may take a while..."); err != nil {
		return err
	}

	members, err := h.dir.Members(ctx, msg.GuildID)
	if err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			return h.msgs.SendMessage(ctx, msg.ChannelID,
				"Error: I am missing permission to list the server members.")
		}
		return fmt.Errorf("list members: %w", err)
	}

	checked, updated := 0, 0
	for _, m := range members {
		checked++
		if m.User.Bot {
			continue
		}
		if m.HasRole(spectator.ID) || (creatorID != "" && m.HasRole(creatorID)) {
			continue
		}
		if err := h.roles.AddRole(ctx, msg.GuildID, m.User.ID, spectator.ID); err != nil {
			h.logger.Warn(ctx, "could not assign spectator role", "user", m.User.ID, "error", err)
			continue
		}
		updated++
	}

	return h.msgs.SendMessage(ctx, msg.ChannelID,
		fmt.Sprintf("Done! Checked %d members and granted %q to %d of them.",
			checked, h.cfg.SpectatorRoleName, updated))
}
