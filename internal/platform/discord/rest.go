package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/platform"
)

// Forum threads auto-archive after a week of inactivity, in minutes.
const threadArchiveMinutes = 10080

// memberPageSize is Discord's maximum page size for the member list.
const memberPageSize = 1000

// Client is the REST side of the Discord session. It implements
// platform.Messenger, platform.Directory, platform.RoleManager and
// platform.ThreadCreator over one shared *discordgo.Session.
type Client struct {
	s *discordgo.Session
}

// mapError folds Discord REST failures into the sentinel kinds callers
// match on. 404 means the entity is gone, 403 means the bot lacks a
// permission; everything else passes through wrapped.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, common.ErrNotFound)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, common.ErrPermissionDenied)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return mapError("send message", err)
}

func (c *Client) SendEmbed(ctx context.Context, channelID string, e *platform.Embed) error {
	embed := &discordgo.MessageEmbed{
		Description: e.Description,
	}
	if e.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    e.AuthorName,
			IconURL: e.AuthorIconURL,
		}
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	_, err := c.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return mapError("send embed", err)
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	err := c.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	return mapError("add reaction", err)
}

func (c *Client) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := c.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("fetch channel", err)
	}
	return toChannel(ch), nil
}

func (c *Client) ChannelByName(ctx context.Context, guildID, name string) (*platform.Channel, error) {
	channels, err := c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("list channels", err)
	}
	for _, ch := range channels {
		if ch.Name == name {
			return toChannel(ch), nil
		}
	}
	return nil, fmt.Errorf("channel %q: %w", name, common.ErrNotFound)
}

func (c *Client) Message(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	m, err := c.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("fetch message", err)
	}
	// REST-fetched messages come without a guild id, and jump links
	// need one. The state cache knows the channel's guild.
	if m.GuildID == "" {
		if ch, err := c.s.State.Channel(channelID); err == nil {
			m.GuildID = ch.GuildID
		}
	}
	return toMessage(m), nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("fetch member", err)
	}
	return toMember(m), nil
}

func (c *Client) Members(ctx context.Context, guildID string) ([]*platform.Member, error) {
	var all []*platform.Member
	after := ""
	for {
		page, err := c.s.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError("list members", err)
		}
		for _, m := range page {
			all = append(all, toMember(m))
		}
		if len(page) < memberPageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (c *Client) RoleByName(ctx context.Context, guildID, name string) (*platform.Role, error) {
	roles, err := c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("list roles", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return &platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, common.ErrNotFound)
}

func (c *Client) IsAdmin(ctx context.Context, channelID, userID string) (bool, error) {
	perms, err := c.s.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, mapError("check permissions", err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	err := c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	return mapError("add role", err)
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	err := c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
	return mapError("remove role", err)
}

func (c *Client) CreateThread(ctx context.Context, forumID, title, content string) (*platform.Channel, error) {
	th, err := c.s.ForumThreadStart(forumID, title, threadArchiveMinutes, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("create thread", err)
	}
	return toChannel(th), nil
}
