package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/dmitrijs2005/atelier/internal/platform"
)

func toChannelKind(t discordgo.ChannelType) platform.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return platform.ChannelText
	case discordgo.ChannelTypeGuildForum:
		return platform.ChannelForum
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return platform.ChannelThread
	default:
		return platform.ChannelUnknown
	}
}

func toChannel(c *discordgo.Channel) *platform.Channel {
	return &platform.Channel{
		ID:   c.ID,
		Name: c.Name,
		Kind: toChannelKind(c.Type),
	}
}

// displayName picks the most specific name Discord offers: the per-guild
// nick, then the global display name, then the account name.
func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func toAuthor(u *discordgo.User, m *discordgo.Member) platform.Author {
	if u == nil {
		return platform.Author{}
	}
	return platform.Author{
		ID:          u.ID,
		Name:        u.Username,
		DisplayName: displayName(u, m),
		AvatarURL:   u.AvatarURL(""),
		Bot:         u.Bot,
	}
}

func toMessage(m *discordgo.Message) *platform.Message {
	msg := &platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    toAuthor(m.Author, m.Member),
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, platform.Attachment{
			URL:      a.URL,
			Filename: a.Filename,
		})
	}
	for _, r := range m.Reactions {
		if r.Emoji == nil {
			continue
		}
		msg.Reactions = append(msg.Reactions, platform.Reaction{
			Emoji: r.Emoji.Name,
			Mine:  r.Me,
		})
	}
	return msg
}

func toMember(m *discordgo.Member) *platform.Member {
	return &platform.Member{
		User:    toAuthor(m.User, m),
		RoleIDs: m.Roles,
	}
}
