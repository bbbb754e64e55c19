package platform

import "context"

// Messenger issues outbound messages and reactions.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed *Embed) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

// Directory resolves platform entities by id or name.
type Directory interface {
	Channel(ctx context.Context, channelID string) (*Channel, error)
	ChannelByName(ctx context.Context, guildID, name string) (*Channel, error)
	Message(ctx context.Context, channelID, messageID string) (*Message, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	Members(ctx context.Context, guildID string) ([]*Member, error)
	RoleByName(ctx context.Context, guildID, name string) (*Role, error)
	IsAdmin(ctx context.Context, channelID, userID string) (bool, error)
}

// RoleManager mutates member roles.
type RoleManager interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// ThreadCreator opens a new thread in a forum channel.
type ThreadCreator interface {
	CreateThread(ctx context.Context, forumID, title, content string) (*Channel, error)
}
