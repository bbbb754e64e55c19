// Package platform defines the bot's view of the host chat platform:
// plain data types for the entities it observes and small per-consumer
// interfaces for the remote calls it issues. The discord subpackage is the
// only implementation; services depend on these interfaces so tests can
// substitute fakes.
//
// Implementations translate remote failures into the sentinel kinds of the
// common package (common.ErrNotFound, common.ErrPermissionDenied); callers
// match them with errors.Is and never see raw transport errors.
package platform

import (
	"fmt"
	"time"
)

// ChannelKind is an explicit tag over channel capability. The gallery
// pipeline requires a forum channel and checks the tag once when resolving
// the channel reference.
type ChannelKind int

const (
	ChannelUnknown ChannelKind = iota
	ChannelText
	ChannelForum
	ChannelThread
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelText:
		return "text"
	case ChannelForum:
		return "forum"
	case ChannelThread:
		return "thread"
	default:
		return "unknown"
	}
}

type Channel struct {
	ID   string
	Name string
	Kind ChannelKind
}

type Attachment struct {
	URL      string
	Filename string
}

// Reaction is an aggregate reaction entry on a message. Mine reports
// whether this bot is among the reactors, which is how the curation
// pipeline recognizes its own processed marker.
type Reaction struct {
	Emoji string
	Mine  bool
}

type Author struct {
	ID          string
	Name        string
	DisplayName string
	AvatarURL   string
	Bot         bool
}

// Mention renders the platform's inline mention for the author.
func (a Author) Mention() string {
	return "<@" + a.ID + ">"
}

type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	Author      Author
	Content     string
	Attachments []Attachment
	Reactions   []Reaction
	CreatedAt   time.Time
}

// HasOwnReaction reports whether this bot already reacted with emoji.
func (m *Message) HasOwnReaction(emoji string) bool {
	for _, r := range m.Reactions {
		if r.Emoji == emoji && r.Mine {
			return true
		}
	}
	return false
}

// JumpLink returns the canonical URL of the message. Discord uses "@me" in
// place of the guild id outside guild context, which also keeps the link
// well-formed when the guild id is unknown.
func (m *Message) JumpLink() string {
	guildID := m.GuildID
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, m.ChannelID, m.ID)
}

type Member struct {
	User    Author
	RoleIDs []string
}

func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

type Role struct {
	ID   string
	Name string
}

// ReactionEvent is the raw reaction-added payload; it carries ids only, the
// message itself is fetched on demand.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// Embed is the rich summary posted into a gallery thread.
type Embed struct {
	Description   string
	ImageURL      string
	AuthorName    string
	AuthorIconURL string
	Footer        string
}
