// Package discord adapts the bwmarrin/discordgo session to the platform
// interfaces the services depend on.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
)

var newSession = discordgo.New

// Gateway owns the Discord session: it opens and closes the websocket and
// fans inbound events out to the callbacks below. Callbacks must be set
// before Open; they are invoked on discordgo's event goroutines, so they
// should only hand the event off, not do work.
type Gateway struct {
	session *discordgo.Session
	rest    *Client
	logger  logging.Logger

	// connect seam for tests; defaults to session.Open
	connect func() error
	// initial backoff between connect attempts
	backoff time.Duration

	OnReady       func(self platform.Author)
	OnGuild       func(g platform.Guild)
	OnMessage     func(m *platform.Message)
	OnReaction    func(ev platform.ReactionEvent)
	OnMemberJoin  func(guildID, userID string)
	OnMemberLeave func(guildID string, user platform.Author)
}

// NewGateway builds a configured but unopened session. proxyURL may be
// empty; when set, both the REST client and the websocket dial through it.
func NewGateway(token, proxyURL string, logger logging.Logger) (*Gateway, error) {
	s, err := newSession("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		s.Client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
			Timeout:   20 * time.Second,
		}
		s.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyURL(u),
			HandshakeTimeout: 45 * time.Second,
		}
	}

	g := &Gateway{
		session: s,
		rest:    &Client{s: s},
		logger:  logger.With("module", "discord"),
	}
	g.connect = s.Open
	g.backoff = time.Second
	return g, nil
}

// Rest returns the REST side of the session.
func (g *Gateway) Rest() *Client {
	return g.rest
}

// Open registers the event handlers and connects the websocket, retrying
// with exponential backoff so a transient network failure at boot does not
// kill the bot.
func (g *Gateway) Open(ctx context.Context) error {
	g.bindEvents()

	backoff := retry.WithMaxRetries(5, retry.NewExponential(g.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := g.connect(); err != nil {
			g.logger.Warn(ctx, "gateway connect failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) bindEvents() {
	g.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if g.OnReady != nil {
			g.OnReady(toAuthor(r.User, nil))
		}
	})

	// Full guild payloads arrive one GuildCreate at a time after Ready.
	g.session.AddHandler(func(s *discordgo.Session, gc *discordgo.GuildCreate) {
		if g.OnGuild != nil {
			g.OnGuild(platform.Guild{ID: gc.ID, Name: gc.Name})
		}
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if g.OnMessage != nil {
			g.OnMessage(toMessage(m.Message))
		}
	})

	g.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if g.OnReaction != nil {
			g.OnReaction(platform.ReactionEvent{
				GuildID:   r.GuildID,
				ChannelID: r.ChannelID,
				MessageID: r.MessageID,
				UserID:    r.UserID,
				Emoji:     r.Emoji.Name,
			})
		}
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if g.OnMemberJoin != nil && m.User != nil {
			g.OnMemberJoin(m.GuildID, m.User.ID)
		}
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if g.OnMemberLeave != nil && m.User != nil {
			g.OnMemberLeave(m.GuildID, toAuthor(m.User, nil))
		}
	})
}
