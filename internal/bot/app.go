// Package bot wires the services together and runs the event loop.
// It owns the gateway session, the single-goroutine dispatcher every
// inbound event funnels through, and graceful shutdown.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/atelier/internal/bot/config"
	"github.com/dmitrijs2005/atelier/internal/filex"
	"github.com/dmitrijs2005/atelier/internal/gallery"
	"github.com/dmitrijs2005/atelier/internal/ledger"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
	"github.com/dmitrijs2005/atelier/internal/platform/discord"
	"github.com/dmitrijs2005/atelier/internal/store"
	"github.com/dmitrijs2005/atelier/internal/sweeper"
	"github.com/dmitrijs2005/atelier/internal/tiers"
)

// dispatcherQueueSize bounds the inbound event backlog; events past it are
// dropped rather than queued without limit.
const dispatcherQueueSize = 256

type App struct {
	config     *config.Config
	logger     logging.Logger
	gateway    *discord.Gateway
	dispatcher *Dispatcher
	handlers   *Handlers
	sweeper    *sweeper.Sweeper
	guild      *platform.GuildRef
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is not set")
	}

	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir init error: %w", err)
	}

	gw, err := discord.NewGateway(cfg.Token, cfg.ProxyURL, logger)
	if err != nil {
		return nil, fmt.Errorf("gateway init error: %w", err)
	}
	rest := gw.Rest()

	st := store.New(dataDir, logger)
	guild := platform.NewGuildRef()

	granter := newRoleGranter(rest, rest, guild,
		map[string]string{cfg.StarGrantKey: cfg.StarRoleName}, logger)

	ledgerSvc := ledger.NewService(st, cfg.LedgerFile, cfg.DailyReward, granter, logger)
	gallerySvc := gallery.NewService(st, cfg.ThreadIndexFile, rest, rest, rest,
		cfg.GalleryChannelName, cfg.TriggerEmoji, cfg.ProcessedEmoji, logger)
	tiersSvc := tiers.NewService(rest, rest, rest,
		cfg.SpectatorRoleName, cfg.CreatorRoleName, logger)

	d := NewDispatcher(dispatcherQueueSize, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		gateway:    gw,
		dispatcher: d,
		handlers:   NewHandlers(cfg, ledgerSvc, gallerySvc, tiersSvc, rest, rest, rest, logger),
		sweeper:    sweeper.New(ledgerSvc, guild, d, cfg.SweepInterval, logger),
		guild:      guild,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// bindGateway routes gateway events onto the dispatcher. The callbacks run
// on discordgo's goroutines and do nothing but submit; every handler body
// then runs serialized on the dispatcher.
func (app *App) bindGateway(ctx context.Context) {
	app.gateway.OnReady = func(self platform.Author) {
		app.logger.Info(ctx, "logged in", "user", self.Name, "id", self.ID)
	}
	app.gateway.OnGuild = func(g platform.Guild) {
		app.guild.Set(g)
		app.logger.Info(ctx, "guild available", "guild", g.Name, "id", g.ID,
			"gallery_channel", app.config.GalleryChannelName,
			"trigger_emoji", app.config.TriggerEmoji,
			"daily_reward", app.config.DailyReward,
			"sweep_interval", app.config.SweepInterval.String())
	}
	app.gateway.OnMessage = func(m *platform.Message) {
		app.dispatcher.Submit("message", func(ctx context.Context) error {
			return app.handlers.HandleMessage(ctx, m)
		})
	}
	app.gateway.OnReaction = func(ev platform.ReactionEvent) {
		app.dispatcher.Submit("reaction", func(ctx context.Context) error {
			return app.handlers.HandleReaction(ctx, ev)
		})
	}
	app.gateway.OnMemberJoin = func(guildID, userID string) {
		app.dispatcher.Submit("member-join", func(ctx context.Context) error {
			return app.handlers.HandleMemberJoin(ctx, guildID, userID)
		})
	}
	app.gateway.OnMemberLeave = func(guildID string, user platform.Author) {
		app.dispatcher.Submit("member-leave", func(ctx context.Context) error {
			return app.handlers.HandleMemberLeave(ctx, guildID, user)
		})
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.bindGateway(ctx)

	if err := app.gateway.Open(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.dispatcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	<-ctx.Done()
	app.logger.Info(ctx, "Shutting down...")

	if err := app.gateway.Close(); err != nil {
		app.logger.Error(ctx, "gateway close failed", "error", err)
	}

	wg.Wait()
	return nil
}
