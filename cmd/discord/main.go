// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"novabot/internal/command"
	"novabot/internal/commands"
	"novabot/internal/config"
	"novabot/internal/database"
	"novabot/internal/discord"
	"novabot/internal/gate"
	"novabot/internal/logging"
	"novabot/internal/storage"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("novabot stopped")
	}
}

func run() error {
	started := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer closeLogged("log file", logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	}))
	log.Info().Msg("starting NovaBot")

	var reporter command.FaultReporter
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			return fmt.Errorf("setting up sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		reporter = command.NewSentryReporter(sentry.CurrentHub())
		log.Debug().Msg("sentry enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeLogged("storage", store)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeLogged("database", db)

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	access := gate.NewAccessState(cfg.OwnerID)
	cooldowns := gate.NewCooldowns()
	defer closeLogged("cooldowns", cooldowns)
	xpCooldowns := gate.NewCooldowns()
	defer closeLogged("xp cooldowns", xpCooldowns)

	catalog := command.NewCatalog()
	registry := command.NewRegistry(catalog,
		command.WithCommandLogger(store),
		command.WithGuildOnly(),
	)
	modules := commands.Register(catalog, commands.Deps{
		DB:                db,
		Storage:           store,
		Access:            access,
		XPCooldowns:       xpCooldowns,
		Registry:          registry,
		Session:           session,
		ModLogChannel:     cfg.ModLogChannel,
		MessageLogChannel: cfg.MessageLog,
		JoinLogChannel:    cfg.JoinLog,
		BannedWords:       cfg.BannedWords,
		Started:           started,
		Shutdown:          shutdown,
	})
	defer closeLogged("command modules", modules)

	loaded, err := registry.LoadAll(cfg.CommandsPath)
	if err != nil {
		return err
	}
	log.Info().Int("commands", loaded).Str("path", cfg.CommandsPath).Msg("commands loaded")

	registry.SetPublisher(discord.NewPublisher(session, discord.SessionAppID(session), cfg.GuildID, store))

	opts := []command.DispatcherOption{
		command.WithTimeout(cfg.HandlerTimeout),
		command.WithEmbedColor(cfg.EmbedColor),
	}
	if reporter != nil {
		opts = append(opts, command.WithFaultReporter(reporter))
	}
	dispatcher := command.NewDispatcher(registry, access, cooldowns, opts...)

	bot := discord.New(session, dispatcher, registry, modules.Listeners...)
	defer closeLogged("discord session", bot)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })

	if cfg.WatchCommands {
		watcher, err := command.NewWatcher(registry, cfg.CommandsPath)
		if err != nil {
			return fmt.Errorf("watch commands: %w", err)
		}
		defer watcher.Stop()
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("NovaBot stopped")
	return nil
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Error().Err(err).Str("resource", name).Msg("close failed")
	}
}
