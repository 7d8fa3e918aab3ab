// Package owner implements the bot owner's administration commands. Access
// is restricted by the owner category, not by the handlers.
package owner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	colorOK    = 0x00FF00
	colorAlert = 0xFF0000
	colorReset = 0xFF9900
)

type Maintenance interface {
	SetMaintenance(enabled bool, reason string)
}

type Presence interface {
	SetMaintenancePresence(enabled bool, reason string) error
}

type Reloader interface {
	Reload(ctx context.Context, name string) (*command.Descriptor, error)
}

// Resetter wipes a member's stored progress.
type Resetter interface {
	ResetAccount(ctx context.Context, guildID, userID string) error
	ResetLevel(ctx context.Context, guildID, userID string) error
}

type Module struct {
	maintenance Maintenance
	presence    Presence
	reloader    Reloader
	resetter    Resetter
	shutdown    func()
}

// New returns the module. shutdown is called once the shutdown reply is sent.
func New(maintenance Maintenance, presence Presence, reloader Reloader, resetter Resetter, shutdown func()) *Module {
	return &Module{
		maintenance: maintenance,
		presence:    presence,
		reloader:    reloader,
		resetter:    resetter,
		shutdown:    shutdown,
	}
}

func (m *Module) Register(cat *command.Catalog) {
	cat.RegisterFunc("owner.maintenance", m.setMaintenance)
	cat.RegisterFunc("owner.reload", m.reload)
	cat.RegisterFunc("owner.reset-user", m.resetUser)
	cat.RegisterFunc("owner.shutdown", m.shutdownBot)
}

func (m *Module) setMaintenance(ctx context.Context, c *command.Context) error {
	enabled, _ := c.Options().Bool("enabled")
	reason, _ := c.Options().String("reason")
	reason = strings.TrimSpace(reason)

	m.maintenance.SetMaintenance(enabled, reason)
	if err := m.presence.SetMaintenancePresence(enabled, reason); err != nil {
		log.Warn().Err(err).Bool("enabled", enabled).Msg("failed to update presence")
	}
	log.Info().Bool("enabled", enabled).Str("reason", reason).Str("user_id", c.UserID()).Msg("maintenance mode changed")

	state, color := "disabled", colorOK
	if enabled {
		state, color = "enabled", colorAlert
	}
	shown := reason
	if shown == "" {
		shown = "No reason provided"
	}
	embed := c.Embed("Maintenance Mode", fmt.Sprintf("Maintenance mode has been %s.", state))
	embed.Color = color
	embed.Fields = []*discordgo.MessageEmbedField{{Name: "Reason", Value: shown}}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) reload(ctx context.Context, c *command.Context) error {
	name, _ := c.Options().String("command")
	name = strings.ToLower(strings.TrimSpace(name))

	_, err := m.reloader.Reload(ctx, name)
	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		return c.ReplyText(fmt.Sprintf("There is no command with name `%s`!", name))
	case err != nil:
		log.Error().Err(err).Str("command", name).Msg("reload failed")
		return c.ReplyText(fmt.Sprintf("There was an error while reloading command `%s`:\n```%v```", name, err))
	}

	embed := c.Embed("Success", fmt.Sprintf("Command `%s` was reloaded!", name))
	embed.Color = colorOK
	return c.ReplyEmbed(embed, true)
}

func (m *Module) resetUser(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user to reset.")
	}
	kind, _ := c.Options().String("type")

	var details []string
	if kind == "economy" || kind == "both" {
		if err := m.resetter.ResetAccount(ctx, c.GuildID(), target.ID); err != nil {
			return fmt.Errorf("reset economy: %w", err)
		}
		details = append(details, "✅ Economy data reset")
	}
	if kind == "levels" || kind == "both" {
		if err := m.resetter.ResetLevel(ctx, c.GuildID(), target.ID); err != nil {
			return fmt.Errorf("reset levels: %w", err)
		}
		details = append(details, "✅ Level data reset")
	}
	if len(details) == 0 {
		return c.ReplyText("Reset type must be economy, levels or both.")
	}

	embed := c.Embed("🔄 User Reset Complete", fmt.Sprintf("Reset completed for <@%s>", target.ID))
	embed.Color = colorReset
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Reset Type", Value: strings.ToUpper(kind[:1]) + kind[1:]},
		{Name: "Details", Value: strings.Join(details, "\n")},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "User data has been reset to default values"}
	return c.ReplyEmbed(embed, true)
}

func (m *Module) shutdownBot(ctx context.Context, c *command.Context) error {
	embed := c.Embed("Bot Shutdown", "Bot is shutting down...")
	embed.Color = colorAlert
	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	log.Info().Str("user_id", c.UserID()).Msg("shutdown requested")
	m.shutdown()
	return nil
}
