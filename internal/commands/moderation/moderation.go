// Package moderation implements ban, kick, timeouts, warnings, message
// cleanup and member lookups.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"novabot/internal/command"
	"novabot/internal/discord"
	"novabot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	noReason      = "No reason provided"
	maxDeleteDays = 7
	maxClear      = 100
	bulkDeleteAge = 14 * 24 * time.Hour
)

// GuildAPI is the part of *discordgo.Session the moderation commands call.
type GuildAPI interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Store persists warnings and the command history per guild.
type Store interface {
	AddWarning(guildID, userID, moderatorID, reason string) (storage.Warning, error)
	Warnings(guildID, userID string) ([]storage.Warning, error)
	ClearWarnings(guildID, userID string) (int, error)
	FetchCommandHistory(guildID string) ([]storage.CommandHistoryRecord, error)
}

type Module struct {
	api     GuildAPI
	store   Store
	logName string
	now     func() time.Time
}

type Option func(*Module)

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

// New returns the module. Actions are mirrored to the text channel called
// logChannel when the guild has one.
func New(api GuildAPI, store Store, logChannel string, opts ...Option) *Module {
	m := &Module{api: api, store: store, logName: logChannel, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Register(cat *command.Catalog) {
	cat.RegisterFunc("moderation.ban", m.ban)
	cat.RegisterFunc("moderation.kick", m.kick)
	cat.RegisterFunc("moderation.warn", m.warn)
	cat.RegisterFunc("moderation.warnings", m.listWarnings)
	cat.RegisterFunc("moderation.clear", m.clear)
	cat.RegisterFunc("moderation.mute", m.mute)
	cat.RegisterFunc("moderation.userinfo", m.userinfo)
	cat.RegisterFunc("moderation.clear-warnings", m.clearWarnings)
	cat.RegisterFunc("moderation.cmd-log", m.commandLog)
}

func tag(u *discordgo.User) string {
	if u.Username != "" {
		return u.Username
	}
	return "<@" + u.ID + ">"
}

func reasonOf(c *command.Context) string {
	if r, ok := c.Options().String("reason"); ok && strings.TrimSpace(r) != "" {
		return r
	}
	return noReason
}

func (m *Module) actionEmbed(c *command.Context, title, description string, target *discordgo.User, reason string) *discordgo.MessageEmbed {
	embed := c.Embed(title, description)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User ID", Value: target.ID},
		{Name: "Reason", Value: reason},
		{Name: "Moderator", Value: c.Username()},
	}
	embed.Timestamp = m.now().Format(time.RFC3339)
	return embed
}

func (m *Module) ban(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user to ban.")
	}
	reason := reasonOf(c)
	days, _ := c.Options().Int("delete_days")
	days = min(max(days, 0), maxDeleteDays)

	if target.ID == c.UserID() {
		return c.ReplyText("You cannot ban yourself.")
	}

	auditReason := c.Username() + ": " + reason
	if err := m.api.GuildBanCreateWithReason(c.GuildID(), target.ID, auditReason, int(days), discordgo.WithContext(ctx)); err != nil {
		return c.ReplyText(fmt.Sprintf("Failed to ban %s: %v", tag(target), err))
	}

	embed := m.actionEmbed(c, "User Banned", fmt.Sprintf("**%s** has been banned from the server.", tag(target)), target, reason)
	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	m.modLog(ctx, c, "Ban", target, reason)
	return nil
}

func (m *Module) kick(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user to kick.")
	}
	reason := reasonOf(c)

	if _, err := m.api.GuildMember(c.GuildID(), target.ID, discordgo.WithContext(ctx)); err != nil {
		return c.ReplyText("This user is not in the server.")
	}
	if target.ID == c.UserID() {
		return c.ReplyText("You cannot kick yourself.")
	}

	auditReason := c.Username() + ": " + reason
	if err := m.api.GuildMemberDeleteWithReason(c.GuildID(), target.ID, auditReason, discordgo.WithContext(ctx)); err != nil {
		return c.ReplyText(fmt.Sprintf("Failed to kick %s: %v", tag(target), err))
	}

	embed := m.actionEmbed(c, "User Kicked", fmt.Sprintf("**%s** has been kicked from the server.", tag(target)), target, reason)
	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	m.modLog(ctx, c, "Kick", target, reason)
	return nil
}

func (m *Module) warn(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user to warn.")
	}
	reason, _ := c.Options().String("reason")
	if strings.TrimSpace(reason) == "" {
		return c.ReplyText("A reason is required.")
	}
	if target.Bot {
		return c.ReplyText("You cannot warn bots.")
	}
	if _, err := m.api.GuildMember(c.GuildID(), target.ID, discordgo.WithContext(ctx)); err != nil {
		return c.ReplyText("This user is not in the server.")
	}

	w, err := m.store.AddWarning(c.GuildID(), target.ID, c.UserID(), reason)
	if err != nil {
		return fmt.Errorf("store warning: %w", err)
	}

	embed := m.actionEmbed(c, "User Warned", fmt.Sprintf("**%s** has been warned.", tag(target)), target, reason)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Warning ID: " + w.ID}
	if err := m.notify(ctx, c, target, reason); err != nil {
		log.Debug().Err(err).Str("user_id", target.ID).Msg("could not DM warned user")
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Note", Value: "Could not DM user"})
	}

	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	m.modLog(ctx, c, "Warning", target, reason)
	return nil
}

// notify sends the warning to the member in a direct message.
func (m *Module) notify(ctx context.Context, c *command.Context, target *discordgo.User, reason string) error {
	guildName := "the server"
	if g, err := m.api.Guild(c.GuildID(), discordgo.WithContext(ctx)); err == nil && g.Name != "" {
		guildName = g.Name
	}
	dm, err := m.api.UserChannelCreate(target.ID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	embed := c.Embed("Warning Received", "You have been warned in "+guildName)
	embed.Fields = []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}
	embed.Timestamp = m.now().Format(time.RFC3339)
	_, err = m.api.ChannelMessageSendEmbed(dm.ID, embed, discordgo.WithContext(ctx))
	return err
}

func (m *Module) listWarnings(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user.")
	}
	list, err := m.store.Warnings(c.GuildID(), target.ID)
	if err != nil {
		return fmt.Errorf("load warnings: %w", err)
	}
	if len(list) == 0 {
		return c.ReplyText(fmt.Sprintf("**%s** has no warnings.", tag(target)))
	}

	var sb strings.Builder
	for i, w := range list {
		fmt.Fprintf(&sb, "**%d.** %s\nby <@%s> <t:%d:R> · `%s`\n", i+1, w.Reason, w.ModeratorID, w.CreatedAt.Unix(), w.ID)
	}
	embed := c.Embed(fmt.Sprintf("Warnings for %s", tag(target)), sb.String())
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d warning(s)", len(list))}
	return c.ReplyEmbed(embed, true)
}

// deletable keeps the ids of messages young enough for bulk deletion,
// optionally only those written by userID.
func deletable(msgs []*discordgo.Message, userID string, now time.Time) []string {
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if userID != "" && (msg.Author == nil || msg.Author.ID != userID) {
			continue
		}
		if now.Sub(msg.Timestamp) >= bulkDeleteAge {
			continue
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

func (m *Module) clear(ctx context.Context, c *command.Context) error {
	amount, _ := c.Options().Int("amount")
	if amount < 1 || amount > maxClear {
		return c.ReplyText(fmt.Sprintf("You can clear between 1 and %d messages.", maxClear))
	}
	var userID, filter string
	if u, ok := c.Options().User("user"); ok {
		userID, filter = u.ID, tag(u)
	}

	failed := "Failed to clear messages. Messages older than 14 days cannot be bulk deleted."
	msgs, err := m.api.ChannelMessages(c.ChannelID(), int(amount), "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("channel_id", c.ChannelID()).Msg("failed to fetch messages")
		return c.ReplyText(failed)
	}
	ids := deletable(msgs, userID, m.now())
	if err := m.api.ChannelMessagesBulkDelete(c.ChannelID(), ids, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("channel_id", c.ChannelID()).Msg("bulk delete failed")
		return c.ReplyText(failed)
	}

	embed := c.Embed("Messages Cleared", fmt.Sprintf("Successfully deleted %d messages.", len(ids)))
	embed.Fields = []*discordgo.MessageEmbedField{{Name: "Channel", Value: "<#" + c.ChannelID() + ">"}}
	if filter != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "User Filter", Value: filter})
	}
	embed.Timestamp = m.now().Format(time.RFC3339)
	if err := c.ReplyEmbed(embed, true); err != nil {
		return err
	}

	reason := fmt.Sprintf("Cleared %d messages in <#%s>", len(ids), c.ChannelID())
	if filter != "" {
		reason = fmt.Sprintf("Cleared %d messages from %s in <#%s>", len(ids), filter, c.ChannelID())
	}
	m.modLog(ctx, c, "Clear Messages", &discordgo.User{ID: c.UserID(), Username: c.Username()}, reason)
	return nil
}

// modLog mirrors an action to the guild's moderation log channel. Failures
// are logged and never reach the moderator.
func (m *Module) modLog(ctx context.Context, c *command.Context, action string, target *discordgo.User, reason string, extra ...*discordgo.MessageEmbedField) {
	if m.logName == "" {
		return
	}
	channels, err := m.api.GuildChannels(c.GuildID(), discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("guild_id", c.GuildID()).Msg("failed to list channels for mod log")
		return
	}

	channelID := discord.TextChannel(channels, discord.Named(m.logName))
	if channelID == "" {
		return
	}

	embed := c.Embed("🛡️ "+action, "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User", Value: fmt.Sprintf("%s (`%s`)", tag(target), target.ID), Inline: true},
		{Name: "Moderator", Value: fmt.Sprintf("<@%s>", c.UserID()), Inline: true},
		{Name: "Reason", Value: reason},
	}
	embed.Fields = append(embed.Fields, extra...)
	embed.Timestamp = m.now().Format(time.RFC3339)
	if _, err := m.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Str("action", action).Msg("failed to write mod log")
	}
}
