// Package serverlog writes message edits, deletions, joins and leaves to the
// guild's log channels.
package serverlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"novabot/internal/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxFieldLength = 1024
	colorRemoved   = 0xFF4444
	colorEdited    = 0xFFBB33
	colorJoined    = 0x00C851
)

// API is the part of *discordgo.Session the logs need.
type API interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Channels names the log channels. An empty name turns that log off.
type Channels struct {
	Messages string
	Joins    string
}

type Module struct {
	api   API
	names Channels
	now   func() time.Time
}

type Option func(*Module)

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

func New(api API, names Channels, opts ...Option) *Module {
	m := &Module{api: api, names: names, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func formatUser(u *discordgo.User) string {
	if u == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%s)", u.String(), u.ID)
}

func formatChannel(id string) string {
	return fmt.Sprintf("<#%s> (%s)", id, id)
}

func formatContent(s string) string {
	if s == "" {
		return "No content"
	}
	if len(s) > maxFieldLength {
		return strings.ToValidUTF8(s[:maxFieldLength-3], "") + "..."
	}
	return s
}

func attachmentField(files []*discordgo.MessageAttachment) *discordgo.MessageEmbedField {
	if len(files) == 0 {
		return nil
	}
	links := make([]string, len(files))
	for i, a := range files {
		links[i] = fmt.Sprintf("[%s](%s)", a.Filename, a.URL)
	}
	return &discordgo.MessageEmbedField{Name: "Attachments", Value: formatContent(strings.Join(links, "\n"))}
}

func (m *Module) send(ctx context.Context, guildID, name string, embed *discordgo.MessageEmbed) {
	if name == "" {
		return
	}
	channels, err := m.api.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to list channels for server log")
		return
	}
	channelID := discord.TextChannel(channels, discord.Named(name))
	if channelID == "" {
		log.Debug().Str("guild_id", guildID).Str("channel", name).Msg("no log channel")
		return
	}

	embed.Timestamp = m.now().Format(time.RFC3339)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Log ID: " + uuid.NewString()}
	if _, err := m.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to write server log")
	}
}

// OnMessageUpdate logs an edit that changed the text of a user's message.
func (m *Module) OnMessageUpdate(ctx context.Context, _ *discordgo.Session, ev *discordgo.MessageUpdate) {
	m.edited(ctx, ev.Message, ev.BeforeUpdate)
}

func (m *Module) edited(ctx context.Context, after, before *discordgo.Message) {
	author := after.Author
	if author == nil && before != nil {
		author = before.Author
	}
	if author == nil || author.Bot {
		return
	}
	old := ""
	if before != nil {
		old = before.Content
	}
	if old == after.Content {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Message Edited",
		Color: colorEdited,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: formatUser(author), Inline: true},
			{Name: "Channel", Value: formatChannel(after.ChannelID), Inline: true},
			{Name: "Before", Value: formatContent(old)},
			{Name: "After", Value: formatContent(after.Content)},
		},
	}
	if f := attachmentField(after.Attachments); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	m.send(ctx, after.GuildID, m.names.Messages, embed)
}

// OnMessageDelete logs a deleted message. Messages that left the state cache
// are logged without author or content.
func (m *Module) OnMessageDelete(ctx context.Context, _ *discordgo.Session, ev *discordgo.MessageDelete) {
	m.deleted(ctx, ev.Message, ev.BeforeDelete)
}

func (m *Module) deleted(ctx context.Context, msg, cached *discordgo.Message) {
	if cached != nil {
		msg = cached
	}
	if msg.Author != nil && msg.Author.Bot {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Message Deleted",
		Color: colorRemoved,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: formatUser(msg.Author), Inline: true},
			{Name: "Channel", Value: formatChannel(msg.ChannelID), Inline: true},
			{Name: "Content", Value: formatContent(msg.Content)},
		},
	}
	if f := attachmentField(msg.Attachments); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	m.send(ctx, msg.GuildID, m.names.Messages, embed)
}

func (m *Module) joinEmbed(title string, color int, u *discordgo.User) *discordgo.MessageEmbed {
	created := "Unknown"
	if ts, err := discordgo.SnowflakeTimestamp(u.ID); err == nil {
		created = fmt.Sprintf("<t:%d:F> (<t:%d:R>)", ts.Unix(), ts.Unix())
	}
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: formatUser(u)},
			{Name: "Account Created", Value: created},
		},
	}
}

func (m *Module) OnMemberAdd(ctx context.Context, _ *discordgo.Session, ev *discordgo.GuildMemberAdd) {
	if ev.Member == nil || ev.User == nil {
		return
	}
	m.send(ctx, ev.GuildID, m.names.Joins, m.joinEmbed("Member Joined", colorJoined, ev.User))
}

func (m *Module) OnMemberRemove(ctx context.Context, _ *discordgo.Session, ev *discordgo.GuildMemberRemove) {
	if ev.Member == nil || ev.User == nil {
		return
	}
	m.send(ctx, ev.GuildID, m.names.Joins, m.joinEmbed("Member Left", colorRemoved, ev.User))
}
