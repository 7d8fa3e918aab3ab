// Package welcome greets members who join and says goodbye to those who leave.
package welcome

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"novabot/internal/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	colorWelcome = 0x00FF00
	colorGoodbye = 0xFF0000
)

var greetings = []string{
	"Welcome {user} to {server}! 🎉",
	"Hey {user}, welcome to {server}! Make yourself at home! 🏠",
	"A wild {user} appeared in {server}! 🌟",
	"{user} just landed in {server}! 🚀",
	"Welcome {user}! We hope you brought pizza! 🍕",
}

var farewells = []string{
	"Goodbye {user}! We'll miss you! 👋",
	"Sad to see you go, {user}! 😢",
	"{user} has left {server}! Until we meet again! 🌈",
	"Farewell {user}! Thanks for being part of {server}! ⭐",
}

var (
	welcomeChannel = discord.NameContains("welcome", "greetings")
	goodbyeChannel = discord.NameContains("goodbye", "farewell")
)

// API is the part of *discordgo.Session the greeter calls.
type API interface {
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Module struct {
	api  API
	intn func(n int) int
	now  func() time.Time
}

type Option func(*Module)

func WithRand(intn func(n int) int) Option {
	return func(m *Module) { m.intn = intn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

func New(api API, opts ...Option) *Module {
	m := &Module{api: api, intn: rand.IntN, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) pick(lines []string, user, server string) string {
	line := lines[m.intn(len(lines))]
	return strings.NewReplacer("{user}", user, "{server}", server).Replace(line)
}

// post sends the embed build makes to the first text channel matching match.
// Guilds without such a channel get nothing.
func (m *Module) post(ctx context.Context, guildID string, match func(string) bool, build func(g *discordgo.Guild) *discordgo.MessageEmbed) {
	channels, err := m.api.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to list channels")
		return
	}
	channelID := discord.TextChannel(channels, match)
	if channelID == "" {
		return
	}
	g, err := m.api.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to fetch guild")
		return
	}

	embed := build(g)
	embed.Timestamp = m.now().Format(time.RFC3339)
	if _, err := m.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Str("title", embed.Title).Msg("failed to send member message")
	}
}

func (m *Module) OnMemberAdd(ctx context.Context, _ *discordgo.Session, ev *discordgo.GuildMemberAdd) {
	if ev.Member == nil || ev.User == nil || ev.User.Bot {
		return
	}
	u := ev.User
	m.post(ctx, ev.GuildID, welcomeChannel, func(g *discordgo.Guild) *discordgo.MessageEmbed {
		created := "Unknown"
		if ts, err := discordgo.SnowflakeTimestamp(u.ID); err == nil {
			created = fmt.Sprintf("<t:%d:R>", ts.Unix())
		}
		return &discordgo.MessageEmbed{
			Title:       "👋 New Member!",
			Description: m.pick(greetings, u.Mention(), g.Name),
			Color:       colorWelcome,
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")},
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Account Created", Value: created, Inline: true},
				{Name: "Member Count", Value: fmt.Sprint(g.ApproximateMemberCount), Inline: true},
			},
		}
	})
}

func (m *Module) OnMemberRemove(ctx context.Context, _ *discordgo.Session, ev *discordgo.GuildMemberRemove) {
	if ev.Member == nil || ev.User == nil || ev.User.Bot {
		return
	}
	u, joined := ev.User, ev.JoinedAt
	m.post(ctx, ev.GuildID, goodbyeChannel, func(g *discordgo.Guild) *discordgo.MessageEmbed {
		since := "Unknown"
		if !joined.IsZero() {
			since = fmt.Sprintf("<t:%d:R>", joined.Unix())
		}
		return &discordgo.MessageEmbed{
			Title:       "👋 Member Left",
			Description: m.pick(farewells, u.String(), g.Name),
			Color:       colorGoodbye,
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")},
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Joined Server", Value: since, Inline: true},
				{Name: "New Member Count", Value: fmt.Sprint(g.ApproximateMemberCount), Inline: true},
			},
		}
	})
}
