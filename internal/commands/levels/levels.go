// Package levels implements experience tracking and the rank commands.
package levels

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"novabot/internal/command"
	"novabot/internal/database"
	"novabot/internal/gate"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	minXP          = 15
	maxXP          = 25
	xpCooldown     = time.Minute
	pageSize       = 10
	progressLength = 20
	colorLevelUp   = 0x00FF00
)

// Store is the persistence the level commands need.
type Store interface {
	AddXP(ctx context.Context, guildID, userID string, amount int64, now time.Time) (database.XPResult, error)
	LevelOf(ctx context.Context, guildID, userID string) (database.Level, error)
	LevelRank(ctx context.Context, guildID, userID string) (int, error)
	Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]database.Level, error)
	CountLevels(ctx context.Context, guildID string) (int, error)
}

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Module struct {
	store     Store
	cooldowns *gate.Cooldowns
	intn      func(n int) int
	now       func() time.Time
}

type Option func(*Module)

func WithRand(intn func(n int) int) Option {
	return func(m *Module) { m.intn = intn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

// New returns the module. cooldowns gates message experience, one grant per
// user per minute.
func New(store Store, cooldowns *gate.Cooldowns, opts ...Option) *Module {
	m := &Module{store: store, cooldowns: cooldowns, intn: rand.IntN, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Register(cat *command.Catalog) {
	cat.RegisterFunc("levels.rank", m.rank)
	cat.RegisterFunc("levels.leaderboard", m.leaderboard)
}

// OnMessage grants experience for a guild message.
func (m *Module) OnMessage(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate) {
	m.award(ctx, s, msg.Message)
}

func (m *Module) award(ctx context.Context, sender embedSender, msg *discordgo.Message) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	if !m.cooldowns.Check("xp", msg.Author.ID, xpCooldown).Allowed {
		return
	}

	amount := int64(minXP + m.intn(maxXP-minXP+1))
	res, err := m.store.AddXP(ctx, msg.GuildID, msg.Author.ID, amount, m.now())
	if err != nil {
		log.Error().Err(err).
			Str("guild_id", msg.GuildID).
			Str("user_id", msg.Author.ID).
			Msg("failed to add message xp")
		return
	}
	if !res.LeveledUp {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Level Up!",
		Description: fmt.Sprintf("Congratulations <@%s>! You've reached level %d!", msg.Author.ID, res.Level),
		Color:       colorLevelUp,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: msg.Author.AvatarURL("")},
	}
	if _, err := sender.ChannelMessageSendEmbed(msg.ChannelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("failed to announce level up")
	}
}

// progress splits total experience into the part earned towards the next
// level and that level's cost.
func progress(xp int64) (into, cost int64) {
	level := 1
	for xp >= database.XPForLevel(level) {
		xp -= database.XPForLevel(level)
		level++
	}
	return xp, database.XPForLevel(level)
}

func progressBar(into, cost int64) (string, float64) {
	pct := 0.0
	if cost > 0 {
		pct = min(float64(into)/float64(cost)*100, 100)
	}
	filled := int(pct / 100 * progressLength)
	return strings.Repeat("█", filled) + strings.Repeat("░", progressLength-filled), pct
}

func (m *Module) rank(ctx context.Context, c *command.Context) error {
	target := &discordgo.User{ID: c.UserID(), Username: c.Username()}
	if u, ok := c.Options().User("user"); ok {
		target = u
	}

	lvl, err := m.store.LevelOf(ctx, c.GuildID(), target.ID)
	if err != nil {
		return err
	}
	if lvl.XP == 0 {
		return c.ReplyText("This user has not earned any XP yet!")
	}
	pos, err := m.store.LevelRank(ctx, c.GuildID(), target.ID)
	if err != nil {
		return err
	}
	total, err := m.store.CountLevels(ctx, c.GuildID())
	if err != nil {
		return err
	}

	into, cost := progress(lvl.XP)
	bar, pct := progressBar(into, cost)

	name := target.Username
	if name == "" {
		name = "<@" + target.ID + ">"
	}
	embed := c.Embed("Server Rank Card", fmt.Sprintf("**%s**'s Stats", name))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "📊 Rank", Value: fmt.Sprintf("#%d/%d", pos, total), Inline: true},
		{Name: "⭐ Level", Value: fmt.Sprint(lvl.Level), Inline: true},
		{Name: "📈 Total XP", Value: humanize.Comma(lvl.XP), Inline: true},
		{Name: "📊 Level Progress", Value: fmt.Sprintf("%s %.1f%%\n%s / %s XP", bar, pct, humanize.Comma(into), humanize.Comma(cost))},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "View the leaderboard with /leaderboard"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) leaderboard(ctx context.Context, c *command.Context) error {
	page := 1
	if p, ok := c.Options().Int("page"); ok && p > 0 {
		page = int(p)
	}

	total, err := m.store.CountLevels(ctx, c.GuildID())
	if err != nil {
		return err
	}
	if total == 0 {
		return c.ReplyText("Nobody has earned any XP yet!")
	}
	pages := (total + pageSize - 1) / pageSize
	if page > pages {
		return c.ReplyText(fmt.Sprintf("Invalid page number. There are only %d pages.", pages))
	}

	entries, err := m.store.Leaderboard(ctx, c.GuildID(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	own, err := m.store.LevelOf(ctx, c.GuildID(), c.UserID())
	if err != nil {
		return err
	}
	ownRank := "N/A"
	if own.XP > 0 {
		r, err := m.store.LevelRank(ctx, c.GuildID(), c.UserID())
		if err != nil {
			return err
		}
		ownRank = "#" + humanize.Comma(int64(r))
	}

	embed := c.Embed("🏆 Server Level Leaderboard", leaderboardTable(entries, (page-1)*pageSize))
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name: "📊 Statistics",
		Value: fmt.Sprintf("Total Users: %s\nYour Rank: %s\nYour Level: %d\nYour XP: %s\nPage: %d/%d",
			humanize.Comma(int64(total)), ownRank, own.Level, humanize.Comma(own.XP), page, pages),
	}}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /leaderboard [page] to view other pages • Use /rank to see detailed stats"}
	return c.ReplyEmbed(embed, false)
}

var medals = []string{"🥇", "🥈", "🥉"}

func leaderboardTable(entries []database.Level, offset int) string {
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		pos := offset + i + 1
		medal := "•"
		if pos <= len(medals) {
			medal = medals[pos-1]
		}
		lines = append(lines, fmt.Sprintf("%s **%d.** <@%s>\n⭐ Level: %d · 📊 XP: %s", medal, pos, e.UserID, e.Level, humanize.Comma(e.XP)))
	}
	return strings.Join(lines, "\n\n")
}
