package utility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// memberPage is the largest page GuildMembers returns.
const memberPage = 1000

var verificationNames = map[discordgo.VerificationLevel]string{
	discordgo.VerificationLevelNone:     "None",
	discordgo.VerificationLevelLow:      "Low",
	discordgo.VerificationLevelMedium:   "Medium",
	discordgo.VerificationLevelHigh:     "High",
	discordgo.VerificationLevelVeryHigh: "Very High",
}

var contentFilterNames = map[discordgo.ExplicitContentFilterLevel]string{
	discordgo.ExplicitContentFilterDisabled:            "Disabled",
	discordgo.ExplicitContentFilterMembersWithoutRoles: "Members without roles",
	discordgo.ExplicitContentFilterAllMembers:          "All members",
}

type channelCounts struct {
	text, voice, categories, forums, threads int
}

func countChannels(channels []*discordgo.Channel) channelCounts {
	var n channelCounts
	for _, ch := range channels {
		switch ch.Type {
		case discordgo.ChannelTypeGuildText:
			n.text++
		case discordgo.ChannelTypeGuildVoice:
			n.voice++
		case discordgo.ChannelTypeGuildCategory:
			n.categories++
		case discordgo.ChannelTypeGuildForum:
			n.forums++
		case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
			n.threads++
		}
	}
	return n
}

// countBots counts bots among the first pages of members. Large guilds are
// sampled up to a few pages.
func (m *Module) countBots(ctx context.Context, guildID string) int {
	bots, after := 0, ""
	for page := 0; page < 5; page++ {
		members, err := m.guilds.GuildMembers(guildID, after, memberPage, discordgo.WithContext(ctx))
		if err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to list members")
			return bots
		}
		for _, mem := range members {
			if mem.User != nil && mem.User.Bot {
				bots++
			}
		}
		if len(members) < memberPage {
			return bots
		}
		after = members[len(members)-1].User.ID
	}
	return bots
}

func featureList(features []discordgo.GuildFeature) string {
	if len(features) == 0 {
		return "No special features"
	}
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = "`" + strings.ReplaceAll(strings.ToLower(string(f)), "_", " ") + "`"
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (m *Module) serverInfo(ctx context.Context, c *command.Context) error {
	g, err := m.guilds.GuildWithCounts(c.GuildID(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch guild: %w", err)
	}
	channels, err := m.guilds.GuildChannels(c.GuildID(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch channels: %w", err)
	}
	counts := countChannels(channels)
	if active, err := m.guilds.GuildThreadsActive(c.GuildID(), discordgo.WithContext(ctx)); err == nil {
		counts.threads += len(active.Threads)
	}

	total := g.ApproximateMemberCount
	bots := m.countBots(ctx, g.ID)

	created := "Unknown"
	if ts, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		created = fmt.Sprintf("<t:%d:R>", ts.Unix())
	}
	roles := max(len(g.Roles)-1, 0)

	embed := c.Embed(g.Name, "")
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("1024")}
	}
	if g.Banner != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: g.BannerURL("1024")}
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "📊 General Info", Inline: true, Value: fmt.Sprintf(
			"Owner: <@%s>\nCreated: %s\nBoost Level: %d (%d boosts)\nVerification: %s",
			g.OwnerID, created, g.PremiumTier, g.PremiumSubscriptionCount, verificationNames[g.VerificationLevel])},
		{Name: "👥 Members", Inline: true, Value: fmt.Sprintf(
			"Total: %s\nHumans: %s\nBots: %s\nOnline: %s",
			humanize.Comma(int64(total)), humanize.Comma(int64(max(total-bots, 0))),
			humanize.Comma(int64(bots)), humanize.Comma(int64(g.ApproximatePresenceCount)))},
		{Name: "📝 Channels", Inline: true, Value: fmt.Sprintf(
			"Text: %d\nVoice: %d\nCategories: %d\nForums: %d\nThreads: %d",
			counts.text, counts.voice, counts.categories, counts.forums, counts.threads)},
		{Name: "✨ Features", Value: featureList(g.Features)},
		{Name: "🎨 Customization", Inline: true, Value: fmt.Sprintf(
			"Roles: %d\nEmojis: %d\nStickers: %d", roles, len(g.Emojis), len(g.Stickers))},
		{Name: "🔐 Moderation", Inline: true, Value: fmt.Sprintf(
			"Content Filter: %s\n2FA Required: %s\nAFK Timeout: %d minutes",
			contentFilterNames[g.ExplicitContentFilter], yesNo(g.MfaLevel == discordgo.MfaLevelElevated), g.AfkTimeout/60)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("ID: %s • %s", g.ID, g.PreferredLocale)}
	embed.Timestamp = m.now().Format(time.RFC3339)
	return c.ReplyEmbed(embed, false)
}
