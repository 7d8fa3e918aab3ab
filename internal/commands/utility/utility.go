// Package utility implements ping, help, stats and server-info.
package utility

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"novabot/internal/command"
	"novabot/internal/config"
	"novabot/internal/gate"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const colorPong = 0x00FF00

// Gateway reports facts about the live connection.
type Gateway interface {
	HeartbeatLatency() time.Duration
	GuildCount() int
}

// Commands lists what is currently registered.
type Commands interface {
	ByCategory() map[string][]*command.Descriptor
}

type Owner interface {
	OwnerID() string
}

// Guilds fetches what server-info shows.
type Guilds interface {
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildThreadsActive(guildID string, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

var categoryDescriptions = map[string]string{
	"utility":          "General utility commands for server management and information.",
	"economy":          "Earn money through work and games. Build your empire!",
	"levels":           "Level up and compete with other members through chat activity.",
	"moderation":       "Manage and moderate your server with logging.",
	gate.OwnerCategory: "Special commands for the bot owner.",
}

type Module struct {
	commands Commands
	owner    Owner
	gateway  Gateway
	guilds   Guilds
	started  time.Time
	now      func() time.Time
}

func New(commands Commands, owner Owner, gateway Gateway, guilds Guilds, started time.Time) *Module {
	return &Module{commands: commands, owner: owner, gateway: gateway, guilds: guilds, started: started, now: time.Now}
}

func (m *Module) Register(cat *command.Catalog) {
	cat.RegisterFunc("utility.ping", m.ping)
	cat.RegisterFunc("utility.help", m.help)
	cat.RegisterFunc("utility.stats", m.stats)
	cat.RegisterFunc("utility.server-info", m.serverInfo)
}

func (m *Module) ping(ctx context.Context, c *command.Context) error {
	start := m.now()
	if err := c.Defer(false); err != nil {
		return err
	}
	roundTrip := m.now().Sub(start)

	embed := c.Embed("Pong! 🏓", fmt.Sprintf("**Bot Latency:** %dms\n**API Latency:** %dms",
		roundTrip.Milliseconds(), m.gateway.HeartbeatLatency().Milliseconds()))
	embed.Color = colorPong
	return c.ReplyEmbed(embed, false)
}

func sortedCategories(groups map[string][]*command.Descriptor) []string {
	cats := make([]string, 0, len(groups))
	for cat := range groups {
		cats = append(cats, cat)
	}
	config.SortCategories(cats)
	return cats
}

func (m *Module) help(ctx context.Context, c *command.Context) error {
	isOwner := c.UserID() == m.owner.OwnerID()
	groups := m.commands.ByCategory()

	if category, ok := c.Options().String("category"); ok && category != "" {
		if category == gate.OwnerCategory && !isOwner {
			return c.ReplyText("You do not have permission to view owner commands.")
		}
		cmds := groups[category]
		if len(cmds) == 0 {
			return c.ReplyText("No commands found in this category.")
		}
		sorted := append([]*command.Descriptor(nil), cmds...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		desc, ok := categoryDescriptions[category]
		if !ok {
			desc = "Use slash commands by typing `/` and selecting a command from the menu."
		}
		embed := c.Embed(config.CategoryTitle(category)+" Commands", desc)
		for _, d := range sorted {
			value := d.Description
			if d.Definition != nil && len(d.Definition.Options) > 0 {
				value += "\n*This command has additional options*"
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "/" + d.Name, Value: value})
		}
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /help for an overview of all categories"}
		return c.ReplyEmbed(embed, category == gate.OwnerCategory)
	}

	embed := c.Embed("NovaBot Help", "NovaBot uses slash commands! Type `/` to see all available commands.\n\nHere are the available command categories:")
	for _, category := range sortedCategories(groups) {
		if category == gate.OwnerCategory && !isOwner {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  config.CategoryTitle(category),
			Value: fmt.Sprintf("%d command(s)\nUse `/help %s` to see details", len(groups[category]), category),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /help [category] to see commands in a specific category"}
	return c.ReplyEmbed(embed, false)
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}

func (m *Module) stats(ctx context.Context, c *command.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	total := 0
	for _, cmds := range m.commands.ByCategory() {
		total += len(cmds)
	}

	embed := c.Embed("📊 Bot Statistics", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "🌐 Servers", Value: humanize.Comma(int64(m.gateway.GuildCount())), Inline: true},
		{Name: "⏱️ Uptime", Value: formatUptime(m.now().Sub(m.started)), Inline: true},
		{Name: "📦 Commands", Value: fmt.Sprint(total), Inline: true},
		{Name: "💾 Memory", Value: humanize.Bytes(mem.HeapAlloc) + " / " + humanize.Bytes(mem.Sys), Inline: true},
		{Name: "🧵 Goroutines", Value: fmt.Sprint(runtime.NumGoroutine()), Inline: true},
		{Name: "📡 Latency", Value: fmt.Sprintf("%dms", m.gateway.HeartbeatLatency().Milliseconds()), Inline: true},
		{Name: "🛠️ Versions", Value: fmt.Sprintf("Go %s · discordgo %s", strings.TrimPrefix(runtime.Version(), "go"), discordgo.VERSION)},
	}
	return c.ReplyEmbed(embed, false)
}
