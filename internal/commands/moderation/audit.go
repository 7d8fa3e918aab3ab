package moderation

import (
	"context"
	"fmt"
	"strings"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper)

// commandLog shows the guild's recent command history, newest first.
func (m *Module) commandLog(ctx context.Context, c *command.Context) error {
	records, err := m.store.FetchCommandHistory(c.GuildID())
	if err != nil {
		return c.ReplyText(fmt.Sprintf("Failed to fetch command logs: %v", err))
	}
	if len(records) == 0 {
		return c.ReplyText("No command logs found.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-19s\t%-15s\t%-20s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command")
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		line := fmt.Sprintf("%-19s\t%-15s\t%-20s\t/%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.ChannelID,
			r.Command,
		)
		if b.Len()+len(line) > maxContentLength {
			break
		}
		b.WriteString(line)
	}

	return c.Reply(command.Response{
		Content:   codeLeftBlockWrapper + "\n" + b.String() + codeRightBlockWrapper,
		Ephemeral: true,
	})
}

func (m *Module) clearWarnings(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user.")
	}
	removed, err := m.store.ClearWarnings(c.GuildID(), target.ID)
	if err != nil {
		return fmt.Errorf("clear warnings: %w", err)
	}
	if removed == 0 {
		return c.ReplyText(fmt.Sprintf("**%s** has no warnings.", tag(target)))
	}

	embed := c.Embed("Warnings Cleared", fmt.Sprintf("Removed %d warning(s) from **%s**.", removed, tag(target)))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User ID", Value: target.ID},
		{Name: "Moderator", Value: c.Username()},
	}
	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	m.modLog(ctx, c, "Clear Warnings", target, fmt.Sprintf("Removed %d warning(s)", removed))
	return nil
}
