package moderation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// maxTimeout is the longest timeout Discord accepts.
const maxTimeout = 28 * 24 * time.Hour

var durationPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

var durationUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// parseDuration reads "<n>m", "<n>h" or "<n>d". tooLong is set for values
// past maxTimeout, including ones too big to represent.
func parseDuration(s string) (d time.Duration, tooLong, ok bool) {
	match := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, false, false
	}
	unit := durationUnits[match[2]]
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n > int64(maxTimeout/unit) {
		return 0, true, true
	}
	return time.Duration(n) * unit, false, true
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// formatDuration names d in its largest whole unit.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return plural(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int64(d/time.Minute), "minute")
	}
	return plural(int64(d/time.Second), "second")
}

// highestRole is the member's top role by position, or nil for @everyone only.
func highestRole(member *discordgo.Member, roles []*discordgo.Role) *discordgo.Role {
	byID := make(map[string]*discordgo.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	var top *discordgo.Role
	for _, id := range member.Roles {
		r, ok := byID[id]
		if !ok {
			continue
		}
		if top == nil || r.Position > top.Position {
			top = r
		}
	}
	return top
}

func position(r *discordgo.Role) int {
	if r == nil {
		return 0
	}
	return r.Position
}

func (m *Module) mute(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick a user to timeout.")
	}
	raw, _ := c.Options().String("duration")
	reason := reasonOf(c)

	d, tooLong, ok := parseDuration(raw)
	switch {
	case !ok:
		return c.ReplyText("Invalid duration format. Please use formats like 1m, 1h, 1d.")
	case tooLong || d > maxTimeout:
		return c.ReplyText("Timeout duration cannot exceed 28 days.")
	case d == 0:
		return c.ReplyText("Invalid duration format. Please use formats like 1m, 1h, 1d.")
	}

	member, err := m.api.GuildMember(c.GuildID(), target.ID, discordgo.WithContext(ctx))
	if err != nil {
		return c.ReplyText("This user is not in the server.")
	}
	if target.ID == c.UserID() {
		return c.ReplyText("You cannot timeout yourself.")
	}

	moderator, err := m.api.GuildMember(c.GuildID(), c.UserID(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("load moderator: %w", err)
	}
	roles, err := m.api.GuildRoles(c.GuildID(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	if position(highestRole(moderator, roles)) <= position(highestRole(member, roles)) {
		return c.ReplyText("You cannot timeout this user as they have the same or higher role than you.")
	}

	until := m.now().Add(d)
	if err := m.api.GuildMemberTimeout(c.GuildID(), target.ID, &until, discordgo.WithContext(ctx)); err != nil {
		return c.ReplyText(fmt.Sprintf("Failed to timeout %s: %v", tag(target), err))
	}

	length := formatDuration(d)
	embed := c.Embed("User Timed Out", fmt.Sprintf("**%s** has been timed out for %s.", tag(target), length))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User ID", Value: target.ID},
		{Name: "Duration", Value: length},
		{Name: "Reason", Value: reason},
		{Name: "Moderator", Value: c.Username()},
	}
	embed.Timestamp = m.now().Format(time.RFC3339)
	if err := c.ReplyEmbed(embed, false); err != nil {
		return err
	}
	m.modLog(ctx, c, "Timeout", target, reason, &discordgo.MessageEmbedField{Name: "Duration", Value: length, Inline: true})
	return nil
}

func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func (m *Module) userinfo(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		target = &discordgo.User{ID: c.UserID(), Username: c.Username()}
	}

	created := "Unknown"
	if ts, err := discordgo.SnowflakeTimestamp(target.ID); err == nil {
		created = relative(ts)
	}

	embed := c.Embed("User Information", "")
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("256")}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Username", Value: tag(target), Inline: true},
		{Name: "ID", Value: target.ID, Inline: true},
		{Name: "Account Created", Value: created, Inline: true},
	}

	member, err := m.api.GuildMember(c.GuildID(), target.ID, discordgo.WithContext(ctx))
	if err != nil {
		return c.ReplyEmbed(embed, false)
	}
	roles, err := m.api.GuildRoles(c.GuildID(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}

	nick := member.Nick
	if nick == "" {
		nick = "None"
	}
	highest := "@everyone"
	if r := highestRole(member, roles); r != nil {
		highest = r.Mention()
	}

	var held []*discordgo.Role
	for _, r := range roles {
		for _, id := range member.Roles {
			if r.ID == id && r.ID != c.GuildID() {
				held = append(held, r)
			}
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].Position > held[j].Position })
	mentions := make([]string, len(held))
	for i, r := range held {
		mentions[i] = r.Mention()
	}
	roleList := strings.Join(mentions, ", ")
	if roleList == "" {
		roleList = "None"
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Joined Server", Value: relative(member.JoinedAt), Inline: true},
		&discordgo.MessageEmbedField{Name: "Nickname", Value: nick, Inline: true},
		&discordgo.MessageEmbedField{Name: "Highest Role", Value: highest, Inline: true},
		&discordgo.MessageEmbedField{Name: "Roles", Value: roleList},
	)
	return c.ReplyEmbed(embed, false)
}
