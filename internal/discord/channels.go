package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// TextChannel returns the id of the first guild text channel whose name
// matches, or "".
func TextChannel(channels []*discordgo.Channel, match func(name string) bool) string {
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && match(ch.Name) {
			return ch.ID
		}
	}
	return ""
}

func Named(name string) func(string) bool {
	return func(n string) bool { return n == name }
}

// NameContains matches names holding any of words, ignoring case.
func NameContains(words ...string) func(string) bool {
	return func(n string) bool {
		n = strings.ToLower(n)
		for _, w := range words {
			if strings.Contains(n, w) {
				return true
			}
		}
		return false
	}
}
