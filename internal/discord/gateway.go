package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Gateway exposes read-only connection facts of a session.
type Gateway struct {
	s *discordgo.Session
}

func NewGateway(s *discordgo.Session) Gateway {
	return Gateway{s: s}
}

func (g Gateway) HeartbeatLatency() time.Duration {
	return g.s.HeartbeatLatency()
}

// GuildCount is the number of guilds in the session state.
func (g Gateway) GuildCount() int {
	if g.s.State == nil {
		return 0
	}
	g.s.State.RLock()
	defer g.s.State.RUnlock()
	return len(g.s.State.Guilds)
}

// SetMaintenancePresence shows maintenance mode in the bot's status.
func (g Gateway) SetMaintenancePresence(enabled bool, reason string) error {
	status := discordgo.UpdateStatusData{Status: string(discordgo.StatusOnline)}
	if enabled {
		text := "Maintenance"
		if reason != "" {
			text += ": " + reason
		}
		status.Status = string(discordgo.StatusDoNotDisturb)
		status.Activities = []*discordgo.Activity{{
			Name:  "Custom Status",
			Type:  discordgo.ActivityTypeCustom,
			State: text,
		}}
	}
	return g.s.UpdateStatusComplex(status)
}
