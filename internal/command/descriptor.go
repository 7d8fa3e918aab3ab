package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Descriptor is a loaded command: its metadata and the wrapped handler.
type Descriptor struct {
	Name        string
	Category    string
	Description string
	HandlerID   string
	Cooldown    time.Duration
	GuildOnly   bool
	Source      string

	Definition *discordgo.ApplicationCommand
	Handler    Handler
}

// Equal compares everything but the handler value.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Name == o.Name &&
		d.Category == o.Category &&
		d.Description == o.Description &&
		d.HandlerID == o.HandlerID &&
		d.Cooldown == o.Cooldown &&
		d.GuildOnly == o.GuildOnly &&
		d.Source == o.Source &&
		hashCommand(d.Definition) == hashCommand(o.Definition)
}
