// Package commands wires every feature module into a handler catalog.
package commands

import (
	"errors"
	"io"
	"time"

	"novabot/internal/command"
	"novabot/internal/commands/automod"
	"novabot/internal/commands/economy"
	"novabot/internal/commands/levels"
	"novabot/internal/commands/moderation"
	"novabot/internal/commands/owner"
	"novabot/internal/commands/serverlog"
	"novabot/internal/commands/utility"
	"novabot/internal/commands/welcome"
	"novabot/internal/database"
	"novabot/internal/discord"
	"novabot/internal/gate"
	"novabot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Deps are the collaborators the handlers close over. Registration never
// calls them, so a zero Deps is enough to validate manifests offline.
type Deps struct {
	DB                *database.DB
	Storage           *storage.Storage
	Access            *gate.AccessState
	XPCooldowns       *gate.Cooldowns
	Registry          *command.Registry
	Session           *discordgo.Session
	ModLogChannel     string
	MessageLogChannel string
	JoinLogChannel    string
	BannedWords       []string
	Started           time.Time
	Shutdown          func()
}

// Modules is what Register built beyond catalog handlers.
type Modules struct {
	// Listeners go to discord.New.
	Listeners []any

	closers []io.Closer
}

// Close releases the modules' timers and caches. Open blackjack tables are
// refunded, so close before the database.
func (m *Modules) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Register adds every handler to cat.
func Register(cat *command.Catalog, d Deps) *Modules {
	gw := discord.NewGateway(d.Session)
	shutdown := d.Shutdown
	if shutdown == nil {
		shutdown = func() {}
	}

	econ := economy.New(d.DB)
	lv := levels.New(d.DB, d.XPCooldowns)
	am := automod.New(d.Session, d.Storage, d.ModLogChannel, d.BannedWords)

	econ.Register(cat)
	lv.Register(cat)
	moderation.New(d.Session, d.Storage, d.ModLogChannel).Register(cat)
	utility.New(d.Registry, d.Access, gw, d.Session, d.Started).Register(cat)
	owner.New(d.Access, gw, d.Registry, d.DB, shutdown).Register(cat)

	return &Modules{
		Listeners: []any{
			am,
			lv,
			serverlog.New(d.Session, serverlog.Channels{Messages: d.MessageLogChannel, Joins: d.JoinLogChannel}),
			welcome.New(d.Session),
		},
		closers: []io.Closer{econ, am},
	}
}
