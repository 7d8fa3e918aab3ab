// Package commandtest provides in-memory interactions for handler tests.
package commandtest

import (
	"context"
	"sync"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// Interaction records every response sent through it.
type Interaction struct {
	Name    string
	User    string
	Nick    string
	Guild   string
	Channel string
	Opts    command.Options

	mu        sync.Mutex
	Replies   []command.Response
	Followups []command.Response
	Deferred  bool
}

var _ command.Interaction = (*Interaction)(nil)

// New returns an interaction for name invoked by userID in guild "guild".
func New(name, userID string, opts command.Options) *Interaction {
	if opts == nil {
		opts = command.Options{}
	}
	return &Interaction{
		Name:    name,
		User:    userID,
		Nick:    "user" + userID,
		Guild:   "guild",
		Channel: "channel",
		Opts:    opts,
	}
}

func (i *Interaction) CommandName() string      { return i.Name }
func (i *Interaction) UserID() string           { return i.User }
func (i *Interaction) Username() string         { return i.Nick }
func (i *Interaction) GuildID() string          { return i.Guild }
func (i *Interaction) ChannelID() string        { return i.Channel }
func (i *Interaction) Options() command.Options { return i.Opts }

func (i *Interaction) Defer(bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Deferred = true
	return nil
}

func (i *Interaction) Reply(r command.Response) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Replies = append(i.Replies, r)
	return nil
}

func (i *Interaction) Followup(r command.Response) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Followups = append(i.Followups, r)
	return nil
}

func (i *Interaction) Responded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.Deferred || len(i.Replies) > 0
}

// LastFollowup returns the latest follow-up and whether there was one.
func (i *Interaction) LastFollowup() (command.Response, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.Followups) == 0 {
		return command.Response{}, false
	}
	return i.Followups[len(i.Followups)-1], true
}

// LastEmbed returns the first embed of the latest reply, or nil.
func (i *Interaction) LastEmbed() *discordgo.MessageEmbed {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.Replies) == 0 || len(i.Replies[len(i.Replies)-1].Embeds) == 0 {
		return nil
	}
	return i.Replies[len(i.Replies)-1].Embeds[0]
}

// LastText is the description of LastEmbed, or the content of the latest reply.
func (i *Interaction) LastText() string {
	if e := i.LastEmbed(); e != nil {
		return e.Description
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.Replies) == 0 {
		return ""
	}
	return i.Replies[len(i.Replies)-1].Content
}

// FieldValue returns the value of the embed field called name in LastEmbed.
func (i *Interaction) FieldValue(name string) string {
	e := i.LastEmbed()
	if e == nil {
		return ""
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Run invokes the catalog handler id against in.
func Run(ctx context.Context, cat *command.Catalog, id string, in *Interaction) error {
	h, ok := cat.Lookup(id)
	if !ok {
		return command.ErrUnknownCommand
	}
	return h.Handle(ctx, &command.Context{Interaction: in, Descriptor: &command.Descriptor{Name: in.Name}})
}

// Press is a button press on a message the bot sent.
type Press struct {
	ID      string
	User    string
	Nick    string
	Guild   string
	Channel string

	mu        sync.Mutex
	Updates   []command.Response
	Replies   []command.Response
	Followups []command.Response
}

var _ command.ComponentInteraction = (*Press)(nil)

// NewPress returns a press of the component customID by userID.
func NewPress(customID, userID string) *Press {
	return &Press{ID: customID, User: userID, Nick: "user" + userID, Guild: "guild", Channel: "channel"}
}

func (p *Press) CustomID() string  { return p.ID }
func (p *Press) UserID() string    { return p.User }
func (p *Press) Username() string  { return p.Nick }
func (p *Press) GuildID() string   { return p.Guild }
func (p *Press) ChannelID() string { return p.Channel }

func (p *Press) Update(r command.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Updates = append(p.Updates, r)
	return nil
}

func (p *Press) Reply(r command.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Replies = append(p.Replies, r)
	return nil
}

func (p *Press) Followup(r command.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Followups = append(p.Followups, r)
	return nil
}

func (p *Press) Responded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Updates) > 0 || len(p.Replies) > 0
}

// LastUpdate returns the latest message update, or an empty response.
func (p *Press) LastUpdate() command.Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Updates) == 0 {
		return command.Response{}
	}
	return p.Updates[len(p.Updates)-1]
}

// LastReplyText is the description of the latest reply's first embed.
func (p *Press) LastReplyText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Replies) == 0 {
		return ""
	}
	r := p.Replies[len(p.Replies)-1]
	if len(r.Embeds) > 0 {
		return r.Embeds[0].Description
	}
	return r.Content
}

// RunComponent invokes the component handler registered for p's prefix.
func RunComponent(ctx context.Context, cat *command.Catalog, p *Press) error {
	prefix, _ := command.SplitComponentID(p.ID)
	fn, ok := cat.Component(prefix)
	if !ok {
		return command.ErrUnknownCommand
	}
	return fn(ctx, &command.ComponentContext{ComponentInteraction: p})
}
