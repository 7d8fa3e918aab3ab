// Package command is the dispatch core: command descriptors loaded from
// manifests, the handler catalog they bind to, the registry, the dispatcher
// that gates and runs handlers, and the watcher that hot-reloads manifests.
package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Response is a reply or follow-up message.
type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
	// Components are buttons attached to the message. On a component update
	// nil removes them.
	Components []discordgo.MessageComponent
}

// Interaction is one inbound slash command invocation, independent of the
// gateway it came from.
type Interaction interface {
	CommandName() string
	UserID() string
	Username() string
	GuildID() string
	ChannelID() string
	Options() Options

	// Defer acknowledges the interaction without a visible reply.
	Defer(ephemeral bool) error
	// Reply sends the primary response, or fills in a deferred one.
	Reply(r Response) error
	Followup(r Response) error
	// Responded reports whether Reply or Defer has succeeded.
	Responded() bool
}

// Handler runs a command.
type Handler interface {
	Handle(ctx context.Context, c *Context) error
}

type HandlerFunc func(ctx context.Context, c *Context) error

func (f HandlerFunc) Handle(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// Context is what a handler receives alongside the request context.
type Context struct {
	Interaction
	Descriptor *Descriptor
	Color      int
}

// Embed builds an embed in the bot's color.
func (c *Context) Embed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       c.Color,
	}
}

// ReplyEmbed replies with a single embed.
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return c.Reply(Response{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: ephemeral})
}

// ReplyText replies with an ephemeral embed holding text.
func (c *Context) ReplyText(text string) error {
	return c.ReplyEmbed(c.Embed("", text), true)
}

// Options holds resolved option values: strings, int64 for integers, float64
// for numbers, bools, *discordgo.User for users, and snowflake strings for
// channels and roles.
type Options map[string]any

func (o Options) String(name string) (string, bool) {
	v, ok := o[name].(string)
	return v, ok
}

func (o Options) Int(name string) (int64, bool) {
	switch v := o[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func (o Options) Float(name string) (float64, bool) {
	switch v := o[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (o Options) Bool(name string) (bool, bool) {
	v, ok := o[name].(bool)
	return v, ok
}

func (o Options) User(name string) (*discordgo.User, bool) {
	switch v := o[name].(type) {
	case *discordgo.User:
		return v, v != nil
	case string:
		return &discordgo.User{ID: v}, v != ""
	}
	return nil, false
}
