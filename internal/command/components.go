package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// ComponentInteraction is a press on a button the bot attached to one of its
// messages.
type ComponentInteraction interface {
	CustomID() string
	UserID() string
	Username() string
	GuildID() string
	ChannelID() string

	// Update replaces the message the component belongs to.
	Update(r Response) error
	// Reply sends a new message instead of touching the original.
	Reply(r Response) error
	Followup(r Response) error
	Responded() bool
}

// ComponentFunc handles presses on components whose custom id starts with
// the prefix it was registered under.
type ComponentFunc func(ctx context.Context, c *ComponentContext) error

// ComponentContext is what a ComponentFunc receives.
type ComponentContext struct {
	ComponentInteraction
	Color int
}

// Args returns the custom id parts after the prefix.
func (c *ComponentContext) Args() []string {
	_, args := SplitComponentID(c.CustomID())
	return args
}

func (c *ComponentContext) Embed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: c.Color}
}

// ReplyText answers only the presser, leaving the message alone.
func (c *ComponentContext) ReplyText(text string) error {
	return c.Reply(Response{Embeds: []*discordgo.MessageEmbed{c.Embed("", text)}, Ephemeral: true})
}

// ComponentID joins a prefix and its arguments into a custom id.
func ComponentID(prefix string, args ...string) string {
	return strings.Join(append([]string{prefix}, args...), ":")
}

func SplitComponentID(id string) (prefix string, args []string) {
	parts := strings.Split(id, ":")
	return parts[0], parts[1:]
}

// RegisterComponent binds presses on custom ids "prefix:..." to fn.
func (c *Catalog) RegisterComponent(prefix string, fn ComponentFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.components == nil {
		c.components = make(map[string]ComponentFunc)
	}
	if _, exists := c.components[prefix]; exists {
		log.Warn().Str("prefix", prefix).Msg("component registered twice, replacing")
	}
	c.components[prefix] = fn
}

func (c *Catalog) Component(prefix string) (ComponentFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.components[prefix]
	return fn, ok
}

// DispatchComponent runs the handler for a component press. Maintenance mode
// applies as it does to commands; cooldowns do not.
func (d *Dispatcher) DispatchComponent(ctx context.Context, in ComponentInteraction) Outcome {
	prefix, _ := SplitComponentID(in.CustomID())
	logger := log.With().
		Str("component", in.CustomID()).
		Str("user", in.UserID()).
		Str("guild", in.GuildID()).
		Logger()

	fn, ok := d.registry.catalog.Component(prefix)
	if !ok {
		logger.Warn().Msg("dropping press on unknown component")
		return Dropped
	}

	if decision := d.access.Evaluate(in.UserID(), ""); !decision.Allowed {
		d.sendNotice(logger, in, d.denialText(decision))
		return Denied
	}

	hctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in component %s: %v\n%s", prefix, r, debug.Stack())
			}
		}()
		return fn(hctx, &ComponentContext{ComponentInteraction: in, Color: d.color})
	}()
	if err == nil {
		logger.Debug().Dur("took", time.Since(start)).Msg("component handled")
		return Responded
	}

	logger.Error().Err(err).Msg("component failed")
	d.fail(logger, in, err, map[string]string{
		"component": prefix,
		"user":      in.UserID(),
		"guild":     in.GuildID(),
	})
	return Failed
}
