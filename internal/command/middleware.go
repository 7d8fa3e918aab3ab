package command

import (
	"context"
	"time"

	"novabot/internal/storage"

	"github.com/rs/zerolog/log"
)

// Middleware wraps a handler (logging, guild checks).
type Middleware func(Handler) Handler

// Apply applies middlewares in order; the first in the list is the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// HistoryRecorder stores executed commands per guild.
type HistoryRecorder interface {
	AppendCommandToHistory(guildID string, entry storage.CommandHistoryRecord) error
}

// WithCommandLogger runs the command, then records it in the guild history.
func WithCommandLogger(rec HistoryRecorder) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, c *Context) error {
			err := next.Handle(ctx, c)

			if c.GuildID() == "" {
				return err
			}
			entry := storage.CommandHistoryRecord{
				ChannelID: c.ChannelID(),
				UserID:    c.UserID(),
				Username:  c.Username(),
				Command:   c.CommandName(),
				Datetime:  time.Now(),
			}
			if e := rec.AppendCommandToHistory(c.GuildID(), entry); e != nil {
				log.Warn().Err(e).Str("command", c.CommandName()).Msg("failed to log command")
			}
			return err
		})
	}
}

// WithGuildOnly refuses commands marked guild_only when invoked in a DM.
func WithGuildOnly() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, c *Context) error {
			if c.GuildID() == "" && c.Descriptor != nil && c.Descriptor.GuildOnly {
				return c.ReplyText("This command can only be used in a server.")
			}
			return next.Handle(ctx, c)
		})
	}
}
