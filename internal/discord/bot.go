// Package discord connects the command core to the Discord gateway.
package discord

import (
	"context"
	"fmt"
	"sync"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// MessageListener reacts to guild messages from non-bot users.
type MessageListener interface {
	OnMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate)
}

// MessageChangeListener reacts to edited and deleted guild messages. The
// previous version comes from the state cache and may be missing.
type MessageChangeListener interface {
	OnMessageUpdate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageUpdate)
	OnMessageDelete(ctx context.Context, s *discordgo.Session, m *discordgo.MessageDelete)
}

// MemberListener reacts to members joining and leaving a guild.
type MemberListener interface {
	OnMemberAdd(ctx context.Context, s *discordgo.Session, m *discordgo.GuildMemberAdd)
	OnMemberRemove(ctx context.Context, s *discordgo.Session, m *discordgo.GuildMemberRemove)
}

// Bot owns the gateway session and routes events.
type Bot struct {
	session    *discordgo.Session
	dispatcher *command.Dispatcher
	registry   *command.Registry

	messages []MessageListener
	changes  []MessageChangeListener
	members  []MemberListener

	ctx       context.Context
	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	// Edit and delete logs need the message as it was.
	dg.State.MaxMessageCount = messageCacheSize
	return dg, nil
}

const messageCacheSize = 200

// New builds a bot. Each listener is attached to every event kind it
// implements; a value implementing none of them is logged and ignored.
func New(session *discordgo.Session, dispatcher *command.Dispatcher, registry *command.Registry, listeners ...any) *Bot {
	b := &Bot{
		session:    session,
		dispatcher: dispatcher,
		registry:   registry,
		ctx:        context.Background(),
	}
	for _, l := range listeners {
		attached := false
		if ml, ok := l.(MessageListener); ok {
			b.messages = append(b.messages, ml)
			attached = true
		}
		if cl, ok := l.(MessageChangeListener); ok {
			b.changes = append(b.changes, cl)
			attached = true
		}
		if ml, ok := l.(MemberListener); ok {
			b.members = append(b.members, ml)
			attached = true
		}
		if !attached {
			log.Warn().Str("listener", fmt.Sprintf("%T", l)).Msg("listener handles no events")
		}
	}
	return b
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMemberAdd)
	b.session.AddHandler(b.onMemberRemove)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, closing gateway")
	return b.Close()
}

// Close closes the gateway session. Safe to call more than once.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.session.Close()
	})
	return b.closeErr
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord bot is running")

	if err := b.registry.Publish(b.ctx); err != nil {
		log.Error().Err(err).Msg("failed to publish commands")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().CommandType != discordgo.ChatApplicationCommand {
			return
		}
		b.dispatcher.Dispatch(b.ctx, newSlashInteraction(s, i))
	case discordgo.InteractionMessageComponent:
		b.dispatcher.DispatchComponent(b.ctx, newComponentInteraction(s, i))
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	for _, l := range b.messages {
		l.OnMessage(b.ctx, s, m)
	}
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.GuildID == "" {
		return
	}
	for _, l := range b.changes {
		l.OnMessageUpdate(b.ctx, s, m)
	}
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.GuildID == "" {
		return
	}
	for _, l := range b.changes {
		l.OnMessageDelete(b.ctx, s, m)
	}
}

func (b *Bot) onMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	for _, l := range b.members {
		l.OnMemberAdd(b.ctx, s, m)
	}
}

func (b *Bot) onMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	for _, l := range b.members {
		l.OnMemberRemove(b.ctx, s, m)
	}
}
