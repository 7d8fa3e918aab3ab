package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"novabot/internal/command"
	"novabot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// GlobalScope names the hash slot of globally published commands.
const GlobalScope = "global"

type commandOverwriter interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// HashStore remembers the last published hash across restarts.
type HashStore interface {
	CommandHash(scope string) (string, error)
	SetCommandHash(scope, hash string) error
}

// Publisher replaces the whole application command set on Discord, skipping
// the call when the set has not changed since the last publish.
type Publisher struct {
	api     commandOverwriter
	appID   func() (string, error)
	guildID string
	hashes  HashStore
	limiter *rate.Limiter
	retry   retrylimit.RetryConfig

	mu   sync.Mutex
	last string
}

// NewPublisher publishes to guildID, or globally when it is empty. hashes may be nil.
func NewPublisher(api commandOverwriter, appID func() (string, error), guildID string, hashes HashStore) *Publisher {
	return &Publisher{
		api:     api,
		appID:   appID,
		guildID: guildID,
		hashes:  hashes,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 2),
		retry:   retrylimit.DefaultRetryConfig(),
	}
}

func (p *Publisher) scope() string {
	if p.guildID == "" {
		return GlobalScope
	}
	return p.guildID
}

func (p *Publisher) Publish(ctx context.Context, cmds []*discordgo.ApplicationCommand) error {
	hash := command.HashCommands(cmds)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == "" && p.hashes != nil {
		stored, err := p.hashes.CommandHash(p.scope())
		if err != nil {
			log.Warn().Err(err).Msg("failed to read stored command hash")
		}
		p.last = stored
	}
	if hash == p.last {
		log.Debug().Str("scope", p.scope()).Msg("command set unchanged, skipping publish")
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	appID, err := p.appID()
	if err != nil {
		return fmt.Errorf("resolve application id: %w", err)
	}

	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	var created []*discordgo.ApplicationCommand
	err = retrylimit.Do(ctx, p.retry, func() error {
		var err error
		created, err = p.api.ApplicationCommandBulkOverwrite(appID, p.guildID, cmds, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}

	p.last = hash
	if p.hashes != nil {
		if err := p.hashes.SetCommandHash(p.scope(), hash); err != nil {
			log.Warn().Err(err).Msg("failed to store command hash")
		}
	}
	log.Info().Str("scope", p.scope()).Int("commands", len(created)).Msg("published commands")
	return nil
}

// SessionAppID resolves the application id from the session user, falling
// back to a REST lookup before the gateway is ready.
func SessionAppID(s *discordgo.Session) func() (string, error) {
	return func() (string, error) {
		if s.State != nil && s.State.User != nil && s.State.User.ID != "" {
			return s.State.User.ID, nil
		}
		u, err := s.User("@me")
		if err != nil {
			return "", fmt.Errorf("failed to fetch bot user: %w", err)
		}
		return u.ID, nil
	}
}
