// Package automod removes messages that spam, repeat themselves, mass
// mention, advertise invites or use banned words, and warns their authors.
package automod

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"novabot/internal/discord"
	"novabot/internal/storage"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	spamThreshold      = 5
	spamInterval       = 5 * time.Second
	duplicateThreshold = 3
	duplicateWindow    = 10
	mentionLimit       = 5
	historyIdle        = 10 * time.Minute
	warningLifetime    = 5 * time.Second
	colorWarning       = 0xFF9900
	colorAction        = 0xFF0000
)

var invitePattern = regexp.MustCompile(`(?i)discord(?:\.gg|\.com/invite)`)

// API is the part of *discordgo.Session automod calls.
type API interface {
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// WarningStore records a warning per removed message.
type WarningStore interface {
	AddWarning(guildID, userID, moderatorID, reason string) (storage.Warning, error)
}

// history is what automod remembers about one author in one channel.
type history struct {
	sent     []time.Time
	contents []string
}

type Module struct {
	api      API
	warnings WarningStore
	logName  string
	banned   []string

	mu      sync.Mutex
	recent  *ttlcache.Cache
	now     func() time.Time
	expire  time.Duration
	cleanup sync.WaitGroup
}

type Option func(*Module)

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

// WithWarningLifetime sets how long the in-channel warning stays up.
func WithWarningLifetime(d time.Duration) Option {
	return func(m *Module) { m.expire = d }
}

// New returns the module. Violations are reported to the text channel named
// logName; banned words match case-insensitively anywhere in a message.
func New(api API, warnings WarningStore, logName string, banned []string, opts ...Option) *Module {
	words := make([]string, 0, len(banned))
	for _, w := range banned {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	m := &Module{
		api:      api,
		warnings: warnings,
		logName:  logName,
		banned:   words,
		recent:   ttlcache.NewCache(),
		now:      time.Now,
		expire:   warningLifetime,
	}
	_ = m.recent.SetTTL(historyIdle)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close drops the per-author history and waits for pending warning cleanups.
func (m *Module) Close() error {
	err := m.recent.Close()
	m.cleanup.Wait()
	if errors.Is(err, ttlcache.ErrClosed) {
		return nil
	}
	return err
}

// OnMessage checks a guild message and acts on any violation.
func (m *Module) OnMessage(ctx context.Context, s *discordgo.Session, msg *discordgo.MessageCreate) {
	self := ""
	if s != nil && s.State != nil && s.State.User != nil {
		self = s.State.User.ID
	}
	m.check(ctx, msg.Message, self)
}

func (m *Module) check(ctx context.Context, msg *discordgo.Message, self string) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	perms, err := m.api.UserChannelPermissions(msg.Author.ID, msg.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("user_id", msg.Author.ID).Msg("failed to resolve permissions, skipping automod")
		return
	}
	if perms&discordgo.PermissionManageMessages != 0 {
		return
	}

	violations := m.violations(msg)
	if len(violations) == 0 {
		return
	}
	m.act(ctx, msg, violations, self)
}

// violations lists every rule msg breaks. It also records msg in its
// author's history, so call it once per message.
func (m *Module) violations(msg *discordgo.Message) []string {
	var out []string
	spam, duplicate := m.remember(msg)
	if spam {
		out = append(out, "Message spam detected")
	}
	if duplicate {
		out = append(out, "Duplicate message detected")
	}
	if len(msg.Mentions)+len(msg.MentionRoles) > mentionLimit {
		out = append(out, "Mention spam detected")
	}
	if invitePattern.MatchString(msg.Content) {
		out = append(out, "Discord invite link detected")
	}
	if words := m.bannedWords(msg.Content); len(words) > 0 {
		out = append(out, "Banned words detected: "+strings.Join(words, ", "))
	}
	return out
}

func (m *Module) remember(msg *discordgo.Message) (spam, duplicate bool) {
	key := msg.Author.ID + "-" + msg.ChannelID
	now := m.now()
	content := strings.ToLower(msg.Content)

	m.mu.Lock()
	defer m.mu.Unlock()

	h := &history{}
	if v, err := m.recent.Get(key); err == nil {
		h = v.(*history)
	}

	h.sent = append(h.sent, now)
	kept := h.sent[:0]
	for _, t := range h.sent {
		if now.Sub(t) < spamInterval {
			kept = append(kept, t)
		}
	}
	h.sent = kept

	seen := 0
	for _, c := range h.contents {
		if c == content {
			seen++
		}
	}
	h.contents = append(h.contents, content)
	if len(h.contents) > duplicateWindow {
		h.contents = h.contents[1:]
	}

	if err := m.recent.Set(key, h); err != nil {
		log.Debug().Err(err).Msg("automod history unavailable")
	}
	return len(h.sent) >= spamThreshold, seen >= duplicateThreshold
}

func (m *Module) bannedWords(content string) []string {
	content = strings.ToLower(content)
	var found []string
	for _, w := range m.banned {
		if strings.Contains(content, w) {
			found = append(found, w)
		}
	}
	return found
}

func (m *Module) act(ctx context.Context, msg *discordgo.Message, violations []string, self string) {
	logger := log.With().
		Str("guild_id", msg.GuildID).
		Str("user_id", msg.Author.ID).
		Strs("violations", violations).
		Logger()

	if err := m.api.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		logger.Error().Err(err).Msg("failed to delete message")
		return
	}

	bullets := make([]string, len(violations))
	for i, v := range violations {
		bullets[i] = "• " + v
	}
	warning := &discordgo.MessageEmbed{
		Title: "⚠️ Automod Warning",
		Description: fmt.Sprintf("<@%s>, your message was removed for the following violations:\n%s",
			msg.Author.ID, strings.Join(bullets, "\n")),
		Color: colorWarning,
	}
	sent, err := m.api.ChannelMessageSendEmbed(msg.ChannelID, warning, discordgo.WithContext(ctx))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to send automod warning")
	} else {
		m.cleanup.Add(1)
		time.AfterFunc(m.expire, func() {
			defer m.cleanup.Done()
			if err := m.api.ChannelMessageDelete(sent.ChannelID, sent.ID); err != nil {
				log.Debug().Err(err).Str("message_id", sent.ID).Msg("failed to remove automod warning")
			}
		})
	}

	m.report(ctx, msg, violations)

	if _, err := m.warnings.AddWarning(msg.GuildID, msg.Author.ID, self, "Automod: "+strings.Join(violations, "; ")); err != nil {
		logger.Error().Err(err).Msg("failed to record automod warning")
	}
	logger.Info().Msg("automod removed message")
}

func (m *Module) report(ctx context.Context, msg *discordgo.Message, violations []string) {
	if m.logName == "" {
		return
	}
	channels, err := m.api.GuildChannels(msg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("guild_id", msg.GuildID).Msg("failed to list channels for automod log")
		return
	}
	channelID := discord.TextChannel(channels, discord.Named(m.logName))
	if channelID == "" {
		return
	}

	content := msg.Content
	if content == "" {
		content = "(no content)"
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🤖 Automod Action",
		Description: "Message removed due to automod violations",
		Color:       colorAction,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", msg.Author.Username, msg.Author.ID)},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", msg.ChannelID)},
			{Name: "Violations", Value: strings.Join(violations, "\n")},
			{Name: "Message Content", Value: content},
		},
		Timestamp: m.now().Format(time.RFC3339),
	}
	if _, err := m.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to write automod log")
	}
}
