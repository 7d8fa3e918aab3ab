package automod

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"novabot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	args := m.Called(userID, channelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	return m.Called(channelID, messageID).Error(0)
}

func (m *mockAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, embed)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

func (m *mockAPI) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	args := m.Called(guildID)
	chs, _ := args.Get(0).([]*discordgo.Channel)
	return chs, args.Error(1)
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newModule(t *testing.T, api *mockAPI, banned ...string) (*Module, *storage.Storage) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := New(api, store, "mod-logs", banned,
		WithClock(func() time.Time { return now }),
		WithWarningLifetime(time.Millisecond))
	t.Cleanup(func() { assert.NoError(t, m.Close()) })
	return m, store
}

func message(id, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		GuildID:   "guild",
		ChannelID: "general",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}
}

func TestViolations(t *testing.T) {
	m, _ := newModule(t, &mockAPI{}, "Heck", " ")

	assert.Empty(t, m.violations(message("1", "hello there")))
	assert.Equal(t, []string{"Discord invite link detected"},
		m.violations(message("2", "join DISCORD.gg/abc")))
	assert.Equal(t, []string{"Banned words detected: heck"},
		m.violations(message("3", "what the HECK")))

	crowd := message("4", "hi all")
	for i := range 6 {
		crowd.Mentions = append(crowd.Mentions, &discordgo.User{ID: string(rune('a' + i))})
	}
	assert.Equal(t, []string{"Mention spam detected"}, m.violations(crowd))
}

func TestViolations_SpamAndDuplicates(t *testing.T) {
	m, _ := newModule(t, &mockAPI{})

	for i := range 3 {
		assert.Empty(t, m.violations(message("d", "same")), "message %d", i)
	}
	assert.Equal(t, []string{"Duplicate message detected"}, m.violations(message("d", "SAME")))
	assert.Equal(t, []string{"Message spam detected", "Duplicate message detected"},
		m.violations(message("d", "same")))

	other := message("o", "same")
	other.ChannelID = "random"
	assert.Empty(t, m.violations(other))
}

func TestCheck_RemovesAndWarns(t *testing.T) {
	api := &mockAPI{}
	m, store := newModule(t, api)

	api.On("UserChannelPermissions", "u1", "general").Return(int64(discordgo.PermissionSendMessages), nil)
	api.On("ChannelMessageDelete", "general", "m1").Return(nil).Once()
	api.On("ChannelMessageSendEmbed", "general", mock.MatchedBy(func(e *discordgo.MessageEmbed) bool {
		return e.Title == "⚠️ Automod Warning" && strings.Contains(e.Description, "• Discord invite link detected")
	})).Return(&discordgo.Message{ID: "w1", ChannelID: "general"}, nil).Once()
	cleared := make(chan struct{})
	api.On("ChannelMessageDelete", "general", "w1").Return(nil).Once().Run(func(mock.Arguments) { close(cleared) })
	api.On("GuildChannels", "guild").Return([]*discordgo.Channel{
		{ID: "log", Name: "mod-logs", Type: discordgo.ChannelTypeGuildText},
	}, nil)
	api.On("ChannelMessageSendEmbed", "log", mock.MatchedBy(func(e *discordgo.MessageEmbed) bool {
		return e.Title == "🤖 Automod Action" && e.Fields[3].Value == "discord.gg/free"
	})).Return(&discordgo.Message{ID: "l1"}, nil).Once()

	m.check(context.Background(), message("m1", "discord.gg/free"), "bot")

	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("warning was not removed")
	}
	api.AssertExpectations(t)

	warnings, err := store.Warnings("guild", "u1")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "bot", warnings[0].ModeratorID)
	assert.Equal(t, "Automod: Discord invite link detected", warnings[0].Reason)
}

func TestCheck_Skips(t *testing.T) {
	api := &mockAPI{}
	m, store := newModule(t, api)

	bot := message("b", "discord.gg/x")
	bot.Author.Bot = true
	m.check(context.Background(), bot, "bot")

	api.On("UserChannelPermissions", "u1", "general").Return(int64(discordgo.PermissionManageMessages), nil).Once()
	m.check(context.Background(), message("mod", "discord.gg/x"), "bot")

	api.On("UserChannelPermissions", "u1", "general").Return(int64(0), errors.New("unknown member")).Once()
	m.check(context.Background(), message("gone", "discord.gg/x"), "bot")

	api.AssertNotCalled(t, "ChannelMessageDelete", mock.Anything, mock.Anything)
	warnings, err := store.Warnings("guild", "u1")
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
