package welcome

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GuildWithCounts(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	args := m.Called(guildID)
	g, _ := args.Get(0).(*discordgo.Guild)
	return g, args.Error(1)
}

func (m *mockAPI) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	args := m.Called(guildID)
	chs, _ := args.Get(0).([]*discordgo.Channel)
	return chs, args.Error(1)
}

func (m *mockAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, embed)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

var alice = &discordgo.User{ID: "175928847299117063", Username: "alice", Discriminator: "0"}

func newModule(api *mockAPI, channels ...*discordgo.Channel) *Module {
	api.On("GuildChannels", "guild").Return(channels, nil)
	api.On("GuildWithCounts", "guild").Return(&discordgo.Guild{ID: "guild", Name: "Nova", ApproximateMemberCount: 42}, nil)
	return New(api, WithRand(func(int) int { return 0 }), WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func lastEmbed(t *testing.T, api *mockAPI) (string, *discordgo.MessageEmbed) {
	t.Helper()
	var channel string
	var embed *discordgo.MessageEmbed
	for _, c := range api.Calls {
		if c.Method == "ChannelMessageSendEmbed" {
			channel = c.Arguments.String(0)
			embed = c.Arguments.Get(1).(*discordgo.MessageEmbed)
		}
	}
	require.NotNil(t, embed)
	return channel, embed
}

func TestOnMemberAdd(t *testing.T) {
	api := &mockAPI{}
	m := newModule(api,
		&discordgo.Channel{ID: "rules", Name: "rules", Type: discordgo.ChannelTypeGuildText},
		&discordgo.Channel{ID: "hello", Name: "👋-Welcome", Type: discordgo.ChannelTypeGuildText},
	)
	api.On("ChannelMessageSendEmbed", "hello", mock.Anything).Return(&discordgo.Message{}, nil)

	m.OnMemberAdd(context.Background(), nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "guild", User: alice}})

	channel, e := lastEmbed(t, api)
	assert.Equal(t, "hello", channel)
	assert.Equal(t, "👋 New Member!", e.Title)
	assert.Equal(t, "Welcome <@175928847299117063> to Nova! 🎉", e.Description)
	assert.Equal(t, "<t:1462015105:R>", e.Fields[0].Value)
	assert.Equal(t, "42", e.Fields[1].Value)
}

func TestOnMemberRemove(t *testing.T) {
	api := &mockAPI{}
	m := newModule(api, &discordgo.Channel{ID: "bye", Name: "farewells", Type: discordgo.ChannelTypeGuildText})
	api.On("ChannelMessageSendEmbed", "bye", mock.Anything).Return(&discordgo.Message{}, nil)

	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.OnMemberRemove(context.Background(), nil, &discordgo.GuildMemberRemove{
		Member: &discordgo.Member{GuildID: "guild", User: alice, JoinedAt: joined},
	})

	_, e := lastEmbed(t, api)
	assert.Equal(t, "👋 Member Left", e.Title)
	assert.Equal(t, "Goodbye alice! We'll miss you! 👋", e.Description)
	assert.Equal(t, "<t:1704164645:R>", e.Fields[0].Value)
}

func TestNoChannelSendsNothing(t *testing.T) {
	api := &mockAPI{}
	m := newModule(api, &discordgo.Channel{ID: "v", Name: "welcome-voice", Type: discordgo.ChannelTypeGuildVoice})

	m.OnMemberAdd(context.Background(), nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "guild", User: alice}})
	m.OnMemberAdd(context.Background(), nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "guild", User: &discordgo.User{ID: "b", Bot: true}}})

	api.AssertNotCalled(t, "GuildWithCounts", mock.Anything)
	api.AssertNotCalled(t, "ChannelMessageSendEmbed", mock.Anything, mock.Anything)
}
