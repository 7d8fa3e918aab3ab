package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"novabot/internal/command"
	"novabot/internal/command/commandtest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func guildRoles() []*discordgo.Role {
	return []*discordgo.Role{
		{ID: "guild", Name: "@everyone", Position: 0},
		{ID: "member", Name: "Member", Position: 1},
		{ID: "mod", Name: "Mod", Position: 5},
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		tooLong bool
		ok      bool
	}{
		{"10m", 10 * time.Minute, false, true},
		{"2h", 2 * time.Hour, false, true},
		{"28d", 28 * 24 * time.Hour, false, true},
		{"29d", 0, true, true},
		{"99999999999999999999d", 0, true, true},
		{"1w", 0, false, false},
		{"h", 0, false, false},
		{"", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, tooLong, ok := parseDuration(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.tooLong, tooLong)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 day", formatDuration(24*time.Hour))
	assert.Equal(t, "3 days", formatDuration(3*24*time.Hour))
	assert.Equal(t, "1 hour", formatDuration(90*time.Minute))
	assert.Equal(t, "5 minutes", formatDuration(5*time.Minute))
	assert.Equal(t, "30 seconds", formatDuration(30*time.Second))
}

func TestMute(t *testing.T) {
	api := &mockAPI{}
	cat, _ := newModule(t, api)

	api.On("GuildMember", "guild", "t1").Return(&discordgo.Member{Roles: []string{"member"}}, nil).Once()
	api.On("GuildMember", "guild", "m1").Return(&discordgo.Member{Roles: []string{"member", "mod"}}, nil).Once()
	api.On("GuildRoles", "guild").Return(guildRoles(), nil).Once()
	api.On("GuildMemberTimeout", "guild", "t1", now.Add(2*time.Hour)).Return(nil).Once()
	api.On("GuildChannels", "guild").Return(logChannels(), nil).Once()
	api.On("ChannelMessageSendEmbed", "modlog", mock.MatchedBy(func(e *discordgo.MessageEmbed) bool {
		return e.Title == "🛡️ Timeout" && e.Fields[len(e.Fields)-1].Value == "2 hours"
	})).Return(&discordgo.Message{}, nil).Once()

	in := commandtest.New("mute", "m1", command.Options{
		"user":     &discordgo.User{ID: "t1", Username: "troll"},
		"duration": "2h",
		"reason":   "spam",
	})
	require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))

	assert.Equal(t, "User Timed Out", in.LastEmbed().Title)
	assert.Equal(t, "**troll** has been timed out for 2 hours.", in.LastText())
	assert.Equal(t, "2 hours", in.FieldValue("Duration"))
	assert.False(t, in.Replies[0].Ephemeral)
	api.AssertExpectations(t)
}

func TestMute_Rejections(t *testing.T) {
	target := &discordgo.User{ID: "t1", Username: "troll"}

	t.Run("bad format", func(t *testing.T) {
		api := &mockAPI{}
		cat, _ := newModule(t, api)
		in := commandtest.New("mute", "m1", command.Options{"user": target, "duration": "soon"})
		require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))
		assert.Equal(t, "Invalid duration format. Please use formats like 1m, 1h, 1d.", in.LastText())
	})

	t.Run("too long", func(t *testing.T) {
		api := &mockAPI{}
		cat, _ := newModule(t, api)
		in := commandtest.New("mute", "m1", command.Options{"user": target, "duration": "40d"})
		require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))
		assert.Equal(t, "Timeout duration cannot exceed 28 days.", in.LastText())
	})

	t.Run("not a member", func(t *testing.T) {
		api := &mockAPI{}
		cat, _ := newModule(t, api)
		api.On("GuildMember", "guild", "t1").Return(nil, errors.New("Unknown Member"))
		in := commandtest.New("mute", "m1", command.Options{"user": target, "duration": "1h"})
		require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))
		assert.Equal(t, "This user is not in the server.", in.LastText())
	})

	t.Run("same rank", func(t *testing.T) {
		api := &mockAPI{}
		cat, _ := newModule(t, api)
		api.On("GuildMember", "guild", "t1").Return(&discordgo.Member{Roles: []string{"mod"}}, nil)
		api.On("GuildMember", "guild", "m1").Return(&discordgo.Member{Roles: []string{"mod"}}, nil)
		api.On("GuildRoles", "guild").Return(guildRoles(), nil)
		in := commandtest.New("mute", "m1", command.Options{"user": target, "duration": "1h"})
		require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))
		assert.Equal(t, "You cannot timeout this user as they have the same or higher role than you.", in.LastText())
		api.AssertNotCalled(t, "GuildMemberTimeout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("api failure", func(t *testing.T) {
		api := &mockAPI{}
		cat, _ := newModule(t, api)
		api.On("GuildMember", "guild", "t1").Return(&discordgo.Member{}, nil)
		api.On("GuildMember", "guild", "m1").Return(&discordgo.Member{Roles: []string{"mod"}}, nil)
		api.On("GuildRoles", "guild").Return(guildRoles(), nil)
		api.On("GuildMemberTimeout", "guild", "t1", mock.Anything).Return(errors.New("Missing Permissions"))
		in := commandtest.New("mute", "m1", command.Options{"user": target, "duration": "1m"})
		require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.mute", in))
		assert.Equal(t, "Failed to timeout troll: Missing Permissions", in.LastText())
	})
}

func TestUserinfo_Member(t *testing.T) {
	api := &mockAPI{}
	cat, _ := newModule(t, api)

	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	api.On("GuildMember", "guild", "175928847299117063").Return(&discordgo.Member{
		JoinedAt: joined,
		Roles:    []string{"member", "mod"},
	}, nil)
	api.On("GuildRoles", "guild").Return(guildRoles(), nil)

	in := commandtest.New("userinfo", "m1", command.Options{
		"user": &discordgo.User{ID: "175928847299117063", Username: "nova"},
	})
	require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.userinfo", in))

	assert.Equal(t, "User Information", in.LastEmbed().Title)
	assert.Equal(t, "nova", in.FieldValue("Username"))
	assert.Equal(t, "<t:1462015105:R>", in.FieldValue("Account Created"))
	assert.Equal(t, "<t:1704164645:R>", in.FieldValue("Joined Server"))
	assert.Equal(t, "None", in.FieldValue("Nickname"))
	assert.Equal(t, "<@&mod>", in.FieldValue("Highest Role"))
	assert.Equal(t, "<@&mod>, <@&member>", in.FieldValue("Roles"))
}

func TestUserinfo_DefaultsToCallerOutsideGuild(t *testing.T) {
	api := &mockAPI{}
	cat, _ := newModule(t, api)
	api.On("GuildMember", "guild", "m1").Return(nil, errors.New("Unknown Member"))

	in := commandtest.New("userinfo", "m1", nil)
	require.NoError(t, commandtest.Run(context.Background(), cat, "moderation.userinfo", in))

	assert.Equal(t, "m1", in.FieldValue("ID"))
	assert.Len(t, in.LastEmbed().Fields, 3)
	api.AssertNotCalled(t, "GuildRoles", mock.Anything)
}
