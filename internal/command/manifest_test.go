package command

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(banManifest))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, "ban", m.Name)
	assert.Equal(t, time.Duration(0), m.CooldownDuration())

	def := m.ApplicationCommand()
	assert.Equal(t, discordgo.ChatApplicationCommand, def.Type)
	require.Len(t, def.Options, 2)
	assert.Equal(t, discordgo.ApplicationCommandOptionUser, def.Options[0].Type)
	assert.True(t, def.Options[0].Required)
	require.NotNil(t, def.DefaultMemberPermissions)
	assert.EqualValues(t, discordgo.PermissionBanMembers, *def.DefaultMemberPermissions)
	require.NotNil(t, def.DMPermission)
	assert.False(t, *def.DMPermission)
}

func TestManifest_DefaultCooldown(t *testing.T) {
	m, err := ParseManifest([]byte("name: ping\ndescription: Pong\nhandler: test.ok\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCooldown*time.Second, m.CooldownDuration())
}

func TestManifest_MinMaxChoices(t *testing.T) {
	m, err := ParseManifest([]byte(`name: coinflip
description: Flip
handler: test.ok
options:
  - name: side
    type: string
    description: Side
    choices:
      - {name: Heads, value: heads}
      - {name: Tails, value: tails}
  - name: bet
    type: integer
    description: Bet
    min: 10
    max: 25000
`))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	def := m.ApplicationCommand()
	require.Len(t, def.Options[0].Choices, 2)
	assert.Equal(t, "heads", def.Options[0].Choices[0].Value)
	require.NotNil(t, def.Options[1].MinValue)
	assert.Equal(t, 10.0, *def.Options[1].MinValue)
	assert.Equal(t, 25000.0, def.Options[1].MaxValue)
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", "description: x\nhandler: test.ok\n"},
		{"missing description", "name: x\nhandler: test.ok\n"},
		{"missing handler", "name: x\ndescription: x\n"},
		{"uppercase name", "name: Ban\ndescription: x\nhandler: test.ok\n"},
		{"negative cooldown", "name: x\ndescription: x\nhandler: test.ok\ncooldown: -1\n"},
		{"bad option type", "name: x\ndescription: x\nhandler: test.ok\noptions:\n  - {name: a, type: blob, description: a}\n"},
		{"duplicate option", "name: x\ndescription: x\nhandler: test.ok\noptions:\n  - {name: a, type: string, description: a}\n  - {name: a, type: string, description: a}\n"},
		{"unknown permission", "name: x\ndescription: x\nhandler: test.ok\npermissions: [fly]\n"},
		{"required after optional", "name: x\ndescription: x\nhandler: test.ok\noptions:\n  - {name: a, type: string, description: a}\n  - {name: b, type: string, description: b, required: true}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tc.body))
			require.NoError(t, err)
			assert.Error(t, m.Validate())
		})
	}
}

func TestParseManifest_RejectsUnknownFields(t *testing.T) {
	_, err := ParseManifest([]byte("name: x\ndescription: x\nhandler: test.ok\ncooldwn: 5\n"))
	assert.Error(t, err)
}

func TestHashCommands_OrderIndependent(t *testing.T) {
	a := &discordgo.ApplicationCommand{Name: "a", Description: "A"}
	b := &discordgo.ApplicationCommand{Name: "b", Description: "B", ID: "123"}
	bNoID := &discordgo.ApplicationCommand{Name: "b", Description: "B"}

	assert.Equal(t, HashCommands([]*discordgo.ApplicationCommand{a, b}), HashCommands([]*discordgo.ApplicationCommand{bNoID, a}))
	assert.NotEqual(t, HashCommands([]*discordgo.ApplicationCommand{a}), HashCommands([]*discordgo.ApplicationCommand{a, b}))
}

func TestHashCommands_OptionOrderMatters(t *testing.T) {
	user := &discordgo.ApplicationCommandOption{Name: "user", Description: "Target", Type: discordgo.ApplicationCommandOptionUser, Required: true}
	reason := &discordgo.ApplicationCommandOption{Name: "reason", Description: "Why", Type: discordgo.ApplicationCommandOptionString}

	declared := &discordgo.ApplicationCommand{Name: "ban", Description: "Ban", Options: []*discordgo.ApplicationCommandOption{user, reason}}
	swapped := &discordgo.ApplicationCommand{Name: "ban", Description: "Ban", Options: []*discordgo.ApplicationCommandOption{reason, user}}

	assert.NotEqual(t, HashCommands([]*discordgo.ApplicationCommand{declared}), HashCommands([]*discordgo.ApplicationCommand{swapped}))
}
