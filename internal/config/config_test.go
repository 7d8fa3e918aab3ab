package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OWNER_ID", "123456789")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "commands", cfg.CommandsPath)
	assert.Equal(t, "data/datastore.json", cfg.StoragePath)
	assert.Equal(t, 30*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, 0x5865F2, cfg.EmbedColor)
	assert.True(t, cfg.WatchCommands)
	assert.Equal(t, "message-logs", cfg.MessageLog)
	assert.Equal(t, "join-logs", cfg.JoinLog)
	assert.Empty(t, cfg.BannedWords)
}

func TestParse_BannedWords(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OWNER_ID", "123456789")
	t.Setenv("AUTOMOD_BANNED_WORDS", "heck,darn")
	t.Setenv("JOIN_LOG_CHANNEL", "arrivals")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"heck", "darn"}, cfg.BannedWords)
	assert.Equal(t, "arrivals", cfg.JoinLog)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		error string
	}{
		{
			name:  "missing token",
			env:   map[string]string{"OWNER_ID": "1"},
			error: "DISCORD_TOKEN",
		},
		{
			name:  "missing owner",
			env:   map[string]string{"DISCORD_TOKEN": "t"},
			error: "OWNER_ID",
		},
		{
			name:  "owner not a snowflake",
			env:   map[string]string{"DISCORD_TOKEN": "t", "OWNER_ID": "bob"},
			error: "numbers only",
		},
		{
			name:  "guild not a snowflake",
			env:   map[string]string{"DISCORD_TOKEN": "t", "OWNER_ID": "1", "DISCORD_GUILD_ID": "x1"},
			error: "guild ID",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "")
			t.Setenv("OWNER_ID", "")
			t.Setenv("DISCORD_GUILD_ID", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.error)
		})
	}
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "💰 Economy", CategoryTitle("economy"))
	assert.Equal(t, "misc", CategoryTitle("misc"))
}

func TestSortCategories(t *testing.T) {
	cats := []string{"owner", "zeta", "economy", "utility", "alpha", "levels"}
	SortCategories(cats)
	assert.Equal(t, []string{"utility", "economy", "levels", "owner", "alpha", "zeta"}, cats)
	assert.Equal(t, "misc", CategoryTitle("misc"))
}
