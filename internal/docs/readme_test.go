package docs

import (
	"os"
	"path/filepath"
	"testing"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groups() map[string][]*command.Descriptor {
	return map[string][]*command.Descriptor{
		"economy": {
			{Name: "give", Description: "Give money", Definition: &discordgo.ApplicationCommand{
				Options: []*discordgo.ApplicationCommandOption{{Name: "user", Required: true}, {Name: "note"}},
			}},
			{Name: "daily", Description: "Claim your daily reward"},
		},
		"utility": {{Name: "ping", Description: "Check the bot's latency"}},
		"owner":   {{Name: "shutdown", Description: "Stop"}},
	}
}

func TestCommandSections(t *testing.T) {
	want := "### 🔧 Utility\n\n" +
		"- **/ping**: Check the bot's latency\n" +
		"\n### 💰 Economy\n\n" +
		"- **/daily**: Claim your daily reward\n" +
		"- **/give** `user` `[note]`: Give money\n"
	assert.Equal(t, want, CommandSections(groups()))
}

func TestUpdateReadme(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "README.md.tmpl")
	out := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(tmpl, []byte("# NovaBot\n\n{{ .CommandSections }}"), 0o644))

	require.NoError(t, UpdateReadme(tmpl, out, groups()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# NovaBot\n\n### 🔧 Utility")
	assert.NotContains(t, string(data), "shutdown")
}
