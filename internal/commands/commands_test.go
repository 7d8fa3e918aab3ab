package commands

import (
	"strings"
	"testing"

	"novabot/internal/command"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedRoot = "../../commands"

func TestShippedManifestsLoad(t *testing.T) {
	cat := command.NewCatalog()
	reg := command.NewRegistry(cat)
	mods := Register(cat, Deps{Registry: reg})
	t.Cleanup(func() { assert.NoError(t, mods.Close()) })
	assert.Len(t, mods.Listeners, 4)

	sources, err := command.Sources(shippedRoot)
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	for _, src := range sources {
		_, err := reg.Load(src.Category, src.Path)
		assert.NoError(t, err, src.Path)
	}

	used := map[string]bool{}
	for _, d := range reg.All() {
		used[d.HandlerID] = true
		prefix, _, _ := strings.Cut(d.HandlerID, ".")
		assert.Equal(t, d.Category, prefix, "%s is filed under the wrong category", d.Name)
	}
	for _, id := range cat.IDs() {
		assert.True(t, used[id], "handler %s has no manifest", id)
	}
	assert.Len(t, reg.All(), len(cat.IDs()))

	_, ok := cat.Component("bj")
	assert.True(t, ok, "blackjack buttons have no handler")
}

func TestShippedManifests_OwnerCommandsAreOwnerCategory(t *testing.T) {
	cat := command.NewCatalog()
	reg := command.NewRegistry(cat)
	mods := Register(cat, Deps{Registry: reg})
	t.Cleanup(func() { _ = mods.Close() })
	_, err := reg.LoadAll(shippedRoot)
	require.NoError(t, err)

	for _, name := range []string{"maintenance", "reload", "reset-user", "shutdown"} {
		d, ok := reg.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, "owner", d.Category)
	}
}
