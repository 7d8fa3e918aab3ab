package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	events []string
}

func (r *recordingListener) OnMessage(context.Context, *discordgo.Session, *discordgo.MessageCreate) {
	r.events = append(r.events, "create")
}

func (r *recordingListener) OnMessageUpdate(context.Context, *discordgo.Session, *discordgo.MessageUpdate) {
	r.events = append(r.events, "update")
}

func (r *recordingListener) OnMessageDelete(context.Context, *discordgo.Session, *discordgo.MessageDelete) {
	r.events = append(r.events, "delete")
}

type joinListener struct {
	joined, left int
}

func (j *joinListener) OnMemberAdd(context.Context, *discordgo.Session, *discordgo.GuildMemberAdd) {
	j.joined++
}

func (j *joinListener) OnMemberRemove(context.Context, *discordgo.Session, *discordgo.GuildMemberRemove) {
	j.left++
}

func TestBot_RoutesEventsToListeners(t *testing.T) {
	rec := &recordingListener{}
	joins := &joinListener{}
	b := New(nil, nil, nil, rec, joins, "not a listener")

	assert.Len(t, b.messages, 1)
	assert.Len(t, b.changes, 1)
	assert.Len(t, b.members, 1)

	guildMsg := &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "u1"}}
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: guildMsg})
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{GuildID: "g1", Author: &discordgo.User{ID: "b", Bot: true}}})
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{Author: &discordgo.User{ID: "u1"}}})
	b.onMessageUpdate(nil, &discordgo.MessageUpdate{Message: guildMsg})
	b.onMessageDelete(nil, &discordgo.MessageDelete{Message: guildMsg})
	b.onMessageDelete(nil, &discordgo.MessageDelete{Message: &discordgo.Message{}})

	assert.Equal(t, []string{"create", "update", "delete"}, rec.events)

	b.onMemberAdd(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g1"}})
	b.onMemberRemove(nil, &discordgo.GuildMemberRemove{Member: &discordgo.Member{GuildID: "g1"}})
	assert.Equal(t, 1, joins.joined)
	assert.Equal(t, 1, joins.left)
}
