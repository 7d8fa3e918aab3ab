package command

import (
	"context"
	"sync"
	"testing"

	"novabot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHistory struct {
	mu      sync.Mutex
	entries map[string][]storage.CommandHistoryRecord
}

func (m *memHistory) AppendCommandToHistory(guildID string, entry storage.CommandHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]storage.CommandHistoryRecord)
	}
	m.entries[guildID] = append(m.entries[guildID], entry)
	return nil
}

func TestApply_FirstIsOutermost(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, c *Context) error {
				calls = append(calls, name)
				return next.Handle(ctx, c)
			})
		}
	}

	h := Apply(HandlerFunc(func(context.Context, *Context) error {
		calls = append(calls, "handler")
		return nil
	}), mark("outer"), mark("inner"))

	require.NoError(t, h.Handle(context.Background(), &Context{Interaction: newFakeInteraction("x", "u")}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestWithCommandLogger(t *testing.T) {
	hist := &memHistory{}
	h := Apply(HandlerFunc(func(context.Context, *Context) error { return errBoom }), WithCommandLogger(hist))

	in := newFakeInteraction("daily", "u1")
	err := h.Handle(context.Background(), &Context{Interaction: in})
	assert.ErrorIs(t, err, errBoom)

	require.Len(t, hist.entries["guild"], 1)
	entry := hist.entries["guild"][0]
	assert.Equal(t, "daily", entry.Command)
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "channel", entry.ChannelID)

	dm := newFakeInteraction("daily", "u1")
	dm.guild = ""
	_ = h.Handle(context.Background(), &Context{Interaction: dm})
	assert.Len(t, hist.entries, 1)
}

func TestWithGuildOnly(t *testing.T) {
	ran := false
	h := Apply(HandlerFunc(func(context.Context, *Context) error {
		ran = true
		return nil
	}), WithGuildOnly())

	dm := newFakeInteraction("ban", "u1")
	dm.guild = ""
	require.NoError(t, h.Handle(context.Background(), &Context{Interaction: dm, Descriptor: &Descriptor{GuildOnly: true}}))
	assert.False(t, ran)
	assert.Equal(t, "This command can only be used in a server.", dm.lastReplyText())

	require.NoError(t, h.Handle(context.Background(), &Context{Interaction: dm, Descriptor: &Descriptor{}}))
	assert.True(t, ran)
}

func TestOptions(t *testing.T) {
	opts := Options{"name": "x", "count": int64(3), "ratio": 0.5, "flag": true, "legacy": float64(7)}

	s, ok := opts.String("name")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	n, ok := opts.Int("count")
	assert.True(t, ok)
	assert.EqualValues(t, 3, n)

	n, ok = opts.Int("legacy")
	assert.True(t, ok)
	assert.EqualValues(t, 7, n)

	fl, ok := opts.Float("ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, fl)

	b, ok := opts.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = opts.String("missing")
	assert.False(t, ok)

	opts["target"] = "99"
	u, ok := opts.User("target")
	assert.True(t, ok)
	assert.Equal(t, "99", u.ID)
}
