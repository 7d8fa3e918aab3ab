package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bwmarrin/discordgo"
)

type fakeInteraction struct {
	mu        sync.Mutex
	name      string
	user      string
	guild     string
	options   Options
	replies   []Response
	followups []Response
	updates   []Response
	deferred  bool
	replyErr  error
	customID  string
}

func newFakeInteraction(name, user string) *fakeInteraction {
	return &fakeInteraction{name: name, user: user, guild: "guild", options: Options{}}
}

func (f *fakeInteraction) CommandName() string { return f.name }
func (f *fakeInteraction) UserID() string      { return f.user }
func (f *fakeInteraction) Username() string    { return "user-" + f.user }
func (f *fakeInteraction) GuildID() string     { return f.guild }
func (f *fakeInteraction) ChannelID() string   { return "channel" }
func (f *fakeInteraction) Options() Options    { return f.options }

func (f *fakeInteraction) CustomID() string { return f.customID }

func (f *fakeInteraction) Update(r Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, r)
	return nil
}

func (f *fakeInteraction) Defer(bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferred = true
	return nil
}

func (f *fakeInteraction) Reply(r Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, r)
	return nil
}

func (f *fakeInteraction) Followup(r Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, r)
	return nil
}

func (f *fakeInteraction) Responded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deferred || len(f.replies) > 0
}

func (f *fakeInteraction) lastReplyText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	r := f.replies[len(f.replies)-1]
	if len(r.Embeds) > 0 {
		return r.Embeds[0].Description
	}
	return r.Content
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, cmds []*discordgo.ApplicationCommand) error {
	args := m.Called(ctx, cmds)
	return args.Error(0)
}

func writeManifest(t *testing.T, root, category, file, body string) string {
	t.Helper()
	dir := filepath.Join(root, category)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func okHandler(text string) HandlerFunc {
	return func(_ context.Context, c *Context) error {
		return c.ReplyText(text)
	}
}

var errBoom = errors.New("boom")

func testCatalog() *Catalog {
	cat := NewCatalog()
	cat.RegisterFunc("test.ok", okHandler("ok"))
	cat.RegisterFunc("test.ban", okHandler("banned"))
	cat.RegisterFunc("test.fail", func(context.Context, *Context) error { return errBoom })
	return cat
}

const banManifest = `name: ban
description: Ban a member
handler: test.ban
cooldown: 0
guild_only: true
permissions: [ban_members]
options:
  - name: user
    type: user
    description: Member to ban
    required: true
  - name: reason
    type: string
    description: Why
`

func categoryOf(reg *Registry, name string) (string, bool) {
	d, ok := reg.Get(name)
	if !ok {
		return "", false
	}
	return d.Category, true
}
