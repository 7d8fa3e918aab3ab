package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPress(customID, user string) *fakeInteraction {
	in := newFakeInteraction("", user)
	in.customID = customID
	return in
}

func TestComponentID_RoundTrip(t *testing.T) {
	id := ComponentID("bj", "hit", "g1")
	assert.Equal(t, "bj:hit:g1", id)

	prefix, args := SplitComponentID(id)
	assert.Equal(t, "bj", prefix)
	assert.Equal(t, []string{"hit", "g1"}, args)

	prefix, args = SplitComponentID("plain")
	assert.Equal(t, "plain", prefix)
	assert.Empty(t, args)
}

func TestDispatchComponent(t *testing.T) {
	f := newDispatchFixture(t)
	f.catalog.RegisterComponent("echo", func(_ context.Context, c *ComponentContext) error {
		return c.Update(Response{Content: c.Args()[0]})
	})
	f.catalog.RegisterComponent("fail", func(context.Context, *ComponentContext) error { return errBoom })
	f.catalog.RegisterComponent("panic", func(context.Context, *ComponentContext) error { panic("exploded") })

	t.Run("routes by prefix", func(t *testing.T) {
		in := newPress("echo:hello", "u1")
		assert.Equal(t, Responded, f.dispatcher.DispatchComponent(context.Background(), in))
		require.Len(t, in.updates, 1)
		assert.Equal(t, "hello", in.updates[0].Content)
	})

	t.Run("unknown prefix is dropped", func(t *testing.T) {
		in := newPress("nope:1", "u1")
		assert.Equal(t, Dropped, f.dispatcher.DispatchComponent(context.Background(), in))
		assert.Empty(t, in.replies)
	})

	t.Run("errors get the failure notice", func(t *testing.T) {
		in := newPress("fail", "u1")
		assert.Equal(t, Failed, f.dispatcher.DispatchComponent(context.Background(), in))
		assert.Equal(t, "An error occurred while processing your interaction.", in.lastReplyText())
	})

	t.Run("panics are contained", func(t *testing.T) {
		in := newPress("panic", "u1")
		assert.NotPanics(t, func() {
			assert.Equal(t, Failed, f.dispatcher.DispatchComponent(context.Background(), in))
		})
	})

	t.Run("maintenance applies", func(t *testing.T) {
		f.access.SetMaintenance(true, "")
		defer f.access.SetMaintenance(false, "")

		in := newPress("echo:x", "u1")
		assert.Equal(t, Denied, f.dispatcher.DispatchComponent(context.Background(), in))
		assert.Empty(t, in.updates)
		assert.Equal(t, Responded, f.dispatcher.DispatchComponent(context.Background(), newPress("echo:x", ownerID)))
	})
}
