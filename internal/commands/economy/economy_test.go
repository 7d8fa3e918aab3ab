package economy

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"novabot/internal/command"
	"novabot/internal/command/commandtest"
	"novabot/internal/database"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db  *database.DB
	cat *command.Catalog
	mod *Module
	now time.Time
}

func newFixture(t *testing.T, intn func(int) int, opts ...Option) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{db: db, cat: command.NewCatalog(), now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithRand(intn), WithClock(func() time.Time { return f.now })}, opts...)
	f.mod = New(db, opts...)
	f.mod.Register(f.cat)
	t.Cleanup(func() { assert.NoError(t, f.mod.Close()) })
	return f
}

func (f *fixture) press(t *testing.T, p *commandtest.Press) {
	t.Helper()
	require.NoError(t, commandtest.RunComponent(context.Background(), f.cat, p))
}

func (f *fixture) run(t *testing.T, id string, in *commandtest.Interaction) {
	t.Helper()
	require.NoError(t, commandtest.Run(context.Background(), f.cat, id, in))
}

func (f *fixture) fund(t *testing.T, user string, amount int64) {
	t.Helper()
	_, err := f.db.AddBalance(context.Background(), "guild", user, amount)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, user string) int64 {
	t.Helper()
	bal, err := f.db.Balance(context.Background(), "guild", user)
	require.NoError(t, err)
	return bal
}

func TestDaily(t *testing.T) {
	f := newFixture(t, seq(0))

	in := commandtest.New("daily", "u1", nil)
	f.run(t, "economy.daily", in)
	assert.Equal(t, "You received 500 💰!", in.LastText())
	assert.EqualValues(t, 500, f.balance(t, "u1"))

	f.now = f.now.Add(time.Hour)
	again := commandtest.New("daily", "u1", nil)
	f.run(t, "economy.daily", again)
	assert.Equal(t, "Daily - Cooldown", again.LastEmbed().Title)
	assert.True(t, again.Replies[0].Ephemeral)
	assert.EqualValues(t, 500, f.balance(t, "u1"))

	f.now = f.now.Add(24 * time.Hour)
	f.run(t, "economy.daily", commandtest.New("daily", "u1", nil))
	assert.EqualValues(t, 1000, f.balance(t, "u1"))
}

func TestWork(t *testing.T) {
	f := newFixture(t, seq(0, 0))

	in := commandtest.New("work", "u1", nil)
	f.run(t, "economy.work", in)
	assert.Equal(t, "💼 Work Complete!", in.LastEmbed().Title)
	assert.Equal(t, "100 💰", in.FieldValue("💰 Earnings"))

	again := commandtest.New("work", "u1", nil)
	f.run(t, "economy.work", again)
	assert.Equal(t, "Work - Cooldown", again.LastEmbed().Title)
	assert.EqualValues(t, 100, f.balance(t, "u1"))
}

func TestGive(t *testing.T) {
	f := newFixture(t, seq(0))
	f.fund(t, "u1", 300)

	self := commandtest.New("give", "u1", command.Options{"user": &discordgo.User{ID: "u1"}, "amount": int64(10)})
	f.run(t, "economy.give", self)
	assert.Equal(t, "You can't give money to yourself!", self.LastText())

	bot := commandtest.New("give", "u1", command.Options{"user": &discordgo.User{ID: "b", Bot: true}, "amount": int64(10)})
	f.run(t, "economy.give", bot)
	assert.Equal(t, "You can't give money to bots!", bot.LastText())

	poor := commandtest.New("give", "u1", command.Options{"user": &discordgo.User{ID: "u2"}, "amount": int64(301)})
	f.run(t, "economy.give", poor)
	assert.Equal(t, "You don't have enough money! You need 301 💰", poor.LastText())

	ok := commandtest.New("give", "u1", command.Options{"user": &discordgo.User{ID: "u2"}, "amount": int64(120)})
	f.run(t, "economy.give", ok)
	assert.Equal(t, "180 💰", ok.FieldValue("🏦 Your Balance"))
	assert.EqualValues(t, 120, f.balance(t, "u2"))
}

func TestCoinflip(t *testing.T) {
	f := newFixture(t, seq(0))
	f.fund(t, "u1", 500)

	win := commandtest.New("coinflip", "u1", command.Options{"choice": "heads", "bet": int64(100)})
	f.run(t, "economy.coinflip", win)
	assert.Equal(t, "Heads 🌕", win.FieldValue("🎲 Result"))
	assert.EqualValues(t, 600, f.balance(t, "u1"))

	lose := commandtest.New("coinflip", "u1", command.Options{"choice": "tails", "bet": int64(100)})
	f.run(t, "economy.coinflip", lose)
	assert.Equal(t, "You lost 100 💰!", lose.FieldValue("❌ Not Quite!"))
	assert.EqualValues(t, 500, f.balance(t, "u1"))

	broke := commandtest.New("coinflip", "u1", command.Options{"choice": "heads", "bet": int64(20000)})
	f.run(t, "economy.coinflip", broke)
	assert.Equal(t, "Insufficient Funds", broke.LastEmbed().Title)
	assert.EqualValues(t, 500, f.balance(t, "u1"))

	tooSmall := commandtest.New("coinflip", "u1", command.Options{"choice": "heads", "bet": int64(5)})
	f.run(t, "economy.coinflip", tooSmall)
	assert.True(t, strings.HasPrefix(tooSmall.LastText(), "Bets must be between"))
}

func TestSlots(t *testing.T) {
	f := newFixture(t, seq(5))
	f.fund(t, "u1", 1000)

	in := commandtest.New("slots", "u1", command.Options{"bet": int64(100)})
	f.run(t, "economy.slots", in)
	assert.Equal(t, "┃ 7️⃣ ┃ 7️⃣ ┃ 7️⃣ ┃", in.FieldValue("🎲 Your Spin"))
	assert.Equal(t, "Congratulations! You won 1,000 💰! (10x)", in.FieldValue("🌟 Winner!"))
	assert.EqualValues(t, 1900, f.balance(t, "u1"))
}

func TestSlots_Loss(t *testing.T) {
	f := newFixture(t, seq(0, 1, 2))
	f.fund(t, "u1", 1000)

	in := commandtest.New("slots", "u1", command.Options{"bet": int64(100)})
	f.run(t, "economy.slots", in)
	assert.Equal(t, "Better luck next time!", in.FieldValue("❌ Not Quite!"))
	assert.EqualValues(t, 900, f.balance(t, "u1"))
}

func TestRob(t *testing.T) {
	f := newFixture(t, seq(0, 999999))
	target := &discordgo.User{ID: "victim"}

	poorTarget := commandtest.New("rob", "u1", command.Options{"target": target})
	f.run(t, "economy.rob", poorTarget)
	assert.Equal(t, "This user doesn't have enough money to rob!", poorTarget.LastText())

	f.fund(t, "victim", 1000)
	poorRobber := commandtest.New("rob", "u1", command.Options{"target": target})
	f.run(t, "economy.rob", poorRobber)
	assert.Equal(t, "You need at least 1,000 💰 to attempt a robbery!", poorRobber.LastText())

	f.fund(t, "u1", 1000)
	heist := commandtest.New("rob", "u1", command.Options{"target": target})
	f.run(t, "economy.rob", heist)
	assert.Equal(t, "🦹 Heist Successful!", heist.LastEmbed().Title)
	assert.Equal(t, "299 💰", heist.FieldValue("💰 Stolen"))
	assert.EqualValues(t, 1299, f.balance(t, "u1"))
	assert.EqualValues(t, 701, f.balance(t, "victim"))

	again := commandtest.New("rob", "u1", command.Options{"target": target})
	f.run(t, "economy.rob", again)
	assert.Equal(t, "Rob - Cooldown", again.LastEmbed().Title)
}

func TestRob_Busted(t *testing.T) {
	f := newFixture(t, seq(99, 999999))
	f.fund(t, "u1", 1000)
	f.fund(t, "victim", 1000)

	in := commandtest.New("rob", "u1", command.Options{"target": &discordgo.User{ID: "victim"}})
	f.run(t, "economy.rob", in)
	assert.Equal(t, "🚔 Busted!", in.LastEmbed().Title)
	assert.Equal(t, "1,000 💰", in.FieldValue("💸 Fine Paid"))
	assert.Zero(t, f.balance(t, "u1"))
	assert.EqualValues(t, 1000, f.balance(t, "victim"))
}

func TestBalanceAndRichest(t *testing.T) {
	f := newFixture(t, seq(0))

	empty := commandtest.New("richest", "u1", nil)
	f.run(t, "economy.richest", empty)
	assert.Equal(t, "Nobody has any money yet. Try `/daily`!", empty.LastText())

	f.fund(t, "u1", 50)
	f.fund(t, "u2", 5000)

	bal := commandtest.New("balance", "u1", nil)
	f.run(t, "economy.balance", bal)
	assert.Equal(t, "50 💰", bal.FieldValue("🏦 Balance"))
	assert.Equal(t, "#2", bal.FieldValue("🏆 Rank"))

	other := commandtest.New("balance", "u1", command.Options{"user": &discordgo.User{ID: "u2"}})
	f.run(t, "economy.balance", other)
	assert.Equal(t, "5,000 💰", other.FieldValue("🏦 Balance"))

	top := commandtest.New("richest", "u1", nil)
	f.run(t, "economy.richest", top)
	assert.True(t, strings.HasPrefix(top.LastText(), "🥇 <@u2>"))
}
