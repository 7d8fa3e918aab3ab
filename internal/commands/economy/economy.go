// Package economy implements the currency commands: balances, rewards,
// transfers, gambling, blackjack tables and businesses.
package economy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"novabot/internal/command"
	"novabot/internal/database"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const (
	dailyReward    = 500
	richestLimit   = 10
	robMinBalance  = 1000
	robMinTarget   = 100
	robSuccessRate = 40
	robMaxShare    = 0.3
	robMaxStolen   = 5000
	robFineMin     = 500
	robFineSpread  = 1000
	coinflipMinBet = 10
	coinflipMaxBet = 25000
	slotsMinBet    = 50
	slotsMaxBet    = 50000
	colorWin       = 0x32CD32
	colorLoss      = 0xFF4500
	colorError     = 0xFF0000
)

// Store is the persistence the economy commands need.
type Store interface {
	Balance(ctx context.Context, guildID, userID string) (int64, error)
	AddBalance(ctx context.Context, guildID, userID string, amount int64) (int64, error)
	RemoveBalance(ctx context.Context, guildID, userID string, amount int64) (int64, error)
	BalanceRank(ctx context.Context, guildID, userID string) (int, error)
	ClaimActivity(ctx context.Context, guildID, userID string, activity database.Activity, now time.Time) (time.Duration, error)
	ClaimReward(ctx context.Context, guildID, userID string, activity database.Activity, amount int64, now time.Time) (time.Duration, int64, error)
	Transfer(ctx context.Context, guildID, fromID, toID string, amount int64) error
	Wager(ctx context.Context, guildID, userID string, bet, payout int64) (int64, error)
	RemoveUpTo(ctx context.Context, guildID, userID string, amount int64) (int64, int64, error)
	Richest(ctx context.Context, guildID string, limit int) ([]database.Account, error)

	Businesses(ctx context.Context, guildID, userID string) ([]database.Business, error)
	BuyBusiness(ctx context.Context, guildID, userID, kind string, cost int64, now time.Time) (int64, error)
	UpgradeBusiness(ctx context.Context, guildID, userID, kind string, cost func(level int) int64) (database.Business, int64, int64, error)
	CollectIncome(ctx context.Context, guildID, userID string, now time.Time, yield func(database.Business) (time.Duration, int64)) ([]database.Collection, int64, error)
}

type Module struct {
	store Store
	intn  func(n int) int
	now   func() time.Time

	games    *ttlcache.Cache
	gameIdle time.Duration
	pending  sync.WaitGroup
}

type Option func(*Module)

// WithRand replaces the random source; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(m *Module) { m.intn = intn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

// WithGameTimeout sets how long a blackjack table may sit idle before it is
// cancelled and the bet refunded.
func WithGameTimeout(d time.Duration) Option {
	return func(m *Module) { m.gameIdle = d }
}

// New returns the economy module. Close must be called to settle any open
// blackjack tables.
func New(store Store, opts ...Option) *Module {
	m := &Module{
		store:    store,
		intn:     rand.IntN,
		now:      time.Now,
		games:    newGameTable(),
		gameIdle: blackjackIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.games.SetExpirationReasonCallback(m.onGameEvicted)
	return m
}

// Register adds the economy handlers to the catalog.
func (m *Module) Register(cat *command.Catalog) {
	cat.RegisterFunc("economy.balance", m.balance)
	cat.RegisterFunc("economy.daily", m.daily)
	cat.RegisterFunc("economy.work", m.work)
	cat.RegisterFunc("economy.give", m.give)
	cat.RegisterFunc("economy.coinflip", m.coinflip)
	cat.RegisterFunc("economy.slots", m.slots)
	cat.RegisterFunc("economy.rob", m.rob)
	cat.RegisterFunc("economy.richest", m.richest)
	cat.RegisterFunc("economy.blackjack", m.blackjack)
	cat.RegisterComponent(blackjackPrefix, m.blackjackPress)

	cat.RegisterFunc("economy.shop", m.shop)
	cat.RegisterFunc("economy.buy", m.buy)
	cat.RegisterFunc("economy.businesses", m.businesses)
	cat.RegisterFunc("economy.collect", m.collect)
	cat.RegisterFunc("economy.upgrade", m.upgrade)
}

// FormatBalance renders an amount of coins.
func FormatBalance(amount int64) string {
	return humanize.Comma(amount) + " 💰"
}

func cooldownEmbed(c *command.Context, title, text string, remaining time.Duration, now time.Time) *discordgo.MessageEmbed {
	embed := c.Embed(title, fmt.Sprintf("%s <t:%d:R>", text, now.Add(remaining).Unix()))
	embed.Color = colorError
	return embed
}

func insufficient(c *command.Context, need, have int64) error {
	embed := c.Embed("Insufficient Funds", fmt.Sprintf(
		"You need %s to play, but you only have %s", FormatBalance(need), FormatBalance(have)))
	embed.Color = colorError
	return c.ReplyEmbed(embed, true)
}

func (m *Module) balance(ctx context.Context, c *command.Context) error {
	target := &discordgo.User{ID: c.UserID(), Username: c.Username()}
	if u, ok := c.Options().User("user"); ok {
		target = u
	}

	bal, err := m.store.Balance(ctx, c.GuildID(), target.ID)
	if err != nil {
		return err
	}
	rank, err := m.store.BalanceRank(ctx, c.GuildID(), target.ID)
	if err != nil {
		return err
	}

	embed := c.Embed("💰 Balance", fmt.Sprintf("<@%s>'s wallet", target.ID))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "🏦 Balance", Value: FormatBalance(bal), Inline: true},
		{Name: "🏆 Rank", Value: "#" + humanize.Comma(int64(rank)), Inline: true},
	}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) daily(ctx context.Context, c *command.Context) error {
	now := m.now()
	remaining, bal, err := m.store.ClaimReward(ctx, c.GuildID(), c.UserID(), database.ActivityDaily, dailyReward, now)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return c.ReplyEmbed(cooldownEmbed(c, "Daily - Cooldown", "You already claimed your daily reward! Come back", remaining, now), true)
	}

	embed := c.Embed("📅 Daily Reward", fmt.Sprintf("You received %s!", FormatBalance(dailyReward)))
	embed.Color = colorWin
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "🏦 New Balance", Value: FormatBalance(bal), Inline: true},
		{Name: "⏰ Next Reward", Value: fmt.Sprintf("<t:%d:R>", now.Add(database.ActivityDaily.Cooldown()).Unix()), Inline: true},
	}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) work(ctx context.Context, c *command.Context) error {
	now := m.now()
	j, pay := pickJob(m.intn)

	remaining, bal, err := m.store.ClaimReward(ctx, c.GuildID(), c.UserID(), database.ActivityWork, pay, now)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return c.ReplyEmbed(cooldownEmbed(c, "Work - Cooldown", "You're still tired from your last shift! You can work again", remaining, now), true)
	}

	embed := c.Embed("💼 Work Complete!", fmt.Sprintf("**%s** worked hard as a %s", c.Username(), j.name))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Earnings", Value: FormatBalance(pay), Inline: true},
		{Name: "🏦 New Balance", Value: FormatBalance(bal), Inline: true},
		{Name: "⏰ Next Shift", Value: fmt.Sprintf("You can work again <t:%d:R>", now.Add(database.ActivityWork.Cooldown()).Unix())},
	}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) give(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("user")
	if !ok {
		return c.ReplyText("Pick someone to give money to.")
	}
	amount, _ := c.Options().Int("amount")

	switch {
	case target.ID == c.UserID():
		return c.ReplyText("You can't give money to yourself!")
	case target.Bot:
		return c.ReplyText("You can't give money to bots!")
	case amount <= 0:
		return c.ReplyText("The amount must be positive.")
	}

	err := m.store.Transfer(ctx, c.GuildID(), c.UserID(), target.ID, amount)
	if errors.Is(err, database.ErrInsufficientFunds) {
		return c.ReplyText(fmt.Sprintf("You don't have enough money! You need %s", FormatBalance(amount)))
	}
	if err != nil {
		return err
	}

	bal, err := m.store.Balance(ctx, c.GuildID(), c.UserID())
	if err != nil {
		return err
	}
	embed := c.Embed("💸 Transfer Complete", fmt.Sprintf("<@%s> sent money to <@%s>", c.UserID(), target.ID))
	embed.Color = colorWin
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Amount", Value: FormatBalance(amount), Inline: true},
		{Name: "🏦 Your Balance", Value: FormatBalance(bal), Inline: true},
	}
	return c.ReplyEmbed(embed, false)
}

func sideLabel(side string) string {
	if side == "heads" {
		return "Heads 🌕"
	}
	return "Tails 🌑"
}

func (m *Module) coinflip(ctx context.Context, c *command.Context) error {
	choice, _ := c.Options().String("choice")
	bet, _ := c.Options().Int("bet")
	if choice != "heads" && choice != "tails" {
		return c.ReplyText("Choose heads or tails.")
	}
	if bet < coinflipMinBet || bet > coinflipMaxBet {
		return c.ReplyText(fmt.Sprintf("Bets must be between %s and %s.", FormatBalance(coinflipMinBet), FormatBalance(coinflipMaxBet)))
	}

	result := "tails"
	if m.intn(2) == 0 {
		result = "heads"
	}
	won := result == choice
	var payout int64
	if won {
		payout = bet * 2
	}

	bal, err := m.store.Wager(ctx, c.GuildID(), c.UserID(), bet, payout)
	if errors.Is(err, database.ErrInsufficientFunds) {
		have, berr := m.store.Balance(ctx, c.GuildID(), c.UserID())
		if berr != nil {
			return berr
		}
		return insufficient(c, bet, have)
	}
	if err != nil {
		return err
	}

	embed := c.Embed("🪙 Coin Flip Challenge", fmt.Sprintf("**%s** flipped a coin!", c.Username()))
	outcome := &discordgo.MessageEmbedField{Name: "❌ Not Quite!", Value: fmt.Sprintf("You lost %s!", FormatBalance(bet))}
	embed.Color = colorLoss
	if won {
		outcome = &discordgo.MessageEmbedField{Name: "🌟 Winner!", Value: fmt.Sprintf("Congratulations! You won %s!", FormatBalance(bet))}
		embed.Color = colorWin
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "👉 Your Choice", Value: sideLabel(choice), Inline: true},
		{Name: "🎲 Result", Value: sideLabel(result), Inline: true},
		outcome,
		{Name: "💰 Balance", Value: "New balance: " + FormatBalance(bal)},
	}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) slots(ctx context.Context, c *command.Context) error {
	bet, _ := c.Options().Int("bet")
	if bet < slotsMinBet || bet > slotsMaxBet {
		return c.ReplyText(fmt.Sprintf("Bets must be between %s and %s.", FormatBalance(slotsMinBet), FormatBalance(slotsMaxBet)))
	}

	reel := spin(m.intn)
	multiplier := payoutMultiplier(reel)
	winnings := bet * int64(multiplier)

	bal, err := m.store.Wager(ctx, c.GuildID(), c.UserID(), bet, winnings)
	if errors.Is(err, database.ErrInsufficientFunds) {
		have, berr := m.store.Balance(ctx, c.GuildID(), c.UserID())
		if berr != nil {
			return berr
		}
		return insufficient(c, bet, have)
	}
	if err != nil {
		return err
	}

	embed := c.Embed("🎰 Lucky Slots Machine", fmt.Sprintf("**%s** pulled the lever!", c.Username()))
	outcome := &discordgo.MessageEmbedField{Name: "❌ Not Quite!", Value: "Better luck next time!"}
	embed.Color = colorLoss
	if multiplier > 0 {
		outcome = &discordgo.MessageEmbedField{
			Name:  "🌟 Winner!",
			Value: fmt.Sprintf("Congratulations! You won %s! (%dx)", FormatBalance(winnings), multiplier),
		}
		embed.Color = colorWin
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "🎲 Your Spin", Value: fmt.Sprintf("┃ %s ┃ %s ┃ %s ┃", reel[0], reel[1], reel[2])},
		outcome,
		{Name: "💰 Balance", Value: "New balance: " + FormatBalance(bal)},
	}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) rob(ctx context.Context, c *command.Context) error {
	target, ok := c.Options().User("target")
	if !ok {
		return c.ReplyText("Pick someone to rob.")
	}
	switch {
	case target.ID == c.UserID():
		return c.ReplyText("You can't rob yourself!")
	case target.Bot:
		return c.ReplyText("You can't rob bots!")
	}

	guildID := c.GuildID()
	targetBalance, err := m.store.Balance(ctx, guildID, target.ID)
	if err != nil {
		return err
	}
	if targetBalance < robMinTarget {
		return c.ReplyText("This user doesn't have enough money to rob!")
	}
	robberBalance, err := m.store.Balance(ctx, guildID, c.UserID())
	if err != nil {
		return err
	}
	if robberBalance < robMinBalance {
		return c.ReplyText(fmt.Sprintf("You need at least %s to attempt a robbery!", FormatBalance(robMinBalance)))
	}

	now := m.now()
	remaining, err := m.store.ClaimActivity(ctx, guildID, c.UserID(), database.ActivityRob, now)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return c.ReplyEmbed(cooldownEmbed(c, "Rob - Cooldown", "You're still laying low! You can rob again", remaining, now), true)
	}

	out := robAttempt(m.intn, targetBalance)
	if out.success {
		stolen := out.amount
		if stolen > 0 {
			err := m.store.Transfer(ctx, guildID, target.ID, c.UserID(), stolen)
			if errors.Is(err, database.ErrInsufficientFunds) {
				stolen = 0
			} else if err != nil {
				return err
			}
		}
		bal, err := m.store.Balance(ctx, guildID, c.UserID())
		if err != nil {
			return err
		}
		embed := c.Embed("🦹 Heist Successful!", fmt.Sprintf("**%s** pulled off the perfect crime!", c.Username()))
		embed.Color = colorWin
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "🎯 Target", Value: fmt.Sprintf("<@%s>", target.ID), Inline: true},
			{Name: "💰 Stolen", Value: FormatBalance(stolen), Inline: true},
			{Name: "🏦 New Balance", Value: FormatBalance(bal)},
		}
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "🕵️ Lay low for an hour before your next heist!"}
		return c.ReplyEmbed(embed, false)
	}

	paid, bal, err := m.store.RemoveUpTo(ctx, guildID, c.UserID(), out.amount)
	if err != nil {
		return err
	}
	embed := c.Embed("🚔 Busted!", fmt.Sprintf("**%s** got caught in the act!", c.Username()))
	embed.Color = colorLoss
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "🎯 Failed Target", Value: fmt.Sprintf("<@%s>", target.ID), Inline: true},
		{Name: "💸 Fine Paid", Value: FormatBalance(paid), Inline: true},
		{Name: "🏦 New Balance", Value: FormatBalance(bal)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "👮 Maybe try earning money legally next time?"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) richest(ctx context.Context, c *command.Context) error {
	accounts, err := m.store.Richest(ctx, c.GuildID(), richestLimit)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return c.ReplyText("Nobody has any money yet. Try `/daily`!")
	}
	return c.ReplyEmbed(c.Embed("🏆 Richest Members", richestTable(accounts)), false)
}
