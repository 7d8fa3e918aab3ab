package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"novabot/internal/command"
	"novabot/internal/database"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	blackjackPrefix  = "bj"
	blackjackMinBet  = 100
	blackjackMaxBet  = 100000
	blackjackIdle    = time.Minute
	dealerStandsOn   = 17
	blackjackLimit   = 21
	colorTable       = 0x2E8B57
	colorPush        = 0xFFD700
	refundTimeout    = 5 * time.Second
	gameGoneMessage  = "This game is no longer active."
	notYourGame      = "This is not your game!"
	hiddenCardMarker = "?️?"
)

var (
	suits = []string{"♠️", "♥️", "♦️", "♣️"}
	ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

type card struct {
	rank, suit string
}

func (c card) String() string { return c.rank + c.suit }

// newDeck returns the 52 cards shuffled with intn.
func newDeck(intn func(int) int) []card {
	deck := make([]card, 0, len(suits)*len(ranks))
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, card{rank: r, suit: s})
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// handValue counts aces as 11 while that keeps the hand at or under 21.
func handValue(hand []card) int {
	value, aces := 0, 0
	for _, c := range hand {
		switch c.rank {
		case "A":
			aces++
		case "K", "Q", "J":
			value += 10
		default:
			n, _ := strconv.Atoi(c.rank)
			value += n
		}
	}
	for range aces {
		if value+11 <= blackjackLimit {
			value += 11
		} else {
			value++
		}
	}
	return value
}

func formatHand(hand []card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}

type blackjackResult int

const (
	blackjackLoss blackjackResult = iota
	blackjackPush
	blackjackWin
)

func settle(player, dealer int) blackjackResult {
	switch {
	case player > blackjackLimit:
		return blackjackLoss
	case dealer > blackjackLimit || player > dealer:
		return blackjackWin
	case player == dealer:
		return blackjackPush
	}
	return blackjackLoss
}

// payout is what goes back to a player whose bet was already taken.
func (r blackjackResult) payout(bet int64) int64 {
	switch r {
	case blackjackWin:
		return 2 * bet
	case blackjackPush:
		return bet
	}
	return 0
}

// blackjackGame is one open table. The bet is taken when the game starts;
// whoever sets done settles it.
type blackjackGame struct {
	mu   sync.Mutex
	done bool

	id       string
	guildID  string
	userID   string
	username string
	bet      int64

	deck   []card
	player []card
	dealer []card

	// announce posts a message in the game's channel.
	announce func(command.Response) error
}

func (g *blackjackGame) draw() card {
	c := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return c
}

func blackjackButtons(id string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "Hit", Style: discordgo.PrimaryButton, CustomID: command.ComponentID(blackjackPrefix, "hit", id)},
		discordgo.Button{Label: "Stand", Style: discordgo.SecondaryButton, CustomID: command.ComponentID(blackjackPrefix, "stand", id)},
	}}}
}

func handField(name string, hand []card, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: fmt.Sprintf("`%s`\nValue: %s", formatHand(hand), value)}
}

func (g *blackjackGame) tableEmbed() *discordgo.MessageEmbed {
	hidden := &discordgo.MessageEmbedField{
		Name:  "🎭 Dealer's Hand",
		Value: fmt.Sprintf("`%s | %s`\nValue: ?", g.dealer[0], hiddenCardMarker),
	}
	return &discordgo.MessageEmbed{
		Title:       "♠️ Blackjack Table ♣️",
		Description: fmt.Sprintf("**%s's Game**\nBet: %s", g.username, FormatBalance(g.bet)),
		Color:       colorTable,
		Fields: []*discordgo.MessageEmbedField{
			hidden,
			handField("👤 Your Hand", g.player, strconv.Itoa(handValue(g.player))),
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "🎮 Hit or Stand?"},
	}
}

func (g *blackjackGame) bustEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💥 Blackjack - Bust!",
		Description: fmt.Sprintf("**%s** went over 21!", g.username),
		Color:       colorLoss,
		Fields: []*discordgo.MessageEmbedField{
			handField("🎭 Dealer's Hand", g.dealer, strconv.Itoa(handValue(g.dealer))),
			handField("👤 Your Hand", g.player, strconv.Itoa(handValue(g.player))),
			{Name: "💸 Outcome", Value: fmt.Sprintf("You lost %s!", FormatBalance(g.bet))},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "🎮 Better luck next time!"},
	}
}

func (g *blackjackGame) finalEmbed(result blackjackResult) *discordgo.MessageEmbed {
	title, color, outcome := "💔 Blackjack - Dealer wins!", colorLoss, "Lost: "+FormatBalance(g.bet)
	switch result {
	case blackjackWin:
		title, color, outcome = "🎉 Blackjack - You win!", colorWin, "Won: "+FormatBalance(g.bet)
	case blackjackPush:
		title, color, outcome = "🤝 Blackjack - Push!", colorPush, "Returned: "+FormatBalance(g.bet)
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("**%s's** game has ended!", g.username),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			handField("🎭 Dealer's Hand", g.dealer, strconv.Itoa(handValue(g.dealer))),
			handField("👤 Your Hand", g.player, strconv.Itoa(handValue(g.player))),
			{Name: "💰 Outcome", Value: outcome},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "🎮 Play again with /blackjack!"},
	}
}

func newGameTable() *ttlcache.Cache {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(false)
	return c
}

// onGameEvicted refunds games that left the table unsettled: idle ones and
// those still open at shutdown.
func (m *Module) onGameEvicted(_ string, reason ttlcache.EvictionReason, value interface{}) {
	defer m.pending.Done()

	g, ok := value.(*blackjackGame)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.done = true

	ctx, cancel := context.WithTimeout(context.Background(), refundTimeout)
	defer cancel()
	if _, err := m.store.AddBalance(ctx, g.guildID, g.userID, g.bet); err != nil {
		log.Error().Err(err).
			Str("guild_id", g.guildID).
			Str("user_id", g.userID).
			Int64("bet", g.bet).
			Msg("failed to refund blackjack bet")
		return
	}
	log.Debug().Str("game", g.id).Str("reason", reason.String()).Msg("blackjack game refunded")

	if reason != ttlcache.Expired || g.announce == nil {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Blackjack - Timeout",
		Description: "Game cancelled due to inactivity.",
		Color:       colorError,
		Fields:      []*discordgo.MessageEmbedField{{Name: "💰 Outcome", Value: "Returned: " + FormatBalance(g.bet)}},
	}
	if err := g.announce(command.Response{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		log.Warn().Err(err).Str("game", g.id).Msg("failed to announce blackjack timeout")
	}
}

// Close settles open blackjack games with a refund and waits until every
// refund has been written.
func (m *Module) Close() error {
	err := m.games.Close()
	m.pending.Wait()
	if errors.Is(err, ttlcache.ErrClosed) {
		return nil
	}
	return err
}

func (m *Module) blackjack(ctx context.Context, c *command.Context) error {
	bet, _ := c.Options().Int("bet")
	if bet < blackjackMinBet || bet > blackjackMaxBet {
		return c.ReplyText(fmt.Sprintf("Bet must be between %s and %s.", FormatBalance(blackjackMinBet), FormatBalance(blackjackMaxBet)))
	}

	if _, err := m.store.RemoveBalance(ctx, c.GuildID(), c.UserID(), bet); err != nil {
		if !errors.Is(err, database.ErrInsufficientFunds) {
			return err
		}
		bal, err := m.store.Balance(ctx, c.GuildID(), c.UserID())
		if err != nil {
			return err
		}
		return insufficient(c, bet, bal)
	}

	g := &blackjackGame{
		id:       uuid.NewString(),
		guildID:  c.GuildID(),
		userID:   c.UserID(),
		username: c.Username(),
		bet:      bet,
		deck:     newDeck(m.intn),
		announce: c.Followup,
	}
	g.player = []card{g.draw(), g.draw()}
	g.dealer = []card{g.draw(), g.draw()}

	m.pending.Add(1)
	if err := m.games.SetWithTTL(g.id, g, m.gameIdle); err != nil {
		m.pending.Done()
		if _, rerr := m.store.AddBalance(ctx, g.guildID, g.userID, bet); rerr != nil {
			log.Error().Err(rerr).Str("user_id", g.userID).Msg("failed to refund blackjack bet")
		}
		return fmt.Errorf("open blackjack table: %w", err)
	}

	err := c.Reply(command.Response{
		Embeds:     []*discordgo.MessageEmbed{g.tableEmbed()},
		Components: blackjackButtons(g.id),
	})
	if err != nil {
		// Nobody can press the buttons; eviction refunds the bet.
		_ = m.games.Remove(g.id)
	}
	return err
}

func (m *Module) blackjackPress(ctx context.Context, c *command.ComponentContext) error {
	args := c.Args()
	if len(args) != 2 {
		return c.ReplyText(gameGoneMessage)
	}
	action, id := args[0], args[1]

	v, err := m.games.Get(id)
	if err != nil {
		return c.ReplyText(gameGoneMessage)
	}
	g := v.(*blackjackGame)
	if c.UserID() != g.userID {
		return c.ReplyText(notYourGame)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return c.ReplyText(gameGoneMessage)
	}

	switch action {
	case "hit":
		g.player = append(g.player, g.draw())
		if handValue(g.player) <= blackjackLimit {
			return c.Update(command.Response{
				Embeds:     []*discordgo.MessageEmbed{g.tableEmbed()},
				Components: blackjackButtons(g.id),
			})
		}
		g.done = true
		_ = m.games.Remove(g.id)
		return c.Update(command.Response{Embeds: []*discordgo.MessageEmbed{g.bustEmbed()}})

	case "stand":
		for handValue(g.dealer) < dealerStandsOn {
			g.dealer = append(g.dealer, g.draw())
		}
		result := settle(handValue(g.player), handValue(g.dealer))
		if payout := result.payout(g.bet); payout > 0 {
			if _, err := m.store.AddBalance(ctx, g.guildID, g.userID, payout); err != nil {
				return fmt.Errorf("pay blackjack: %w", err)
			}
		}
		g.done = true
		_ = m.games.Remove(g.id)
		return c.Update(command.Response{Embeds: []*discordgo.MessageEmbed{g.finalEmbed(result)}})
	}
	return c.ReplyText(gameGoneMessage)
}
