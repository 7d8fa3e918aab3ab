package economy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"novabot/internal/command"
	"novabot/internal/database"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const (
	colorShop      = 0xFFD700
	colorEmpire    = 0x4169E1
	incomeGrowth   = 1.2
	valuePerIncome = 10
)

type business struct {
	id          string
	name        string
	description string
	basePrice   int64
	baseIncome  int64
	growth      float64
	every       time.Duration
}

// catalogue is listed in shop order.
var catalogue = []business{
	{"lemonade", "🍋 Lemonade Stand", "A simple lemonade stand to start your business empire", 1000, 50, 1.5, 30 * time.Minute},
	{"foodTruck", "🚚 Food Truck", "A mobile food business serving delicious meals", 5000, 200, 1.6, 45 * time.Minute},
	{"cafe", "☕ Café", "A cozy café serving coffee and pastries", 15000, 500, 1.7, time.Hour},
	{"restaurant", "🍽️ Restaurant", "A full-service restaurant with loyal customers", 50000, 1500, 1.8, 2 * time.Hour},
	{"mall", "🏬 Shopping Mall", "A large shopping center with multiple stores", 200000, 5000, 2.0, 4 * time.Hour},
}

func lookupBusiness(id string) (business, bool) {
	for _, b := range catalogue {
		if b.id == id {
			return b, true
		}
	}
	return business{}, false
}

// cost is the price of reaching level; level 1 is the purchase price.
func (b business) cost(level int) int64 {
	return int64(math.Floor(float64(b.basePrice) * math.Pow(b.growth, float64(level-1))))
}

func (b business) income(level int) int64 {
	return int64(math.Floor(float64(b.baseIncome) * math.Pow(incomeGrowth, float64(level-1))))
}

func (b business) hourly(level int) int64 {
	return int64(float64(time.Hour) / float64(b.every) * float64(b.income(level)))
}

// yield feeds CollectIncome. Businesses no longer in the catalogue earn nothing.
func yield(owned database.Business) (time.Duration, int64) {
	b, ok := lookupBusiness(owned.Kind)
	if !ok {
		return 0, 0
	}
	return b.every, b.income(owned.Level)
}

func coins(n int64) string {
	return humanize.Comma(n) + " coins"
}

func minutes(d time.Duration) string {
	return fmt.Sprintf("Every %d minutes", int64(d/time.Minute))
}

func (m *Module) shop(_ context.Context, c *command.Context) error {
	embed := c.Embed("🏪 Business Shop", "Invest in businesses to earn passive income!")
	embed.Color = colorShop
	for _, b := range catalogue {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: b.name,
			Value: fmt.Sprintf("%s\n💰 Cost: %s\n💵 Income: %s / collection\n⏰ Collection: %s\n\nUse `/buy %s` to purchase!",
				b.description, coins(b.cost(1)), coins(b.baseIncome), minutes(b.every), b.id),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Tip: Start with a Lemonade Stand and work your way up!"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) buy(ctx context.Context, c *command.Context) error {
	id, _ := c.Options().String("business")
	b, ok := lookupBusiness(id)
	if !ok {
		return c.ReplyText("Invalid business type!")
	}

	cost := b.cost(1)
	bal, err := m.store.BuyBusiness(ctx, c.GuildID(), c.UserID(), b.id, cost, m.now())
	switch {
	case errors.Is(err, database.ErrBusinessOwned):
		return c.ReplyText("You already own this business! Use `/upgrade` to improve it.")
	case errors.Is(err, database.ErrInsufficientFunds):
		return c.ReplyText(fmt.Sprintf("You need %s to buy this business!", coins(cost)))
	case err != nil:
		return err
	}

	embed := c.Embed("🎉 Business Purchased!", fmt.Sprintf("You are now the proud owner of a %s!", b.name))
	embed.Color = colorWin
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Purchase Cost", Value: coins(cost), Inline: true},
		{Name: "💵 Income", Value: coins(b.baseIncome) + " / collection", Inline: true},
		{Name: "⏰ Collection Time", Value: minutes(b.every)},
		{Name: "🏦 Remaining Balance", Value: coins(bal)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Use /collect to gather income from your businesses!"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) businesses(ctx context.Context, c *command.Context) error {
	target := &discordgo.User{ID: c.UserID(), Username: c.Username()}
	if u, ok := c.Options().User("user"); ok {
		target = u
	}

	owned, err := m.store.Businesses(ctx, c.GuildID(), target.ID)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		text := fmt.Sprintf("%s doesn't own any businesses yet!", target.Username)
		if target.ID == c.UserID() {
			text = "You don't own any businesses yet! Use `/shop` to view available businesses."
		}
		embed := c.Embed("🏪 No Businesses", text)
		embed.Color = colorError
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Start with a Lemonade Stand to begin your empire!"}
		return c.ReplyEmbed(embed, false)
	}

	now := m.now()
	var value, hourly int64
	fields := make([]*discordgo.MessageEmbedField, 0, len(owned))
	for _, o := range owned {
		b, ok := lookupBusiness(o.Kind)
		if !ok {
			continue
		}
		income := b.income(o.Level)
		value += income * valuePerIncome
		hourly += b.hourly(o.Level)

		next := "Ready to collect!"
		if due := o.LastCollected.Add(b.every); due.After(now) {
			next = fmt.Sprintf("<t:%d:R>", due.Unix())
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s (Level %d)", b.name, o.Level),
			Value: fmt.Sprintf("💵 Income: %s / collection\n⏰ Collection: %s\n📈 Hourly: ~%s\n🕒 Next collection: %s",
				coins(income), minutes(b.every), coins(b.hourly(o.Level)), next),
		})
	}

	suffix := ""
	if len(owned) > 1 {
		suffix = "es"
	}
	embed := c.Embed(fmt.Sprintf("🏢 %s's Business Empire", target.Username),
		fmt.Sprintf("Managing %d business%s!", len(owned), suffix))
	embed.Color = colorEmpire
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("256")}
	embed.Fields = append([]*discordgo.MessageEmbedField{{
		Name: "📊 Empire Statistics",
		Value: fmt.Sprintf("Total Businesses: %d\nEstimated Value: %s\nHourly Income: ~%s",
			len(owned), coins(value), coins(hourly)),
	}}, fields...)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Use /collect to gather income from your businesses!"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) collect(ctx context.Context, c *command.Context) error {
	now := m.now()
	collected, bal, err := m.store.CollectIncome(ctx, c.GuildID(), c.UserID(), now, yield)
	if err != nil {
		return err
	}
	if len(collected) == 0 {
		return c.ReplyText("You don't own any businesses yet! Use `/shop` to view available businesses.")
	}

	var total int64
	var next time.Time
	var fields []*discordgo.MessageEmbedField
	for _, col := range collected {
		b, ok := lookupBusiness(col.Business.Kind)
		if !ok {
			continue
		}
		if col.Amount == 0 {
			if due := col.Business.LastCollected.Add(b.every); next.IsZero() || due.Before(next) {
				next = due
			}
			continue
		}
		total += col.Amount
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s (Level %d)", b.name, col.Business.Level),
			Value:  fmt.Sprintf("Collected %s (%dx)", coins(col.Amount), col.Periods),
			Inline: true,
		})
	}
	if total == 0 {
		return c.ReplyText(fmt.Sprintf("No income to collect yet! Next collection available <t:%d:R>", next.Unix()))
	}

	embed := c.Embed("💰 Income Collected!", "You collected income from your businesses!")
	embed.Color = colorWin
	embed.Fields = append(fields,
		&discordgo.MessageEmbedField{Name: "💵 Total Collected", Value: coins(total)},
		&discordgo.MessageEmbedField{Name: "🏦 New Balance", Value: coins(bal)},
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Upgrade your businesses to earn more!"}
	return c.ReplyEmbed(embed, false)
}

func (m *Module) upgrade(ctx context.Context, c *command.Context) error {
	id, _ := c.Options().String("business")
	b, ok := lookupBusiness(id)
	if !ok {
		return c.ReplyText("Invalid business type!")
	}

	var price int64
	owned, paid, bal, err := m.store.UpgradeBusiness(ctx, c.GuildID(), c.UserID(), b.id, func(level int) int64 {
		price = b.cost(level)
		return price
	})
	switch {
	case errors.Is(err, database.ErrBusinessNotOwned):
		return c.ReplyText(fmt.Sprintf("You don't own a %s! Use `/buy` to purchase it first.", b.name))
	case errors.Is(err, database.ErrInsufficientFunds):
		return c.ReplyText(fmt.Sprintf("You need %s to upgrade this business!", coins(price)))
	case err != nil:
		return err
	}

	embed := c.Embed("🔨 Business Upgraded!", fmt.Sprintf("Your %s is now level %d!", b.name, owned.Level))
	embed.Color = colorEmpire
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Upgrade Cost", Value: coins(paid), Inline: true},
		{Name: "📈 Income Increase", Value: fmt.Sprintf("%s → %s coins",
			humanize.Comma(b.income(owned.Level-1)), humanize.Comma(b.income(owned.Level))), Inline: true},
		{Name: "⭐ New Level", Value: fmt.Sprintf("Level %d", owned.Level), Inline: true},
		{Name: "🏦 Remaining Balance", Value: coins(bal)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "💡 Higher levels mean more income!"}
	return c.ReplyEmbed(embed, false)
}
