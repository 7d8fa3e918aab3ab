package economy

import (
	"testing"

	"novabot/internal/database"

	"github.com/stretchr/testify/assert"
)

// seq returns a fake intn that yields values in order, clamped to n-1.
func seq(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		if v >= n {
			return n - 1
		}
		return v
	}
}

func TestPayoutMultiplier(t *testing.T) {
	tests := []struct {
		reel [3]string
		want int
	}{
		{[3]string{"7️⃣", "7️⃣", "7️⃣"}, 10},
		{[3]string{"💎", "💎", "💎"}, 7},
		{[3]string{"🌟", "🌟", "🌟"}, 5},
		{[3]string{"🍒", "🍒", "🍒"}, 4},
		{[3]string{"🍇", "🍇", "🍇"}, 3},
		{[3]string{"🍊", "🍊", "🍊"}, 2},
		{[3]string{"🍎", "🍎", "🍎"}, 2},
		{[3]string{"🍎", "🍎", "🍊"}, 0},
		{[3]string{"💎", "🍎", "💎"}, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, payoutMultiplier(tc.reel), "%v", tc.reel)
	}
}

func TestSpinUsesEverySymbol(t *testing.T) {
	for i, sym := range symbols {
		reel := spin(seq(i))
		assert.Equal(t, [3]string{sym, sym, sym}, reel)
		assert.NotZero(t, payoutMultiplier(reel), sym)
	}
}

func TestPickJob(t *testing.T) {
	j, pay := pickJob(seq(0, 0))
	assert.Equal(t, jobs[0].name, j.name)
	assert.Equal(t, jobs[0].min, pay)

	j, pay = pickJob(seq(3, 1000))
	assert.Equal(t, jobs[3].name, j.name)
	assert.Equal(t, jobs[3].max, pay)

	for _, j := range jobs {
		assert.GreaterOrEqual(t, j.min, int64(50))
		assert.LessOrEqual(t, j.max, int64(200))
	}
}

func TestRobAttempt(t *testing.T) {
	out := robAttempt(seq(0, 999999), 10000)
	assert.True(t, out.success)
	assert.EqualValues(t, 2999, out.amount, "capped at 30% of the target")

	out = robAttempt(seq(0, 999999), 100000)
	assert.True(t, out.success)
	assert.EqualValues(t, 4999, out.amount, "capped at 5000")

	out = robAttempt(seq(39, 0), 1000)
	assert.True(t, out.success)
	assert.Zero(t, out.amount)

	out = robAttempt(seq(40, 0), 1000)
	assert.False(t, out.success)
	assert.EqualValues(t, 500, out.amount)

	out = robAttempt(seq(99, 999999), 1000)
	assert.False(t, out.success)
	assert.EqualValues(t, 1499, out.amount)
}

func TestRichestTable(t *testing.T) {
	table := richestTable([]database.Account{
		{UserID: "1", Balance: 12000},
		{UserID: "2", Balance: 500},
		{UserID: "3", Balance: 10},
		{UserID: "4", Balance: 1},
	})
	assert.Contains(t, table, "🥇 <@1> · 12,000 💰")
	assert.Contains(t, table, "`#4` <@4> · 1 💰")
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "1,234,567 💰", FormatBalance(1234567))
	assert.Equal(t, "0 💰", FormatBalance(0))
}
