package economy

import (
	"fmt"
	"strings"

	"novabot/internal/database"
)

type job struct {
	name     string
	min, max int64
}

var jobs = []job{
	{"🖥️ Programmer", 100, 200},
	{"🎨 Artist", 75, 150},
	{"👨‍🍳 Chef", 80, 160},
	{"🎮 Game Tester", 50, 100},
	{"📦 Delivery Driver", 70, 140},
	{"🌿 Gardener", 60, 120},
	{"📱 Social Media Manager", 90, 180},
	{"🎥 Content Creator", 100, 200},
}

func pickJob(intn func(int) int) (job, int64) {
	j := jobs[intn(len(jobs))]
	return j, j.min + int64(intn(int(j.max-j.min+1)))
}

var symbols = []string{"🍎", "🍊", "🍇", "🍒", "💎", "7️⃣", "🌟"}

var multipliers = map[string]int{
	"7️⃣": 10,
	"💎":   7,
	"🌟":   5,
	"🍒":   4,
	"🍇":   3,
	"🍊":   2,
	"🍎":   2,
}

func spin(intn func(int) int) [3]string {
	var reel [3]string
	for i := range reel {
		reel[i] = symbols[intn(len(symbols))]
	}
	return reel
}

// payoutMultiplier is non-zero only for three of a kind.
func payoutMultiplier(reel [3]string) int {
	if reel[0] != reel[1] || reel[1] != reel[2] {
		return 0
	}
	return multipliers[reel[0]]
}

type robOutcome struct {
	success bool
	// amount is what was stolen on success, the fine otherwise.
	amount int64
}

func robAttempt(intn func(int) int, targetBalance int64) robOutcome {
	if intn(100) < robSuccessRate {
		ceiling := min(int64(float64(targetBalance)*robMaxShare), robMaxStolen)
		if ceiling <= 0 {
			return robOutcome{success: true}
		}
		return robOutcome{success: true, amount: int64(intn(int(ceiling)))}
	}
	return robOutcome{amount: robFineMin + int64(intn(robFineSpread))}
}

var medals = []string{"🥇", "🥈", "🥉"}

func richestTable(accounts []database.Account) string {
	var sb strings.Builder
	for i, a := range accounts {
		place := fmt.Sprintf("`#%d`", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		fmt.Fprintf(&sb, "%s <@%s> · %s\n", place, a.UserID, FormatBalance(a.Balance))
	}
	return sb.String()
}
