package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned when a debit would make a balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Account is a member's wallet within one guild.
type Account struct {
	GuildID   string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"primaryKey;size:32"`
	Balance   int64  `gorm:"not null;default:0;index"`
	LastDaily *time.Time
	LastWork  *time.Time
	LastRob   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activity is an economy action gated by a persistent per-user cooldown.
type Activity string

const (
	ActivityDaily Activity = "daily"
	ActivityWork  Activity = "work"
	ActivityRob   Activity = "rob"
)

var activityCooldowns = map[Activity]time.Duration{
	ActivityDaily: 24 * time.Hour,
	ActivityWork:  30 * time.Minute,
	ActivityRob:   time.Hour,
}

var activityColumns = map[Activity]string{
	ActivityDaily: "last_daily",
	ActivityWork:  "last_work",
	ActivityRob:   "last_rob",
}

// Cooldown returns how long the activity locks after a successful claim.
func (a Activity) Cooldown() time.Duration {
	return activityCooldowns[a]
}

func (a *Account) lastFor(activity Activity) *time.Time {
	switch activity {
	case ActivityDaily:
		return a.LastDaily
	case ActivityWork:
		return a.LastWork
	case ActivityRob:
		return a.LastRob
	}
	return nil
}

func ensureAccount(tx *gorm.DB, guildID, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Account{GuildID: guildID, UserID: userID}).Error
}

func credit(tx *gorm.DB, guildID, userID string, amount int64) error {
	if err := ensureAccount(tx, guildID, userID); err != nil {
		return err
	}
	return tx.Model(&Account{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error
}

// debit removes amount only if the balance covers it.
func debit(tx *gorm.DB, guildID, userID string, amount int64) error {
	res := tx.Model(&Account{}).
		Where("guild_id = ? AND user_id = ? AND balance >= ?", guildID, userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func balanceOf(tx *gorm.DB, guildID, userID string) (int64, error) {
	var acct Account
	err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).Take(&acct).Error
	if isNotFound(err) {
		return 0, nil
	}
	return acct.Balance, err
}

// Balance returns a member's balance, zero when no account exists yet.
func (d *DB) Balance(ctx context.Context, guildID, userID string) (int64, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()
	return balanceOf(tx, guildID, userID)
}

// AddBalance credits amount and returns the new balance.
func (d *DB) AddBalance(ctx context.Context, guildID, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		if err := credit(tx, guildID, userID, amount); err != nil {
			return err
		}
		var err error
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add balance: %w", err)
	}
	return balance, nil
}

// RemoveBalance debits amount and returns the new balance, or ErrInsufficientFunds.
func (d *DB) RemoveBalance(ctx context.Context, guildID, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, guildID, userID, amount); err != nil {
			return err
		}
		var err error
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("remove balance: %w", err)
	}
	return balance, nil
}

// Transfer moves amount between two members atomically.
func (d *DB) Transfer(ctx context.Context, guildID, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, guildID, fromID, amount); err != nil {
			return err
		}
		return credit(tx, guildID, toID, amount)
	})
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// claim stamps activity with now unless it is still cooling down, in which
// case the remaining wait is returned.
func claim(tx *gorm.DB, guildID, userID string, activity Activity, now time.Time) (time.Duration, error) {
	column, ok := activityColumns[activity]
	if !ok {
		return 0, fmt.Errorf("unknown activity %q", activity)
	}
	if err := ensureAccount(tx, guildID, userID); err != nil {
		return 0, err
	}
	var acct Account
	if err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).Take(&acct).Error; err != nil {
		return 0, err
	}
	if last := acct.lastFor(activity); last != nil {
		if elapsed := now.Sub(*last); elapsed < activity.Cooldown() {
			return activity.Cooldown() - elapsed, nil
		}
	}
	return 0, tx.Model(&Account{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		UpdateColumn(column, now.UTC()).Error
}

// ClaimActivity records now as the last use of activity if its cooldown has passed.
// It returns the remaining wait when the activity is still cooling down.
func (d *DB) ClaimActivity(ctx context.Context, guildID, userID string, activity Activity, now time.Time) (time.Duration, error) {
	var remaining time.Duration
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		remaining, err = claim(tx, guildID, userID, activity, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("claim %s: %w", activity, err)
	}
	return remaining, nil
}

// ClaimReward claims activity and credits amount in one transaction. Nothing
// is credited while the activity is cooling down.
func (d *DB) ClaimReward(ctx context.Context, guildID, userID string, activity Activity, amount int64, now time.Time) (time.Duration, int64, error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	var (
		remaining time.Duration
		balance   int64
	)
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		remaining, err = claim(tx, guildID, userID, activity, now)
		if err != nil || remaining > 0 {
			return err
		}
		if err := credit(tx, guildID, userID, amount); err != nil {
			return err
		}
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("claim %s: %w", activity, err)
	}
	return remaining, balance, nil
}

// Wager takes bet from the member and pays out payout (0 for a loss) atomically.
func (d *DB) Wager(ctx context.Context, guildID, userID string, bet, payout int64) (int64, error) {
	if bet <= 0 || payout < 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, guildID, userID, bet); err != nil {
			return err
		}
		if payout > 0 {
			if err := credit(tx, guildID, userID, payout); err != nil {
				return err
			}
		}
		var err error
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("wager: %w", err)
	}
	return balance, nil
}

// RemoveUpTo takes at most amount, never more than the balance. It returns
// what was taken and the new balance.
func (d *DB) RemoveUpTo(ctx context.Context, guildID, userID string, amount int64) (int64, int64, error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	var taken, balance int64
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		current, err := balanceOf(tx, guildID, userID)
		if err != nil {
			return err
		}
		taken = min(amount, current)
		if taken > 0 {
			if err := debit(tx, guildID, userID, taken); err != nil {
				return err
			}
		}
		balance = current - taken
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("remove balance: %w", err)
	}
	return taken, balance, nil
}

// Richest returns the top accounts of a guild by balance.
func (d *DB) Richest(ctx context.Context, guildID string, limit int) ([]Account, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	var accounts []Account
	err := tx.Where("guild_id = ? AND balance > 0", guildID).
		Order("balance DESC").Order("user_id").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

// BalanceRank returns the 1-based position of a member by balance.
func (d *DB) BalanceRank(ctx context.Context, guildID, userID string) (int, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	balance, err := balanceOf(tx, guildID, userID)
	if err != nil {
		return 0, err
	}
	var above int64
	if err := tx.Model(&Account{}).Where("guild_id = ? AND balance > ?", guildID, balance).Count(&above).Error; err != nil {
		return 0, err
	}
	return int(above) + 1, nil
}

// ResetAccount zeroes a member's balance and activity timestamps and closes
// their businesses.
func (d *DB) ResetAccount(ctx context.Context, guildID, userID string) error {
	return d.transaction(ctx, func(tx *gorm.DB) error {
		if err := ensureAccount(tx, guildID, userID); err != nil {
			return err
		}
		if err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).Delete(&Business{}).Error; err != nil {
			return err
		}
		return tx.Model(&Account{}).
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Updates(map[string]any{
				"balance":    0,
				"last_daily": nil,
				"last_work":  nil,
				"last_rob":   nil,
			}).Error
	})
}
