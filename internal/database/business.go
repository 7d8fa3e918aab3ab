package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrBusinessOwned    = errors.New("business already owned")
	ErrBusinessNotOwned = errors.New("business not owned")
)

// Business is one income source a member owns. Kind names an entry of the
// economy's business catalogue.
type Business struct {
	GuildID       string `gorm:"primaryKey;size:32"`
	UserID        string `gorm:"primaryKey;size:32"`
	Kind          string `gorm:"primaryKey;size:32"`
	Level         int    `gorm:"not null;default:1"`
	LastCollected time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Collection is what one business yielded in CollectIncome. Periods is zero
// when its next payout is not due yet.
type Collection struct {
	Business Business
	Periods  int64
	Amount   int64
}

func businessOf(tx *gorm.DB, guildID, userID, kind string) (Business, error) {
	var b Business
	err := tx.Where("guild_id = ? AND user_id = ? AND kind = ?", guildID, userID, kind).Take(&b).Error
	if isNotFound(err) {
		return b, ErrBusinessNotOwned
	}
	return b, err
}

// Businesses lists a member's businesses in purchase order.
func (d *DB) Businesses(ctx context.Context, guildID, userID string) ([]Business, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	var out []Business
	err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).
		Order("created_at").Order("kind").
		Find(&out).Error
	return out, err
}

// BuyBusiness pays cost and opens kind at level 1, due for its first payout
// one period after now. It returns the new balance.
func (d *DB) BuyBusiness(ctx context.Context, guildID, userID, kind string, cost int64, now time.Time) (int64, error) {
	if cost <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := businessOf(tx, guildID, userID, kind); err == nil {
			return ErrBusinessOwned
		} else if !errors.Is(err, ErrBusinessNotOwned) {
			return err
		}
		if err := debit(tx, guildID, userID, cost); err != nil {
			return err
		}
		if err := tx.Create(&Business{
			GuildID:       guildID,
			UserID:        userID,
			Kind:          kind,
			Level:         1,
			LastCollected: now.UTC(),
		}).Error; err != nil {
			return err
		}
		var err error
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("buy business: %w", err)
	}
	return balance, nil
}

// UpgradeBusiness pays cost(next level) and raises kind by one level. It
// returns the upgraded business, what was paid and the new balance.
func (d *DB) UpgradeBusiness(ctx context.Context, guildID, userID, kind string, cost func(level int) int64) (Business, int64, int64, error) {
	var (
		b       Business
		paid    int64
		balance int64
	)
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if b, err = businessOf(tx, guildID, userID, kind); err != nil {
			return err
		}
		paid = cost(b.Level + 1)
		if err := debit(tx, guildID, userID, paid); err != nil {
			return err
		}
		b.Level++
		if err := tx.Model(&Business{}).
			Where("guild_id = ? AND user_id = ? AND kind = ?", guildID, userID, kind).
			UpdateColumn("level", b.Level).Error; err != nil {
			return err
		}
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return Business{}, paid, 0, fmt.Errorf("upgrade business: %w", err)
	}
	return b, paid, balance, nil
}

// CollectIncome pays each business once per full period elapsed since its
// last collection and restarts its clock at now. yield gives a business's
// period and per-period income. The result has one entry per business.
func (d *DB) CollectIncome(ctx context.Context, guildID, userID string, now time.Time, yield func(Business) (time.Duration, int64)) ([]Collection, int64, error) {
	var (
		out     []Collection
		balance int64
	)
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		var owned []Business
		if err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).
			Order("created_at").Order("kind").
			Find(&owned).Error; err != nil {
			return err
		}

		out = make([]Collection, 0, len(owned))
		var total int64
		for _, b := range owned {
			every, income := yield(b)
			col := Collection{Business: b}
			if every > 0 {
				col.Periods = int64(now.Sub(b.LastCollected) / every)
			}
			if col.Periods > 0 {
				col.Amount = col.Periods * income
				total += col.Amount
				col.Business.LastCollected = now.UTC()
				if err := tx.Model(&Business{}).
					Where("guild_id = ? AND user_id = ? AND kind = ?", guildID, userID, b.Kind).
					UpdateColumn("last_collected", now.UTC()).Error; err != nil {
					return err
				}
			}
			out = append(out, col)
		}

		if total > 0 {
			if err := credit(tx, guildID, userID, total); err != nil {
				return err
			}
		}
		var err error
		balance, err = balanceOf(tx, guildID, userID)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("collect income: %w", err)
	}
	return out, balance, nil
}
