package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Level is a member's experience within one guild.
type Level struct {
	GuildID       string `gorm:"primaryKey;size:32"`
	UserID        string `gorm:"primaryKey;size:32"`
	XP            int64  `gorm:"not null;default:0;index"`
	Level         int    `gorm:"not null;default:0"`
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// XPResult describes a member's level state after gaining experience.
type XPResult struct {
	LeveledUp bool
	Level     int
	XP        int64
	XPNeeded  int64
}

// XPForLevel is the experience cost of reaching level from level-1.
func XPForLevel(level int) int64 {
	return int64(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// LevelFromXP returns the level reached with xp total experience.
func LevelFromXP(xp int64) int {
	level := 1
	for xp >= XPForLevel(level) {
		xp -= XPForLevel(level)
		level++
	}
	return level - 1
}

// AddXP credits experience and recomputes the level.
func (d *DB) AddXP(ctx context.Context, guildID, userID string, amount int64, now time.Time) (XPResult, error) {
	var res XPResult
	err := d.transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Level{GuildID: guildID, UserID: userID, LastMessageAt: now.UTC()}).Error
		if err != nil {
			return err
		}

		where := tx.Model(&Level{}).Where("guild_id = ? AND user_id = ?", guildID, userID)
		err = where.Updates(map[string]any{
			"xp":              gorm.Expr("xp + ?", amount),
			"last_message_at": now.UTC(),
		}).Error
		if err != nil {
			return err
		}

		var lvl Level
		if err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).Take(&lvl).Error; err != nil {
			return err
		}

		newLevel := LevelFromXP(lvl.XP)
		if newLevel != lvl.Level {
			err := tx.Model(&Level{}).
				Where("guild_id = ? AND user_id = ?", guildID, userID).
				UpdateColumn("level", newLevel).Error
			if err != nil {
				return err
			}
		}

		res = XPResult{
			LeveledUp: newLevel > lvl.Level,
			Level:     newLevel,
			XP:        lvl.XP,
			XPNeeded:  XPForLevel(newLevel + 1),
		}
		return nil
	})
	if err != nil {
		return XPResult{}, fmt.Errorf("add xp: %w", err)
	}
	return res, nil
}

// LevelOf returns a member's level record; the zero record when none exists.
func (d *DB) LevelOf(ctx context.Context, guildID, userID string) (Level, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	lvl := Level{GuildID: guildID, UserID: userID}
	err := tx.Where("guild_id = ? AND user_id = ?", guildID, userID).Take(&lvl).Error
	if isNotFound(err) {
		return lvl, nil
	}
	return lvl, err
}

// LevelRank returns the 1-based position of a member by experience.
func (d *DB) LevelRank(ctx context.Context, guildID, userID string) (int, error) {
	lvl, err := d.LevelOf(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	tx, cancel := d.withContext(ctx)
	defer cancel()

	var above int64
	if err := tx.Model(&Level{}).Where("guild_id = ? AND xp > ?", guildID, lvl.XP).Count(&above).Error; err != nil {
		return 0, err
	}
	return int(above) + 1, nil
}

// Leaderboard returns a page of a guild's members ordered by experience.
func (d *DB) Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]Level, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	var levels []Level
	err := tx.Where("guild_id = ?", guildID).
		Order("xp DESC").Order("user_id").
		Limit(limit).Offset(offset).
		Find(&levels).Error
	return levels, err
}

// CountLevels reports how many members of a guild have earned experience.
func (d *DB) CountLevels(ctx context.Context, guildID string) (int, error) {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	var n int64
	err := tx.Model(&Level{}).Where("guild_id = ?", guildID).Count(&n).Error
	return int(n), err
}

// ResetLevel zeroes a member's experience.
func (d *DB) ResetLevel(ctx context.Context, guildID, userID string) error {
	tx, cancel := d.withContext(ctx)
	defer cancel()

	return tx.Model(&Level{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Updates(map[string]any{"xp": 0, "level": 0}).Error
}
