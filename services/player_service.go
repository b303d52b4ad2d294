package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/leveling"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/persistence"
)

type PlayerService struct {
	*core
	achievements *AchievementService
}

// Profile is the player view returned by GET /player/me.
type Profile struct {
	Profile           *models.Player    `json:"profile"`
	XPNext            int               `json:"xpNext"`
	Power             int               `json:"power"`
	ActiveDailyQuests []models.Quest    `json:"activeDailyQuests"`
	Streak            int               `json:"streak"`
	Achievements      []AchievementView `json:"achievements"`
}

// GetOrCreate returns the player record, creating it on first access.
func (s *PlayerService) GetOrCreate(ctx context.Context, userID string) (*models.Player, error) {
	var p models.Player
	err := persistence.Translate(s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("load player: %w", err)
	}

	created := models.NewPlayer(userID)
	if err := persistence.Translate(s.db.WithContext(ctx).Create(created).Error); err != nil {
		if !errors.Is(err, persistence.ErrDuplicateKey) {
			return nil, fmt.Errorf("create player: %w", err)
		}
		// lost the race to a concurrent first access
		if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
			return nil, fmt.Errorf("load player: %w", err)
		}
		return &p, nil
	}
	return created, nil
}

// lockTx reads the player row for update inside tx, creating it if needed.
func (s *PlayerService) lockTx(tx *gorm.DB, userID string) (*models.Player, error) {
	var p models.Player
	err := persistence.Translate(persistence.ForUpdate(tx).Where("user_id = ?", userID).First(&p).Error)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("lock player: %w", err)
	}
	created := models.NewPlayer(userID)
	if err := tx.Create(created).Error; err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return created, nil
}

func (s *PlayerService) Profile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var daily []models.Quest
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND status IN ?", userID, models.QuestTypeDaily, models.OutstandingStatuses).
		Order("created_at DESC").
		Find(&daily).Error
	if err != nil {
		return nil, fmt.Errorf("load daily quests: %w", err)
	}

	achievements, err := s.achievements.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Profile:           p,
		XPNext:            s.calc.XPForNextLevel(p.Level),
		Power:             leveling.PowerLevel(leveling.StatsOf(p)),
		ActiveDailyQuests: daily,
		Streak:            p.StreakCount,
		Achievements:      achievements,
	}, nil
}

// AllocateStats moves unallocated points into base stats. The update only
// applies while enough points remain, so concurrent allocations cannot
// overspend.
func (s *PlayerService) AllocateStats(ctx context.Context, userID string, alloc models.StatBlock) (*models.Player, error) {
	verr := &ValidationError{}
	if stat, neg := alloc.Negative(); neg {
		verr.add(string(stat), "must not be negative")
	}
	if alloc.Total() == 0 && len(verr.Issues) == 0 {
		verr.add("stats", "allocate at least one point")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	total := alloc.Total()
	var p models.Player
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Player{}).
			Where("user_id = ? AND unallocated_stat_points >= ?", userID, total).
			Updates(map[string]any{
				"strength":                gorm.Expr("strength + ?", alloc.Strength),
				"agility":                 gorm.Expr("agility + ?", alloc.Agility),
				"intelligence":            gorm.Expr("intelligence + ?", alloc.Intelligence),
				"vitality":                gorm.Expr("vitality + ?", alloc.Vitality),
				"sense":                   gorm.Expr("sense + ?", alloc.Sense),
				"unallocated_stat_points": gorm.Expr("unallocated_stat_points - ?", total),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStatPoints
		}
		return tx.Where("user_id = ?", userID).First(&p).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStatPoints) {
			return nil, err
		}
		return nil, fmt.Errorf("allocate stats: %w", err)
	}
	return &p, nil
}
