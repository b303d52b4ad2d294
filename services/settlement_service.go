package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/state"
)

// Failure reasons recorded on PENALTY ledger entries.
const (
	ReasonManual     = "manual"
	ReasonExpired    = "expired"
	ReasonDailyReset = "daily reset"
)

// SettlementService applies the outcome of a quest. Each call claims the
// quest with a conditional status update, so of two concurrent settlements
// of the same quest exactly one commits.
type SettlementService struct {
	*core
	players      *PlayerService
	achievements *AchievementService
}

type CompleteResult struct {
	Quest            *models.Quest          `json:"quest"`
	Player           *models.Player         `json:"player"`
	LevelsGained     int                    `json:"levelsGained"`
	StatPointsGained int                    `json:"statPointsGained"`
	Items            []models.InventoryItem `json:"items"`
	Achievements     []catalog.Achievement  `json:"achievements,omitempty"`

	// Failure is set when the quest had already expired and was failed
	// instead. Complete returns ErrQuestExpired alongside it.
	Failure *FailResult `json:"failure,omitempty"`
}

type FailResult struct {
	Quest        *models.Quest  `json:"quest"`
	Player       *models.Player `json:"player"`
	XPLost       int            `json:"xpLost"`
	PenaltyQuest *models.Quest  `json:"penaltyQuest"`
}

func loadOwnedQuest(tx *gorm.DB, userID, questID string) (*models.Quest, error) {
	var q models.Quest
	err := tx.Where("id = ?", questID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quest: %w", err)
	}
	// another player's quest looks exactly like a missing one
	if q.UserID != userID {
		return nil, ErrQuestNotFound
	}
	return &q, nil
}

// claimTx moves the quest to status only if it is still in one of from.
func claimTx(tx *gorm.DB, q *models.Quest, to models.QuestStatus, from []models.QuestStatus, now time.Time) error {
	if err := state.CheckQuestTransition(q.Status, to); err != nil {
		return fmt.Errorf("%w: %v", ErrQuestNotActive, err)
	}
	updates := map[string]any{"status": to, "updated_at": now}
	switch to {
	case models.QuestStatusCompleted:
		updates["completed_at"] = now
	case models.QuestStatusFailed:
		updates["failed_at"] = now
	}
	res := tx.Model(&models.Quest{}).Where("id = ? AND status IN ?", q.ID, from).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("claim quest: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuestNotActive
	}
	q.Status = to
	switch to {
	case models.QuestStatusCompleted:
		q.CompletedAt = &now
	case models.QuestStatusFailed:
		q.FailedAt = &now
	}
	return nil
}

// Complete grants the rewards of an ACTIVE quest. An expired quest is
// failed instead and ErrQuestExpired is returned with the failure attached.
func (s *SettlementService) Complete(ctx context.Context, userID, questID string) (*CompleteResult, error) {
	now := s.now()
	res := &CompleteResult{}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		q, err := loadOwnedQuest(tx, userID, questID)
		if err != nil {
			return err
		}
		if q.Status == models.QuestStatusActive && q.Expired(now) {
			res.Failure, err = s.failTx(tx, q, ReasonExpired, now)
			return err
		}
		if err := claimTx(tx, q, models.QuestStatusCompleted, []models.QuestStatus{models.QuestStatusActive}, now); err != nil {
			return err
		}
		res.Quest = q
		return s.rewardTx(tx, q, res, now)
	})
	if err != nil {
		return nil, err
	}

	if res.Failure != nil {
		s.afterFailure(userID, res.Failure)
		return res, ErrQuestExpired
	}

	s.observer.QuestSettled(res.Quest.Type, "completed")
	events := []Event{{Type: EventQuestCompleted, Payload: res.Quest}}
	if res.LevelsGained > 0 {
		s.observer.LevelUp(res.LevelsGained)
		events = append(events, Event{Type: EventPlayerLevelUp, Payload: levelUpPayload{
			Level:            res.Player.Level,
			LevelsGained:     res.LevelsGained,
			StatPointsGained: res.StatPointsGained,
			Rank:             string(res.Player.Rank),
		}})
	}
	events = append(events, achievementEvents(res.Achievements)...)
	s.publish(userID, events...)

	logger.Log.Infow("quest completed",
		"user_id", userID,
		"quest_id", questID,
		"type", res.Quest.Type,
		"level", res.Player.Level,
		"levels_gained", res.LevelsGained,
	)
	return res, nil
}

func (s *SettlementService) rewardTx(tx *gorm.DB, q *models.Quest, res *CompleteResult, now time.Time) error {
	p, err := s.players.lockTx(tx, q.UserID)
	if err != nil {
		return err
	}

	lu := s.calc.CalculateLevelUp(p.Level, p.XP+q.XPReward)
	p.Level = lu.Level
	p.XP = lu.XP
	p.UnallocatedStatPoints += lu.StatPointsGained
	p.Rank = s.calc.RankForLevel(p.Level)
	p.Mana += q.ManaReward
	if q.Type == models.QuestTypeDaily {
		p.StreakCount++
		p.LongestStreak = max(p.LongestStreak, p.StreakCount)
	}
	p.AddStats(q.StatReward.Data())
	if err := tx.Save(p).Error; err != nil {
		return fmt.Errorf("save player: %w", err)
	}

	items := resolveLoot(q.UserID, q.LootTable.Data(), s.rand)
	for i := range items {
		items[i].CreatedAt = now
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("create loot: %w", err)
		}
	}

	entry := models.LedgerEntry{
		UserID:    q.UserID,
		QuestID:   &q.ID,
		Kind:      models.LedgerQuestReward,
		Amount:    q.XPReward,
		Metadata:  datatypes.NewJSONType(models.LedgerMetadata{ManaReward: q.ManaReward}),
		CreatedAt: now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record reward: %w", err)
	}

	unlocked, err := s.achievements.onQuestCompletedTx(tx, q.UserID, p.StreakCount, now)
	if err != nil {
		return err
	}

	res.Player = p
	res.LevelsGained = lu.LevelsGained
	res.StatPointsGained = lu.StatPointsGained
	res.Items = items
	res.Achievements = unlocked
	return nil
}

// resolveLoot creates one item per guaranteed entry plus one drawn from the
// random pool.
func resolveLoot(userID string, table models.LootTable, r Rand) []models.InventoryItem {
	items := make([]models.InventoryItem, 0, len(table.Guaranteed)+1)
	for _, e := range table.Guaranteed {
		items = append(items, lootItem(userID, e, e.Name+" obtained from quest rewards"))
	}
	if n := len(table.Random); n > 0 {
		e := table.Random[r.Intn(n)]
		items = append(items, lootItem(userID, e, e.Name+" (random drop)"))
	}
	return items
}

func lootItem(userID string, e models.LootEntry, description string) models.InventoryItem {
	item := models.InventoryItem{
		UserID:      userID,
		Name:        e.Name,
		Description: description,
		Category:    e.Category,
		Rarity:      e.Rarity,
		Quantity:    e.Quantity,
		StatBonuses: datatypes.NewJSONType(e.StatBonuses),
	}
	if e.Description != "" {
		item.Description = e.Description
	}
	if item.Category == "" {
		item.Category = models.CategoryMisc
	}
	if item.Rarity == "" {
		item.Rarity = models.RarityCommon
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return item
}

// Fail marks an outstanding quest FAILED, applies its penalty and spawns the
// follow-up penalty quest in the same transaction.
func (s *SettlementService) Fail(ctx context.Context, userID, questID, reason string) (*FailResult, error) {
	now := s.now()
	var res *FailResult

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		q, err := loadOwnedQuest(tx, userID, questID)
		if err != nil {
			return err
		}
		res, err = s.failTx(tx, q, reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterFailure(userID, res)
	return res, nil
}

func (s *SettlementService) failTx(tx *gorm.DB, q *models.Quest, reason string, now time.Time) (*FailResult, error) {
	if err := claimTx(tx, q, models.QuestStatusFailed, models.OutstandingStatuses, now); err != nil {
		return nil, err
	}

	p, err := s.players.lockTx(tx, q.UserID)
	if err != nil {
		return nil, err
	}
	loss := q.Penalty.Data().XPLoss
	before := p.XP
	p.XP = max(0, p.XP-loss)
	p.StreakCount = 0
	if err := tx.Save(p).Error; err != nil {
		return nil, fmt.Errorf("save player: %w", err)
	}

	if err := recordPenaltyTx(tx, q, loss, before-p.XP, reason, now); err != nil {
		return nil, err
	}

	penalty, err := spawnPenaltyTx(tx, q.UserID, "Failed quest "+q.ID, now)
	if err != nil {
		return nil, err
	}

	return &FailResult{Quest: q, Player: p, XPLost: before - p.XP, PenaltyQuest: penalty}, nil
}

// recordPenaltyTx appends the PENALTY ledger entry of a failed quest.
func recordPenaltyTx(tx *gorm.DB, q *models.Quest, amount, xpLost int, reason string, now time.Time) error {
	entry := models.LedgerEntry{
		UserID:  q.UserID,
		QuestID: &q.ID,
		Kind:    models.LedgerPenalty,
		Amount:  amount,
		Metadata: datatypes.NewJSONType(models.LedgerMetadata{
			XPLost: xpLost,
			Reason: reason,
		}),
		CreatedAt: now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record penalty: %w", err)
	}
	return nil
}

func spawnPenaltyTx(tx *gorm.DB, userID, reason string, now time.Time) (*models.Quest, error) {
	q := catalog.PenaltyQuest(reason).Instantiate(userID, now)
	q.CreatedAt = now
	if err := tx.Create(q).Error; err != nil {
		return nil, fmt.Errorf("spawn penalty quest: %w", err)
	}
	return q, nil
}

func (s *SettlementService) afterFailure(userID string, res *FailResult) {
	s.observer.QuestSettled(res.Quest.Type, "failed")
	s.publish(userID,
		Event{Type: EventQuestFailed, Payload: res.Quest},
		Event{Type: EventQuestPenalty, Payload: res.PenaltyQuest},
	)
	logger.Log.Infow("quest failed",
		"user_id", userID,
		"quest_id", res.Quest.ID,
		"type", res.Quest.Type,
		"xp_lost", res.XPLost,
		"penalty_quest_id", res.PenaltyQuest.ID,
	)
}
