package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/models"
)

// QuestService creates, lists and expires quests.
type QuestService struct {
	*core
	players    *PlayerService
	settlement *SettlementService
}

// QuestView annotates a quest with the seconds left before it expires.
type QuestView struct {
	*models.Quest
	RemainingSeconds int64 `json:"remainingSeconds"`
}

type ResetResult struct {
	Reset         bool           `json:"reset"`
	FailedQuests  []models.Quest `json:"failedQuests"`
	PenaltyQuests []models.Quest `json:"penaltyQuests"`
}

type TickResult struct {
	Quest            *models.Quest `json:"quest"`
	RemainingSeconds int64         `json:"remainingSeconds"`
	Expired          bool          `json:"expired"`
	PenaltyQuest     *models.Quest `json:"penaltyQuest,omitempty"`
}

// EnsureDaily returns the player's outstanding daily quest, assigning the
// first daily template when there is none with a future deadline.
func (s *QuestService) EnsureDaily(ctx context.Context, userID string) (*models.Quest, error) {
	ts := s.now()
	var quest models.Quest
	created := false

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		// serializes concurrent calls for the same player
		if _, err := s.players.lockTx(tx, userID); err != nil {
			return err
		}
		err := tx.Where("user_id = ? AND type = ? AND status IN ? AND (expires_at IS NULL OR expires_at > ?)",
			userID, models.QuestTypeDaily, models.OutstandingStatuses, ts).
			Order("created_at DESC").
			First(&quest).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		q := catalog.DailyQuests()[0].Instantiate(userID, ts)
		q.CreatedAt = ts
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		quest = *q
		created = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure daily quest: %w", err)
	}
	if created {
		logger.Log.Infow("daily quest assigned", "user_id", userID, "quest_id", quest.ID)
	}
	return &quest, nil
}

// StartOfDay is midnight of t's calendar day in the configured location.
func (s *QuestService) StartOfDay(t time.Time) time.Time {
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: s.loc}
	return cfg.With(t.In(s.loc)).BeginningOfDay().UTC()
}

// CheckAndResetDaily fails yesterday's outstanding daily quests, zeroes the
// streak and stamps the reset time. It is a no-op once per calendar day.
func (s *QuestService) CheckAndResetDaily(ctx context.Context, userID string) (*ResetResult, error) {
	ts := s.now()
	startOfDay := s.StartOfDay(ts)
	res := &ResetResult{FailedQuests: []models.Quest{}, PenaltyQuests: []models.Quest{}}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.players.lockTx(tx, userID); err != nil {
			return err
		}
		stamp := tx.Model(&models.Player{}).
			Where("user_id = ? AND (last_daily_reset IS NULL OR last_daily_reset < ?)", userID, startOfDay).
			Updates(map[string]any{"last_daily_reset": ts, "streak_count": 0})
		if stamp.Error != nil {
			return stamp.Error
		}
		if stamp.RowsAffected == 0 {
			return nil
		}
		res.Reset = true

		var outstanding []models.Quest
		err := tx.Where("user_id = ? AND type = ? AND status IN ?", userID, models.QuestTypeDaily, models.OutstandingStatuses).
			Find(&outstanding).Error
		if err != nil {
			return err
		}
		for i := range outstanding {
			q := &outstanding[i]
			if err := claimTx(tx, q, models.QuestStatusFailed, models.OutstandingStatuses, ts); err != nil {
				return err
			}
			// a missed daily costs no xp, only the streak
			if err := recordPenaltyTx(tx, q, 0, 0, ReasonDailyReset, ts); err != nil {
				return err
			}
			penalty, err := spawnPenaltyTx(tx, userID, "Failed quest "+q.ID, ts)
			if err != nil {
				return err
			}
			res.FailedQuests = append(res.FailedQuests, *q)
			res.PenaltyQuests = append(res.PenaltyQuests, *penalty)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily reset: %w", err)
	}

	if res.Reset {
		logger.Log.Infow("daily reset", "user_id", userID, "failed", len(res.FailedQuests))
		for i := range res.FailedQuests {
			s.observer.QuestSettled(models.QuestTypeDaily, "failed")
			s.publish(userID,
				Event{Type: EventQuestFailed, Payload: &res.FailedQuests[i]},
				Event{Type: EventQuestPenalty, Payload: &res.PenaltyQuests[i]},
			)
		}
	}
	return res, nil
}

// ActivatePenalty spawns a PENALTY quest on its own.
func (s *QuestService) ActivatePenalty(ctx context.Context, userID, reason string) (*models.Quest, error) {
	var q *models.Quest
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		q, err = spawnPenaltyTx(tx, userID, reason, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(userID, Event{Type: EventQuestPenalty, Payload: q})
	return q, nil
}

// TriggerEmergency assigns an operator-defined EMERGENCY quest.
func (s *QuestService) TriggerEmergency(ctx context.Context, userID, title, description string, hours int) (*models.Quest, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	verr := &ValidationError{}
	if len([]rune(title)) < 3 {
		verr.add("title", "must be at least 3 characters")
	}
	if len([]rune(description)) < 5 {
		verr.add("description", "must be at least 5 characters")
	}
	if hours < 1 || hours > 48 {
		verr.add("hours", "must be between 1 and 48")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	ts := s.now()
	q := catalog.EmergencyQuest(title, description, hours).Instantiate(userID, ts)
	q.CreatedAt = ts
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, fmt.Errorf("create emergency quest: %w", err)
	}
	s.publish(userID, Event{Type: EventQuestEmergency, Payload: q})
	logger.Log.Infow("emergency quest triggered", "user_id", userID, "quest_id", q.ID, "hours", hours)
	return q, nil
}

// List returns the player's quests newest first. Overdue quests are failed
// before the list is read.
func (s *QuestService) List(ctx context.Context, userID string) ([]QuestView, error) {
	if err := s.expireOverdueFor(ctx, userID); err != nil {
		return nil, err
	}

	var quests []models.Quest
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id").Find(&quests).Error; err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	ts := s.now()
	views := make([]QuestView, len(quests))
	for i := range quests {
		views[i] = QuestView{Quest: &quests[i], RemainingSeconds: quests[i].RemainingSeconds(ts)}
	}
	return views, nil
}

func (s *QuestService) expireOverdueFor(ctx context.Context, userID string) error {
	var overdue []models.Quest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?", userID, models.QuestStatusActive, s.now()).
		Find(&overdue).Error
	if err != nil {
		return fmt.Errorf("find overdue quests: %w", err)
	}
	for _, q := range overdue {
		if _, err := s.settlement.Fail(ctx, userID, q.ID, ReasonExpired); err != nil && !errors.Is(err, ErrQuestNotActive) {
			return err
		}
	}
	return nil
}

// Tick reports the time left on a quest. An ACTIVE quest past its deadline
// is failed through the penalty path and reported as expired.
func (s *QuestService) Tick(ctx context.Context, userID, questID string) (*TickResult, error) {
	q, err := loadOwnedQuest(s.db.WithContext(ctx), userID, questID)
	if err != nil {
		return nil, err
	}

	ts := s.now()
	if q.Status != models.QuestStatusActive || !q.Expired(ts) {
		return &TickResult{Quest: q, RemainingSeconds: q.RemainingSeconds(ts)}, nil
	}

	fr, err := s.settlement.Fail(ctx, userID, questID, ReasonExpired)
	if errors.Is(err, ErrQuestNotActive) {
		// settled concurrently; report the stored outcome
		q, err = loadOwnedQuest(s.db.WithContext(ctx), userID, questID)
		if err != nil {
			return nil, err
		}
		return &TickResult{Quest: q}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TickResult{Quest: fr.Quest, Expired: true, PenaltyQuest: fr.PenaltyQuest}, nil
}

func (s *QuestService) CompletedHistory(ctx context.Context, userID string) ([]models.Quest, error) {
	var quests []models.Quest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.QuestStatusCompleted).
		Order("completed_at DESC").
		Find(&quests).Error
	if err != nil {
		return nil, fmt.Errorf("completed history: %w", err)
	}
	return quests, nil
}

// ExpireOverdue fails up to limit overdue quests across all players and
// returns how many it failed.
func (s *QuestService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	var overdue []models.Quest
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.QuestStatusActive, s.now()).
		Order("expires_at").
		Limit(limit).
		Find(&overdue).Error
	if err != nil {
		return 0, fmt.Errorf("find overdue quests: %w", err)
	}

	failed := 0
	for _, q := range overdue {
		_, err := s.settlement.Fail(ctx, q.UserID, q.ID, ReasonExpired)
		switch {
		case err == nil:
			failed++
		case errors.Is(err, ErrQuestNotActive):
		default:
			return failed, err
		}
	}
	return failed, nil
}
