package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/sololeveling/models"
)

const (
	analyticsWindow = 30 * 24 * time.Hour
	averageWindow   = 7
)

type AnalyticsService struct {
	*core
	players *PlayerService
}

type Analytics struct {
	QuestsCompleted     int64   `json:"questsCompleted"`
	QuestsFailed        int64   `json:"questsFailed"`
	QuestCompletionRate float64 `json:"questCompletionRate"`
	RewardsEarned       int64   `json:"rewardsEarned"`
	Streak              int     `json:"streak"`
	AverageDailyXP      float64 `json:"averageDailyXp"`
}

// Summary covers quests created and rewards earned over the trailing 30
// days. AverageDailyXP averages reward xp over the trailing week.
func (s *AnalyticsService) Summary(ctx context.Context, userID string) (*Analytics, error) {
	ts := s.now()
	since := ts.Add(-analyticsWindow)
	db := s.db.WithContext(ctx)

	var counts []struct {
		Status models.QuestStatus
		N      int64
	}
	err := db.Model(&models.Quest{}).
		Select("status, COUNT(*) AS n").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count quests: %w", err)
	}

	out := &Analytics{}
	var total int64
	for _, c := range counts {
		total += c.N
		switch c.Status {
		case models.QuestStatusCompleted:
			out.QuestsCompleted = c.N
		case models.QuestStatusFailed:
			out.QuestsFailed = c.N
		}
	}
	if total > 0 {
		out.QuestCompletionRate = float64(out.QuestsCompleted) / float64(total)
	}

	if out.RewardsEarned, err = s.sumRewards(ctx, userID, since); err != nil {
		return nil, err
	}
	weekly, err := s.sumRewards(ctx, userID, ts.AddDate(0, 0, -averageWindow))
	if err != nil {
		return nil, err
	}
	out.AverageDailyXP = float64(weekly) / averageWindow

	p, err := s.players.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Streak = p.StreakCount
	return out, nil
}

func (s *AnalyticsService) sumRewards(ctx context.Context, userID string, since time.Time) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND kind = ? AND created_at >= ?", userID, models.LedgerQuestReward, since).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum rewards: %w", err)
	}
	return sum, nil
}
