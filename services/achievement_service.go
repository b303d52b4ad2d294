package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/models"
)

// AchievementService tracks per-player progress toward the catalog
// achievements. Progress only moves inside the transactions that cause it.
type AchievementService struct {
	*core
}

type AchievementView struct {
	catalog.Achievement
	Progress   int        `json:"progress"`
	Completed  bool       `json:"completed"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

func (s *AchievementService) List(ctx context.Context, userID string) ([]AchievementView, error) {
	var rows []models.AchievementProgress
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	byCode := make(map[string]models.AchievementProgress, len(rows))
	for _, r := range rows {
		byCode[r.Code] = r
	}

	defs := catalog.Achievements()
	out := make([]AchievementView, 0, len(defs))
	for _, def := range defs {
		v := AchievementView{Achievement: def}
		if r, ok := byCode[def.Code]; ok {
			v.Progress = r.Progress
			v.Completed = r.Completed
			v.UnlockedAt = r.UnlockedAt
		}
		out = append(out, v)
	}
	return out, nil
}

// advanceTx sets the progress of code to next(current). It reports the
// achievement when this call crossed its threshold.
func (s *AchievementService) advanceTx(tx *gorm.DB, userID, code string, now time.Time, next func(current int) int) (*catalog.Achievement, error) {
	def, ok := catalog.FindAchievement(code)
	if !ok {
		return nil, fmt.Errorf("unknown achievement %q", code)
	}

	var row models.AchievementProgress
	err := tx.Where("user_id = ? AND code = ?", userID, code).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.AchievementProgress{UserID: userID, Code: code}
	case err != nil:
		return nil, fmt.Errorf("load achievement %s: %w", code, err)
	}

	progress := next(row.Progress)
	if row.ID != "" && progress == row.Progress {
		return nil, nil
	}
	row.Progress = progress

	var unlocked *catalog.Achievement
	if !row.Completed && row.Progress >= def.Threshold {
		row.Completed = true
		row.UnlockedAt = &now
		unlocked = &def
	}
	if err := tx.Save(&row).Error; err != nil {
		return nil, fmt.Errorf("save achievement %s: %w", code, err)
	}
	return unlocked, nil
}

// onQuestCompletedTx counts the completion and records the current streak.
func (s *AchievementService) onQuestCompletedTx(tx *gorm.DB, userID string, streak int, now time.Time) ([]catalog.Achievement, error) {
	var unlocked []catalog.Achievement

	a, err := s.advanceTx(tx, userID, catalog.AchievementFirstBlood, now, func(n int) int { return n + 1 })
	if err != nil {
		return nil, err
	}
	if a != nil {
		unlocked = append(unlocked, *a)
	}

	a, err = s.advanceTx(tx, userID, catalog.AchievementStreakMaster, now, func(n int) int { return max(n, streak) })
	if err != nil {
		return nil, err
	}
	if a != nil {
		unlocked = append(unlocked, *a)
	}
	return unlocked, nil
}

func (s *AchievementService) onSkillUnlockedTx(tx *gorm.DB, userID, skillCode string, now time.Time) ([]catalog.Achievement, error) {
	if skillCode != catalog.SkillShadowArmy {
		return nil, nil
	}
	a, err := s.advanceTx(tx, userID, catalog.AchievementShadowCommander, now, func(int) int { return 1 })
	if err != nil || a == nil {
		return nil, err
	}
	return []catalog.Achievement{*a}, nil
}

func achievementEvents(unlocked []catalog.Achievement) []Event {
	events := make([]Event, 0, len(unlocked))
	for _, a := range unlocked {
		events = append(events, Event{Type: EventAchievementUnlocked, Payload: a})
	}
	return events
}
