package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/models"
)

type SkillService struct {
	*core
	players      *PlayerService
	achievements *AchievementService
}

type UnlockResult struct {
	Skill           catalog.Skill       `json:"skill"`
	PlayerSkill     *models.PlayerSkill `json:"playerSkill"`
	AlreadyUnlocked bool                `json:"alreadyUnlocked"`
}

func (s *SkillService) List() []catalog.Skill {
	return catalog.Skills()
}

func (s *SkillService) Mine(ctx context.Context, userID string) ([]models.PlayerSkill, error) {
	var skills []models.PlayerSkill
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at").Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// Unlock grants a skill once the player reaches its unlock level. Unlocking
// an owned skill returns the existing record.
func (s *SkillService) Unlock(ctx context.Context, userID, code string) (*UnlockResult, error) {
	skill, ok := catalog.FindSkill(code)
	if !ok {
		return nil, ErrSkillNotFound
	}

	ts := s.now()
	res := &UnlockResult{Skill: skill}
	var unlocked []catalog.Achievement

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.players.lockTx(tx, userID)
		if err != nil {
			return err
		}

		var existing models.PlayerSkill
		err = tx.Where("user_id = ? AND skill_code = ?", userID, code).First(&existing).Error
		if err == nil {
			res.PlayerSkill = &existing
			res.AlreadyUnlocked = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if p.Level < skill.UnlockLevel {
			return fmt.Errorf("%w: %s unlocks at level %d", ErrSkillLocked, skill.Name, skill.UnlockLevel)
		}

		ps := &models.PlayerSkill{UserID: userID, SkillCode: code, Level: 1, UnlockedAt: ts}
		if err := tx.Create(ps).Error; err != nil {
			return err
		}
		res.PlayerSkill = ps

		unlocked, err = s.achievements.onSkillUnlockedTx(tx, userID, code, ts)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSkillLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("unlock skill: %w", err)
	}

	s.publish(userID, achievementEvents(unlocked)...)
	return res, nil
}
