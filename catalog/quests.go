// Package catalog holds the static game content: quest templates, shop
// stock, achievements and skills. Every value is built once at init, checked,
// and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/wfunc/sololeveling/models"
)

// QuestTemplate describes a quest before it is assigned to a player.
type QuestTemplate struct {
	Key           string
	Type          models.QuestType
	Title         string
	Description   string
	Difficulty    models.Difficulty
	DurationHours int
	Rewards       []models.Reward
	Penalty       models.Penalty
}

// Validate checks the template and every reward variant it carries.
func (t QuestTemplate) Validate() error {
	if t.Title == "" {
		return errors.New("quest template without title")
	}
	switch t.Type {
	case models.QuestTypeDaily, models.QuestTypePenalty, models.QuestTypeEmergency:
	default:
		return fmt.Errorf("quest %q: unknown type %q", t.Title, t.Type)
	}
	if !t.Difficulty.Valid() {
		return fmt.Errorf("quest %q: unknown difficulty %q", t.Title, t.Difficulty)
	}
	if t.DurationHours < 0 {
		return fmt.Errorf("quest %q: negative duration", t.Title)
	}
	if t.Penalty.XPLoss < 0 || t.Penalty.HealthReduction < 0 || t.Penalty.DurationHours < 0 {
		return fmt.Errorf("quest %q: penalty values must not be negative", t.Title)
	}
	pools := 0
	for _, r := range t.Rewards {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("quest %q: %w", t.Title, err)
		}
		if r.Kind == models.RewardItemPool {
			pools++
		}
	}
	if pools > 1 {
		return fmt.Errorf("quest %q: at most one item pool is allowed", t.Title)
	}
	return nil
}

// Instantiate builds an ACTIVE quest for userID starting at now. Reward
// variants are folded into the quest's reward columns.
func (t QuestTemplate) Instantiate(userID string, now time.Time) *models.Quest {
	var (
		xp, mana int
		stats    models.StatBlock
		loot     = models.LootTable{Guaranteed: []models.LootEntry{}, Random: []models.LootEntry{}}
	)
	for _, r := range t.Rewards {
		switch r.Kind {
		case models.RewardXP:
			xp += r.Amount
		case models.RewardMana:
			mana += r.Amount
		case models.RewardStat:
			stats = stats.Add(r.Stats)
		case models.RewardItem:
			loot.Guaranteed = append(loot.Guaranteed, r.Items...)
		case models.RewardItemPool:
			loot.Random = append(loot.Random, r.Items...)
		}
	}

	q := &models.Quest{
		UserID:      userID,
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
		Difficulty:  t.Difficulty,
		Status:      models.QuestStatusActive,
		XPReward:    xp,
		ManaReward:  mana,
		LootTable:   datatypes.NewJSONType(loot),
		StatReward:  datatypes.NewJSONType(stats),
		Penalty:     datatypes.NewJSONType(t.Penalty),
		StartedAt:   now,
	}
	if t.DurationHours > 0 {
		exp := now.Add(time.Duration(t.DurationHours) * time.Hour)
		q.ExpiresAt = &exp
	}
	return q
}

var dailyQuests = []QuestTemplate{
	{
		Key:           "preparation-to-become-powerful",
		Type:          models.QuestTypeDaily,
		Title:         "Preparation To Become Powerful",
		Description:   "Complete 100 push-ups, 100 sit-ups, 100 squats, and a 10km run before the timer ends.",
		Difficulty:    models.DifficultyD,
		DurationHours: 24,
		Rewards: []models.Reward{
			{Kind: models.RewardXP, Amount: 250},
			{Kind: models.RewardMana, Amount: 50},
			{Kind: models.RewardItem, Items: []models.LootEntry{
				{Name: "Recovery Potion", Rarity: models.RarityRare, Quantity: 1, Category: models.CategoryPotion},
			}},
			{Kind: models.RewardItemPool, Items: []models.LootEntry{
				{Name: "Steel Training Sword", Rarity: models.RarityCommon, Category: models.CategoryWeapon, StatBonuses: models.StatBlock{Strength: 3}},
				{Name: "Lightweight Trainers", Rarity: models.RarityCommon, Category: models.CategoryArmor, StatBonuses: models.StatBlock{Agility: 3}},
			}},
			{Kind: models.RewardStat, Stats: models.StatBlock{Strength: 1, Agility: 1, Vitality: 1}},
		},
		Penalty: models.Penalty{Kind: "penalty-zone", DurationHours: 4, XPLoss: 100},
	},
}

// penaltyQuest is completed with its description rewritten per failure.
var penaltyQuest = QuestTemplate{
	Key:           "survival-quest",
	Type:          models.QuestTypePenalty,
	Title:         "Survival Quest",
	Description:   "Survive the penalty zone for 4 hours.",
	Difficulty:    models.DifficultyC,
	DurationHours: 4,
	Rewards: []models.Reward{
		{Kind: models.RewardXP, Amount: 150},
		{Kind: models.RewardMana, Amount: 25},
	},
	Penalty: models.Penalty{Kind: "penalty-zone", XPLoss: 200, HealthReduction: 20},
}

var emergencyRewards = []models.Reward{
	{Kind: models.RewardXP, Amount: 400},
	{Kind: models.RewardMana, Amount: 80},
	{Kind: models.RewardItemPool, Items: []models.LootEntry{
		{Name: "Shadow Dagger", Rarity: models.RarityEpic, Category: models.CategoryWeapon, StatBonuses: models.StatBlock{Agility: 5}},
		{Name: "Hunter Medal", Rarity: models.RarityRare, Category: models.CategoryMisc, StatBonuses: models.StatBlock{Sense: 4}},
	}},
}

// DailyQuests returns the daily templates in assignment order.
func DailyQuests() []QuestTemplate {
	out := make([]QuestTemplate, len(dailyQuests))
	copy(out, dailyQuests)
	return out
}

// PenaltyQuest builds the template spawned when a quest fails.
func PenaltyQuest(reason string) QuestTemplate {
	t := penaltyQuest
	t.Rewards = append([]models.Reward(nil), penaltyQuest.Rewards...)
	if reason != "" {
		t.Description = "Survive the penalty zone for 4 hours. Reason: " + reason
	}
	return t
}

// EmergencyQuest builds an operator-defined quest that expires after hours.
func EmergencyQuest(title, description string, hours int) QuestTemplate {
	return QuestTemplate{
		Key:           "emergency",
		Type:          models.QuestTypeEmergency,
		Title:         title,
		Description:   description,
		Difficulty:    models.DifficultyB,
		DurationHours: hours,
		Rewards:       append([]models.Reward(nil), emergencyRewards...),
	}
}

func init() {
	for _, t := range dailyQuests {
		mustValidate(t)
	}
	mustValidate(penaltyQuest)
	mustValidate(EmergencyQuest("Emergency", "Emergency quest", 1))
}

func mustValidate(t QuestTemplate) {
	if err := t.Validate(); err != nil {
		panic("catalog: " + err.Error())
	}
}
