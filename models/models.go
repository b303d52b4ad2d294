package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	DisplayName  string    `gorm:"not null" json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// Player holds the progression state of one user.
type Player struct {
	ID                    string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID                string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	Level                 int        `gorm:"not null;default:1" json:"level"`
	XP                    int        `gorm:"column:xp;not null;default:0" json:"xp"`
	Strength              int        `gorm:"not null;default:10" json:"strength"`
	Agility               int        `gorm:"not null;default:10" json:"agility"`
	Intelligence          int        `gorm:"not null;default:10" json:"intelligence"`
	Vitality              int        `gorm:"not null;default:10" json:"vitality"`
	Sense                 int        `gorm:"not null;default:10" json:"sense"`
	Mana                  int        `gorm:"not null;default:100" json:"mana"`
	UnallocatedStatPoints int        `gorm:"not null;default:0" json:"unallocatedStatPoints"`
	Rank                  Rank       `gorm:"type:varchar(16);not null;default:E" json:"rank"`
	StreakCount           int        `gorm:"not null;default:0" json:"streakCount"`
	LongestStreak         int        `gorm:"not null;default:0" json:"longestStreak"`
	LastDailyReset        *time.Time `json:"lastDailyReset,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (p *Player) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// NewPlayer returns the starting state for a freshly registered user.
func NewPlayer(userID string) *Player {
	return &Player{
		UserID:       userID,
		Level:        1,
		Strength:     10,
		Agility:      10,
		Intelligence: 10,
		Vitality:     10,
		Sense:        10,
		Mana:         100,
		Rank:         RankE,
	}
}

func (p *Player) Stats() StatBlock {
	return StatBlock{
		Strength:     p.Strength,
		Agility:      p.Agility,
		Intelligence: p.Intelligence,
		Vitality:     p.Vitality,
		Sense:        p.Sense,
	}
}

func (p *Player) AddStats(b StatBlock) {
	p.Strength += b.Strength
	p.Agility += b.Agility
	p.Intelligence += b.Intelligence
	p.Vitality += b.Vitality
	p.Sense += b.Sense
}

type Quest struct {
	ID          string                        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string                        `gorm:"type:varchar(36);index;not null" json:"userId"`
	Type        QuestType                     `gorm:"type:varchar(16);index;not null" json:"type"`
	Title       string                        `gorm:"not null" json:"title"`
	Description string                        `gorm:"not null" json:"description"`
	Difficulty  Difficulty                    `gorm:"type:varchar(4);not null" json:"difficulty"`
	Status      QuestStatus                   `gorm:"type:varchar(16);index;not null" json:"status"`
	XPReward    int                           `gorm:"column:xp_reward;not null" json:"xpReward"`
	ManaReward  int                           `gorm:"not null" json:"manaReward"`
	LootTable   datatypes.JSONType[LootTable] `gorm:"not null" json:"lootTable"`
	StatReward  datatypes.JSONType[StatBlock] `gorm:"not null" json:"statReward"`
	Penalty     datatypes.JSONType[Penalty]   `gorm:"not null" json:"penalty"`
	StartedAt   time.Time                     `gorm:"not null" json:"startedAt"`
	ExpiresAt   *time.Time                    `gorm:"index" json:"expiresAt,omitempty"`
	CompletedAt *time.Time                    `json:"completedAt,omitempty"`
	FailedAt    *time.Time                    `json:"failedAt,omitempty"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
}

func (q *Quest) BeforeCreate(*gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// Expired reports whether the quest's deadline has passed at now.
func (q *Quest) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !now.Before(*q.ExpiresAt)
}

// RemainingSeconds is the whole number of seconds left, zero when expired or
// unbounded.
func (q *Quest) RemainingSeconds(now time.Time) int64 {
	if q.ExpiresAt == nil {
		return 0
	}
	d := q.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

type InventoryItem struct {
	ID          string                        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string                        `gorm:"type:varchar(36);index;not null" json:"userId"`
	Name        string                        `gorm:"not null" json:"name"`
	Description string                        `json:"description"`
	Category    ItemCategory                  `gorm:"type:varchar(16);not null" json:"category"`
	Rarity      Rarity                        `gorm:"type:varchar(16);not null" json:"rarity"`
	Quantity    int                           `gorm:"not null;default:1" json:"quantity"`
	StatBonuses datatypes.JSONType[StatBlock] `gorm:"not null" json:"statBonuses"`
	Equipped    bool                          `gorm:"not null;default:false" json:"equipped"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// LedgerEntry is an append-only record of a reward, penalty or purchase.
type LedgerEntry struct {
	ID        string                             `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string                             `gorm:"type:varchar(36);index;not null" json:"userId"`
	QuestID   *string                            `gorm:"type:varchar(36);index" json:"questId,omitempty"`
	Kind      LedgerKind                         `gorm:"type:varchar(16);index;not null" json:"type"`
	Amount    int                                `gorm:"not null" json:"amount"`
	Currency  string                             `gorm:"type:varchar(16)" json:"currency,omitempty"`
	Metadata  datatypes.JSONType[LedgerMetadata] `gorm:"not null" json:"metadata"`
	CreatedAt time.Time                          `gorm:"index" json:"createdAt"`
}

func (LedgerEntry) TableName() string { return "transactions" }

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

type AchievementProgress struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:varchar(36);uniqueIndex:idx_achievement_user_code;not null" json:"userId"`
	Code       string     `gorm:"type:varchar(64);uniqueIndex:idx_achievement_user_code;not null" json:"code"`
	Progress   int        `gorm:"not null;default:0" json:"progress"`
	Completed  bool       `gorm:"not null;default:false" json:"completed"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (a *AchievementProgress) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

type PlayerSkill struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);uniqueIndex:idx_skill_user_code;not null" json:"userId"`
	SkillCode  string    `gorm:"type:varchar(64);uniqueIndex:idx_skill_user_code;not null" json:"skillCode"`
	Level      int       `gorm:"not null;default:1" json:"level"`
	Equipped   bool      `gorm:"not null;default:false" json:"equipped"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

func (s *PlayerSkill) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// All lists every table for migration.
func All() []any {
	return []any{
		&User{},
		&Player{},
		&Quest{},
		&InventoryItem{},
		&LedgerEntry{},
		&AchievementProgress{},
		&PlayerSkill{},
	}
}
