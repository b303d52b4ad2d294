package models

type QuestType string

const (
	QuestTypeDaily     QuestType = "DAILY"
	QuestTypePenalty   QuestType = "PENALTY"
	QuestTypeEmergency QuestType = "EMERGENCY"
)

type QuestStatus string

const (
	QuestStatusPending   QuestStatus = "PENDING"
	QuestStatusActive    QuestStatus = "ACTIVE"
	QuestStatusCompleted QuestStatus = "COMPLETED"
	QuestStatusFailed    QuestStatus = "FAILED"
)

// OutstandingStatuses are the statuses a daily reset or deadline can fail.
var OutstandingStatuses = []QuestStatus{QuestStatusActive, QuestStatusPending}

// Terminal reports whether no further transition is possible.
func (s QuestStatus) Terminal() bool {
	return s == QuestStatusCompleted || s == QuestStatusFailed
}

type Difficulty string

const (
	DifficultyE Difficulty = "E"
	DifficultyD Difficulty = "D"
	DifficultyC Difficulty = "C"
	DifficultyB Difficulty = "B"
	DifficultyA Difficulty = "A"
	DifficultyS Difficulty = "S"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyE, DifficultyD, DifficultyC, DifficultyB, DifficultyA, DifficultyS:
		return true
	}
	return false
}

type Rank string

const (
	RankE        Rank = "E"
	RankD        Rank = "D"
	RankC        Rank = "C"
	RankB        Rank = "B"
	RankA        Rank = "A"
	RankS        Rank = "S"
	RankNational Rank = "NATIONAL"
)

type ItemCategory string

const (
	CategoryWeapon     ItemCategory = "WEAPON"
	CategoryArmor      ItemCategory = "ARMOR"
	CategoryPotion     ItemCategory = "POTION"
	CategoryConsumable ItemCategory = "CONSUMABLE"
	CategoryMisc       ItemCategory = "MISC"
)

type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

type LedgerKind string

const (
	LedgerQuestReward LedgerKind = "QUEST_REWARD"
	LedgerPenalty     LedgerKind = "PENALTY"
	LedgerPurchase    LedgerKind = "PURCHASE"
)

type Stat string

const (
	StatStrength     Stat = "strength"
	StatAgility      Stat = "agility"
	StatIntelligence Stat = "intelligence"
	StatVitality     Stat = "vitality"
	StatSense        Stat = "sense"
)
