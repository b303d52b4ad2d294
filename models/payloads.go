package models

import (
	"errors"
	"fmt"
)

// StatBlock is a set of stat deltas or bonuses. Zero fields mean "no change".
type StatBlock struct {
	Strength     int `json:"strength,omitempty"`
	Agility      int `json:"agility,omitempty"`
	Intelligence int `json:"intelligence,omitempty"`
	Vitality     int `json:"vitality,omitempty"`
	Sense        int `json:"sense,omitempty"`
}

func (b StatBlock) Add(o StatBlock) StatBlock {
	return StatBlock{
		Strength:     b.Strength + o.Strength,
		Agility:      b.Agility + o.Agility,
		Intelligence: b.Intelligence + o.Intelligence,
		Vitality:     b.Vitality + o.Vitality,
		Sense:        b.Sense + o.Sense,
	}
}

func (b StatBlock) Total() int {
	return b.Strength + b.Agility + b.Intelligence + b.Vitality + b.Sense
}

func (b StatBlock) IsZero() bool {
	return b == StatBlock{}
}

// Negative reports the first stat below zero, if any.
func (b StatBlock) Negative() (Stat, bool) {
	switch {
	case b.Strength < 0:
		return StatStrength, true
	case b.Agility < 0:
		return StatAgility, true
	case b.Intelligence < 0:
		return StatIntelligence, true
	case b.Vitality < 0:
		return StatVitality, true
	case b.Sense < 0:
		return StatSense, true
	}
	return "", false
}

// LootEntry describes one item a quest can hand out.
type LootEntry struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    ItemCategory `json:"category,omitempty"`
	Rarity      Rarity       `json:"rarity,omitempty"`
	Quantity    int          `json:"quantity,omitempty"`
	StatBonuses StatBlock    `json:"statBonuses,omitempty"`
}

// LootTable holds items always granted and a pool from which exactly one is
// drawn on completion.
type LootTable struct {
	Guaranteed []LootEntry `json:"guaranteed"`
	Random     []LootEntry `json:"random"`
}

func (t LootTable) Empty() bool {
	return len(t.Guaranteed) == 0 && len(t.Random) == 0
}

// Penalty is applied when a quest fails.
type Penalty struct {
	Kind            string `json:"type,omitempty"`
	DurationHours   int    `json:"durationHours,omitempty"`
	XPLoss          int    `json:"xpLoss,omitempty"`
	HealthReduction int    `json:"healthReduction,omitempty"`
}

func (p Penalty) IsZero() bool {
	return p == Penalty{}
}

// LedgerMetadata carries the kind-specific detail of a ledger entry.
type LedgerMetadata struct {
	ManaReward int    `json:"manaReward,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
	XPLost     int    `json:"xpLost,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type RewardKind string

const (
	RewardXP       RewardKind = "XP"
	RewardMana     RewardKind = "MANA"
	RewardStat     RewardKind = "STAT"
	RewardItem     RewardKind = "ITEM"
	RewardItemPool RewardKind = "ITEM_POOL"
)

// Reward is one variant of a quest reward. Which fields are meaningful
// depends on Kind: Amount for XP and MANA, Stats for STAT, Items for ITEM
// and ITEM_POOL.
type Reward struct {
	Kind   RewardKind  `json:"kind"`
	Amount int         `json:"amount,omitempty"`
	Stats  StatBlock   `json:"stats,omitempty"`
	Items  []LootEntry `json:"items,omitempty"`
}

var errEmptyItemName = errors.New("loot entry without name")

func (r Reward) Validate() error {
	switch r.Kind {
	case RewardXP, RewardMana:
		if r.Amount <= 0 {
			return fmt.Errorf("%s reward must have a positive amount, got %d", r.Kind, r.Amount)
		}
	case RewardStat:
		if r.Stats.IsZero() {
			return fmt.Errorf("%s reward without stats", r.Kind)
		}
		if stat, neg := r.Stats.Negative(); neg {
			return fmt.Errorf("%s reward with negative %s", r.Kind, stat)
		}
	case RewardItem, RewardItemPool:
		if len(r.Items) == 0 {
			return fmt.Errorf("%s reward without items", r.Kind)
		}
		for _, it := range r.Items {
			if it.Name == "" {
				return errEmptyItemName
			}
			if it.Quantity < 0 {
				return fmt.Errorf("loot entry %q has negative quantity", it.Name)
			}
		}
	default:
		return fmt.Errorf("unknown reward kind %q", r.Kind)
	}
	return nil
}
