// Package leveling maps experience totals to levels, ranks and power scores.
// Everything here is pure and safe for concurrent use.
package leveling

import (
	"errors"
	"fmt"
	"math"

	"github.com/wfunc/sololeveling/models"
)

// RankThreshold grants Rank to every level at or above MinLevel.
type RankThreshold struct {
	MinLevel int
	Rank     models.Rank
}

type Config struct {
	BaseXP             int
	Growth             float64
	StatPointsPerLevel int
	Ranks              []RankThreshold
}

// DefaultRanks is ordered by ascending MinLevel.
var DefaultRanks = []RankThreshold{
	{MinLevel: 1, Rank: models.RankE},
	{MinLevel: 10, Rank: models.RankD},
	{MinLevel: 20, Rank: models.RankC},
	{MinLevel: 30, Rank: models.RankB},
	{MinLevel: 45, Rank: models.RankA},
	{MinLevel: 60, Rank: models.RankS},
	{MinLevel: 80, Rank: models.RankNational},
}

func DefaultConfig() Config {
	return Config{
		BaseXP:             100,
		Growth:             1.25,
		StatPointsPerLevel: 5,
		Ranks:              DefaultRanks,
	}
}

func (c Config) Validate() error {
	if c.BaseXP <= 0 {
		return fmt.Errorf("leveling: base xp must be positive, got %d", c.BaseXP)
	}
	if c.Growth <= 1 {
		return fmt.Errorf("leveling: growth must be greater than 1, got %v", c.Growth)
	}
	if c.StatPointsPerLevel < 0 {
		return fmt.Errorf("leveling: stat points per level must not be negative, got %d", c.StatPointsPerLevel)
	}
	if len(c.Ranks) == 0 {
		return errors.New("leveling: rank table is empty")
	}
	for i := 1; i < len(c.Ranks); i++ {
		if c.Ranks[i].MinLevel <= c.Ranks[i-1].MinLevel {
			return errors.New("leveling: rank table must be strictly ascending")
		}
	}
	return nil
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if cfg.Ranks == nil {
		cfg.Ranks = DefaultRanks
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// MustCalculator panics on an invalid config. Meant for tests and package
// level defaults.
func MustCalculator(cfg Config) *Calculator {
	c, err := NewCalculator(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// XPForNextLevel is the experience needed to advance from level to level+1.
func (c *Calculator) XPForNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Round(float64(c.cfg.BaseXP) * math.Pow(c.cfg.Growth, float64(level-1))))
}

type LevelUp struct {
	Level            int
	XP               int
	LevelsGained     int
	StatPointsGained int
}

// CalculateLevelUp rolls xpTotal over as many level thresholds as it covers.
// The returned XP is always below the threshold of the returned level.
func (c *Calculator) CalculateLevelUp(level, xpTotal int) LevelUp {
	if level < 1 {
		level = 1
	}
	res := LevelUp{Level: level, XP: xpTotal}
	if xpTotal <= 0 {
		res.XP = 0
		return res
	}
	for {
		need := c.XPForNextLevel(res.Level)
		if need <= 0 || res.XP < need {
			break
		}
		res.XP -= need
		res.Level++
		res.LevelsGained++
		res.StatPointsGained += c.cfg.StatPointsPerLevel
	}
	return res
}

// RankForLevel returns the highest rank whose threshold is at or below level.
func (c *Calculator) RankForLevel(level int) models.Rank {
	rank := c.cfg.Ranks[0].Rank
	for _, t := range c.cfg.Ranks {
		if level < t.MinLevel {
			break
		}
		rank = t.Rank
	}
	return rank
}

type Stats struct {
	Strength     int
	Agility      int
	Intelligence int
	Vitality     int
	Sense        int
	Mana         int
	Level        int
}

func StatsOf(p *models.Player) Stats {
	return Stats{
		Strength:     p.Strength,
		Agility:      p.Agility,
		Intelligence: p.Intelligence,
		Vitality:     p.Vitality,
		Sense:        p.Sense,
		Mana:         p.Mana,
		Level:        p.Level,
	}
}

// PowerLevel is a weighted score of a player's stats.
func PowerLevel(s Stats) int {
	score := float64(s.Strength)*2 +
		float64(s.Agility)*1.8 +
		float64(s.Intelligence)*1.5 +
		float64(s.Vitality)*1.7 +
		float64(s.Sense)*1.6 +
		float64(s.Mana)*0.5 +
		float64(s.Level)*5
	return int(math.Round(score))
}
