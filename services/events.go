package services

import "time"

const (
	EventQuestCompleted      = "quest.completed"
	EventQuestFailed         = "quest.failed"
	EventQuestPenalty        = "quest.penalty"
	EventQuestEmergency      = "quest.emergency"
	EventPlayerLevelUp       = "player.level_up"
	EventAchievementUnlocked = "achievement.unlocked"
	EventAnnouncement        = "system.announcement"
)

// Event is pushed to a user's live sessions.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

type levelUpPayload struct {
	Level            int    `json:"level"`
	LevelsGained     int    `json:"levelsGained"`
	StatPointsGained int    `json:"statPointsGained"`
	Rank             string `json:"rank"`
}
