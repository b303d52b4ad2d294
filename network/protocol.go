package network

const (
	MsgTypeHeartbeat = 1

	MsgTypeQuestCompleted      = 301
	MsgTypeQuestFailed         = 302
	MsgTypeQuestPenalty        = 303
	MsgTypeQuestEmergency      = 304
	MsgTypePlayerLevelUp       = 305
	MsgTypeAchievementUnlocked = 306
	MsgTypeAnnouncement        = 307

	// MsgTypeEvent carries events without a dedicated id.
	MsgTypeEvent = 399
)

var eventMsgTypes = map[string]uint16{
	"quest.completed":      MsgTypeQuestCompleted,
	"quest.failed":         MsgTypeQuestFailed,
	"quest.penalty":        MsgTypeQuestPenalty,
	"quest.emergency":      MsgTypeQuestEmergency,
	"player.level_up":      MsgTypePlayerLevelUp,
	"achievement.unlocked": MsgTypeAchievementUnlocked,
	"system.announcement":  MsgTypeAnnouncement,
}

// MsgTypeFor maps an event type to the message id it is framed with.
func MsgTypeFor(eventType string) uint16 {
	if id, ok := eventMsgTypes[eventType]; ok {
		return id
	}
	return MsgTypeEvent
}
