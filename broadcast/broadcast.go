package broadcast

import (
	"encoding/json"

	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/network"
	"github.com/wfunc/sololeveling/services"
	"github.com/wfunc/sololeveling/session"
)

// Broadcaster delivers framed packets and reports how many sessions
// accepted them.
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) int
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte) int
}

// UserBroadcaster fans domain events out to every live session of a user.
// It implements services.Notifier.
type UserBroadcaster struct {
	sessionManager *session.Manager
}

func NewUserBroadcaster(sessionManager *session.Manager) *UserBroadcaster {
	return &UserBroadcaster{sessionManager: sessionManager}
}

func (b *UserBroadcaster) Notify(userID string, ev services.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Errorw("encode event failed", "type", ev.Type, "error", err)
		return
	}
	b.BroadcastToUsers([]string{userID}, network.MsgTypeFor(ev.Type), data)
}

func (b *UserBroadcaster) BroadcastToAll(msgID uint16, data []byte) int {
	delivered := 0
	b.sessionManager.Range(func(s *session.Session) {
		if b.send(s, msgID, data) {
			delivered++
		}
	})
	return delivered
}

func (b *UserBroadcaster) BroadcastToUsers(userIDs []string, msgID uint16, data []byte) int {
	delivered := 0
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			if b.send(s, msgID, data) {
				delivered++
			}
		}
	}
	return delivered
}

// send drops sessions whose connection fails.
func (b *UserBroadcaster) send(s *session.Session, msgID uint16, data []byte) bool {
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Warnw("send to session failed", "session_id", s.ID, "user_id", s.UserID, "error", err)
		b.sessionManager.Remove(s.ID)
		s.Close()
		return false
	}
	return true
}
