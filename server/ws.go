package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/network"
	"github.com/wfunc/sololeveling/session"
)

// handleWebSocket authenticates before upgrading, then keeps the session
// registered until the client disconnects or misses its heartbeat.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	id, err := s.svc.Auth.Authenticate(strings.TrimSpace(token))
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.NewString(), id.UserID, wsConn)
	s.sessions.Add(sess)
	s.metrics.SessionOpened()
	logger.Log.Infow("session opened", "session_id", sess.ID, "user_id", id.UserID, "remote", wsConn.RemoteAddr().String())

	defer func() {
		s.sessions.Remove(sess.ID)
		s.metrics.SessionClosed()
		wsConn.Close()
		logger.Log.Infow("session closed", "session_id", sess.ID, "user_id", id.UserID)
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			return
		}
		s.handlePacket(sess, packet)
	}
}

func (s *Server) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		if err := sess.Send(network.MsgTypeHeartbeat, nil); err != nil {
			logger.Log.Debugw("heartbeat reply failed", "session_id", sess.ID, "error", err)
		}
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}
