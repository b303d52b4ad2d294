package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"time"

	"github.com/wfunc/sololeveling/broadcast"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/network"
	"github.com/wfunc/sololeveling/services"
)

const callTimeout = 10 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the admin service.
func NewServer(addr string, admin *AdminService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("AdminService", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start serves connections until Stop closes the listener.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operator actions over net/rpc. Replies are flat
// structs so they encode with gob.
type AdminService struct {
	quests      *services.QuestService
	players     *services.PlayerService
	broadcaster broadcast.Broadcaster
	now         func() time.Time
}

func NewAdminService(svc *services.Services, broadcaster broadcast.Broadcaster) *AdminService {
	return &AdminService{
		quests:      svc.Quests,
		players:     svc.Players,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type EmergencyArgs struct {
	UserID      string
	Title       string
	Description string
	Hours       int
}

type QuestReply struct {
	ID        string
	Type      string
	Title     string
	Status    string
	XPReward  int
	ExpiresAt time.Time
}

func questReply(q *models.Quest) QuestReply {
	r := QuestReply{
		ID:       q.ID,
		Type:     string(q.Type),
		Title:    q.Title,
		Status:   string(q.Status),
		XPReward: q.XPReward,
	}
	if q.ExpiresAt != nil {
		r.ExpiresAt = *q.ExpiresAt
	}
	return r
}

func (a *AdminService) TriggerEmergencyQuest(args *EmergencyArgs, reply *QuestReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	q, err := a.quests.TriggerEmergency(ctx, args.UserID, args.Title, args.Description, args.Hours)
	if err != nil {
		return err
	}
	*reply = questReply(q)
	return nil
}

type PlayerArgs struct {
	UserID string
}

type PlayerReply struct {
	UserID                string
	Level                 int
	XP                    int
	XPNext                int
	Rank                  string
	Power                 int
	Mana                  int
	Streak                int
	UnallocatedStatPoints int
	ActiveDailyQuests     int
}

func (a *AdminService) GetPlayer(args *PlayerArgs, reply *PlayerReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	prof, err := a.players.Profile(ctx, args.UserID)
	if err != nil {
		return err
	}
	p := prof.Profile
	*reply = PlayerReply{
		UserID:                p.UserID,
		Level:                 p.Level,
		XP:                    p.XP,
		XPNext:                prof.XPNext,
		Rank:                  string(p.Rank),
		Power:                 prof.Power,
		Mana:                  p.Mana,
		Streak:                prof.Streak,
		UnallocatedStatPoints: p.UnallocatedStatPoints,
		ActiveDailyQuests:     len(prof.ActiveDailyQuests),
	}
	return nil
}

type ExpireArgs struct {
	Limit int
}

type ExpireReply struct {
	Failed int
}

func (a *AdminService) ExpireOverdue(args *ExpireArgs, reply *ExpireReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	n, err := a.quests.ExpireOverdue(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Failed = n
	return nil
}

type AnnounceArgs struct {
	Message string
}

type AnnounceReply struct {
	Delivered int
}

// Announce pushes an operator message to every live session.
func (a *AdminService) Announce(args *AnnounceArgs, reply *AnnounceReply) error {
	message := strings.TrimSpace(args.Message)
	if message == "" {
		return errors.New("announcement message is required")
	}
	data, err := json.Marshal(services.Event{
		Type:    services.EventAnnouncement,
		Payload: map[string]string{"message": message},
		At:      a.now(),
	})
	if err != nil {
		return err
	}
	reply.Delivered = a.broadcaster.BroadcastToAll(network.MsgTypeAnnouncement, data)
	logger.Log.Infow("announcement sent", "delivered", reply.Delivered)
	return nil
}
