package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/sololeveling/config"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/persistence"
	"github.com/wfunc/sololeveling/services"
	"github.com/wfunc/sololeveling/session"
)

const (
	defaultHeartbeat = 30 * time.Second
	maxBodyBytes     = 1 << 20
)

// Metrics receives request and session measurements.
type Metrics interface {
	ObserveRequest(route string, status int, duration time.Duration)
	SessionOpened()
	SessionClosed()
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, int, time.Duration) {}
func (nopMetrics) SessionOpened()                            {}
func (nopMetrics) SessionClosed()                            {}

// Server is the HTTP JSON API plus the websocket event feed.
type Server struct {
	cfg        config.ServerConfig
	svc        *services.Services
	db         persistence.Database
	sessions   *session.Manager
	metrics    Metrics
	limiter    *ipLimiter
	upgrader   websocket.Upgrader
	heartbeat  time.Duration
	httpServer *http.Server
}

type Option func(*Server)

func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHeartbeat sets how often websocket clients must send a heartbeat.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

func New(cfg config.ServerConfig, svc *services.Services, db persistence.Database, sessions *session.Manager, opts ...Option) (*Server, error) {
	limiter, err := newIPLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		db:        db,
		sessions:  sessions,
		metrics:   nopMetrics{},
		limiter:   limiter,
		heartbeat: defaultHeartbeat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /auth/register", s.limiter.middleware(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /auth/login", s.limiter.middleware(http.HandlerFunc(s.handleLogin)))

	mux.Handle("GET /player/me", s.requireAuth(s.handleProfile))
	mux.Handle("POST /player/allocate", s.requireAuth(s.handleAllocate))

	mux.Handle("GET /quests", s.requireAuth(s.handleListQuests))
	mux.Handle("POST /quests/daily", s.requireAuth(s.handleDaily))
	mux.Handle("POST /quests/emergency", s.requireAuth(s.handleEmergency))
	mux.Handle("POST /quests/{id}/complete", s.requireAuth(s.handleComplete))
	mux.Handle("POST /quests/{id}/fail", s.requireAuth(s.handleFail))
	mux.Handle("POST /quests/{id}/tick", s.requireAuth(s.handleTick))
	mux.Handle("GET /quests/history/completed", s.requireAuth(s.handleCompletedHistory))

	mux.Handle("GET /inventory", s.requireAuth(s.handleInventory))
	mux.Handle("POST /inventory/{id}/equip", s.requireAuth(s.handleEquip))
	mux.Handle("GET /shop/items", s.requireAuth(s.handleShopItems))
	mux.Handle("POST /shop/purchase", s.requireAuth(s.handlePurchase))

	mux.Handle("GET /analytics", s.requireAuth(s.handleAnalytics))

	mux.Handle("GET /skills", s.requireAuth(s.handleSkills))
	mux.Handle("GET /skills/me", s.requireAuth(s.handleMySkills))
	mux.Handle("POST /skills/{code}/unlock", s.requireAuth(s.handleUnlockSkill))

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.instrument(mux)
}

// ListenAndServe blocks until Shutdown. It returns nil after a clean stop.
func (s *Server) ListenAndServe() error {
	logger.Log.Infof("HTTP server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP requests and closes every websocket session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	return s.httpServer.Shutdown(ctx)
}
