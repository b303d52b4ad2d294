package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/sololeveling/auth"
	"github.com/wfunc/sololeveling/broadcast"
	"github.com/wfunc/sololeveling/config"
	"github.com/wfunc/sololeveling/leveling"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/monitor"
	"github.com/wfunc/sololeveling/persistence"
	"github.com/wfunc/sololeveling/rpc"
	"github.com/wfunc/sololeveling/server"
	"github.com/wfunc/sololeveling/services"
	"github.com/wfunc/sololeveling/session"
	"github.com/wfunc/sololeveling/timer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger
	logger.Init("info", false)

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infow("Database connection successful.", "driver", db.Dialect())

	calc, err := leveling.NewCalculator(leveling.Config{
		BaseXP:             cfg.Leveling.BaseXP,
		Growth:             cfg.Leveling.Growth,
		StatPointsPerLevel: cfg.Leveling.StatPointsPerLevel,
		Ranks:              leveling.DefaultRanks,
	})
	if err != nil {
		logger.Log.Fatalf("Invalid leveling configuration: %v", err)
	}

	sessions := session.NewManager()
	mon := monitor.NewMonitor("sololeveling", prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	mon.PublishExpvars()

	broadcaster := broadcast.NewUserBroadcaster(sessions)
	svc := services.New(db,
		services.WithLocation(cfg.Location()),
		services.WithCalculator(calc),
		services.WithNotifier(broadcaster),
		services.WithObserver(mon),
		services.WithTokenIssuer(auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)),
		services.WithHasher(auth.NewHasher(cfg.Auth.BcryptCost)),
	)

	apiServer, err := server.New(cfg.Server, svc, db, sessions, server.WithMetrics(mon))
	if err != nil {
		logger.Log.Fatalf("Failed to create HTTP server: %v", err)
	}
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdminService(svc, broadcaster))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	monitorServer := mon.Server(cfg.Server.MonitorAddress)

	g, gctx := errgroup.WithContext(ctx)

	var timers *timer.TimerManager
	if cfg.Game.SweepInterval > 0 {
		timers = timer.NewTimerManager()
		timers.AddTimer(cfg.Game.SweepInterval, cfg.Game.SweepInterval, func() {
			sweepOverdue(gctx, svc.Quests, cfg.Game.SweepBatch)
		})
		logger.Log.Infof("Overdue quest sweeper every %s", cfg.Game.SweepInterval)
	}

	g.Go(apiServer.ListenAndServe)
	g.Go(func() error {
		rpcServer.Start()
		return nil
	})
	g.Go(func() error {
		logger.Log.Infof("Monitor listening on %s", cfg.Server.MonitorAddress)
		if err := monitorServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if timers != nil {
			timers.Stop()
		}
		rpcServer.Stop()
		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			monitorServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Errorf("Server stopped with error: %v", err)
	}
}

func sweepOverdue(ctx context.Context, quests *services.QuestService, batch int) {
	n, err := quests.ExpireOverdue(ctx, batch)
	if err != nil {
		logger.Log.Errorw("overdue sweep failed", "error", err, "failed", n)
		return
	}
	if n > 0 {
		logger.Log.Infow("overdue sweep", "failed", n)
	}
}
