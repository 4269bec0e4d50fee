// cmd/leaguemanager/main.go
// Entry point for the league manager agent: owns the registry, the
// standings aggregator, and the round-dispatch lifecycle (spec.md §2).

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"league-core/internal/aggregator"
	"league-core/internal/api"
	"league-core/internal/config"
	"league-core/internal/leaguemanager"
	"league-core/internal/logging"
	"league-core/internal/models"
	"league-core/internal/registry"
	"league-core/internal/rpcclient"
	"league-core/internal/store"
	"league-core/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger, err := logging.New(cfg.Environment, "league_manager", cfg.Agent.AgentID)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	startedAt := time.Now()

	st := store.New(cfg.Data.Dir)
	reg := registry.New(cfg.Agent.JWTSecret, cfg.League.LeagueID, cfg.League.MaxReferees, logger)
	hub := websocket.NewHub(logger)
	agg := aggregator.New(st, func(string) models.Scoring { return models.DefaultScoring() }, logger, websocket.StandingsBroadcaster{Hub: hub})
	rpc := rpcclient.New(logger)

	participants := models.Participants{Min: cfg.League.MinParticipants, Max: cfg.League.MaxParticipants}
	selfSender := "league_manager:" + cfg.Agent.AgentID
	mgr := leaguemanager.New(cfg.League.LeagueID, cfg.League.DefaultGameType, participants, models.DefaultScoring(),
		reg, st, agg, rpc, logger, selfSender, cfg.League.MaxConcurrentPerReferee)

	selfToken, err := reg.IssueSelf(cfg.Agent.AgentID)
	if err != nil {
		logger.Fatal("failed to mint league manager self-token", zap.Error(err))
	}
	mgr.SetAuthToken(selfToken)

	dispatcher := api.NewDispatcher(logger).WithAuthValidator(reg.Authenticate)
	api.RegisterLeagueManagerHandlers(dispatcher, mgr, reg, st, agg)

	srv := api.New(cfg, dispatcher, hub, "league_manager", logger, startedAt)

	go func() {
		logger.Info("starting league manager", zap.String("port", cfg.Server.Port), zap.String("league_id", cfg.League.LeagueID))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	gracefulShutdown(srv, agg, logger)
}

func gracefulShutdown(srv *api.Server, agg *aggregator.Aggregator, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down league manager")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agg.Shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("league manager exited")
}
