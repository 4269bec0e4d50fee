// cmd/player/main.go
// Entry point for a player agent: registers with the league manager, then
// answers GAME_INVITATION/CHOOSE_PARITY_CALL/GAME_OVER via a pluggable
// strategy (spec.md §2, §4.4).

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"league-core/internal/api"
	"league-core/internal/config"
	"league-core/internal/envelope"
	"league-core/internal/logging"
	"league-core/internal/playerstrategy"
	"league-core/internal/registry"
	"league-core/internal/rpcclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if err := cfg.RequireLMEndpoint(); err != nil {
		panic(err.Error())
	}

	logger, err := logging.New(cfg.Environment, "player", cfg.Agent.AgentID)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	startedAt := time.Now()

	rpc := rpcclient.New(logger)

	if _, err := registerWithLeagueManager(rpc, cfg, logger); err != nil {
		logger.Fatal("failed to register with league manager", zap.Error(err))
	}

	issuer := registry.NewTokenIssuer(cfg.Agent.JWTSecret)
	dispatcher := api.NewDispatcher(logger).WithAuthValidator(issuer.Authenticate)
	api.RegisterPlayerHandlers(dispatcher, playerstrategy.Random, logger)

	srv := api.New(cfg, dispatcher, nil, "player", logger, startedAt)

	go func() {
		logger.Info("starting player", zap.String("port", cfg.Server.Port), zap.String("agent_id", cfg.Agent.AgentID))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	gracefulShutdown(srv, logger)
}

func registerWithLeagueManager(rpc *rpcclient.Client, cfg *config.Config, logger *zap.Logger) (string, error) {
	env := &envelope.Envelope{
		Protocol:       envelope.Protocol,
		MessageType:    envelope.MethodRegisterPlayer,
		Sender:         "player:" + cfg.Agent.AgentID,
		Timestamp:      envelope.NewTimestamp(time.Now()),
		ConversationID: cfg.Agent.AgentID + "-register",
	}
	params := map[string]interface{}{
		"agent_id":         cfg.Agent.AgentID,
		"contact_endpoint": cfg.Agent.ContactEndpoint,
	}
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodRegisterPlayer)) * time.Second

	raw, rpcErr := rpc.Call(context.Background(), cfg.Agent.LMEndpoint, envelope.MethodRegisterPlayer, env, params, deadline, false)
	if rpcErr != nil {
		return "", rpcErr
	}

	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	logger.Info("registered with league manager", zap.String("league_id", cfg.League.LeagueID))
	return resp.AuthToken, nil
}

func gracefulShutdown(srv *api.Server, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down player")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("player exited")
}
