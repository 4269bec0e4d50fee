// cmd/referee/main.go
// Entry point for a referee agent: registers with the league manager,
// recovers any in-flight matches from a prior crash, then serves
// START_MATCH (spec.md §2, §4.3, §4.4, SPEC_FULL.md §3.3).

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
	"league-core/internal/gamerule"
	"league-core/internal/logging"
	"league-core/internal/matchconductor"
	"league-core/internal/registry"
	"league-core/internal/rpcclient"
	"league-core/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if err := cfg.RequireLMEndpoint(); err != nil {
		panic(err.Error())
	}

	logger, err := logging.New(cfg.Environment, "referee", cfg.Agent.AgentID)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	startedAt := time.Now()

	st := store.New(cfg.Data.Dir)
	rpc := rpcclient.New(logger)
	rules := gamerule.NewRegistry()
	selfSender := "referee:" + cfg.Agent.AgentID

	conductor := matchconductor.New(rpc, rules, st, logger, selfSender, cfg.Agent.LMEndpoint, cfg.League.MaxConcurrentMatches, gamerule.CryptoDraw)

	authToken, err := registerWithLeagueManager(rpc, cfg, logger)
	if err != nil {
		logger.Fatal("failed to register with league manager", zap.Error(err))
	}
	conductor.SetAuthToken(authToken)

	if err := conductor.Reconcile(context.Background()); err != nil {
		logger.Error("match reconciliation failed", zap.Error(err))
	}

	issuer := registry.NewTokenIssuer(cfg.Agent.JWTSecret)
	dispatcher := api.NewDispatcher(logger).WithAuthValidator(issuer.Authenticate)
	api.RegisterRefereeHandlers(dispatcher, conductor, logger)

	srv := api.New(cfg, dispatcher, nil, "referee", logger, startedAt)

	go func() {
		logger.Info("starting referee", zap.String("port", cfg.Server.Port), zap.String("agent_id", cfg.Agent.AgentID))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	gracefulShutdown(srv, logger)
}

// registerWithLeagueManager sends REGISTER_REFEREE to the league manager
// and returns the auth_token to stamp on every subsequent outbound call.
func registerWithLeagueManager(rpc *rpcclient.Client, cfg *config.Config, logger *zap.Logger) (string, error) {
	env := &envelope.Envelope{
		Protocol:       envelope.Protocol,
		MessageType:    envelope.MethodRegisterReferee,
		Sender:         "referee:" + cfg.Agent.AgentID,
		Timestamp:      envelope.NewTimestamp(time.Now()),
		ConversationID: cfg.Agent.AgentID + "-register",
	}
	params := map[string]interface{}{
		"agent_id":         cfg.Agent.AgentID,
		"contact_endpoint": cfg.Agent.ContactEndpoint,
	}
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodRegisterReferee)) * time.Second

	raw, rpcErr := rpc.Call(context.Background(), cfg.Agent.LMEndpoint, envelope.MethodRegisterReferee, env, params, deadline, false)
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

	logger.Info("shutting down referee")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("referee exited")
}
