// Package leaguemanager implements the league manager's core business
// logic: agent registration gating, round dispatch, and the league
// lifecycle (PENDING -> ACTIVE -> COMPLETED) that drives the scheduler and
// standings aggregator (spec.md §2, §4.3, §4.5).
package leaguemanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"league-core/internal/aggregator"
	"league-core/internal/envelope"
	"league-core/internal/models"
	"league-core/internal/registry"
	"league-core/internal/rpcclient"
	"league-core/internal/scheduler"
	"league-core/internal/store"
)

// Manager owns one league's lifecycle for the lifetime of this process.
// All mutations go through mu.
type Manager struct {
	mu sync.Mutex

	league   *models.League
	schedule *models.RoundSchedule

	refereeEndpoints map[string]string
	playerEndpoints  map[string]string

	maxConcurrentPerReferee int

	registry *registry.Registry
	store    *store.Store
	agg      *aggregator.Aggregator
	rpc      *rpcclient.Client
	logger   *zap.Logger

	selfSender string
	authToken  string
}

// New creates a Manager for a freshly PENDING league.
func New(leagueID, gameType string, participants models.Participants, scoring models.Scoring,
	reg *registry.Registry, st *store.Store, agg *aggregator.Aggregator, rpc *rpcclient.Client,
	logger *zap.Logger, selfSender string, maxConcurrentPerReferee int) *Manager {
	return &Manager{
		league: &models.League{
			LeagueID:     leagueID,
			GameType:     gameType,
			Status:       models.LeaguePending,
			Scoring:      scoring,
			Participants: participants,
		},
		refereeEndpoints:        make(map[string]string),
		playerEndpoints:         make(map[string]string),
		maxConcurrentPerReferee: maxConcurrentPerReferee,
		registry:                reg,
		store:                   st,
		agg:                     agg,
		rpc:                     rpc,
		logger:                  logger,
		selfSender:              selfSender,
	}
}

// SetAuthToken sets the token the manager stamps on its own outbound calls
// (START_MATCH), minted by Registry.IssueSelf at startup.
func (m *Manager) SetAuthToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authToken = token
}

// RegisterReferee admits a referee into the registry and this league.
func (m *Manager) RegisterReferee(agentID, endpoint string) (*registry.RegisterResult, *envelope.Error) {
	result, rpcErr := m.registry.RegisterReferee(agentID, endpoint)
	if rpcErr != nil {
		return nil, rpcErr
	}

	m.mu.Lock()
	m.refereeEndpoints[agentID] = endpoint
	m.league.AssignedReferees = appendUnique(m.league.AssignedReferees, agentID)
	ready := m.league.Status == models.LeaguePending && len(m.league.RegisteredPlayers) >= m.league.Participants.Min && len(m.league.AssignedReferees) > 0
	m.mu.Unlock()

	if ready {
		go m.Start(context.Background())
	}

	return result, nil
}

// RegisterPlayer admits a player into the registry and this league,
// rejecting a new player once the league is full (E015). A known player
// re-registering while the league is ACTIVE or COMPLETED is rejected by the
// registry with E005; a new player_id is still admitted then.
func (m *Manager) RegisterPlayer(agentID, endpoint string) (*registry.RegisterResult, *envelope.Error) {
	m.mu.Lock()
	active := m.league.Status == models.LeagueActive || m.league.Status == models.LeagueCompleted
	full := m.league.Participants.Max > 0 && len(m.league.RegisteredPlayers) >= m.league.Participants.Max && !m.league.HasPlayer(agentID)
	m.mu.Unlock()

	if full {
		return nil, envelope.NewError(envelope.ErrResourceExhausted, "league has reached its maximum participants")
	}

	result, rpcErr := m.registry.RegisterPlayer(agentID, endpoint, active)
	if rpcErr != nil {
		return nil, rpcErr
	}

	m.mu.Lock()
	m.playerEndpoints[agentID] = endpoint
	m.league.RegisteredPlayers = appendUnique(m.league.RegisteredPlayers, agentID)
	ready := m.league.Status == models.LeaguePending && len(m.league.RegisteredPlayers) >= m.league.Participants.Min && len(m.league.AssignedReferees) > 0
	m.mu.Unlock()

	if ready {
		go m.Start(context.Background())
	}

	return result, nil
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// Start builds the round-robin schedule and dispatches round 1. It is
// idempotent: a league already ACTIVE or COMPLETED is left untouched.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.league.Status != models.LeaguePending {
		m.mu.Unlock()
		return nil
	}
	players := append([]string(nil), m.league.RegisteredPlayers...)
	referees := append([]string(nil), m.league.AssignedReferees...)
	leagueID := m.league.LeagueID
	m.mu.Unlock()

	sched, err := scheduler.BuildSchedule(leagueID, players, referees, m.maxConcurrentPerReferee)
	if err != nil {
		return fmt.Errorf("failed to build schedule: %w", err)
	}

	if err := m.store.SaveRounds(sched); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}

	m.mu.Lock()
	m.schedule = sched
	m.league.Status = models.LeagueActive
	m.league.CurrentRound = 1
	m.mu.Unlock()

	m.logger.Info("league started", zap.String("league_id", leagueID), zap.Int("rounds", len(sched.Rounds)))
	return m.dispatchRound(ctx, 1)
}

// dispatchRound sends START_MATCH to the assigned referee for every match
// in roundID, in the sub-batch order given by scheduler.Batches (spec.md
// §4.3). Batches are sent back to back: a batch is not held until the
// previous batch's matches finish, so the cap bounds each batch, not a
// referee's running load.
func (m *Manager) dispatchRound(ctx context.Context, roundID int) error {
	m.mu.Lock()
	var round *models.Round
	for _, r := range m.schedule.Rounds {
		if r.RoundID == roundID {
			round = r
			break
		}
	}
	gameType := m.league.GameType
	leagueID := m.league.LeagueID
	authToken := m.authToken
	m.mu.Unlock()

	if round == nil {
		return m.complete(ctx)
	}

	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodStartMatch)) * time.Second
	for _, batch := range scheduler.Batches(round, m.maxConcurrentPerReferee) {
		for _, ref := range batch {
			endpoint := m.refereeEndpoint(ref.RefereeID)
			if endpoint == "" {
				m.logger.Error("no endpoint known for referee", zap.String("referee_id", ref.RefereeID))
				continue
			}

			env := &envelope.Envelope{
				Protocol:       envelope.Protocol,
				MessageType:    envelope.MethodStartMatch,
				Sender:         m.selfSender,
				Timestamp:      envelope.NewTimestamp(time.Now()),
				ConversationID: ref.MatchID,
				AuthToken:      authToken,
			}
			params := map[string]interface{}{
				"match_id":  ref.MatchID,
				"league_id": leagueID,
				"round_id":  roundID,
				"game_type": gameType,
				"players":   ref.Players,
				"player_endpoints": map[string]string{
					ref.Players[0]: m.playerEndpoint(ref.Players[0]),
					ref.Players[1]: m.playerEndpoint(ref.Players[1]),
				},
			}
			if _, rpcErr := m.rpc.Call(ctx, endpoint, envelope.MethodStartMatch, env, params, deadline, false); rpcErr != nil {
				m.logger.Error("failed to start match",
					zap.String("match_id", ref.MatchID), zap.String("referee_id", ref.RefereeID), zap.String("error_code", string(rpcErr.LeagueCode)))
			}
		}
	}
	return nil
}

func (m *Manager) refereeEndpoint(agentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refereeEndpoints[agentID]
}

func (m *Manager) playerEndpoint(agentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerEndpoints[agentID]
}

// ReportMatchResult is called by the MATCH_RESULT_REPORT handler: it
// enqueues the result on the standings aggregator and, once every match in
// the current round has finished, advances to the next round or completes
// the league.
func (m *Manager) ReportMatchResult(ctx context.Context, match *models.Match) *envelope.Error {
	if rpcErr := m.agg.Submit(match); rpcErr != nil {
		return rpcErr
	}

	// The referee persists the authoritative transcript to its own data
	// dir; the LM needs its own copy so matchStatus (and thus round/league
	// advancement) doesn't depend on the two processes sharing storage.
	if err := m.store.SaveMatchTranscript(&models.MatchTranscript{Match: match}); err != nil {
		m.logger.Error("failed to persist reported match transcript", zap.Error(err))
	}

	roundID := match.RoundID

	m.mu.Lock()
	var round *models.Round
	if m.schedule != nil {
		for _, r := range m.schedule.Rounds {
			if r.RoundID == roundID {
				round = r
			}
		}
	}
	var next int
	var schedule *models.RoundSchedule
	advance := false
	if round != nil {
		for _, ref := range round.Matches {
			ref.Status = m.matchStatus(ref.MatchID)
		}
		if round.AllComplete() {
			round.Status = models.RoundCompleted
			next = roundID + 1
			m.league.CurrentRound = next
			schedule = m.schedule
			advance = true
		}
	}
	m.mu.Unlock()

	if !advance {
		return nil
	}

	if err := m.store.SaveRounds(schedule); err != nil {
		m.logger.Error("failed to persist round completion", zap.Error(err))
	}

	go func() {
		if err := m.dispatchRound(context.Background(), next); err != nil {
			m.logger.Error("failed to dispatch next round", zap.Error(err))
		}
	}()
	return nil
}

func (m *Manager) matchStatus(matchID string) models.MatchStatus {
	transcript, found, err := m.store.LoadMatchTranscript(matchID)
	if err != nil || !found || transcript.Match == nil {
		return models.MatchScheduled
	}
	return transcript.Match.State
}

// complete marks the league COMPLETED once every round has run.
func (m *Manager) complete(ctx context.Context) error {
	m.mu.Lock()
	m.league.Status = models.LeagueCompleted
	leagueID := m.league.LeagueID
	m.mu.Unlock()

	m.logger.Info("league completed", zap.String("league_id", leagueID))
	return nil
}

// Snapshot returns a copy of the league's current lifecycle state, safe to
// serve from a query handler.
func (m *Manager) Snapshot() models.League {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.league
}
