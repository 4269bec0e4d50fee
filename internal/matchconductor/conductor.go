// Package matchconductor drives one match through its six-step state
// machine inside the referee process (spec.md §4.4): invite both players,
// collect their parity choices, resolve the outcome via the pluggable game
// rule, notify both players, and report the result to the league manager.
package matchconductor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/gamerule"
	"league-core/internal/models"
	"league-core/internal/store"
)

// Caller is the subset of rpcclient.Client the conductor needs, narrowed so
// tests can substitute a fake without standing up real HTTP.
type Caller interface {
	Call(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration, noRetry bool) (json.RawMessage, *envelope.Error)
	Notify(ctx context.Context, endpoint, method string, env *envelope.Envelope, params interface{}, deadline time.Duration) *envelope.Error
}

// PlayerEndpoint is what the conductor needs to reach one player.
type PlayerEndpoint struct {
	AgentID  string
	Endpoint string
}

// Conductor runs matches one at a time per concurrency slot, bounded by
// maxConcurrentMatches (spec.md §5's default of 50).
type Conductor struct {
	rpc        Caller
	rules      *gamerule.Registry
	store      *store.Store
	logger     *zap.Logger
	selfSender string // "referee:<agent_id>"
	lmEndpoint string
	draw       gamerule.DrawFunc
	sem        chan struct{}
	now        func() time.Time

	mu        sync.RWMutex
	authToken string

	outbox *Outbox
}

// SetAuthToken updates the token the conductor stamps on outgoing
// envelopes, called whenever the referee's registration token is
// (re)issued.
func (c *Conductor) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

func (c *Conductor) currentAuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// New builds a Conductor. draw is normally gamerule.CryptoDraw; tests pass a
// fixed draw.
func New(rpc Caller, rules *gamerule.Registry, st *store.Store, logger *zap.Logger, selfSender, lmEndpoint string, maxConcurrentMatches int, draw gamerule.DrawFunc) *Conductor {
	if maxConcurrentMatches <= 0 {
		maxConcurrentMatches = 50
	}
	c := &Conductor{
		rpc:        rpc,
		rules:      rules,
		store:      st,
		logger:     logger,
		selfSender: selfSender,
		lmEndpoint: lmEndpoint,
		draw:       draw,
		sem:        make(chan struct{}, maxConcurrentMatches),
		now:        time.Now,
	}
	c.outbox = NewOutbox(c.reportOnce, logger)
	return c
}

// joinResult is the outcome of inviting one player to join a match.
type joinResult struct {
	agentID string
	joined  bool
	errCode envelope.Code
}

// Conduct runs match through every step of its state machine and returns
// its final, terminal form. The match transcript is persisted after every
// state transition so a crash mid-match leaves a resumable record (spec.md
// §4.6, SPEC_FULL.md §3.3).
func (c *Conductor) Conduct(ctx context.Context, match *models.Match, gameType string, players [2]PlayerEndpoint) *models.Match {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	if match.ConversationID == "" {
		match.ConversationID = uuid.NewString()
	}
	match.Choices = map[string]string{}
	match.Statuses = map[string]models.PlayerStatus{}
	match.ErrorCodes = map[string]string{}
	match.CreatedAt = c.now()

	c.transition(match, models.MatchInvited)

	joins := c.inviteBoth(ctx, match, players)

	c.transition(match, models.MatchJoined)

	survivors := c.applyJoinResults(match, joins)

	switch len(survivors) {
	case 2:
		c.transition(match, models.MatchChoosing)
		c.chooseBoth(ctx, match, players, survivors)
		c.transition(match, models.MatchDecided)
		c.decide(match, gameType)
	case 1:
		// spec.md §4.4 step 2: one player failed to join, so the survivor
		// is awarded WIN by forfeit and steps 3-4 never run. The rule's
		// forfeit branch only fires when exactly one side's choice is
		// ParityNone, so give the survivor a placeholder valid choice
		// rather than leave it unset (which would read as both sides
		// forfeiting and fall through to a draw).
		match.Choices[survivors[0]] = string(models.ParityEven)
		c.transition(match, models.MatchDecided)
		c.decide(match, gameType)
	default:
		// Neither player joined: both already carry TECHNICAL_LOSS from
		// applyJoinResults, and there is no decision to make.
		c.transition(match, models.MatchFailed)
	}

	c.notifyPlayers(ctx, match, players)

	if match.State != models.MatchFailed {
		c.transition(match, models.MatchReported)
	}

	if err := c.reportOnce(ctx, match); err != nil {
		c.logger.Warn("match result report failed, queued for resend",
			zap.String("match_id", match.MatchID),
			zap.Error(err),
		)
		c.outbox.Enqueue(match)
	} else if match.State != models.MatchFailed {
		c.transition(match, models.MatchFinished)
	}

	c.persist(match)
	return match
}

func (c *Conductor) transition(match *models.Match, to models.MatchStatus) {
	match.State = to
	match.UpdatedAt = c.now()
	c.persist(match)
}

func (c *Conductor) persist(match *models.Match) {
	if err := c.store.SaveMatchTranscript(&models.MatchTranscript{Match: match}); err != nil {
		c.logger.Error("failed to persist match transcript",
			zap.String("match_id", match.MatchID), zap.Error(err))
	}
}

// inviteBoth sends GAME_INVITATION to both players concurrently, each
// bounded by the GAME_JOIN_ACK deadline (spec.md §4.1's method deadline
// table); a player that fails to ack in time is TECHNICAL_LOSS.
func (c *Conductor) inviteBoth(ctx context.Context, match *models.Match, players [2]PlayerEndpoint) []joinResult {
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodGameJoinAck)) * time.Second

	results := make([]joinResult, 2)
	var wg sync.WaitGroup
	for i, p := range players {
		wg.Add(1)
		go func(i int, p PlayerEndpoint) {
			defer wg.Done()
			env := c.envelopeFor(envelope.MethodGameInvitation, match.ConversationID, c.currentAuthToken())
			params := map[string]interface{}{
				"match_id":  match.MatchID,
				"league_id": match.LeagueID,
				"opponent":  match.Opponent(p.AgentID),
			}
			_, rpcErr := c.rpc.Call(ctx, p.Endpoint, envelope.MethodGameInvitation, env, params, deadline, false)
			if rpcErr != nil {
				results[i] = joinResult{agentID: p.AgentID, joined: false, errCode: rpcErr.LeagueCode}
				return
			}
			results[i] = joinResult{agentID: p.AgentID, joined: true}
		}(i, p)
	}
	wg.Wait()
	return results
}

// applyJoinResults records TECHNICAL_LOSS for any player who failed to join
// and returns the agent_ids of the players still in contention.
func (c *Conductor) applyJoinResults(match *models.Match, joins []joinResult) []string {
	var survivors []string
	for _, j := range joins {
		if j.joined {
			survivors = append(survivors, j.agentID)
			continue
		}
		match.Statuses[j.agentID] = models.StatusTechnicalLoss
		match.Choices[j.agentID] = string(models.ParityNone)
		match.ErrorCodes[j.agentID] = string(j.errCode)
	}
	return survivors
}

// chooseBoth sends CHOOSE_PARITY_CALL to every surviving player concurrently,
// bounded by its 30s deadline; a non-responder is TECHNICAL_LOSS at this
// step instead of an earlier one (spec.md §4.4 step 3-4).
func (c *Conductor) chooseBoth(ctx context.Context, match *models.Match, players [2]PlayerEndpoint, survivors []string) {
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodChooseParityCall)) * time.Second

	endpointFor := func(agentID string) string {
		for _, p := range players {
			if p.AgentID == agentID {
				return p.Endpoint
			}
		}
		return ""
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, agentID := range survivors {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			env := c.envelopeFor(envelope.MethodChooseParityCall, match.ConversationID, c.currentAuthToken())
			params := map[string]interface{}{"match_id": match.MatchID}
			raw, rpcErr := c.rpc.Call(ctx, endpointFor(agentID), envelope.MethodChooseParityCall, env, params, deadline, true)

			mu.Lock()
			defer mu.Unlock()
			if rpcErr != nil {
				match.Statuses[agentID] = models.StatusTechnicalLoss
				match.Choices[agentID] = string(models.ParityNone)
				match.ErrorCodes[agentID] = string(rpcErr.LeagueCode)
				return
			}

			var resp struct {
				Choice string `json:"choice"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil || !models.ValidParity(resp.Choice) {
				match.Statuses[agentID] = models.StatusTechnicalLoss
				match.Choices[agentID] = string(models.ParityNone)
				match.ErrorCodes[agentID] = string(envelope.ErrValidation)
				return
			}
			match.Choices[agentID] = resp.Choice
		}(agentID)
	}
	wg.Wait()
}

// decide resolves the match outcome via the registered game rule. If either
// player already carries a TECHNICAL_LOSS status, the rule sees that side's
// choice as ParityNone and awards the match to the other side with no draw
// possible (spec.md §4.4 step 5, §8 property 5).
func (c *Conductor) decide(match *models.Match, gameType string) {
	rule := c.rules.For(gameType)
	if rule == nil {
		match.State = models.MatchFailed
		match.ErrorCodes["_rule"] = string(envelope.ErrNotFound)
		return
	}

	a, b := match.PlayerAID, match.PlayerBID
	choiceA := match.Choices[a]
	choiceB := match.Choices[b]

	out, err := rule.DetermineOutcome(a, choiceA, b, choiceB, c.draw)
	if err != nil {
		match.State = models.MatchFailed
		match.ErrorCodes["_rule"] = string(envelope.ErrUnavailable)
		return
	}

	match.DrawnNumber = out.DrawnNumber
	match.Outcome = out.Winner
	for player, status := range out.Statuses {
		match.Statuses[player] = status
	}
}

// notifyPlayers broadcasts GAME_OVER to both players, best-effort (spec.md
// §4.4 step 6; a dropped GAME_OVER does not block the match from finishing).
func (c *Conductor) notifyPlayers(ctx context.Context, match *models.Match, players [2]PlayerEndpoint) {
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodGameOver)) * time.Second
	for _, p := range players {
		env := c.envelopeFor(envelope.MethodGameOver, match.ConversationID, c.currentAuthToken())
		params := map[string]interface{}{
			"match_id":     match.MatchID,
			"outcome":      match.Outcome,
			"your_status":  match.Statuses[p.AgentID],
			"drawn_number": match.DrawnNumber,
		}
		if rpcErr := c.rpc.Notify(ctx, p.Endpoint, envelope.MethodGameOver, env, params, deadline); rpcErr != nil {
			c.logger.Info("GAME_OVER delivery failed",
				zap.String("match_id", match.MatchID),
				zap.String("player", p.AgentID),
			)
		}
	}
}

// reportOnce sends MATCH_RESULT_REPORT to the league manager with the full
// retry and breaker policy baked into the Caller; failure here is handled
// by the outbox, not by this function.
func (c *Conductor) reportOnce(ctx context.Context, match *models.Match) error {
	deadline := time.Duration(envelope.MethodDeadline(envelope.MethodMatchResultReport)) * time.Second
	env := c.envelopeFor(envelope.MethodMatchResultReport, match.ConversationID, c.currentAuthToken())
	params := map[string]interface{}{"match": match}
	_, rpcErr := c.rpc.Call(ctx, c.lmEndpoint, envelope.MethodMatchResultReport, env, params, deadline, false)
	if rpcErr != nil {
		return fmt.Errorf("%s: %s", rpcErr.LeagueCode, rpcErr.Message)
	}
	return nil
}

func (c *Conductor) envelopeFor(method, conversationID, authToken string) *envelope.Envelope {
	return &envelope.Envelope{
		Protocol:       envelope.Protocol,
		MessageType:    method,
		Sender:         c.selfSender,
		Timestamp:      envelope.NewTimestamp(c.now()),
		ConversationID: conversationID,
		AuthToken:      authToken,
	}
}
