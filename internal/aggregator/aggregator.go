// Package aggregator implements the league manager's standings consumer:
// a bounded single-consumer queue that serializes every MATCH_RESULT_REPORT
// into the standings snapshot so concurrent reports from many referees can
// never race on the same player's points (spec.md §4.5).
package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"league-core/internal/envelope"
	"league-core/internal/models"
	"league-core/internal/store"
)

// queueCapacity bounds how many reports may be waiting for the consumer at
// once (spec.md §4.5, §5).
const queueCapacity = 100

// defaultDrainTimeout bounds how long Shutdown waits for the queue to empty.
const defaultDrainTimeout = 10 * time.Second

// Broadcaster is notified whenever a league's standings change, so the
// spectator feed and any interested agents can be pushed an update.
type Broadcaster interface {
	BroadcastStandings(leagueID string, snap *models.Standings)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastStandings(string, *models.Standings) {}

// Aggregator owns the single goroutine that mutates a league's standings.
type Aggregator struct {
	store       *store.Store
	scoringFor  func(leagueID string) models.Scoring
	logger      *zap.Logger
	broadcaster Broadcaster

	queue chan *models.Match
	stop  chan struct{}
	done  chan struct{}
}

// New creates an Aggregator and starts its consumer goroutine. scoringFor
// resolves the scoring configuration in effect for a league at apply time
// (leagues may be created with non-default scoring).
func New(st *store.Store, scoringFor func(leagueID string) models.Scoring, logger *zap.Logger, broadcaster Broadcaster) *Aggregator {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	a := &Aggregator{
		store:       st,
		scoringFor:  scoringFor,
		logger:      logger,
		broadcaster: broadcaster,
		queue:       make(chan *models.Match, queueCapacity),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go a.consume()
	return a
}

// Submit enqueues a finished match's result and returns immediately with an
// ACK, matching spec.md §4.5's "enqueue, ACK 'queued', process asynchronously"
// contract. A full queue is rejected with E009 so the caller (and, via the
// RPC client's retryable-code set, the referee) retries later.
func (a *Aggregator) Submit(match *models.Match) *envelope.Error {
	select {
	case a.queue <- match:
		return nil
	default:
		return envelope.NewError(envelope.ErrQueueFull, "standings queue is full")
	}
}

// QueueDepth reports how many reports are currently waiting for the
// consumer, exposed for the operator query surface and tests.
func (a *Aggregator) QueueDepth() int {
	return len(a.queue)
}

func (a *Aggregator) consume() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			a.drain()
			return
		case match := <-a.queue:
			a.apply(match)
		}
	}
}

// drain processes whatever is left in the queue once, for a bounded window,
// before the consumer goroutine exits.
func (a *Aggregator) drain() {
	for {
		select {
		case match := <-a.queue:
			a.apply(match)
		default:
			return
		}
	}
}

// apply is the single place that mutates a league's standings: re-check
// processed_match_ids (a report may have been retried and delivered twice),
// apply the scoring delta, persist atomically, then broadcast (spec.md §4.5,
// §8 property 4: "every finished match contributes to standings exactly
// once").
func (a *Aggregator) apply(match *models.Match) {
	snap, err := a.store.LoadStandings(match.LeagueID)
	if err != nil {
		a.logger.Error("failed to load standings", zap.String("league_id", match.LeagueID), zap.Error(err))
		return
	}

	if snap.Processed(match.MatchID) {
		a.logger.Info("duplicate match result report, ignoring",
			zap.String("match_id", match.MatchID), zap.String("league_id", match.LeagueID))
		return
	}

	scoring := a.scoringFor(match.LeagueID)
	snap.ApplyResult(match, scoring)

	if err := a.store.SaveStandings(snap); err != nil {
		a.logger.Error("failed to persist standings", zap.String("league_id", match.LeagueID), zap.Error(err))
		return
	}

	a.broadcaster.BroadcastStandings(match.LeagueID, snap)
}

// Shutdown stops accepting new work being read from the queue by the
// background loop and waits up to defaultDrainTimeout for it to finish
// processing whatever was already enqueued.
func (a *Aggregator) Shutdown(ctx context.Context) {
	close(a.stop)
	select {
	case <-a.done:
	case <-ctx.Done():
	case <-time.After(defaultDrainTimeout):
	}
}
