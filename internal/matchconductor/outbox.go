package matchconductor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"league-core/internal/models"
)

// outboxRetryInterval is how often the outbox sweeps pending reports,
// grounded on the reconnect-loop cadence of the teacher pack's connection
// manager example (other_examples' arkeep agent).
const outboxRetryInterval = 5 * time.Second

// Outbox holds matches whose MATCH_RESULT_REPORT could not reach the league
// manager and periodically retries them, so a transient LM outage never
// loses a completed match's result (spec.md §4.4, SPEC_FULL.md §3.3).
type Outbox struct {
	mu      sync.Mutex
	pending map[string]*models.Match
	report  func(ctx context.Context, match *models.Match) error
	logger  *zap.Logger
	stop    chan struct{}
	done    chan struct{}
}

// NewOutbox creates an Outbox and starts its background resend loop.
func NewOutbox(report func(ctx context.Context, match *models.Match) error, logger *zap.Logger) *Outbox {
	o := &Outbox{
		pending: make(map[string]*models.Match),
		report:  report,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// Enqueue adds match to the pending set, replacing any earlier entry for
// the same match_id.
func (o *Outbox) Enqueue(match *models.Match) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[match.MatchID] = match
}

// Pending returns the number of matches still awaiting a successful report.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *Outbox) run() {
	defer close(o.done)
	ticker := time.NewTicker(outboxRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.sweep()
		}
	}
}

func (o *Outbox) sweep() {
	o.mu.Lock()
	batch := make([]*models.Match, 0, len(o.pending))
	for _, m := range o.pending {
		batch = append(batch, m)
	}
	o.mu.Unlock()

	for _, m := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := o.report(ctx, m)
		cancel()
		if err != nil {
			o.logger.Warn("outbox resend still failing",
				zap.String("match_id", m.MatchID), zap.Error(err))
			continue
		}
		m.State = models.MatchFinished
		o.mu.Lock()
		delete(o.pending, m.MatchID)
		o.mu.Unlock()
		o.logger.Info("outbox resend succeeded", zap.String("match_id", m.MatchID))
	}
}

// Shutdown stops the resend loop. Any still-pending matches are left for
// the referee's startup reconciliation pass to pick back up on restart.
func (o *Outbox) Shutdown() {
	close(o.stop)
	<-o.done
}
