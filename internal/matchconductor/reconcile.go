package matchconductor

import (
	"context"

	"go.uber.org/zap"

	"league-core/internal/models"
)

// Reconcile scans every persisted match transcript on referee startup and
// resolves whatever a prior crash left mid-flight (SPEC_FULL.md §3.3): a
// match stuck before DECIDED is marked FAILED (its outcome cannot be
// reconstructed safely), while a match that reached DECIDED or REPORTED
// but never got a FINISHED report is re-queued on the outbox.
func (c *Conductor) Reconcile(ctx context.Context) error {
	ids, err := c.store.ListMatchIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		transcript, found, err := c.store.LoadMatchTranscript(id)
		if err != nil || !found || transcript.Match == nil {
			continue
		}
		match := transcript.Match
		if match.State.Terminal() {
			continue
		}

		switch match.State {
		case models.MatchDecided, models.MatchReported:
			c.logger.Info("reconciling match: re-queuing unreported result",
				zap.String("match_id", match.MatchID), zap.String("state", string(match.State)))
			c.outbox.Enqueue(match)
		default:
			c.logger.Warn("reconciling match: marking failed, outcome unrecoverable",
				zap.String("match_id", match.MatchID), zap.String("state", string(match.State)))
			match.State = models.MatchFailed
			c.persist(match)
		}
	}
	return nil
}
