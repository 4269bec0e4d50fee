package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterFiveConsecutiveFailures(t *testing.T) {
	b := New()
	now := time.Unix(0, 0)

	for i := 0; i < 4; i++ {
		require.True(t, b.Allow(now))
		b.RecordFailure(now)
		require.Equal(t, Closed, b.CurrentState())
	}

	require.True(t, b.Allow(now))
	b.RecordFailure(now)
	require.Equal(t, Open, b.CurrentState())
}

func TestBreaker_FailsFastWhileOpen(t *testing.T) {
	b := New()
	now := time.Unix(0, 0)
	tripBreaker(b, now)

	require.False(t, b.Allow(now.Add(30*time.Second)))
}

func TestBreaker_AdmitsOneProbeAfterOpenDurationElapses(t *testing.T) {
	b := New()
	now := time.Unix(0, 0)
	tripBreaker(b, now)

	probeAt := now.Add(61 * time.Second)
	require.True(t, b.Allow(probeAt))
	require.Equal(t, HalfOpen, b.CurrentState())

	// A second concurrent caller must not get a probe slot too.
	require.False(t, b.Allow(probeAt))
}

func TestBreaker_SuccessfulProbeCloses(t *testing.T) {
	b := New()
	now := time.Unix(0, 0)
	tripBreaker(b, now)

	probeAt := now.Add(61 * time.Second)
	require.True(t, b.Allow(probeAt))
	b.RecordSuccess()

	require.Equal(t, Closed, b.CurrentState())
	require.True(t, b.Allow(probeAt))
}

func TestBreaker_FailedProbeReopensImmediately(t *testing.T) {
	b := New()
	now := time.Unix(0, 0)
	tripBreaker(b, now)

	probeAt := now.Add(61 * time.Second)
	require.True(t, b.Allow(probeAt))
	b.RecordFailure(probeAt)

	require.Equal(t, Open, b.CurrentState())
	require.False(t, b.Allow(probeAt.Add(time.Second)))
}

func TestRegistry_SharesOneBreakerPerEndpoint(t *testing.T) {
	r := NewRegistry()

	a := r.For("http://endpoint-a")
	b := r.For("http://endpoint-a")
	c := r.For("http://endpoint-b")

	require.Same(t, a, b)
	require.NotSame(t, a, c)
}

func tripBreaker(b *Breaker, now time.Time) {
	for i := 0; i < failureThreshold; i++ {
		b.Allow(now)
		b.RecordFailure(now)
	}
}
