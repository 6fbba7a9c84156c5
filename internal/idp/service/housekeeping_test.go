package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hk := NewHousekeepingService(f.sessions, f.txns, f.challenges, f.metrics, slogx.Discard(), 0)
	hk.Now = f.clock.Now
	require.Equal(t, DefaultHousekeepingInterval, hk.Interval)

	idle := f.newSession(t)
	pending := f.txns.Create(idle.ID, testParams("c"), true)
	_, err := f.challenges.Generate(idle.ID, domain.ChallengeRegistration, "", "")
	require.NoError(t, err)

	hk.Sweep()
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveSessions))
	require.Zero(t, testutil.ToFloat64(f.metrics.HousekeepingRemoved.WithLabelValues("session")))

	f.clock.Advance(DefaultSessionTimeout)
	hk.Sweep()

	require.Zero(t, f.sessions.Len())
	_, err = f.txns.Get(idle.ID, pending.ID)
	require.ErrorIs(t, err, ErrTransactionNotFound)
	require.Zero(t, f.challenges.Sweep(f.clock.Now().Add(time.Hour)))

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HousekeepingRemoved.WithLabelValues("session")))
	require.Zero(t, testutil.ToFloat64(f.metrics.ActiveSessions))
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hk := NewHousekeepingService(f.sessions, f.txns, f.challenges, nil, slogx.Discard(), 10*time.Millisecond)
	hk.Now = f.clock.Now

	f.newSession(t)
	f.clock.Advance(DefaultSessionTimeout)

	hk.Start()
	require.Eventually(t, func() bool { return f.sessions.Len() == 0 }, time.Second, 10*time.Millisecond)
	hk.Stop()
}
