package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/logging"
)

func TestRateRefreshScheduler_RunNow(t *testing.T) {
	// GIVEN: A scheduler over one known and one unknown product
	env := newTestEnv(t)
	s := NewRateRefreshScheduler(env.handler.RateCache, []string{"FD001", "FD404"}, logging.Discard())
	s.Categories = env.handler.Categories

	// WHEN: A pass runs
	summary := s.RunNow(context.Background())

	// THEN: Both products refresh (FD404 caches zero) and both are synced
	assert.Equal(t, RunSummary{Refreshed: 2, Synced: 2}, summary)

	entry, err := env.store.GetEntry(context.Background(), "FD001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "7.6", entry.BaseRate.String())

	stored, err := env.store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 7)
}

func TestRateRefreshScheduler_StartStop(t *testing.T) {
	env := newTestEnv(t)
	s := NewRateRefreshScheduler(env.handler.RateCache, []string{"FD001"}, logging.Discard())
	s.CheckInterval = time.Hour

	s.Start()
	s.Start() // second start is a no-op
	s.Stop()
	s.Stop()

	// The initial pass ran before Stop returned.
	entry, err := env.store.GetEntry(context.Background(), "FD001")
	require.NoError(t, err)
	assert.NotNil(t, entry)

	// Restart after stop.
	s.Start()
	s.Stop()
}

func TestRateRefreshScheduler_Disabled(t *testing.T) {
	env := newTestEnv(t)
	s := NewRateRefreshScheduler(env.handler.RateCache, []string{"FD001"}, logging.Discard())
	s.Enabled = false

	s.Start()
	s.Stop()

	entry, err := env.store.GetEntry(context.Background(), "FD001")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
