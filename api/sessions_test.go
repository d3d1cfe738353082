package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/commerce"
)

func TestCartSessions_SweepDropsIdleCarts(t *testing.T) {
	// GIVEN: Two carts, one touched recently
	// WHEN: Sweeping with a 30 minute TTL
	// THEN: Only the idle cart is dropped

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	cs := NewCartSessions()
	cs.now = func() time.Time { return now }

	idle := cs.Create()
	now = now.Add(20 * time.Minute)
	active := cs.Create()

	now = now.Add(15 * time.Minute)
	require.NoError(t, cs.With(active, func(*checkout.Cart) error { return nil }))

	assert.Equal(t, 1, cs.Sweep(30*time.Minute))
	assert.Equal(t, 1, cs.Len())
	assert.ErrorIs(t, cs.With(idle, func(*checkout.Cart) error { return nil }), commerce.ErrNotFound)
	assert.NoError(t, cs.With(active, func(*checkout.Cart) error { return nil }))
}

func TestCartSweeper_StartStop(t *testing.T) {
	cs := NewCartSessions()
	cs.Create()

	sweeper := NewCartSweeper(cs, zaptest.NewLogger(t))
	sweeper.CheckInterval = 5 * time.Millisecond
	sweeper.TTL = 0
	sweeper.Start()

	assert.Eventually(t, func() bool { return cs.Len() == 0 }, time.Second, 5*time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()
}
