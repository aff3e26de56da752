package admission

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/metrics"
	"github.com/leoska/gameapi/pkg/config"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func referenceConfig() config.AdmissionConfig {
	return config.AdmissionConfig{
		Enabled:     true,
		Window:      3000 * time.Millisecond,
		MaxAttempts: 100,
	}
}

func newTestController(t *testing.T, cfg config.AdmissionConfig) (*Controller, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewController(cfg, zap.NewNop(), WithClock(clock.Now)), clock
}

func TestController_FirstAttemptCreatesRecord(t *testing.T) {
	c, clock := newTestController(t, referenceConfig())

	assert.True(t, c.Admit("1.2.3.4"))

	rec, ok := c.Lookup("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, clock.Now(), rec.LastAttempt)
}

func TestController_BurstLimit(t *testing.T) {
	c, _ := newTestController(t, referenceConfig())

	for i := 0; i < 100; i++ {
		assert.True(t, c.Admit("1.2.3.4"), "attempt %d should be admitted", i+1)
	}
	assert.False(t, c.Admit("1.2.3.4"), "attempt 101 should be rejected")
}

func TestController_RapidConnections(t *testing.T) {
	c, clock := newTestController(t, referenceConfig())

	admitted, rejected := 0, 0
	for i := 0; i < 150; i++ {
		// 150 attempts spread over one second
		clock.Advance(6 * time.Millisecond)
		if c.Admit("1.2.3.4") {
			admitted++
		} else {
			rejected++
		}
	}

	assert.Equal(t, 100, admitted)
	assert.Equal(t, 50, rejected)
}

func TestController_ResetAfterGap(t *testing.T) {
	c, clock := newTestController(t, referenceConfig())

	for i := 0; i < 100; i++ {
		require.True(t, c.Admit("1.2.3.4"))
	}

	clock.Advance(3001 * time.Millisecond)
	assert.True(t, c.Admit("1.2.3.4"))

	rec, _ := c.Lookup("1.2.3.4")
	assert.Equal(t, 1, rec.Count)
}

func TestController_ExactWindowBoundaryStaysInBurst(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxAttempts = 1
	c, clock := newTestController(t, cfg)

	require.True(t, c.Admit("1.2.3.4"))

	clock.Advance(3000 * time.Millisecond)
	assert.False(t, c.Admit("1.2.3.4"), "a gap of exactly one window is not a reset")

	clock.Advance(3000*time.Millisecond + time.Nanosecond)
	assert.True(t, c.Admit("1.2.3.4"))
}

func TestController_RejectedAttemptsExtendBurst(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxAttempts = 2
	c, clock := newTestController(t, cfg)

	require.True(t, c.Admit("a"))
	require.True(t, c.Admit("a"))

	// keep hammering just inside the window: every attempt refreshes the
	// timestamp, so the address stays throttled
	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Second)
		assert.False(t, c.Admit("a"))
	}

	rec, _ := c.Lookup("a")
	assert.Equal(t, 7, rec.Count)
}

func TestController_AddressesAreIndependent(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxAttempts = 1
	c, _ := newTestController(t, cfg)

	assert.True(t, c.Admit("a"))
	assert.True(t, c.Admit("b"))
	assert.False(t, c.Admit("a"))
	assert.False(t, c.Admit("b"))
	assert.Equal(t, 2, c.Tracked())
}

func TestController_Disabled(t *testing.T) {
	cfg := referenceConfig()
	cfg.Enabled = false
	cfg.MaxAttempts = 1
	c, _ := newTestController(t, cfg)

	for i := 0; i < 10; i++ {
		assert.True(t, c.Admit("a"))
	}
	assert.Equal(t, 0, c.Tracked())
}

func TestController_Check(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxAttempts = 1
	c, _ := newTestController(t, cfg)

	assert.NoError(t, c.Check("a"))
	assert.ErrorIs(t, c.Check("a"), ErrRejected)
}

func TestController_Concurrent(t *testing.T) {
	c, _ := newTestController(t, referenceConfig())

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Admit("concurrent") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, admitted)
	rec, _ := c.Lookup("concurrent")
	assert.Equal(t, 200, rec.Count, "no increments may be lost")
}

func TestController_RecordsMetrics(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxAttempts = 1
	m := metrics.New()
	c := NewController(cfg, zap.NewNop(), WithMetrics(m))

	c.Admit("a")
	c.Admit("a")

	body := scrape(t, m)
	assert.Contains(t, body, `gameapi_admission_decisions_total{decision="admitted"} 1`)
	assert.Contains(t, body, `gameapi_admission_decisions_total{decision="rejected"} 1`)
	assert.Contains(t, body, `gameapi_admission_tracked_addresses 1`)
}
