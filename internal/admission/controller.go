// Package admission throttles inbound connections per source address.
//
// Each address keeps a fixed-window record: the attempt counter resets when
// the gap since the previous attempt exceeds the window, otherwise it grows,
// and an address whose counter passes MaxAttempts is rejected until it backs
// off for longer than the window.
//
// Records are never evicted. An address that stops connecting keeps its
// entry until the process exits, so memory grows with the number of distinct
// addresses seen.
package admission

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/metrics"
	"github.com/leoska/gameapi/pkg/config"
)

// ErrRejected is reported when an address exceeds its attempt budget.
var ErrRejected = errors.New("admission rejected: too many connection attempts")

// Record tracks recent connection attempts from one address.
type Record struct {
	Address     string
	Count       int
	LastAttempt time.Time
}

// Controller decides whether a new connection is served.
type Controller struct {
	config  config.AdmissionConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	records map[string]*Record
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics records every decision in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a new admission controller
func NewController(cfg config.AdmissionConfig, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		config:  cfg,
		logger:  logger.Named("admission"),
		now:     time.Now,
		records: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Admit registers a connection attempt from addr and reports whether it may
// be served. Attempts from the same address are applied in call order.
func (c *Controller) Admit(addr string) bool {
	if !c.config.Enabled {
		return true
	}

	c.mu.Lock()
	admitted, count := c.attemptLocked(addr, c.now())
	tracked := len(c.records)
	c.mu.Unlock()

	c.metrics.RecordAdmission(admitted, tracked)
	if !admitted {
		c.logger.Warn("Connection rejected",
			zap.String("address", addr),
			zap.Int("attempts", count),
			zap.Duration("window", c.config.Window),
		)
	}
	return admitted
}

// Check is Admit reporting ErrRejected instead of false.
func (c *Controller) Check(addr string) error {
	if !c.Admit(addr) {
		return ErrRejected
	}
	return nil
}

func (c *Controller) attemptLocked(addr string, now time.Time) (bool, int) {
	rec, exists := c.records[addr]
	if !exists {
		c.records[addr] = &Record{Address: addr, Count: 1, LastAttempt: now}
		return true, 1
	}

	// Strictly greater: an attempt exactly one window later is still part of
	// the burst.
	if now.Sub(rec.LastAttempt) > c.config.Window {
		rec.Count = 1
		rec.LastAttempt = now
		return true, 1
	}

	rec.Count++
	rec.LastAttempt = now
	return rec.Count <= c.config.MaxAttempts, rec.Count
}

// Lookup returns a copy of the record for addr.
func (c *Controller) Lookup(addr string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[addr]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Tracked returns the number of addresses with a record.
func (c *Controller) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
