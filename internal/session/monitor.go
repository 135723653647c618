package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultMonitorSchedule is the period of the session monitor job
const DefaultMonitorSchedule = "@every 60s"

// Checker is the part of the Store the monitor drives
type Checker interface {
	CheckSessionExpiration()
	RefreshSessionIfNeeded(ctx context.Context)
}

// Monitor periodically asks a Checker to track expiration and refresh the
// session before it lapses.
type Monitor struct {
	checker  Checker
	schedule string
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	started bool
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithSchedule overrides the cron schedule (e.g. "@every 5s")
func WithSchedule(spec string) MonitorOption {
	return func(m *Monitor) {
		m.schedule = spec
	}
}

// WithMonitorLogger sets the logger
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = l
	}
}

// NewMonitor creates a stopped monitor for checker
func NewMonitor(checker Checker, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		checker:  checker,
		schedule: DefaultMonitorSchedule,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs one check immediately and then schedules the recurring job.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	jobCtx, cancel := context.WithCancel(ctx)
	if _, err := c.AddFunc(m.schedule, func() { m.run(jobCtx) }); err != nil {
		cancel()
		return fmt.Errorf("add session monitor job: %w", err)
	}

	m.run(jobCtx)

	c.Start()
	m.cron = c
	m.cancel = cancel
	m.started = true
	m.logger.Debug("session monitor started", "schedule", m.schedule)
	return nil
}

// Stop cancels the schedule and waits for a running check to finish. No
// checks run after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.cancel()
	<-m.cron.Stop().Done()
	m.started = false
	m.logger.Debug("session monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	m.checker.CheckSessionExpiration()
	m.checker.RefreshSessionIfNeeded(ctx)
}
