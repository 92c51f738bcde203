package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Probe is a named dependency check.
type Probe struct {
	Name  string
	Check CheckFunc
}

type Monitor struct {
	probes  []Probe
	timeout time.Duration

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	sched    *cron.Cron
	logger   *zap.Logger
}

func New(probes []Probe, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probes:   probes,
		timeout:  3 * time.Second,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the probes once and then on the configured schedule.
func (m *Monitor) Start() error {
	m.Refresh(context.Background())

	m.sched = cron.New()
	if _, err := m.sched.AddFunc(fmt.Sprintf("@every %s", m.interval), func() {
		m.Refresh(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule health probes: %w", err)
	}
	m.sched.Start()
	return nil
}

// Stop waits for a running refresh to finish or ctx to expire.
func (m *Monitor) Stop(ctx context.Context) {
	if m.sched == nil {
		return
	}
	select {
	case <-m.sched.Stop().Done():
	case <-ctx.Done():
	}
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

// Refresh runs every probe concurrently and records the results.
func (m *Monitor) Refresh(ctx context.Context) Status {
	results := make([]bool, len(m.probes))

	var g errgroup.Group
	for i, probe := range m.probes {
		i, probe := i, probe
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			if err := probe.Check(probeCtx); err != nil {
				m.logger.Warn("dependency probe failed", zap.String("service", probe.Name), zap.Error(err))
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	status := Status{
		Services:  make(map[string]bool, len(m.probes)),
		LastCheck: time.Now().UTC(),
	}
	for i, probe := range m.probes {
		status.Services[probe.Name] = results[i]
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status.clone()
}
