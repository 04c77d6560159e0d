// Package collector runs Slack history collection on demand and on a schedule.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/service"
)

// ErrBusy is returned by Trigger while another collection is running.
var ErrBusy = errors.New("collection already running")

// Manager coordinates collection runs so that at most one is in flight.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Trigger(ctx context.Context, oldest, latest time.Time) (service.CollectResult, error)
	LastRun() RunInfo
}

type Config struct {
	// Interval between scheduled runs; zero disables the schedule.
	Interval     time.Duration
	LookbackDays int
	Logger       *logrus.Logger
	Now          func() time.Time
}

// RunInfo describes the most recent finished run.
type RunInfo struct {
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Result     service.CollectResult `json:"result"`
	Error      string                `json:"error,omitempty"`
}

type manager struct {
	cfg     Config
	collect service.CollectService

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last RunInfo
}

func NewManager(cfg Config, collect service.CollectService) Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LookbackDays < 0 {
		cfg.LookbackDays = 0
	}
	return &manager{
		cfg:     cfg,
		collect: collect,
		sem:     make(chan struct{}, 1),
	}
}

// Window returns the default collection range: lookbackDays before now up to one day after.
func Window(now time.Time, lookbackDays int) (time.Time, time.Time) {
	return now.AddDate(0, 0, -lookbackDays), now.AddDate(0, 0, 1)
}

func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if m.cfg.Interval <= 0 {
		m.cfg.Logger.Info("scheduled collection disabled")
		return nil
	}

	m.wg.Add(1)
	go m.loop()
	m.cfg.Logger.Infof("collection manager started, interval: %s", m.cfg.Interval)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("collection manager stopped")
}

func (m *manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		oldest, latest := Window(m.cfg.Now(), m.cfg.LookbackDays)
		if _, err := m.Trigger(m.ctx, oldest, latest); err != nil {
			if errors.Is(err, ErrBusy) {
				m.cfg.Logger.Debug("scheduled collection skipped, previous run still active")
			} else if m.ctx.Err() == nil {
				m.cfg.Logger.WithError(err).Warn("scheduled collection failed")
			}
		}

		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *manager) Trigger(ctx context.Context, oldest, latest time.Time) (service.CollectResult, error) {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	default:
		return service.CollectResult{}, ErrBusy
	}

	run := RunInfo{StartedAt: m.cfg.Now()}
	result, err := m.collect.Collect(ctx, oldest, latest)
	run.FinishedAt = m.cfg.Now()
	run.Result = result
	if err != nil {
		run.Error = err.Error()
	}

	m.mu.Lock()
	m.last = run
	m.mu.Unlock()
	return result, err
}

func (m *manager) LastRun() RunInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
