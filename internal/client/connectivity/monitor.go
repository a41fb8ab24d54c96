// Package connectivity tracks whether the API is reachable. The sync engine
// reads the current mode once at the start of each operation.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Observer answers "are we online right now".
type Observer interface {
	Online() bool
}

// Prober performs one reachability check.
type Prober interface {
	Ping(ctx context.Context) error
}

// Static is a fixed Observer, used for forced offline mode and in tests.
type Static bool

func (s Static) Online() bool { return bool(s) }

// Monitor probes periodically and flips between online and offline.
type Monitor struct {
	prober  Prober
	timeout time.Duration
	log     logging.Logger

	mu        sync.RWMutex
	mode      Mode
	listeners []func(Mode)
}

func NewMonitor(p Prober, timeout time.Duration, log logging.Logger) *Monitor {
	if log == nil {
		log = logging.Discard()
	}
	return &Monitor{prober: p, timeout: timeout, log: log, mode: ModeOffline}
}

func (m *Monitor) Online() bool { return m.Mode() == ModeOnline }

func (m *Monitor) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// OnChange registers fn to be called after every mode switch.
func (m *Monitor) OnChange(fn func(Mode)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Check probes once and updates the mode.
func (m *Monitor) Check(ctx context.Context) Mode {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Ping(pctx)
	cancel()

	if err != nil {
		m.set(ctx, ModeOffline, err)
	} else {
		m.set(ctx, ModeOnline, nil)
	}
	return m.Mode()
}

func (m *Monitor) set(ctx context.Context, mode Mode, cause error) {
	m.mu.Lock()
	if m.mode == mode {
		m.mu.Unlock()
		return
	}
	m.mode = mode
	listeners := append([]func(Mode){}, m.listeners...)
	m.mu.Unlock()

	if cause != nil {
		m.log.Warn(ctx, "switched to offline mode", "error", cause)
	} else {
		m.log.Info(ctx, "switched to online mode")
	}
	for _, fn := range listeners {
		fn(mode)
	}
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
