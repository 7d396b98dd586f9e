// Package sync provides the background connectivity monitor and sync
// scheduler.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/jackyxhb/CareerHelper/internal/gateway"
	"github.com/jackyxhb/CareerHelper/internal/logging"
)

// Identity supplies the current owner id used to scope pulls and pushes.
// The core treats the id as an opaque string.
type Identity interface {
	UserID() string
}

// StaticIdentity is an Identity fixed at construction time.
type StaticIdentity string

// UserID returns the fixed owner id.
func (s StaticIdentity) UserID() string { return string(s) }

// MonitorConfig holds monitor timing configuration.
type MonitorConfig struct {
	ProbeInterval time.Duration // how often to probe connectivity (default: 30 seconds)
	SyncInterval  time.Duration // how often to run a full sync when online (default: 15 minutes)
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		ProbeInterval: 30 * time.Second,
		SyncInterval:  15 * time.Minute,
	}
}

// Monitor probes remote reachability, feeds network events into the status
// machine, and schedules flush+pull passes: once at startup, on every
// offline-to-online transition, and periodically while online.
type Monitor struct {
	coord    *Coordinator
	remote   gateway.Remote
	identity Identity
	log      *logging.Logger

	probeInterval time.Duration
	syncInterval  time.Duration

	stopCh chan struct{}
	wg     gosync.WaitGroup

	mu        gosync.Mutex
	isRunning bool
	online    bool
	readySent bool
}

// NewMonitor creates a Monitor. The remote handle is probed directly so a
// hung sync operation cannot delay connectivity detection.
func NewMonitor(coord *Coordinator, remote gateway.Remote, identity Identity, config *MonitorConfig) *Monitor {
	if config == nil {
		config = DefaultMonitorConfig()
	}
	return &Monitor{
		coord:         coord,
		remote:        remote,
		identity:      identity,
		log:           logging.Get().Named("monitor"),
		probeInterval: config.ProbeInterval,
		syncInterval:  config.SyncInterval,
		stopCh:        make(chan struct{}),
		online:        true, // assume online until the first probe says otherwise
	}
}

// Start starts the background loops. Calling Start on a running monitor is
// a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.probeLoop(ctx)
	go m.syncLoop(ctx)

	m.log.Info("connectivity monitor started")
}

// Stop stops the background loops and waits for them to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	m.log.Info("connectivity monitor stopped")
}

// probeLoop checks reachability on every tick and reacts to transitions.
func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	m.probe(ctx)
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := m.remote.Health(probeCtx)
	cancel()
	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if changed {
		m.coord.Status().Apply(Event{Type: EventNetworkStatus, Active: online})
		m.log.Info("network status changed", map[string]interface{}{"online": online})
	}

	// Reconnect (or first successful probe): push pending writes out before
	// pulling, so unconfirmed local records reach the server ahead of the
	// reconciliation that would otherwise prune them.
	if online && (changed || !m.ready()) {
		m.syncNow(ctx)
	}
}

// syncLoop runs the periodic full sync while online.
func (m *Monitor) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			online := m.online
			m.mu.Unlock()
			if online {
				m.syncNow(ctx)
			}
		}
	}
}

// syncNow flushes pending writes and pulls all three collections.
func (m *Monitor) syncNow(ctx context.Context) {
	userID := m.identity.UserID()

	m.mu.Lock()
	first := !m.readySent
	m.readySent = true
	m.mu.Unlock()
	if first {
		// The local store is queryable and observed from here on, whatever
		// the pull below manages to fetch.
		m.coord.Status().Apply(Event{Type: EventReady})
	}

	if err := m.coord.FlushPending(ctx, userID); err != nil {
		m.log.Error("flush failed", err, map[string]interface{}{"userId": userID})
	}
	if err := m.coord.PullAll(ctx, userID); err != nil {
		m.log.Error("pull failed", err, map[string]interface{}{"userId": userID})
	}
}

func (m *Monitor) ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readySent
}
