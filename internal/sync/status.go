// Package sync provides the sync status state machine that backs the
// user-facing connectivity banner.
package sync

import (
	gosync "sync"
)

// Phase is the one-dimensional sync phase.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseReady   Phase = "ready"
	PhaseSyncing Phase = "syncing"
	PhaseSteady  Phase = "steady"
)

// EventType identifies a status event.
type EventType string

const (
	EventNetworkStatus EventType = "networkStatus"
	EventOutboxStatus  EventType = "outboxStatus"
	EventReady         EventType = "ready"
	EventSyncStarted   EventType = "syncStarted"
	EventSyncReady     EventType = "syncReady"
)

// Event is a single status machine input. Active applies to
// EventNetworkStatus, IsEmpty to EventOutboxStatus.
type Event struct {
	Type    EventType
	Active  bool
	IsEmpty bool
}

// BannerType classifies banner severity.
type BannerType string

const (
	BannerWarning BannerType = "warning"
	BannerInfo    BannerType = "info"
)

// Banner is the derived user-facing message. Nil means no banner.
type Banner struct {
	Type    BannerType `json:"type"`
	Message string     `json:"message"`
}

// Snapshot is the full derived status at a point in time.
type Snapshot struct {
	NetworkActive bool    `json:"networkActive"`
	OutboxEmpty   bool    `json:"outboxEmpty"`
	Phase         Phase   `json:"phase"`
	Banner        *Banner `json:"banner,omitempty"`
}

// initialSnapshot is the state before any event arrives.
func initialSnapshot() Snapshot {
	return Snapshot{
		NetworkActive: true,
		OutboxEmpty:   true,
		Phase:         PhaseIdle,
	}
}

// reduce applies one event. The reduction is total: unknown event types
// leave the state unchanged, no event is ever rejected.
func reduce(s Snapshot, e Event) Snapshot {
	switch e.Type {
	case EventNetworkStatus:
		s.NetworkActive = e.Active
	case EventOutboxStatus:
		s.OutboxEmpty = e.IsEmpty
	case EventReady:
		s.Phase = PhaseReady
	case EventSyncStarted:
		s.Phase = PhaseSyncing
	case EventSyncReady:
		s.Phase = PhaseSteady
	}
	return s
}

// deriveBanner picks the banner by precedence, first match wins.
// Connectivity loss is the most urgent signal; pending local writes beat a
// background full sync.
func deriveBanner(s Snapshot) *Banner {
	if !s.NetworkActive {
		return &Banner{
			Type:    BannerWarning,
			Message: "Offline mode: showing the latest synced data.",
		}
	}
	if !s.OutboxEmpty {
		return &Banner{
			Type:    BannerInfo,
			Message: "Uploading offline changes…",
		}
	}
	if s.Phase == PhaseSyncing {
		return &Banner{
			Type:    BannerInfo,
			Message: "Syncing with CareerHelper cloud…",
		}
	}
	return nil
}

// StatusFeed reduces status events into snapshots and fans them out to
// subscribers. Delivery is coalescing: a slow subscriber sees the latest
// snapshot, never a backlog, and never blocks Apply.
type StatusFeed struct {
	mu      gosync.Mutex
	current Snapshot
	nextID  int
	subs    map[int]chan Snapshot
}

// NewStatusFeed creates a feed at the initial state.
func NewStatusFeed() *StatusFeed {
	return &StatusFeed{
		current: initialSnapshot(),
		subs:    make(map[int]chan Snapshot),
	}
}

// Apply reduces one event into the current snapshot and broadcasts it.
func (f *StatusFeed) Apply(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = reduce(f.current, e)
	f.current.Banner = deriveBanner(f.current)
	for _, ch := range f.subs {
		push(ch, f.current)
	}
}

// Current returns the latest snapshot.
func (f *StatusFeed) Current() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Subscribe registers a subscriber and delivers the current snapshot
// immediately. The returned cancel func unregisters and closes the channel.
func (f *StatusFeed) Subscribe() (<-chan Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	ch := make(chan Snapshot, 1)
	ch <- f.current
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// push delivers a snapshot without blocking, replacing a stale undelivered
// one if the subscriber lags.
func push(ch chan Snapshot, s Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
