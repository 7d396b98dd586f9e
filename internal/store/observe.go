// Package store provides the reactive observation primitive of the entity
// store: every committed mutation re-delivers the full matching result set
// to subscribers of that entity kind.
package store

import (
	"context"
	"sync"

	"github.com/jackyxhb/CareerHelper/internal/logging"
	"github.com/jackyxhb/CareerHelper/internal/models"
)

// Kind identifies an entity collection.
type Kind string

const (
	KindJob         Kind = "job"
	KindExperience  Kind = "experience"
	KindApplication Kind = "application"
)

// observers tracks active subscriptions per entity kind.
type observers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	closed bool
}

// subscription is one observer. signal is a capacity-1 wakeup channel: a
// burst of mutations between re-queries collapses into a single delivery.
type subscription struct {
	kind   Kind
	signal chan struct{}
	done   chan struct{}
}

func newObservers() *observers {
	return &observers{subs: make(map[int]*subscription)}
}

// notify wakes every subscriber of the given kind.
func (o *observers) notify(kind Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sub := range o.subs {
		if sub.kind != kind {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (o *observers) add(kind Kind) (int, *subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	sub := &subscription{
		kind:   kind,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if o.closed {
		close(sub.done)
	}
	o.subs[o.nextID] = sub
	return o.nextID, sub
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, id)
}

func (o *observers) closeAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for _, sub := range o.subs {
		close(sub.done)
	}
}

// observe runs the generic subscription loop: deliver one snapshot up front,
// then re-query and deliver after every committed mutation of the kind.
// Snapshots are freshly queried slices; no subscriber ever holds a live
// reference into store internals. Delivery is coalescing and never blocks a
// mutation: if the consumer lags, intermediate snapshots are dropped and only
// the latest state is delivered.
func observe[T any](ctx context.Context, s *Store, kind Kind, query func() ([]T, error)) <-chan []T {
	out := make(chan []T, 1)
	id, sub := s.obs.add(kind)

	deliver := func() {
		snapshot, err := query()
		if err != nil {
			logging.Error("observe query failed", err, map[string]interface{}{"kind": string(kind)})
			return
		}
		// Replace a stale undelivered snapshot with the latest one.
		for {
			select {
			case out <- snapshot:
				return
			default:
			}
			select {
			case <-out:
			default:
			}
		}
	}

	go func() {
		defer s.obs.remove(id)
		defer close(out)
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.signal:
				deliver()
			}
		}
	}()

	return out
}

// ObserveJobs delivers the full job collection after every job mutation.
func (s *Store) ObserveJobs(ctx context.Context) <-chan []*models.Job {
	return observe(ctx, s, KindJob, s.ListJobs)
}

// ObserveExperiences delivers the owner's experiences after every experience mutation.
func (s *Store) ObserveExperiences(ctx context.Context, userID string) <-chan []*models.Experience {
	return observe(ctx, s, KindExperience, func() ([]*models.Experience, error) {
		return s.ListExperiences(userID)
	})
}

// ObserveApplications delivers the owner's applications after every application mutation.
func (s *Store) ObserveApplications(ctx context.Context, userID string) <-chan []*models.Application {
	return observe(ctx, s, KindApplication, func() ([]*models.Application, error) {
		return s.ListApplications(userID)
	})
}
