// Package telemetry collects structured failure reports from the sync core.
//
// Reports are fire-and-forget: callers never wait on the sink and a full or
// broken sink must not affect sync correctness. Nothing is transmitted off
// the device; reports are held in a bounded in-memory ring that the UI (or
// the status command) can inspect.
package telemetry

import (
	"sync"
	"time"
)

// maxReports bounds the in-memory ring.
const maxReports = 100

// Report is a single recorded failure or event.
type Report struct {
	Kind       string    `json:"kind"`
	Scope      string    `json:"scope,omitempty"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Sink records reports into a bounded ring buffer.
type Sink struct {
	mu      sync.Mutex
	reports []Report
}

var defaultSink = &Sink{}

// Default returns the process-wide sink.
func Default() *Sink {
	return defaultSink
}

// TrackError records a failure report. Never blocks, never fails.
func (s *Sink) TrackError(kind, scope string, err error) {
	if err == nil {
		return
	}
	s.append(Report{
		Kind:       kind,
		Scope:      scope,
		Message:    "operation failed",
		Error:      err.Error(),
		RecordedAt: time.Now().UTC(),
	})
}

// TrackEvent records an informational event.
func (s *Sink) TrackEvent(kind, scope, message string) {
	s.append(Report{
		Kind:       kind,
		Scope:      scope,
		Message:    message,
		RecordedAt: time.Now().UTC(),
	})
}

func (s *Sink) append(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	if len(s.reports) > maxReports {
		s.reports = s.reports[len(s.reports)-maxReports:]
	}
}

// Recent returns a copy of the recorded reports, oldest first.
func (s *Sink) Recent() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Reset clears the ring. Used by tests.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = nil
}

// TrackError records a failure report on the default sink.
func TrackError(kind, scope string, err error) {
	defaultSink.TrackError(kind, scope, err)
}

// TrackEvent records an event on the default sink.
func TrackEvent(kind, scope, message string) {
	defaultSink.TrackEvent(kind, scope, message)
}
