package sync

import (
	"testing"
	"time"
)

func TestStatusFeed_initialState(t *testing.T) {
	feed := NewStatusFeed()
	snap := feed.Current()

	if !snap.NetworkActive {
		t.Error("networkActive = false, want true before any event")
	}
	if !snap.OutboxEmpty {
		t.Error("outboxEmpty = false, want true before any event")
	}
	if snap.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", snap.Phase)
	}
	if snap.Banner != nil {
		t.Errorf("banner = %+v, want none", snap.Banner)
	}
}

func TestStatusFeed_phaseTransitions(t *testing.T) {
	feed := NewStatusFeed()

	steps := []struct {
		event Event
		want  Phase
	}{
		{Event{Type: EventReady}, PhaseReady},
		{Event{Type: EventSyncStarted}, PhaseSyncing},
		{Event{Type: EventSyncReady}, PhaseSteady},
		{Event{Type: EventSyncStarted}, PhaseSyncing},
	}
	for _, step := range steps {
		feed.Apply(step.event)
		if got := feed.Current().Phase; got != step.want {
			t.Errorf("after %s: phase = %s, want %s", step.event.Type, got, step.want)
		}
	}
}

func TestStatusFeed_unknownEventIsIgnored(t *testing.T) {
	feed := NewStatusFeed()
	feed.Apply(Event{Type: EventType("somethingElse")})

	if snap := feed.Current(); snap != initialSnapshot() {
		t.Errorf("snapshot = %+v, want the initial state", snap)
	}
}

func TestStatusFeed_offlineBanner(t *testing.T) {
	feed := NewStatusFeed()
	feed.Apply(Event{Type: EventNetworkStatus, Active: false})

	banner := feed.Current().Banner
	if banner == nil {
		t.Fatal("banner = nil, want the offline warning")
	}
	if banner.Type != BannerWarning {
		t.Errorf("banner type = %s, want warning", banner.Type)
	}
	if banner.Message != "Offline mode: showing the latest synced data." {
		t.Errorf("banner message = %q", banner.Message)
	}
}

func TestStatusFeed_offlineBeatsUploading(t *testing.T) {
	feed := NewStatusFeed()
	feed.Apply(Event{Type: EventOutboxStatus, IsEmpty: false})
	feed.Apply(Event{Type: EventNetworkStatus, Active: false})

	banner := feed.Current().Banner
	if banner == nil || banner.Type != BannerWarning {
		t.Fatalf("banner = %+v, want the offline warning over the upload notice", banner)
	}

	// Back online with writes still queued: the upload notice takes over.
	feed.Apply(Event{Type: EventNetworkStatus, Active: true})
	banner = feed.Current().Banner
	if banner == nil {
		t.Fatal("banner = nil, want the upload notice")
	}
	if banner.Message != "Uploading offline changes…" {
		t.Errorf("banner message = %q", banner.Message)
	}
}

func TestStatusFeed_uploadingBeatsSyncing(t *testing.T) {
	feed := NewStatusFeed()
	feed.Apply(Event{Type: EventSyncStarted})
	feed.Apply(Event{Type: EventOutboxStatus, IsEmpty: false})

	banner := feed.Current().Banner
	if banner == nil || banner.Message != "Uploading offline changes…" {
		t.Fatalf("banner = %+v, want the upload notice over the syncing notice", banner)
	}

	feed.Apply(Event{Type: EventOutboxStatus, IsEmpty: true})
	banner = feed.Current().Banner
	if banner == nil || banner.Message != "Syncing with CareerHelper cloud…" {
		t.Fatalf("banner = %+v, want the syncing notice", banner)
	}

	feed.Apply(Event{Type: EventSyncReady})
	if banner = feed.Current().Banner; banner != nil {
		t.Errorf("banner = %+v, want none in the steady state", banner)
	}
}

func TestStatusFeed_subscribeDeliversCurrentThenUpdates(t *testing.T) {
	feed := NewStatusFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		if snap.Phase != PhaseIdle {
			t.Errorf("first delivery phase = %s, want idle", snap.Phase)
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate snapshot on subscribe")
	}

	feed.Apply(Event{Type: EventNetworkStatus, Active: false})
	select {
	case snap := <-ch:
		if snap.NetworkActive {
			t.Error("networkActive = true, want false after the event")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after Apply")
	}
}

func TestStatusFeed_slowSubscriberSeesLatest(t *testing.T) {
	feed := NewStatusFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	// Never read between events: older snapshots must be displaced by
	// newer ones instead of blocking Apply.
	feed.Apply(Event{Type: EventSyncStarted})
	feed.Apply(Event{Type: EventSyncReady})

	var last Snapshot
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		default:
		}
		break
	}
	if last.Phase != PhaseSteady {
		t.Errorf("latest phase = %s, want steady", last.Phase)
	}
}

func TestStatusFeed_cancelStopsDelivery(t *testing.T) {
	feed := NewStatusFeed()
	ch, cancel := feed.Subscribe()
	<-ch
	cancel()

	feed.Apply(Event{Type: EventNetworkStatus, Active: false})
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received a snapshot after cancel")
		}
	case <-time.After(100 * time.Millisecond):
	}
}
