package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestJournal_Log(t *testing.T) {
	j := NewJournal(10)

	j.Log(Event{Type: "service.started", Service: "devicepolicy", Message: "service started"})

	if j.Count() != 1 {
		t.Errorf("Count() = %d, want 1", j.Count())
	}

	recent := j.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("Recent(1) len = %d, want 1", len(recent))
	}
	if recent[0].Service != "devicepolicy" {
		t.Errorf("Service = %q, want 'devicepolicy'", recent[0].Service)
	}
	if recent[0].ID == "" {
		t.Error("ID should be auto-generated")
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("Timestamp should be auto-set")
	}
}

func TestJournal_Overflow(t *testing.T) {
	j := NewJournal(5)

	for i := 0; i < 10; i++ {
		j.Log(Event{Type: "service.attempt", Message: string(rune('A' + i))})
	}

	if j.Count() != 5 {
		t.Errorf("Count() = %d, want 5 (capped)", j.Count())
	}

	recent := j.Recent(10)
	if len(recent) != 5 {
		t.Fatalf("Recent(10) len = %d, want 5", len(recent))
	}
	// newest first
	if recent[0].Message != "J" {
		t.Errorf("Most recent message = %q, want 'J'", recent[0].Message)
	}
	if recent[4].Message != "F" {
		t.Errorf("Oldest message = %q, want 'F'", recent[4].Message)
	}
}

func TestJournal_Filters(t *testing.T) {
	j := NewJournal(20)
	j.Log(Event{Type: "service.attempt", Service: "a"})
	j.Log(Event{Type: "service.started", Service: "a"})
	j.Log(Event{Type: "service.attempt", Service: "b"})
	j.Log(Event{Type: "service.failed", Service: "b"})

	if got := j.RecentByService("b", 10); len(got) != 2 || got[0].Type != "service.failed" {
		t.Errorf("RecentByService(b) = %+v", got)
	}
	if got := j.RecentByType("service.attempt", 1); len(got) != 1 || got[0].Service != "b" {
		t.Errorf("RecentByType(attempt, 1) = %+v", got)
	}
	if got := j.Recent(0); got != nil {
		t.Errorf("Recent(0) = %+v, want nil", got)
	}
}

func TestJournal_Clear(t *testing.T) {
	j := NewJournal(3)
	j.Log(Event{Type: "x"})
	j.Clear()

	if j.Count() != 0 || j.Recent(1) != nil {
		t.Error("journal should be empty after Clear")
	}
}

func TestJournal_Subscribe(t *testing.T) {
	j := NewJournal(10)

	var received atomic.Int32
	unsubscribe := j.Subscribe(func(Event) { received.Add(1) })

	j.Log(Event{Type: "a"})
	j.Log(Event{Type: "b"})
	unsubscribe()
	j.Log(Event{Type: "c"})

	if received.Load() != 2 {
		t.Errorf("received = %d, want 2", received.Load())
	}
}

func TestJournal_Hook(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	j := NewJournal(10)
	logger.AddHook(j)

	entry := logger.WithFields(logrus.Fields{
		"component": "engine",
		"boot_id":   "boot-1",
		"service":   "telemetry",
		"outcome":   "skipped_no_feature",
	})
	entry.WithField(EventField, "service.skipped").Info("not starting service")
	entry.Info("plain entry without event")
	entry.WithError(errors.New("boom")).WithField(EventField, "service.failed").Error("BOOT FAILURE starting telemetry")

	recent := j.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("captured %d events, want 2", len(recent))
	}

	failed, skipped := recent[0], recent[1]
	if skipped.Type != "service.skipped" || skipped.Level != "info" {
		t.Errorf("skipped = %+v", skipped)
	}
	if skipped.BootID != "boot-1" || skipped.Service != "telemetry" || skipped.Component != "engine" {
		t.Errorf("context fields not mapped: %+v", skipped)
	}
	if skipped.Fields["outcome"] != "skipped_no_feature" {
		t.Errorf("Fields[outcome] = %q", skipped.Fields["outcome"])
	}
	if failed.Error != "boom" || failed.Level != "error" {
		t.Errorf("failed = %+v", failed)
	}
}

func TestJournal_Concurrent(t *testing.T) {
	j := NewJournal(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				j.Log(Event{Type: "x"})
				_ = j.Recent(5)
			}
		}()
	}
	wg.Wait()

	if j.Count() != 100 {
		t.Errorf("Count() = %d, want 100", j.Count())
	}
}
