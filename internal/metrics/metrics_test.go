package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("tabular", nil, 2*time.Second)
	RecordStep("geometry", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	if got := fb.callsCounters[0].labels["status"]; got != "success" {
		t.Errorf("first step status = %q, want success", got)
	}
	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Errorf("second step status = %q, want failure", got)
	}
	if got := fb.callsHistograms[0].value; got != 2.0 {
		t.Errorf("first duration = %v, want 2.0", got)
	}
}

func TestRecordRequest(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRequest("acs", nil)
	RecordRequest("tiger", errors.New("timeout"))

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if got := fb.callsCounters[0].labels["endpoint"]; got != "acs" {
		t.Errorf("endpoint = %q, want acs", got)
	}
	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Errorf("status = %q, want failure", got)
	}
}

// TestRecordRows_IgnoresNonPositive confirms the zero-delta guard.
func TestRecordRows_IgnoresNonPositive(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("B25024", 0)
	RecordRows("B25024", -4)
	RecordRows("B25024", 120)

	if len(fb.callsCounters) != 1 {
		t.Fatalf("expected 1 counter call, got %d", len(fb.callsCounters))
	}
	if got := fb.callsCounters[0].delta; got != 120 {
		t.Errorf("delta = %v, want 120", got)
	}
}

func TestRecordFeatures(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordFeatures("kept", 30)
	RecordFeatures("dropped_identifier", 2)
	RecordFeatures("dropped_duplicate", 0)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if got := fb.callsCounters[1].labels["kind"]; got != "dropped_identifier" {
		t.Errorf("kind = %q, want dropped_identifier", got)
	}
}

// TestSetBackend_NilKeepsCurrent ensures SetBackend(nil) is a no-op.
func TestSetBackend_NilKeepsCurrent(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	SetBackend(nil)

	RecordRows("B25003", 1)
	if len(fb.callsCounters) != 1 {
		t.Fatalf("expected installed backend to receive the call, got %d", len(fb.callsCounters))
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}
}
