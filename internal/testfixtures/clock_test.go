package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}
	if got := nowFn(); !got.Equal(updated) {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}
}

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("marker")

	if first, second := gen.Next(), gen.Next(); first != "marker-1" || second != "marker-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}
