package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("zero start uses the reference time", func(t *testing.T) {
		if got := NewClock(time.Time{}).Now(); !got.Equal(ReferenceTime()) {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("advance is visible through NowFunc", func(t *testing.T) {
		start := time.Date(2025, time.March, 12, 19, 0, 0, 0, time.UTC)
		clock := NewClock(start)
		now := clock.NowFunc()

		if got := clock.Advance(72 * time.Hour); !got.Equal(start.Add(72 * time.Hour)) {
			t.Fatalf("Advance returned %v", got)
		}
		if !now().Equal(clock.Now()) {
			t.Fatalf("NowFunc is stale: %v vs %v", now(), clock.Now())
		}
	})

	t.Run("nil clock falls back to wall time", func(t *testing.T) {
		var clock *Clock
		before := time.Now()
		if got := clock.NowFunc()(); got.Before(before) {
			t.Fatalf("expected wall clock, got %v", got)
		}
	})
}
