package elapsed

import (
	"strings"
	"testing"
	"time"

	"github.com/kingrea/council-terminal/internal/timefmt"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func ptr(v float64) *float64 { return &v }

func TestProvisionalStartBeginsNearZero(t *testing.T) {
	clock := newClock()
	tr := New(nil, WithClock(clock.Now))
	if !tr.Provisional() {
		t.Fatalf("expected provisional start without authoritative value")
	}
	if got := tr.Elapsed(); got != 0 {
		t.Fatalf("expected zero elapsed at activation, got %v", got)
	}
	clock.Advance(1500 * time.Millisecond)
	if got := tr.Sample(); got < 1.49 || got > 1.51 {
		t.Fatalf("expected ~1.5s elapsed, got %v", got)
	}
}

func TestAuthoritativeStartReplacesReference(t *testing.T) {
	clock := newClock()
	tr := New(nil, WithClock(clock.Now))
	clock.Advance(2 * time.Second)
	authoritative := timefmt.Seconds(clock.now) - 10
	if !tr.SetStart(ptr(authoritative)) {
		t.Fatalf("expected reference switch")
	}
	if tr.Provisional() {
		t.Fatalf("tracker should no longer be provisional")
	}
	if got := tr.Elapsed(); got < 9.99 || got > 10.01 {
		t.Fatalf("expected jump to ~10s, got %v", got)
	}
	if tr.SetStart(ptr(authoritative)) {
		t.Fatalf("same authoritative start should not count as a switch")
	}
	if tr.SetStart(nil) {
		t.Fatalf("nil start must be ignored")
	}
}

func TestElapsedNeverNegative(t *testing.T) {
	clock := newClock()
	tr := New(nil, WithClock(clock.Now))
	future := timefmt.Seconds(clock.now) + 30
	tr.SetStart(ptr(future))
	if got := tr.Elapsed(); got != 0 {
		t.Fatalf("future start must clamp to zero, got %v", got)
	}
	clock.Advance(5 * time.Second)
	if got := tr.Sample(); got != 0 {
		t.Fatalf("still before start, expected zero, got %v", got)
	}
	clock.Advance(40 * time.Second)
	if got := tr.Sample(); got <= 0 {
		t.Fatalf("expected positive elapsed after start passes, got %v", got)
	}
}

func TestSeededStartIsAuthoritative(t *testing.T) {
	clock := newClock()
	start := timefmt.Seconds(clock.now) - 3
	tr := New(ptr(start), WithClock(clock.Now))
	if tr.Provisional() {
		t.Fatalf("seeded tracker should be authoritative")
	}
	if tr.StartTime() != start {
		t.Fatalf("unexpected start %v", tr.StartTime())
	}
}

func TestTickRearmsWhileRunning(t *testing.T) {
	clock := newClock()
	tr := New(nil, WithClock(clock.Now), WithInterval(time.Millisecond))
	cmd := tr.Start()
	if cmd == nil || !tr.Running() {
		t.Fatalf("start must arm a tick")
	}
	if again := tr.Start(); again != nil {
		t.Fatalf("second Start must not arm another tick")
	}
	clock.Advance(time.Second)
	msg := cmd()
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != tr.ID() {
		t.Fatalf("unexpected tick message %#v", msg)
	}
	next := tr.Update(tick)
	if next == nil {
		t.Fatalf("running tracker should re-arm")
	}
	if got := tr.Elapsed(); got < 0.99 {
		t.Fatalf("tick should resample, got %v", got)
	}
}

func TestStopReleasesTick(t *testing.T) {
	clock := newClock()
	tr := New(nil, WithClock(clock.Now), WithInterval(time.Millisecond))
	cmd := tr.Start()
	pending := cmd().(TickMsg)
	tr.Stop()
	if tr.Running() {
		t.Fatalf("tracker still running after Stop")
	}
	if next := tr.Update(pending); next != nil {
		t.Fatalf("in-flight tick must not re-arm after Stop")
	}
}

func TestRestartDropsStaleTick(t *testing.T) {
	tr := New(nil, WithInterval(time.Millisecond))
	stale := tr.Start()().(TickMsg)
	tr.Stop()
	fresh := tr.Start()
	if fresh == nil {
		t.Fatalf("restart should arm a new tick")
	}
	if next := tr.Update(stale); next != nil {
		t.Fatalf("stale tick from the previous run must be dropped")
	}
	if next := tr.Update(fresh()); next == nil {
		t.Fatalf("current tick should re-arm")
	}
}

func TestTickForOtherTrackerIgnored(t *testing.T) {
	a := New(nil, WithInterval(time.Millisecond))
	b := New(nil, WithInterval(time.Millisecond))
	a.Start()
	msg := b.Start()()
	if next := a.Update(msg); next != nil {
		t.Fatalf("tracker consumed another tracker's tick")
	}
}

func TestViewShowsStartAndLiveElapsed(t *testing.T) {
	clock := newClock()
	start := timefmt.Seconds(clock.now)
	tr := New(ptr(start), WithClock(clock.Now), WithLocation(time.UTC))
	clock.Advance(65 * time.Second)
	tr.Sample()
	view := tr.View()
	if !strings.Contains(view, "Started: 12:00:00.0") {
		t.Fatalf("missing start in %q", view)
	}
	if !strings.Contains(view, "Elapsed: 1m 5.0s") {
		t.Fatalf("expected one-decimal live format in %q", view)
	}
}
