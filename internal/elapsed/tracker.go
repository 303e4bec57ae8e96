// Package elapsed provides the live elapsed-time counter shown while a council
// stage is running.
//
// A Tracker starts from a provisional local start time and switches to the
// authoritative server start as soon as one arrives. Ticks are tagged so a
// stopped or restarted tracker never re-arms a stale timer.
package elapsed

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/council-terminal/internal/timefmt"
)

// Interval is the default recompute cadence.
const Interval = 50 * time.Millisecond

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg asks the tracker with the matching ID to resample.
type TickMsg struct {
	ID   int
	Time time.Time
	tag  int
}

// Tracker reconciles a provisional start with an authoritative one and keeps
// the most recent elapsed sample.
type Tracker struct {
	id          int
	tag         int
	interval    time.Duration
	clock       func() time.Time
	loc         *time.Location
	start       float64
	provisional bool
	elapsed     float64
	running     bool
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithInterval overrides the tick cadence.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLocation sets the zone used to render the start timestamp.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// New builds a tracker. When start is nil the current time becomes a
// provisional start so the counter begins near zero.
func New(start *float64, opts ...Option) *Tracker {
	t := &Tracker{
		id:       nextID(),
		interval: Interval,
		clock:    time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if start != nil && *start > 0 {
		t.start = *start
	} else {
		t.start = timefmt.Seconds(t.clock())
		t.provisional = true
	}
	t.Sample()
	return t
}

// ID identifies the tracker's tick messages.
func (t *Tracker) ID() int { return t.id }

// StartTime returns the current reference point in epoch seconds.
func (t *Tracker) StartTime() float64 { return t.start }

// Provisional reports whether the reference is still the local fallback.
func (t *Tracker) Provisional() bool { return t.provisional }

// Elapsed returns the latest sample in seconds. It is never negative.
func (t *Tracker) Elapsed() float64 { return t.elapsed }

// Running reports whether a tick is currently armed.
func (t *Tracker) Running() bool { return t.running }

// SetStart switches to an authoritative start. A nil or non-positive value is
// ignored. The next sample jumps to the new reference.
func (t *Tracker) SetStart(start *float64) bool {
	if start == nil || *start <= 0 {
		return false
	}
	if !t.provisional && t.start == *start {
		return false
	}
	t.start = *start
	t.provisional = false
	t.Sample()
	return true
}

// Sample recomputes elapsed = max(0, now - start).
func (t *Tracker) Sample() float64 {
	e := timefmt.Seconds(t.clock()) - t.start
	if e < 0 {
		e = 0
	}
	t.elapsed = e
	return e
}

// Start arms the periodic tick. Calling Start on a running tracker is a no-op.
func (t *Tracker) Start() tea.Cmd {
	if t.running {
		return nil
	}
	t.running = true
	t.tag++
	t.Sample()
	return t.tick()
}

// Stop releases the tick. Any tick already in flight is dropped on arrival.
func (t *Tracker) Stop() {
	t.running = false
	t.tag++
}

// Update handles this tracker's TickMsg and re-arms the next tick.
func (t *Tracker) Update(msg tea.Msg) tea.Cmd {
	m, ok := msg.(TickMsg)
	if !ok || m.ID != t.id {
		return nil
	}
	if !t.running || m.tag != t.tag {
		return nil
	}
	t.Sample()
	return t.tick()
}

// View renders "Started: HH:MM:SS.d  Elapsed: 1.2s".
func (t *Tracker) View() string {
	elapsed := fmt.Sprintf("Elapsed: %s", timefmt.LiveDuration(t.elapsed))
	if started, ok := timefmt.TimestampIn(t.start, t.loc); ok {
		return fmt.Sprintf("Started: %s  %s", started, elapsed)
	}
	return elapsed
}

func (t *Tracker) tick() tea.Cmd {
	id, tag := t.id, t.tag
	return tea.Tick(t.interval, func(now time.Time) tea.Msg {
		return TickMsg{ID: id, Time: now, tag: tag}
	})
}
