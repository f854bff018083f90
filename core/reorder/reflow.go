package reorder

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// tween is a linear animation of one item's vertical offset.
type tween struct {
	from     float64
	to       float64
	start    time.Time
	duration time.Duration
}

func (tw tween) at(now time.Time) float64 {
	elapsed := now.Sub(tw.start)
	if tw.duration <= 0 || elapsed >= tw.duration {
		return tw.to
	}
	if elapsed <= 0 {
		return tw.from
	}
	return tw.from + (tw.to-tw.from)*(float64(elapsed)/float64(tw.duration))
}

func (tw tween) done(now time.Time) bool {
	return tw.duration <= 0 || now.Sub(tw.start) >= tw.duration
}

// Animator computes the visual offsets of the items that are not being dragged.
// It never touches the Store.
type Animator struct {
	mu             sync.Mutex
	clock          clockwork.Clock
	shiftDuration  time.Duration
	settleDuration time.Duration
	states         map[string]*tween // keyed by item ID, created on first use
}

// NewAnimator returns an Animator whose shifts take shift and whose final settle to 0 takes settle.
// A nil clock uses the real clock.
func NewAnimator(clock clockwork.Clock, shift, settle time.Duration) *Animator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Animator{
		clock:          clock,
		shiftDuration:  shift,
		settleDuration: settle,
		states:         make(map[string]*tween),
	}
}

// ShiftFor returns the resting offset of the item at index while the item at startIndex hovers over hoveredIndex.
func ShiftFor(index, startIndex, hoveredIndex int, itemHeight float64) float64 {
	switch {
	case index == startIndex:
		return 0
	case hoveredIndex > startIndex && index > startIndex && index <= hoveredIndex:
		return -itemHeight
	case hoveredIndex < startIndex && index >= hoveredIndex && index < startIndex:
		return itemHeight
	default:
		return 0
	}
}

// Update retargets every item in ids (the list order at drag start) except the dragged one.
func (a *Animator) Update(ids []string, startIndex, hoveredIndex int, itemHeight float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	for i, id := range ids {
		if i == startIndex {
			continue
		}
		a.retarget(id, ShiftFor(i, startIndex, hoveredIndex, itemHeight), a.shiftDuration, now)
	}
}

// Reset animates every offset back to 0.
func (a *Animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	for id := range a.states {
		a.retarget(id, 0, a.settleDuration, now)
	}
}

func (a *Animator) retarget(id string, target float64, d time.Duration, now time.Time) {
	st, ok := a.states[id]
	if !ok {
		st = &tween{start: now}
		a.states[id] = st
	}
	if st.to == target {
		return // already heading there
	}
	*st = tween{from: st.at(now), to: target, start: now, duration: d}
}

// Offset returns the current offset of the item.
func (a *Animator) Offset(id string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st, ok := a.states[id]; ok {
		return st.at(a.clock.Now())
	}
	return 0
}

// Offsets returns the current offset of every tracked item.
func (a *Animator) Offsets() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	offsets := make(map[string]float64, len(a.states))
	for id, st := range a.states {
		offsets[id] = st.at(now)
	}
	return offsets
}

// Settled reports whether every offset is at rest on 0.
func (a *Animator) Settled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	for _, st := range a.states {
		if st.to != 0 || !st.done(now) {
			return false
		}
	}
	return true
}

// Prune drops the animation state of items that are no longer in ids.
func (a *Animator) Prune(ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for id := range a.states {
		if !keep[id] {
			delete(a.states, id)
		}
	}
}
