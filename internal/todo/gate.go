package todo

import (
	"time"
)

// MarkerStore persists the time of the last successful reset per category.
type MarkerStore interface {
	LastReset(category string) (time.Time, bool, error)
	SetLastReset(category string, t time.Time) error
}

// Window is a range of local hours [Start, End).
type Window struct {
	Start int
	End   int
}

// MorningWindow is the default reset window, 05:00 to 10:59.
var MorningWindow = Window{Start: 5, End: 11}

// Contains reports whether hour h lies in the window.
func (w Window) Contains(h int) bool {
	return h >= w.Start && h < w.End
}

// Gate decides from the clock and the reset markers whether a reset is due.
type Gate struct {
	markers MarkerStore
	window  Window
	now     func() time.Time
}

// NewGate creates a gate. A nil now uses time.Now.
func NewGate(markers MarkerStore, window Window, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{markers: markers, window: window, now: now}
}

// IsResetDue reports whether the category has not been reset on the current
// local calendar day. A category with no marker is always due.
func (g *Gate) IsResetDue(category string) (bool, error) {
	last, ok, err := g.markers.LastReset(category)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return !sameDay(g.now(), last), nil
}

// IsMorningWindow reports whether the current local hour is inside the window.
func (g *Gate) IsMorningWindow() bool {
	return g.window.Contains(g.now().Hour())
}

// ShouldReset combines both predicates: a new day alone is not enough, the
// reset waits for the morning window. A category that was never reset does
// not wait.
func (g *Gate) ShouldReset(category string) (bool, error) {
	_, ok, err := g.markers.LastReset(category)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	due, err := g.IsResetDue(category)
	if err != nil {
		return false, err
	}
	return due && g.IsMorningWindow(), nil
}

// MarkReset records now as the last reset of the category.
func (g *Gate) MarkReset(category string) error {
	return g.markers.SetLastReset(category, g.now())
}

// sameDay compares calendar dates in now's location.
func sameDay(now, last time.Time) bool {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := last.In(now.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
