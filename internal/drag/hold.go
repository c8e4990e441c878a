package drag

import "time"

// DefaultHoldThreshold is how long a press must last before it counts as a grab.
const DefaultHoldThreshold = 350 * time.Millisecond

// HoldGate tells a sustained press apart from a tap.
type HoldGate struct {
	Threshold time.Duration

	now     func() time.Time
	pressed bool
	at      time.Time
	x, y    int
}

// NewHoldGate returns a gate using the wall clock.
func NewHoldGate(threshold time.Duration) *HoldGate {
	if threshold <= 0 {
		threshold = DefaultHoldThreshold
	}
	return &HoldGate{Threshold: threshold, now: time.Now}
}

// Press records the start of a press at a cell position.
func (g *HoldGate) Press(x, y int) {
	g.pressed = true
	g.at = g.clock()
	g.x, g.y = x, y
}

// Held reports whether the current press has lasted at least Threshold.
func (g *HoldGate) Held() bool {
	return g.pressed && g.clock().Sub(g.at) >= g.Threshold
}

// Pressed reports whether a press is in progress.
func (g *HoldGate) Pressed() bool { return g.pressed }

// Origin returns where the current press began.
func (g *HoldGate) Origin() (x, y int) { return g.x, g.y }

// Release ends the press and reports whether it was a tap.
func (g *HoldGate) Release() (tap bool) {
	if !g.pressed {
		return false
	}
	tap = !g.Held()
	g.pressed = false
	return tap
}

func (g *HoldGate) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}
