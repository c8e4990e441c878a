// Package drag reorders the stops of a single day in response to a continuous
// pointer drag.
package drag

import (
	"errors"
	"math"

	"tripmate/internal/model"
)

var (
	// ErrDragActive is returned when a drag starts while another is in progress.
	ErrDragActive = errors.New("a drag is already in progress")
	// ErrNoDrag is returned when ending a drag that was never started.
	ErrNoDrag = errors.New("no drag in progress")
	// ErrIndexOutOfRange is returned when the grabbed row does not exist.
	ErrIndexOutOfRange = errors.New("drag index out of range")
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Controller tracks one drag session over one day bucket.
// It is not safe for concurrent use; drive it from the UI loop.
type Controller struct {
	// RowHeight is the displacement that moves the dragged stop by one row.
	RowHeight int

	state        State
	date         string
	original     []model.Stop
	order        []model.Stop
	start        int
	current      int
	displacement int
}

// NewController returns an idle controller. Non-positive row heights become 1.
func NewController(rowHeight int) *Controller {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	return &Controller{RowHeight: rowHeight}
}

// Begin grabs the stop at index within bucket.
func (c *Controller) Begin(bucket model.DayBucket, index int) error {
	if c.state == Dragging {
		return ErrDragActive
	}
	if index < 0 || index >= len(bucket.Stops) {
		return ErrIndexOutOfRange
	}
	c.state = Dragging
	c.date = bucket.Date
	c.original = append([]model.Stop(nil), bucket.Stops...)
	c.order = append([]model.Stop(nil), bucket.Stops...)
	c.start = index
	c.current = index
	c.displacement = 0
	return nil
}

// Update applies the cumulative displacement since Begin and returns the live order.
// changed reports whether the dragged stop moved to a new row.
func (c *Controller) Update(displacement int) (order []model.Stop, changed bool) {
	if c.state != Dragging {
		return nil, false
	}
	c.displacement = displacement
	target := TargetIndex(c.start, displacement, c.rowHeight(), len(c.order))
	if target != c.current {
		c.order = move(c.order, c.current, target)
		c.current = target
		changed = true
	}
	return c.Order(), changed
}

// End releases the drag and returns the committed order.
func (c *Controller) End() ([]model.Stop, error) {
	if c.state != Dragging {
		return nil, ErrNoDrag
	}
	order := c.Order()
	c.reset()
	return order, nil
}

// Cancel abandons the drag and returns the order from before it started.
func (c *Controller) Cancel() []model.Stop {
	if c.state != Dragging {
		return nil
	}
	original := append([]model.Stop(nil), c.original...)
	c.reset()
	return original
}

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// Active reports whether a drag is in progress.
func (c *Controller) Active() bool { return c.state == Dragging }

// Date returns the date of the bucket being dragged.
func (c *Controller) Date() string { return c.date }

// Index returns the dragged stop's current row.
func (c *Controller) Index() int { return c.current }

// StartIndex returns the row the dragged stop was grabbed from.
func (c *Controller) StartIndex() int { return c.start }

// Displacement returns the last displacement passed to Update.
func (c *Controller) Displacement() int { return c.displacement }

// StopID returns the ID of the dragged stop, or 0 when idle.
func (c *Controller) StopID() int64 {
	if c.state != Dragging {
		return 0
	}
	return c.order[c.current].ID
}

// Order returns a copy of the live order.
func (c *Controller) Order() []model.Stop {
	return append([]model.Stop(nil), c.order...)
}

func (c *Controller) rowHeight() int {
	if c.RowHeight <= 0 {
		return 1
	}
	return c.RowHeight
}

func (c *Controller) reset() {
	c.state = Idle
	c.date = ""
	c.original = nil
	c.order = nil
	c.start, c.current, c.displacement = 0, 0, 0
}

// TargetIndex maps a displacement to a row: start plus the displacement in rows,
// rounded to the nearest row and clamped to [0, n-1].
func TargetIndex(start, displacement, rowHeight, n int) int {
	if n <= 0 {
		return 0
	}
	if rowHeight <= 0 {
		rowHeight = 1
	}
	rows := int(math.Round(float64(displacement) / float64(rowHeight)))
	target := start + rows
	if target < 0 {
		target = 0
	}
	if target > n-1 {
		target = n - 1
	}
	return target
}

// move removes the element at from and inserts it at to.
func move(stops []model.Stop, from, to int) []model.Stop {
	s := stops[from]
	out := make([]model.Stop, 0, len(stops))
	out = append(out, stops[:from]...)
	out = append(out, stops[from+1:]...)
	out = append(out[:to], append([]model.Stop{s}, out[to:]...)...)
	return out
}
