package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tripmate/internal/drag"
	"tripmate/internal/itinerary"
	"tripmate/internal/mapsync"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

// rowRef points at a rendered line of the itinerary. pos is a stop index within
// the bucket, emptyPos for the placeholder of an empty day, or headingPos.
type rowRef struct {
	bucket int
	pos    int
}

const (
	emptyPos   = -1
	headingPos = -2
	spacerPos  = -3
)

// PlanDetailModel shows one plan as day buckets and drives stop reordering.
type PlanDetailModel struct {
	plan    model.Plan
	stops   []model.Stop
	buckets []model.DayBucket
	dropped int

	cursor int // index into selectable()
	offset int // first rendered line

	drag *drag.Controller
	hold *drag.HoldGate
	// grabbed is the row a press landed on, if any.
	grabbed  rowRef
	grabbing bool
	grabY    int

	// session holds orders produced by drags, keyed by date. They are display
	// only until saved.
	session map[string][]int64
}

// NewPlanDetailModel creates a detail model for a plan and its flat stop list.
func NewPlanDetailModel(plan model.Plan, stops []model.Stop, rowHeight int, hold time.Duration) *PlanDetailModel {
	m := &PlanDetailModel{
		drag:    drag.NewController(rowHeight),
		hold:    drag.NewHoldGate(hold),
		session: map[string][]int64{},
	}
	m.SetData(plan, stops)
	return m
}

// SetData replaces the plan and stops and re-aggregates them. The cursor stays
// on the same stop when it still exists.
func (m *PlanDetailModel) SetData(plan model.Plan, stops []model.Stop) {
	var keep int64
	if s, ok := m.SelectedStop(); ok {
		keep = s.ID
	}
	if m.plan.ID != plan.ID {
		m.session = map[string][]int64{}
	}
	m.plan = plan
	m.stops = append([]model.Stop(nil), stops...)
	m.buckets = itinerary.BuildDayBuckets(plan, stops)
	m.dropped = len(itinerary.Dropped(plan, stops))
	m.applySession()
	if m.drag.Active() {
		m.drag.Cancel()
	}

	if keep != 0 {
		if b, pos, ok := itinerary.FindStop(m.buckets, keep); ok {
			m.selectRef(rowRef{b, pos})
			return
		}
	}
	m.clampCursor()
}

// applySession reorders buckets that were dragged this session, as long as they
// still hold exactly the same stops.
func (m *PlanDetailModel) applySession() {
	for i, b := range m.buckets {
		ids, ok := m.session[b.Date]
		if !ok {
			continue
		}
		if len(ids) != len(b.Stops) {
			delete(m.session, b.Date)
			continue
		}
		byID := make(map[int64]model.Stop, len(b.Stops))
		for _, s := range b.Stops {
			byID[s.ID] = s
		}
		ordered := make([]model.Stop, 0, len(ids))
		for _, id := range ids {
			s, ok := byID[id]
			if !ok {
				break
			}
			ordered = append(ordered, s)
		}
		if len(ordered) != len(b.Stops) {
			delete(m.session, b.Date)
			continue
		}
		m.buckets[i].Stops = ordered
	}
}

// Plan returns the plan being shown.
func (m *PlanDetailModel) Plan() model.Plan { return m.plan }

// Stops returns the flat stop list as loaded.
func (m *PlanDetailModel) Stops() []model.Stop { return m.stops }

// Dragging reports whether a drag is in progress.
func (m *PlanDetailModel) Dragging() bool { return m.drag.Active() }

// selectable lists the rows the cursor can land on.
func (m *PlanDetailModel) selectable() []rowRef {
	var refs []rowRef
	for b, bucket := range m.buckets {
		if len(bucket.Stops) == 0 {
			refs = append(refs, rowRef{b, emptyPos})
			continue
		}
		for pos := range bucket.Stops {
			refs = append(refs, rowRef{b, pos})
		}
	}
	return refs
}

func (m *PlanDetailModel) current() (rowRef, bool) {
	refs := m.selectable()
	if len(refs) == 0 || m.cursor >= len(refs) {
		return rowRef{}, false
	}
	return refs[m.cursor], true
}

func (m *PlanDetailModel) selectRef(ref rowRef) {
	for i, r := range m.selectable() {
		if r == ref {
			m.cursor = i
			return
		}
	}
	m.clampCursor()
}

func (m *PlanDetailModel) clampCursor() {
	n := len(m.selectable())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SelectedDate returns the date of the day under the cursor.
func (m *PlanDetailModel) SelectedDate() string {
	ref, ok := m.current()
	if !ok {
		return m.plan.StartDate
	}
	return m.buckets[ref.bucket].Date
}

// SelectedStop returns the stop under the cursor.
func (m *PlanDetailModel) SelectedStop() (model.Stop, bool) {
	ref, ok := m.current()
	if !ok || ref.pos < 0 {
		return model.Stop{}, false
	}
	return m.buckets[ref.bucket].Stops[ref.pos], true
}

// MoveDown moves the cursor to the next row.
func (m *PlanDetailModel) MoveDown() {
	if m.cursor < len(m.selectable())-1 {
		m.cursor++
	}
}

// MoveUp moves the cursor to the previous row.
func (m *PlanDetailModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// JumpToTop moves the cursor to the first row.
func (m *PlanDetailModel) JumpToTop() { m.cursor = 0 }

// JumpToBottom moves the cursor to the last row.
func (m *PlanDetailModel) JumpToBottom() { m.cursor = max(0, len(m.selectable())-1) }

// NextDay moves the cursor to the first row of the following day.
func (m *PlanDetailModel) NextDay() {
	ref, ok := m.current()
	if !ok {
		return
	}
	for i, r := range m.selectable() {
		if r.bucket > ref.bucket {
			m.cursor = i
			return
		}
	}
}

// PrevDay moves the cursor to the first row of the previous day.
func (m *PlanDetailModel) PrevDay() {
	ref, ok := m.current()
	if !ok || ref.bucket == 0 {
		return
	}
	for i, r := range m.selectable() {
		if r.bucket == ref.bucket-1 {
			m.cursor = i
			return
		}
	}
}

// BeginDrag grabs the stop under the cursor.
func (m *PlanDetailModel) BeginDrag() error {
	ref, ok := m.current()
	if !ok || ref.pos < 0 {
		return drag.ErrIndexOutOfRange
	}
	return m.drag.Begin(m.buckets[ref.bucket], ref.pos)
}

// DragBy moves the dragged stop by whole rows from where it is now.
func (m *PlanDetailModel) DragBy(rows int) {
	if !m.drag.Active() {
		return
	}
	m.dragTo(m.drag.Displacement() + rows*m.drag.RowHeight)
}

// dragTo applies a cumulative displacement in terminal lines.
func (m *PlanDetailModel) dragTo(displacement int) {
	if _, changed := m.drag.Update(displacement); changed {
		m.followDrag()
	}
}

func (m *PlanDetailModel) followDrag() {
	b := m.dragBucket()
	if b < 0 {
		return
	}
	m.selectRef(rowRef{b, m.drag.Index()})
}

func (m *PlanDetailModel) dragBucket() int {
	for i, b := range m.buckets {
		if b.Date == m.drag.Date() {
			return i
		}
	}
	return -1
}

// EndDrag commits the dragged order for this session and reports whether it changed.
func (m *PlanDetailModel) EndDrag() (bool, error) {
	b := m.dragBucket()
	at := m.drag.Index()
	moved := at != m.drag.StartIndex()
	order, err := m.drag.End()
	if err != nil {
		return false, err
	}
	if b < 0 || !moved {
		return false, nil
	}
	m.buckets[b].Stops = order
	ids := make([]int64, len(order))
	for i, s := range order {
		ids[i] = s.ID
	}
	m.session[m.buckets[b].Date] = ids
	m.selectRef(rowRef{b, at})
	return true, nil
}

// CancelDrag restores the order from before the drag.
func (m *PlanDetailModel) CancelDrag() {
	b := m.dragBucket()
	start := m.drag.StartIndex()
	if m.drag.Cancel() == nil {
		return
	}
	if b >= 0 {
		m.selectRef(rowRef{b, start})
	}
}

// SessionOrders returns the dragged buckets, in day order.
func (m *PlanDetailModel) SessionOrders() [][]model.Stop {
	var out [][]model.Stop
	for _, b := range m.buckets {
		if _, ok := m.session[b.Date]; ok {
			out = append(out, append([]model.Stop(nil), b.Stops...))
		}
	}
	return out
}

// ClearSession forgets all dragged orders.
func (m *PlanDetailModel) ClearSession() {
	m.session = map[string][]int64{}
}

// lines returns what each rendered line of the itinerary shows.
func (m *PlanDetailModel) lines() []rowRef {
	var refs []rowRef
	for b, bucket := range m.buckets {
		refs = append(refs, rowRef{b, headingPos})
		n := len(bucket.Stops)
		if m.drag.Active() && bucket.Date == m.drag.Date() {
			n = len(m.drag.Order())
		}
		if n == 0 {
			refs = append(refs, rowRef{b, emptyPos})
		}
		for pos := 0; pos < n; pos++ {
			refs = append(refs, rowRef{b, pos})
		}
		refs = append(refs, rowRef{b, spacerPos})
	}
	return refs
}

func (m *PlanDetailModel) cursorLine() int {
	ref, ok := m.current()
	if !ok {
		return 0
	}
	for i, r := range m.lines() {
		if r == ref {
			return i
		}
	}
	return 0
}

func (m *PlanDetailModel) scroll(height int) {
	if height <= 0 {
		return
	}
	line := m.cursorLine()
	if line < m.offset {
		m.offset = line
		if line > 0 && m.lines()[line-1].pos == headingPos {
			m.offset = line - 1
		}
	}
	if line >= m.offset+height {
		m.offset = line - height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// BodyTop returns the line, relative to the top of the view, where the itinerary starts.
func (m *PlanDetailModel) BodyTop() int {
	return lipgloss.Height(m.summary()) + 1
}

// RowAt returns the row drawn at line y of the itinerary viewport.
func (m *PlanDetailModel) RowAt(y int) (rowRef, bool) {
	lines := m.lines()
	i := m.offset + y
	if y < 0 || i >= len(lines) {
		return rowRef{}, false
	}
	return lines[i], true
}

// Press starts a potential grab at viewport line y. It moves the cursor there.
func (m *PlanDetailModel) Press(x, y int) {
	ref, ok := m.RowAt(y)
	m.grabbing = ok && ref.pos >= 0
	if ref.pos >= 0 || ref.pos == emptyPos {
		m.selectRef(ref)
	}
	m.grabbed = ref
	m.grabY = y
	m.hold.Press(x, y)
}

// HoldElapsed starts the drag if the press is still down and has lasted long enough.
func (m *PlanDetailModel) HoldElapsed() bool {
	if !m.grabbing || m.drag.Active() || !m.hold.Held() {
		return false
	}
	return m.drag.Begin(m.buckets[m.grabbed.bucket], m.grabbed.pos) == nil
}

// Motion feeds pointer movement at viewport line y.
func (m *PlanDetailModel) Motion(y int) {
	if !m.drag.Active() {
		m.HoldElapsed()
	}
	if m.drag.Active() {
		m.dragTo(y - m.grabY)
	}
}

// Release ends the press. A drag in progress is committed.
func (m *PlanDetailModel) Release() (moved bool, err error) {
	m.hold.Release()
	m.grabbing = false
	if !m.drag.Active() {
		return false, nil
	}
	return m.EndDrag()
}

// View renders the itinerary and, when showMap is set, the map panel beside it.
func (m *PlanDetailModel) View(width, height int, doc mapsync.Document, showMap bool, caps TerminalCapabilities) string {
	listWidth := width
	var panel string
	if showMap && width >= 80 {
		panelWidth := max(30, width*2/5)
		listWidth = width - panelWidth - 1
		panel = renderMapPanel(doc, caps, panelWidth-4, height-4)
	}

	summary := m.summary()
	bodyHeight := height - lipgloss.Height(summary) - 1
	m.scroll(bodyHeight)

	lines := m.lines()
	var out []string
	for i := m.offset; i < len(lines) && len(out) < bodyHeight; i++ {
		out = append(out, m.renderLine(lines[i], listWidth))
	}
	list := lipgloss.JoinVertical(lipgloss.Left, summary, "", strings.Join(out, "\n"))
	list = lipgloss.NewStyle().Width(listWidth).Render(list)

	if panel == "" {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, " ", panel)
}

func (m *PlanDetailModel) summary() string {
	parts := []string{
		util.FormatDateRange(m.plan.StartDate, m.plan.EndDate),
		util.Pluralize(len(m.buckets), "day", "days"),
		util.Pluralize(len(m.stops)-m.dropped, "stop", "stops"),
	}
	if m.plan.Partner != "" {
		parts = append(parts, "with "+m.plan.Partner)
	}
	if m.plan.Style != "" {
		parts = append(parts, m.plan.Style)
	}
	line := StatusBarStyle.Render(strings.Join(parts, "  ·  "))
	if m.dropped > 0 {
		line += "\n" + lipgloss.NewStyle().Foreground(ColorYellow).Padding(0, 1).
			Render(fmt.Sprintf("%s outside these dates are hidden", util.Pluralize(m.dropped, "stop", "stops")))
	}
	if len(m.session) > 0 {
		line += "\n" + HelpDescStyle.Padding(0, 1).Render("Order changed this session · S to save")
	}
	return line
}

func (m *PlanDetailModel) renderLine(ref rowRef, width int) string {
	bucket := m.buckets[ref.bucket]
	cur, _ := m.current()
	switch ref.pos {
	case headingPos:
		return DayHeadingStyle.Render(util.FormatDayHeading(bucket.Date, bucket.Index))
	case spacerPos:
		return ""
	case emptyPos:
		style := EmptyDayStyle
		if cur == ref {
			style = SelectedRowStyle
		}
		return style.Width(width - 2).Render("  nothing planned · a to add")
	}

	stops := bucket.Stops
	dragging := m.drag.Active() && bucket.Date == m.drag.Date()
	if dragging {
		stops = m.drag.Order()
	}
	s := stops[ref.pos]

	marker := "  "
	style := NormalRowStyle
	switch {
	case dragging && ref.pos == m.drag.Index():
		marker = "≡ "
		style = DraggingRowStyle
	case cur == ref:
		style = SelectedRowStyle
	}
	text := fmt.Sprintf("%s%s  %s", marker, s.Time, util.TruncateString(s.Location.Name, max(10, width-30)))
	coords := HelpDescStyle.Render(util.FormatCoords(s.Location.Latitude, s.Location.Longitude))
	pad := max(1, width-2-lipgloss.Width(text)-lipgloss.Width(coords))
	if cur == ref || (dragging && ref.pos == m.drag.Index()) {
		return style.Width(width - 2).Render(text)
	}
	return style.Render(text) + strings.Repeat(" ", pad) + coords
}
