package belt

import "fmt"

// Slot tracks one resident item and its progress on the segment.
type Slot struct {
	Item    *Item
	Counter int // Progress toward the segment's speed threshold
	Held    int // Ticks spent on this segment so far
}

// Status is a read-only view of a slot for renderers and the transfer loop.
type Status struct {
	Item     *Item
	Counter  int
	Progress float64 // Counter / threshold, in [0,1]
}

// DropOutcome describes what happened to an item on Drop.
type DropOutcome uint8

const (
	DropNotHeld  DropOutcome = iota // item was not on this segment; nothing happened
	DropKept                        // placement failed and the drop was not forced
	DropPlaced                      // item is on the ground
	DropOrphaned                    // forced drop could not place it; item was detached
)

// String returns the string representation of a drop outcome.
func (o DropOutcome) String() string {
	switch o {
	case DropNotHeld:
		return "not_held"
	case DropKept:
		return "kept"
	case DropPlaced:
		return "placed"
	case DropOrphaned:
		return "orphaned"
	default:
		return "unknown"
	}
}

// DropResult reports a drop and the effects it owes. Effects are applied
// once by the owning segment, never by the container itself.
type DropResult struct {
	Item    *Item
	Placed  *Item // Item as placed on the ground (hosts may merge stacks); nil unless DropPlaced
	Pos     Coord
	Outcome DropOutcome

	Sound    string // Drop sound to play at Pos; empty for none
	Unforbid bool
	FlagHaul bool // Rubble-like item; flag for hauling unless already flagged
}

// Removed reports whether the item left the container.
func (r DropResult) Removed() bool {
	return r.Outcome == DropPlaced || r.Outcome == DropOrphaned
}

// Container holds the items on one segment. Each item is tracked by a
// single slot record keyed by item ID; order keeps arrival order so that
// iteration is deterministic.
type Container struct {
	seg       *Segment
	capacity  int
	slots     map[string]*Slot
	order     []*Slot
	destroyed bool
}

func newContainer(seg *Segment, capacity int) *Container {
	if capacity < 1 {
		capacity = 1
	}
	return &Container{
		seg:      seg,
		capacity: capacity,
		slots:    make(map[string]*Slot, capacity),
		order:    make([]*Slot, 0, capacity),
	}
}

// Segment returns the segment owning this container.
func (c *Container) Segment() *Segment {
	return c.seg
}

// Tick advances bookkeeping and then increments the counter of every item
// that is eligible to advance this tick.
func (c *Container) Tick() {
	for _, sl := range c.order {
		sl.Held++
	}
	for _, sl := range c.order {
		if c.shouldIncreaseCounter(sl) {
			sl.Counter++
		}
	}
}

// shouldIncreaseCounter is the backpressure gate. Items ramp up freely to
// half the threshold (except on receivers), never pass the threshold, and
// in between only advance while the destination would take them.
func (c *Container) shouldIncreaseCounter(sl *Slot) bool {
	speed := c.seg.Speed
	if sl.Counter < speed/2 && c.seg.Role != RoleReceiver {
		return true
	}
	if sl.Counter >= speed {
		return false
	}

	dest := c.seg.Destination(sl.Item)
	if !dest.Valid() || c.seg.sim == nil {
		return false
	}

	if next := c.seg.sim.SegmentAt(dest); next != nil {
		return next.CanAcceptFrom(c.seg)
	}
	return c.seg.CanOutputToGround() && c.seg.sim.host.Ground.CanPlace(sl.Item, dest)
}

// Accepts reports whether Add would succeed for it.
func (c *Container) Accepts(it *Item) bool {
	if it == nil || c.destroyed || it.holder != nil {
		return false
	}
	if _, exists := c.slots[it.ID]; exists {
		return false
	}
	return len(c.order) < c.capacity
}

// Add inserts an item with a zero counter. Returns false if storage
// rejects it (full, destroyed, or the item is held elsewhere).
func (c *Container) Add(it *Item) bool {
	return c.AddWithCounter(it, 0)
}

// AddWithCounter inserts an item with the given initial counter, clamped
// to [0, threshold].
func (c *Container) AddWithCounter(it *Item, counter int) bool {
	if !c.Accepts(it) {
		return false
	}
	c.insert(it, counter)
	return true
}

func (c *Container) insert(it *Item, counter int) {
	if counter < 0 {
		counter = 0
	}
	if counter > c.seg.Speed {
		counter = c.seg.Speed
	}
	sl := &Slot{Item: it, Counter: counter}
	c.slots[it.ID] = sl
	c.order = append(c.order, sl)
	it.holder = c
}

func (c *Container) remove(sl *Slot) {
	delete(c.slots, sl.Item.ID)
	for i, o := range c.order {
		if o == sl {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	sl.Item.holder = nil
}

func (c *Container) slotOf(it *Item) (*Slot, bool) {
	if it == nil {
		return nil, false
	}
	sl, ok := c.slots[it.ID]
	if !ok || sl.Item != it {
		return nil, false
	}
	return sl, true
}

// Transfer moves a resident item into dst with its counter reset to 0 and
// fires the owning segment's transfer hook. It panics if the item is not
// resident. If dst cannot take the item, nothing changes and false is
// returned.
func (c *Container) Transfer(it *Item, dst *Container) bool {
	sl, ok := c.slotOf(it)
	if !ok {
		panic(fmt.Sprintf("belt: transfer of item %q not held by segment %s", itemID(it), c.seg.ID))
	}
	if dst == nil || dst == c || dst.destroyed || len(dst.order) >= dst.capacity {
		return false
	}
	if _, exists := dst.slots[it.ID]; exists {
		return false
	}

	c.remove(sl)
	dst.insert(it, 0)

	c.seg.onItemTransfer(it, dst.seg)
	return true
}

// Drop tries to place a resident item on the ground at pos. A non-forced
// drop that cannot place the item leaves it on the belt. A forced drop
// retries with Near placement and, failing that, detaches the item so
// ownership stays consistent.
func (c *Container) Drop(it *Item, pos Coord, forced bool) DropResult {
	res := DropResult{Item: it, Pos: pos}
	sl, ok := c.slotOf(it)
	if !ok {
		return res
	}

	ground := c.ground()
	placed, ok := ground.Place(it, pos, PlaceDirect)
	if !ok {
		if !forced {
			res.Outcome = DropKept
			return res
		}
		placed, ok = ground.Place(it, pos, PlaceNear)
		if !ok {
			c.remove(sl)
			res.Outcome = DropOrphaned
			return res
		}
	}
	c.remove(sl)
	if placed == nil {
		placed = it
	}

	res.Outcome = DropPlaced
	res.Placed = placed
	res.Unforbid = true
	if placed.Def != nil {
		res.Sound = placed.Def.DropSound
		res.FlagHaul = placed.Def.Rubble
	}
	return res
}

// DropAll drops every resident item at pos.
func (c *Container) DropAll(pos Coord, forced bool) []DropResult {
	items := c.Contents()
	results := make([]DropResult, 0, len(items))
	for _, it := range items {
		results = append(results, c.Drop(it, pos, forced))
	}
	return results
}

// Destroy force-drops everything at the owning segment's position and then
// releases whatever is left. The container rejects items afterwards.
func (c *Container) Destroy() []DropResult {
	results := c.DropAll(c.seg.Pos, true)
	for _, sl := range c.order {
		sl.Item.holder = nil
	}
	c.slots = make(map[string]*Slot)
	c.order = nil
	c.destroyed = true
	return results
}

func (c *Container) ground() Ground {
	if c.seg.sim == nil || c.seg.sim.host.Ground == nil {
		return nopEffects{}
	}
	return c.seg.sim.host.Ground
}

// Contents returns the resident items in arrival order.
func (c *Container) Contents() []*Item {
	out := make([]*Item, 0, len(c.order))
	for _, sl := range c.order {
		out = append(out, sl.Item)
	}
	return out
}

// ThingsToMove returns the items whose counter reached the threshold.
func (c *Container) ThingsToMove() []*Item {
	var out []*Item
	for _, sl := range c.order {
		if sl.Counter >= c.seg.Speed {
			out = append(out, sl.Item)
		}
	}
	return out
}

// WorkToDo reports whether any item is ready to move.
func (c *Container) WorkToDo() bool {
	for _, sl := range c.order {
		if sl.Counter >= c.seg.Speed {
			return true
		}
	}
	return false
}

// Empty reports whether the container holds no items.
func (c *Container) Empty() bool {
	return len(c.order) == 0
}

// Full reports whether the container is at capacity.
func (c *Container) Full() bool {
	return len(c.order) >= c.capacity
}

// Len returns the number of resident items.
func (c *Container) Len() int {
	return len(c.order)
}

// Capacity returns the maximum number of resident items.
func (c *Container) Capacity() int {
	return c.capacity
}

// Contains reports whether it is resident.
func (c *Container) Contains(it *Item) bool {
	_, ok := c.slotOf(it)
	return ok
}

// HasID reports whether an item with id is resident.
func (c *Container) HasID(id string) bool {
	_, ok := c.slots[id]
	return ok
}

// Counter returns the counter of a resident item.
func (c *Container) Counter(it *Item) (int, bool) {
	sl, ok := c.slotOf(it)
	if !ok {
		return 0, false
	}
	return sl.Counter, true
}

// Progress returns counter/threshold for a resident item, or 0.
func (c *Container) Progress(it *Item) float64 {
	sl, ok := c.slotOf(it)
	if !ok {
		return 0
	}
	return c.progress(sl)
}

func (c *Container) progress(sl *Slot) float64 {
	if c.seg.Speed <= 0 {
		return 1
	}
	return float64(sl.Counter) / float64(c.seg.Speed)
}

// Statuses returns one status per resident item, in arrival order.
func (c *Container) Statuses() []Status {
	out := make([]Status, 0, len(c.order))
	for _, sl := range c.order {
		out = append(out, Status{
			Item:     sl.Item,
			Counter:  sl.Counter,
			Progress: c.progress(sl),
		})
	}
	return out
}

// Counters returns item ID -> counter for persistence.
func (c *Container) Counters() map[string]int {
	out := make(map[string]int, len(c.order))
	for _, sl := range c.order {
		out[sl.Item.ID] = sl.Counter
	}
	return out
}

// Load replaces the contents with items and matches counters against them
// by item ID. Items without an entry start at 0; entries whose item is not
// among items are dropped and counted in the return value.
func (c *Container) Load(items []*Item, counters map[string]int) (dropped int) {
	for _, sl := range c.order {
		sl.Item.holder = nil
	}
	c.slots = make(map[string]*Slot, len(items))
	c.order = make([]*Slot, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		if _, dup := c.slots[it.ID]; dup {
			continue
		}
		c.insert(it, 0)
	}
	for id, counter := range counters {
		sl, ok := c.slots[id]
		if !ok {
			dropped++
			continue
		}
		if counter < 0 {
			counter = 0
		}
		if counter > c.seg.Speed {
			counter = c.seg.Speed
		}
		sl.Counter = counter
	}
	return dropped
}

func itemID(it *Item) string {
	if it == nil {
		return "<nil>"
	}
	return it.ID
}
