package belt

// ItemDef describes a kind of item.
type ItemDef struct {
	Name      string
	DropSound string // Played once when the item lands on the ground; empty for silent items
	Rubble    bool   // Rubble-like items get flagged for hauling when dropped
}

// Item is a single item handle moving through the belt network.
// An item has at most one holder at any time.
type Item struct {
	ID        string
	Def       *ItemDef
	Count     int
	Forbidden bool

	holder *Container
}

// NewItem creates an unheld item.
func NewItem(id string, def *ItemDef, count int) *Item {
	if count < 1 {
		count = 1
	}
	return &Item{ID: id, Def: def, Count: count}
}

// Holder returns the container currently holding the item, or nil if the
// item is loose in the world.
func (it *Item) Holder() *Container {
	return it.holder
}

// DefName returns the item's definition name, or "" if it has none.
func (it *Item) DefName() string {
	if it.Def == nil {
		return ""
	}
	return it.Def.Name
}

// Ground is the host's placement service for loose items.
type Ground interface {
	// CanPlace reports whether a Direct placement of it at pos would succeed.
	CanPlace(it *Item, pos Coord) bool
	// Place puts the item on the ground. It returns the item as placed
	// (hosts may merge it into an existing stack) and whether it succeeded.
	Place(it *Item, pos Coord, mode PlaceMode) (*Item, bool)
}

// PlaceMode selects how strict a ground placement is.
type PlaceMode uint8

const (
	PlaceDirect PlaceMode = iota // exactly at the given cell
	PlaceNear                    // the given cell or a free one nearby
)

// Effects receives cosmetic and environmental side effects.
type Effects interface {
	PlaySound(sound string, pos Coord)
	PushHeat(pos Coord, amount float64)
	ThrowPuffs(pos Coord, n int)
}

// Designations tracks items flagged for hauling.
type Designations interface {
	HasHaul(it *Item) bool
	AddHaul(it *Item)
}

// Host bundles the services the scheduler calls into.
type Host struct {
	Ground       Ground
	Effects      Effects
	Designations Designations
}

type nopEffects struct{}

func (nopEffects) PlaySound(string, Coord) {}
func (nopEffects) PushHeat(Coord, float64) {}
func (nopEffects) ThrowPuffs(Coord, int) {}
func (nopEffects) HasHaul(*Item) bool { return true }
func (nopEffects) AddHaul(*Item) {}
func (nopEffects) CanPlace(*Item, Coord) bool { return false }
func (nopEffects) Place(it *Item, _ Coord, _ PlaceMode) (*Item, bool) { return it, false }
