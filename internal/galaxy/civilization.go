// Civilizations — the ownership and combat entities attached to planets.
// Planets hold a CivID handle; conquest rewrites the handle, never the civilization.
package galaxy

import (
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/talgya/galaxy-sim/internal/entropy"
)

// Power bounds for civilizations.
const (
	PowerCap        = 1000 // Hard ceiling after any merge
	MergeAttrition  = 30   // Power lost absorbing a conquered planet
	DefaultMinPower = 50
	DefaultMaxPower = 100
)

// CivID is a unique identifier for a civilization.
type CivID uint64

// Civilization is a planet-owning faction with a color and a single power value
// shared by every planet that references it.
type Civilization struct {
	ID    CivID          `json:"id"`
	Color colorful.Color `json:"-"`
	Power int            `json:"power"`
}

// Hex returns the civilization color as #RRGGBB.
func (c *Civilization) Hex() string {
	return ColorHex(c.Color)
}

// ColorHex formats a color as uppercase #RRGGBB.
func ColorHex(col colorful.Color) string {
	return strings.ToUpper(col.Clamped().Hex())
}

// RandomColor draws a uniformly random RGB color.
func RandomColor(src entropy.Source) colorful.Color {
	return colorful.Color{R: src.Float64(), G: src.Float64(), B: src.Float64()}
}

// CivTable owns every live civilization, keyed by ID.
type CivTable struct {
	civs   map[CivID]*Civilization
	nextID CivID
}

// NewCivTable creates an empty table. IDs start at 1.
func NewCivTable() *CivTable {
	return &CivTable{
		civs:   make(map[CivID]*Civilization),
		nextID: 1,
	}
}

// Spawn creates a civilization with a random color and power in [minPower, maxPower].
func (t *CivTable) Spawn(src entropy.Source, minPower, maxPower int) *Civilization {
	if maxPower < minPower {
		maxPower = minPower
	}
	c := &Civilization{
		ID:    t.nextID,
		Color: RandomColor(src),
		Power: entropy.IntRange(src, minPower, maxPower+1),
	}
	t.nextID++
	t.civs[c.ID] = c
	return c
}

// Get returns the civilization for id, or nil.
func (t *CivTable) Get(id CivID) *Civilization {
	return t.civs[id]
}

// Len returns the number of live civilizations.
func (t *CivTable) Len() int {
	return len(t.civs)
}

// Release drops a civilization once no planet references it.
func (t *CivTable) Release(id CivID) {
	delete(t.civs, id)
}

// IDs returns all live civilization IDs in ascending order.
func (t *CivTable) IDs() []CivID {
	ids := make([]CivID, 0, len(t.civs))
	for id := range t.civs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Wins reports whether an attacker with power a beats a defender with power d.
// With tiesToAttacker, equal power goes to the attacker.
func Wins(a, d int, tiesToAttacker bool) bool {
	if tiesToAttacker {
		return a >= d
	}
	return a > d
}

// Merge returns the attacker's power after absorbing a defeated planet whose
// civilization had power d. Overflowing the cap clamps to the cap; otherwise
// the sum loses MergeAttrition, never dropping below zero.
func Merge(a, d int) int {
	if a > PowerCap || a+d > PowerCap {
		return PowerCap
	}
	p := a + d - MergeAttrition
	if p < 0 {
		return 0
	}
	return p
}

// Attack resolves one attack of attacker's planet on defender's planet.
// On success the defender planet joins the attacker's civilization and the
// attacker's power absorbs the defender's. Returns whether the attack succeeded.
// The defeated civilization keeps its power for any planets it still holds.
func (t *CivTable) Attack(attacker, defender *Planet, tiesToAttacker bool) bool {
	ac, dc := t.Get(attacker.Civ), t.Get(defender.Civ)
	if ac == nil || dc == nil || ac.ID == dc.ID {
		return false
	}
	if !Wins(ac.Power, dc.Power, tiesToAttacker) {
		return false
	}
	defender.Civ = ac.ID
	ac.Power = Merge(ac.Power, dc.Power)
	return true
}
