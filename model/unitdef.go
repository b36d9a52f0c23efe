package model

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// DefID identifies a unit definition in the host game.
type DefID int

// Capability is a bit set describing what a unit definition can do.
// Splat selection is a pure function of these flags.
type Capability uint32

const (
	CapMobile Capability = 1 << iota
	CapFly
	CapAmphibious
	CapAttacker
	CapAlwaysHit // full damage at any distance (instant-hit beams)
	CapIgnore    // never tracked as a threat
	CapSurfToAir
	CapSurfToLand
	CapSurfToWater
	CapSubToAir
	CapSubToLand
	CapSubToWater
	CapShield
)

type capName struct {
	c    Capability
	name string
}

var capNames = []capName{
	{CapMobile, "mobile"},
	{CapFly, "fly"},
	{CapAmphibious, "amphibious"},
	{CapAttacker, "attacker"},
	{CapAlwaysHit, "always_hit"},
	{CapIgnore, "ignore"},
	{CapSurfToAir, "surf_to_air"},
	{CapSurfToLand, "surf_to_land"},
	{CapSurfToWater, "surf_to_water"},
	{CapSubToAir, "sub_to_air"},
	{CapSubToLand, "sub_to_land"},
	{CapSubToWater, "sub_to_water"},
	{CapShield, "shield"},
}

func (c Capability) Has(f Capability) bool { return c&f == f }

func (c Capability) String() string {
	var parts []string
	for _, cn := range capNames {
		if c.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseCapabilities is the inverse of String for a list of names.
func ParseCapabilities(names []string) (Capability, error) {
	var c Capability
	for _, n := range names {
		i := slices.IndexFunc(capNames, func(cn capName) bool {
			return cn.name == strings.ToLower(n)
		})
		if i < 0 {
			return 0, fmt.Errorf("unknown capability %q", n)
		}
		c |= capNames[i].c
	}
	return c, nil
}

// RangeType selects which target domain a weapon range applies to.
type RangeType int

const (
	RangeAir RangeType = iota
	RangeLand
	RangeWater
	rangeTypeCount
)

// ThreatType indexes the per-domain detection radii of an enemy.
type ThreatType int

const (
	ThreatAir ThreatType = iota
	ThreatLand
	ThreatWater
	ThreatCloak
	ThreatShield
	ThreatTypeCount
)

func (t ThreatType) String() string {
	switch t {
	case ThreatAir:
		return "air"
	case ThreatLand:
		return "land"
	case ThreatWater:
		return "water"
	case ThreatCloak:
		return "cloak"
	case ThreatShield:
		return "shield"
	default:
		return "unknown"
	}
}

// Ranges holds grid-cell radii per ThreatType. Values are never negative.
type Ranges [ThreatTypeCount]int

// threatMod scales raw weapon numbers into the threat-damage scalar.
const threatMod = 1.0 / 128.0

// UnitDef is the static description of a unit type.
type UnitDef struct {
	ID     DefID
	Name   string
	Caps   Capability
	Speed  float32 // world units per second
	Aoe    float32 // largest weapon area of effect
	XSize  int     // footprint in heightmap squares
	ZSize  int
	Health float32
	DPS    float32
	Damage float32 // per-salvo damage
	Cost   float32

	ShieldRadius float32
	ShieldPower  float32

	// Primary weapon, as the host names its type ("Cannon", "BeamLaser", ...).
	Weapon          string
	ProjectileSpeed float32 // world units per frame
	Tracks          bool    // homing projectile

	maxRange [rangeTypeCount]float32
}

func (d *UnitDef) SetMaxRange(rt RangeType, r float32) { d.maxRange[rt] = max(r, 0) }
func (d *UnitDef) MaxRange(rt RangeType) float32       { return d.maxRange[rt] }

func (d *UnitDef) IsMobile() bool     { return d.Caps.Has(CapMobile) }
func (d *UnitDef) IsAbleToFly() bool  { return d.Caps.Has(CapFly) }
func (d *UnitDef) IsAmphibious() bool { return d.Caps.Has(CapAmphibious) }
func (d *UnitDef) IsAttacker() bool   { return d.Caps.Has(CapAttacker) }
func (d *UnitDef) IsAlwaysHit() bool  { return d.Caps.Has(CapAlwaysHit) }
func (d *UnitDef) IsIgnore() bool     { return d.Caps.Has(CapIgnore) }
func (d *UnitDef) HasShield() bool    { return d.Caps.Has(CapShield) }

// InWater reports whether a unit of this type at height y over ground of the
// given elevation fights with its underwater weapons.
func (d *UnitDef) InWater(elevation, y float32) bool {
	return !d.IsAbleToFly() && elevation < 0 && y < -SquareSize
}

// HasAntiAir, HasAntiLand and HasAntiWater pick the surface or submerged
// weapon set.
func (d *UnitDef) HasAntiAir(submerged bool) bool {
	if submerged {
		return d.Caps.Has(CapSubToAir)
	}
	return d.Caps.Has(CapSurfToAir)
}

func (d *UnitDef) HasAntiLand(submerged bool) bool {
	if submerged {
		return d.Caps.Has(CapSubToLand)
	}
	return d.Caps.Has(CapSurfToLand)
}

func (d *UnitDef) HasAntiWater(submerged bool) bool {
	if submerged {
		return d.Caps.Has(CapSubToWater)
	}
	return d.Caps.Has(CapSurfToWater)
}

// ThreatDamage condenses dps and salvo damage into one scalar.
func (d *UnitDef) ThreatDamage() float32 {
	if d.DPS <= 0 || d.Damage <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(d.DPS)) * math.Pow(float64(d.Damage), 0.25) * threatMod)
}

// Classify derives the attacker and shield flags from raw weapon data.
// Flags already set by the host are kept.
func (d *UnitDef) Classify() {
	if d.DPS > 0.1 {
		d.Caps |= CapAttacker
	}
	if d.ShieldRadius > 0 {
		d.Caps |= CapShield
	}
}

// Unit is one of our own units, as far as threat queries care.
type Unit interface {
	Def() *UnitDef
}

// Catalogue indexes every unit definition of the running game.
type Catalogue struct {
	defs   map[DefID]*UnitDef
	byName map[string]*UnitDef
}

// NewCatalogue takes ownership of defs and classifies each one.
func NewCatalogue(defs []*UnitDef) *Catalogue {
	c := &Catalogue{
		defs:   make(map[DefID]*UnitDef, len(defs)),
		byName: make(map[string]*UnitDef, len(defs)),
	}
	for _, d := range defs {
		d.Classify()
		c.defs[d.ID] = d
		if d.Name != "" {
			c.byName[strings.ToLower(d.Name)] = d
		}
	}
	return c
}

// Get returns nil for unknown ids.
func (c *Catalogue) Get(id DefID) *UnitDef { return c.defs[id] }

func (c *Catalogue) ByName(name string) *UnitDef { return c.byName[strings.ToLower(name)] }

func (c *Catalogue) Len() int { return len(c.defs) }

// All returns the definitions ordered by id.
func (c *Catalogue) All() []*UnitDef {
	out := make([]*UnitDef, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *UnitDef) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
