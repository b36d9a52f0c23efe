package enemy

import "github.com/nstehr/vimy/vimy-perception/model"

// ID identifies an enemy unit for the lifetime of the game.
type ID int

// LosMask holds the detection flags of a record.
type LosMask uint8

const (
	LosNone   LosMask = 0
	LosLOS    LosMask = 1 << 0
	LosRadar  LosMask = 1 << 1
	LosHidden LosMask = 1 << 2 // last known position checked and found empty
	LosIgnore LosMask = 1 << 3
	LosDead   LosMask = 1 << 4
)

// Sighting is what the host reported about an enemy in the latest event.
type Sighting struct {
	Pos        model.Pos
	Vel        model.Pos
	Health     float32
	Shield     float32
	BeingBuilt bool
	Paralyzed  bool
	Disarmed   bool
}

// Record is the per-enemy detection and threat state.
// Only the authoritative thread touches a Record.
type Record struct {
	id     ID
	def    *model.UnitDef
	los    LosMask
	known  bool
	seen   Sighting // latest host report, applied on LOS/radar refresh
	pos    model.Pos
	vel    model.Pos
	threat float32
	ranges model.Ranges

	shieldPower float32
	health      float32
	beingBuilt  bool
	paralyzed   bool
	disarmed    bool

	cost       float32
	knownFrame int // frame of the first LOS identification, -1 before
	lastSeen   int

	// tally is what the record added to the registry totals, so removal
	// subtracts the same amounts even if the def changed since.
	tally   tally
	counted bool
}

type tally struct {
	cost, threat float32
	mobile       bool
}

func newRecord(id ID, def *model.UnitDef) *Record {
	r := &Record{id: id, knownFrame: -1, lastSeen: -1}
	r.SetDef(def)
	return r
}

func (r *Record) ID() ID               { return r.id }
func (r *Record) Def() *model.UnitDef  { return r.def }
func (r *Record) Pos() model.Pos       { return r.pos }
func (r *Record) Vel() model.Pos       { return r.vel }
func (r *Record) Threat() float32      { return r.threat }
func (r *Record) Ranges() model.Ranges { return r.ranges }
func (r *Record) ShieldPower() float32 { return r.shieldPower }
func (r *Record) Health() float32      { return r.health }
func (r *Record) LastSeen() int        { return r.lastSeen }
func (r *Record) IsKnown() bool        { return r.known }
func (r *Record) KnownFrame() int      { return r.knownFrame }

// Cost is the build cost of the identified type, 0 while unknown.
func (r *Record) Cost() float32 { return r.cost }

func (r *Record) Range(t model.ThreatType) int { return r.ranges[t] }

// SetDef reclassifies the record once a better sighting reveals its type.
func (r *Record) SetDef(def *model.UnitDef) {
	r.def = def
	r.cost = 0
	if def != nil {
		r.cost = def.Cost
	}
	if def != nil && def.IsIgnore() {
		r.los |= LosIgnore
	} else {
		r.los &^= LosIgnore
	}
}

func (r *Record) SetThreat(v float32) { r.threat = max(v, 0) }

func (r *Record) SetRange(t model.ThreatType, v int) { r.ranges[t] = max(v, 0) }

func (r *Record) SetRanges(rs model.Ranges) {
	for t := range rs {
		r.SetRange(model.ThreatType(t), rs[t])
	}
}

func (r *Record) SetLastSeen(frame int) { r.lastSeen = frame }

func (r *Record) SetKnownFrame(frame int) { r.knownFrame = frame }

// Observe stores the host's latest report. It takes effect on the next
// visibility transition or refresh.
func (r *Record) Observe(s Sighting) { r.seen = s }

func (r *Record) IsInLOS() bool          { return r.los&LosLOS != 0 }
func (r *Record) IsInRadar() bool        { return r.los&LosRadar != 0 }
func (r *Record) IsInRadarOrLOS() bool   { return r.los&(LosLOS|LosRadar) != 0 }
func (r *Record) NotInRadarAndLOS() bool { return r.los&(LosLOS|LosRadar) == 0 }
func (r *Record) IsHidden() bool         { return r.los&LosHidden != 0 }
func (r *Record) IsIgnore() bool         { return r.los&LosIgnore != 0 }

// SetHidden marks a lost track. It is a no-op while the enemy is detected.
func (r *Record) SetHidden() {
	if r.IsInRadarOrLOS() {
		return
	}
	r.los |= LosHidden
}

func (r *Record) clearHidden() { r.los &^= LosHidden }

// IsAttacker is true for unidentified enemies: an unknown unit could be anything.
func (r *Record) IsAttacker() bool {
	if r.def == nil {
		return true
	}
	return r.def.IsAttacker()
}

// Damage is the current threat damage, reduced for crippled units.
// Unidentified enemies get unknown.
func (r *Record) Damage(unknown float32) float32 {
	if r.def == nil {
		return unknown
	}
	dmg := r.def.ThreatDamage()
	if dmg < 1e-3 {
		return 0
	}
	if r.beingBuilt || r.paralyzed || r.disarmed {
		return 1e-3
	}
	return dmg
}

func (r *Record) updateInRadarData(grid *model.SectorGrid) {
	r.pos = r.seen.Pos
	if grid != nil {
		r.pos = grid.Clamp(r.pos)
	}
	r.vel = r.seen.Vel
}

func (r *Record) updateInLosData() {
	if r.def != nil && r.def.HasShield() {
		r.shieldPower = r.seen.Shield
	}
	r.health = r.seen.Health
	r.beingBuilt = r.seen.BeingBuilt
	r.paralyzed = r.seen.Paralyzed
	r.disarmed = r.seen.Disarmed
}
