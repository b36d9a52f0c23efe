package enemy

import (
	"cmp"
	"slices"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// ThreatModel assigns detection ranges and threat values to records.
// The threat field engine implements it.
type ThreatModel interface {
	// SetEnemyUnitRange copies the cached per-definition ranges. Def must be known.
	SetEnemyUnitRange(e *Record)
	// SetEnemyUnitThreat recomputes the threat value from current health and shields.
	SetEnemyUnitThreat(e *Record)
	// NewEnemy assigns conservative defaults to an enemy of unknown loadout.
	NewEnemy(e *Record)
	// DefThreat rates a full-health unit of def.
	DefThreat(def *model.UnitDef) float32
}

// ThreatMod weighs def threat into the mobile and static totals.
type ThreatMod struct {
	Mobile float32
	Static float32
}

func DefaultThreatMod() ThreatMod { return ThreatMod{Mobile: 1, Static: 0} }

// Totals sums cost and def threat over identified enemies that are still
// alive. Ignored enemies are left out.
type Totals struct {
	MobileCost   float32
	StaticCost   float32
	MobileThreat float32
	StaticThreat float32
}

// Registry tracks every enemy seen this game and partitions them into
// hostile (credible attackers) and peaceful sets. A record is in at most
// one of the two sets.
type Registry struct {
	model    ThreatModel
	grid     *model.SectorGrid
	units    map[ID]*Record
	hostile  map[ID]*Record
	peaceful map[ID]*Record

	mod    ThreatMod
	totals Totals
}

// NewRegistry creates an empty registry. grid may be nil, in which case
// observed positions are not clamped.
func NewRegistry(tm ThreatModel, grid *model.SectorGrid) *Registry {
	return &Registry{
		model:    tm,
		grid:     grid,
		units:    make(map[ID]*Record),
		hostile:  make(map[ID]*Record),
		peaceful: make(map[ID]*Record),
		mod:      DefaultThreatMod(),
	}
}

// SetThreatMod applies to enemies identified afterwards.
func (r *Registry) SetThreatMod(m ThreatMod) { r.mod = m }

func (r *Registry) Totals() Totals { return r.totals }

// SetTerrain swaps the grid used to clamp positions after a terrain recompute.
func (r *Registry) SetTerrain(grid *model.SectorGrid) { r.grid = grid }

// Register returns the record for id, creating it on first sighting.
// A non-nil def replaces a missing or different definition.
func (r *Registry) Register(id ID, def *model.UnitDef) *Record {
	e, ok := r.units[id]
	if !ok {
		e = newRecord(id, def)
		r.units[id] = e
		return e
	}
	if def != nil && e.def != def {
		e.SetDef(def)
	}
	return e
}

// Get returns nil for untracked ids.
func (r *Registry) Get(id ID) *Record { return r.units[id] }

func (r *Registry) Len() int         { return len(r.units) }
func (r *Registry) HostileLen() int  { return len(r.hostile) }
func (r *Registry) PeacefulLen() int { return len(r.peaceful) }

func (r *Registry) IsHostile(e *Record) bool {
	_, ok := r.hostile[e.id]
	return ok
}

func (r *Registry) IsPeaceful(e *Record) bool {
	_, ok := r.peaceful[e.id]
	return ok
}

// Hostile returns the hostile set ordered by id. The order keeps field
// accumulation deterministic between cycles.
func (r *Registry) Hostile() []*Record { return sortedRecords(r.hostile) }

// Peaceful returns the peaceful set ordered by id.
func (r *Registry) Peaceful() []*Record { return sortedRecords(r.peaceful) }

func sortedRecords(m map[ID]*Record) []*Record {
	out := make([]*Record, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Record) int { return cmp.Compare(a.id, b.id) })
	return out
}

// addCost counts an identified enemy into the totals once.
func (r *Registry) addCost(e *Record) {
	if e.counted || e.def == nil || e.IsIgnore() {
		return
	}
	t := tally{cost: e.cost, mobile: e.def.IsMobile()}
	thr := r.model.DefThreat(e.def)
	if t.mobile {
		t.threat = thr * r.mod.Mobile
		r.totals.MobileCost += t.cost
		r.totals.MobileThreat += t.threat
	} else {
		t.threat = thr * r.mod.Static
		r.totals.StaticCost += t.cost
		r.totals.StaticThreat += t.threat
	}
	e.tally = t
	e.counted = true
}

func (r *Registry) delCost(e *Record) {
	if !e.counted {
		return
	}
	t := e.tally
	if t.mobile {
		r.totals.MobileCost = max(r.totals.MobileCost-t.cost, 0)
		r.totals.MobileThreat = max(r.totals.MobileThreat-t.threat, 0)
	} else {
		r.totals.StaticCost = max(r.totals.StaticCost-t.cost, 0)
		r.totals.StaticThreat = max(r.totals.StaticThreat-t.threat, 0)
	}
	e.tally = tally{}
	e.counted = false
}

func (r *Registry) toHostile(e *Record) {
	delete(r.peaceful, e.id)
	r.hostile[e.id] = e
}

func (r *Registry) toPeaceful(e *Record) {
	delete(r.hostile, e.id)
	r.peaceful[e.id] = e
}

// EnemyEnterLOS handles a full-fidelity sighting. It returns true the first
// time the enemy becomes known. The first sighting with a def counts the
// enemy into Totals.
func (r *Registry) EnemyEnterLOS(e *Record) bool {
	e.los |= LosLOS
	wasKnown := e.known
	defer r.addCost(e)

	if !e.IsAttacker() {
		switch {
		case e.threat > 0:
			// threat prediction made while the enemy was unknown failed
			r.toPeaceful(e)
			e.SetThreat(0)
			r.model.SetEnemyUnitRange(e)
		case !r.IsPeaceful(e):
			r.toPeaceful(e)
			r.model.SetEnemyUnitRange(e)
		}
		e.clearHidden()

		e.updateInRadarData(r.grid)
		e.updateInLosData()
		e.known = true
		return !wasKnown
	}

	if !r.IsHostile(e) {
		r.toHostile(e)
	}
	e.clearHidden()

	e.updateInRadarData(r.grid)
	e.updateInLosData()
	if e.def != nil {
		r.model.SetEnemyUnitRange(e)
	} else {
		r.model.NewEnemy(e)
	}
	r.model.SetEnemyUnitThreat(e)
	e.known = true
	return !wasKnown
}

// EnemyLeaveLOS only drops the LOS flag; the enemy stays tracked.
func (r *Registry) EnemyLeaveLOS(e *Record) {
	e.los &^= LosLOS
}

// EnemyEnterRadar handles a position-only sighting.
func (r *Registry) EnemyEnterRadar(e *Record) {
	e.los |= LosRadar

	// LOS already covers everything radar would refresh.
	if e.IsInLOS() {
		return
	}

	if !e.IsAttacker() {
		e.clearHidden()
		e.updateInRadarData(r.grid)
		return
	}

	isNew := false
	if !r.IsHostile(e) {
		r.toHostile(e)
		isNew = true
	}
	e.clearHidden()

	e.updateInRadarData(r.grid)
	if isNew {
		r.model.NewEnemy(e)
	}
}

// Refresh applies the latest Observe to a tracked enemy: everything while
// in LOS, only position while in radar.
func (r *Registry) Refresh(e *Record) {
	switch {
	case e.IsInLOS():
		e.updateInRadarData(r.grid)
		e.updateInLosData()
	case e.IsInRadar():
		e.updateInRadarData(r.grid)
	}
}

// EnemyLeaveRadar only drops the radar flag.
func (r *Registry) EnemyLeaveRadar(e *Record) {
	e.los &^= LosRadar
}

// EnemyDestroyed forgets the enemy. It returns whether the kill was of a
// known enemy.
func (r *Registry) EnemyDestroyed(e *Record) bool {
	r.delCost(e)
	if _, ok := r.hostile[e.id]; ok {
		delete(r.hostile, e.id)
	} else {
		delete(r.peaceful, e.id)
	}
	delete(r.units, e.id)
	e.los = LosDead | LosHidden
	return e.known
}

// Expire drops enemies whose last sighting is at least maxAge frames old.
// Enemies never seen in LOS or radar are kept.
func (r *Registry) Expire(frame, maxAge int) []ID {
	var gone []ID
	for id, e := range r.units {
		if e.lastSeen < 0 || e.IsInRadarOrLOS() {
			continue
		}
		if frame-e.lastSeen >= maxAge {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)
	for _, id := range gone {
		r.EnemyDestroyed(r.units[id])
	}
	return gone
}
