// Package threat maintains the double-buffered threat fields: per-cell
// danger for air, surface and amphibious movers, cloak detection coverage,
// shield overlay and enemy influence. One cycle fills the hidden buffer from enemy
// snapshots and publishes it with an atomic swap, so readers on any
// goroutine always see one complete set.
package threat

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/metrics"
	"github.com/nstehr/vimy/vimy-perception/model"
	"github.com/nstehr/vimy/vimy-perception/sched"
)

// Engine owns both layer sets and implements enemy.ThreatModel.
type Engine struct {
	cfg    Config
	grid   *model.SectorGrid
	ranges RangeTable

	width, height, squareSize int

	rangeDefault int
	distCloak    int
	speedMod     float32
	speedModMax  int

	sets       [2]*LayerSet
	published  atomic.Pointer[LayerSet]
	updating   atomic.Bool
	threatKind atomic.Int32

	sched   *sched.Scheduler
	metrics *metrics.Collector
}

var _ enemy.ThreatModel = (*Engine)(nil)

// New allocates both layer sets over grid and builds the range table for
// every def in cat. With a nil scheduler EnqueueUpdate computes inline.
// m may be nil.
func New(grid *model.SectorGrid, cat *model.Catalogue, cfg Config, s *sched.Scheduler, m *metrics.Collector) *Engine {
	if grid == nil || cat == nil {
		panic("threat: engine needs terrain and unit defs")
	}
	sq := grid.SquareSize
	e := &Engine{
		cfg:          cfg,
		grid:         grid,
		ranges:       BuildRangeTable(cat, cfg, sq),
		width:        grid.Width,
		height:       grid.Height,
		squareSize:   sq,
		rangeDefault: model.DefaultSlack * 4 / sq,
		distCloak:    cloakDist(cfg, sq),
		speedMod:     cfg.SpeedMod * model.DefaultSlack / float32(sq),
		speedModMax:  cfg.SpeedModMax * model.DefaultSlack / sq,
		sched:        s,
		metrics:      m,
	}
	e.sets[0] = newLayerSet(e.width, e.height)
	e.sets[1] = newLayerSet(e.width, e.height)
	e.published.Store(e.sets[0])
	e.threatKind.Store(int32(LayerSurface))
	return e
}

// SetTerrain replaces the land/water classification used by later cycles.
// A cycle already in flight keeps the grid it started with.
func (e *Engine) SetTerrain(grid *model.SectorGrid) {
	if grid.Width != e.width || grid.Height != e.height || grid.SquareSize != e.squareSize {
		panic(fmt.Sprintf("threat: terrain resized from %dx%d/%d to %dx%d/%d",
			e.width, e.height, e.squareSize, grid.Width, grid.Height, grid.SquareSize))
	}
	e.grid = grid
}

func (e *Engine) Width() int       { return e.width }
func (e *Engine) Height() int      { return e.height }
func (e *Engine) SquareSize() int  { return e.squareSize }
func (e *Engine) IsUpdating() bool { return e.updating.Load() }

func (e *Engine) Ranges() RangeTable { return e.ranges }

// RangesFor returns the cached radii of def, computing them for defs the
// catalogue did not contain.
func (e *Engine) RangesFor(def *model.UnitDef) model.Ranges {
	if r, ok := e.ranges[def.ID]; ok {
		return r
	}
	return defRanges(def, e.cfg, e.squareSize, e.distCloak)
}

// EnqueueUpdate starts a cycle over the given snapshots. It returns false,
// and does nothing, while a previous cycle has not been published yet.
func (e *Engine) EnqueueUpdate(hostile, peaceful []Snapshot) bool {
	if !e.updating.CompareAndSwap(false, true) {
		e.metrics.CycleSkipped()
		slog.Debug("threat cycle skipped, previous still running")
		return false
	}
	cycle := uuid.NewString()
	grid := e.grid
	e.metrics.Snapshot(len(hostile), len(peaceful))

	if e.sched == nil {
		e.computeJob(cycle, grid, hostile, peaceful)()
		return true
	}
	e.sched.RunJob(func() sched.GameJob {
		return e.computeJob(cycle, grid, hostile, peaceful)
	})
	return true
}

// Update runs a whole cycle on the calling goroutine.
func (e *Engine) Update(hostile, peaceful []Snapshot) bool {
	if !e.updating.CompareAndSwap(false, true) {
		e.metrics.CycleSkipped()
		return false
	}
	e.metrics.Snapshot(len(hostile), len(peaceful))
	e.computeJob(uuid.NewString(), e.grid, hostile, peaceful)()
	return true
}

// computeJob fills the hidden set and returns the publish step. A panic
// still yields a game job so the engine does not stay stuck in updating.
func (e *Engine) computeJob(cycle string, grid *model.SectorGrid, hostile, peaceful []Snapshot) (job sched.GameJob) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("threat compute panicked", "cycle", cycle, "panic", r)
			job = func() { e.updating.Store(false) }
		}
	}()
	start := time.Now()
	next := e.compute(grid, hostile, peaceful)
	took := time.Since(start)
	return func() { e.publish(cycle, next, took) }
}

func (e *Engine) hidden() *LayerSet {
	if e.published.Load() == e.sets[0] {
		return e.sets[1]
	}
	return e.sets[0]
}

func (e *Engine) compute(grid *model.SectorGrid, hostile, peaceful []Snapshot) *LayerSet {
	next := e.hidden()
	// Readers pinned the set before the last swap; let them finish.
	for next.readers.Load() != 0 {
		runtime.Gosched()
	}

	var airs, amphs, cloaks, shields []*Snapshot
	for i := range hostile {
		s := &hostile[i]
		if s.Def == nil {
			airs = append(airs, s)
			amphs = append(amphs, s)
			cloaks = append(cloaks, s)
			continue
		}
		sub := s.Def.InWater(grid.ElevationAt(s.Pos), s.Pos.Y)
		if s.Def.HasAntiAir(sub) {
			airs = append(airs, s)
		}
		if s.Def.HasAntiLand(sub) || s.Def.HasAntiWater(sub) {
			amphs = append(amphs, s)
		}
		cloaks = append(cloaks, s)
		if s.Def.HasShield() {
			shields = append(shields, s)
		}
	}
	for i := range peaceful {
		cloaks = append(cloaks, &peaceful[i])
	}

	c := canvas{width: e.width, height: e.height, squareSize: e.squareSize, grid: grid}
	var g errgroup.Group
	g.Go(func() error {
		next.clear(LayerAir)
		dst := next.layer(LayerAir)
		for _, s := range airs {
			c.addAir(dst, s, e.velSlack(s))
		}
		return nil
	})
	g.Go(func() error {
		next.clear(LayerSurface, LayerAmphibious)
		surf, amph := next.layer(LayerSurface), next.layer(LayerAmphibious)
		for _, s := range amphs {
			constant := s.Def != nil && s.Def.IsAlwaysHit()
			c.addAmph(surf, amph, s, e.velSlack(s), constant)
		}
		return nil
	})
	g.Go(func() error {
		next.clear(LayerCloak)
		dst := next.layer(LayerCloak)
		for _, s := range cloaks {
			c.addDecloaker(dst, s)
		}
		return nil
	})
	g.Go(func() error {
		next.clear(LayerInfluence)
		dst := next.layer(LayerInfluence)
		for i := range hostile {
			c.addInfluence(dst, &hostile[i])
		}
		return nil
	})
	g.Go(func() error {
		next.clear(LayerShield)
		dst := next.layer(LayerShield)
		for _, s := range shields {
			c.addShield(dst, s)
		}
		return nil
	})
	_ = g.Wait()
	return next
}

// velSlack widens the splat of a moving, identified enemy.
func (e *Engine) velSlack(s *Snapshot) int {
	if s.Def == nil {
		return 0
	}
	return min(int(s.Vel.Length2D()*e.speedMod), e.speedModMax)
}

func (e *Engine) publish(cycle string, next *LayerSet, took time.Duration) {
	if !e.updating.Load() {
		return
	}
	e.published.Store(next)
	e.updating.Store(false)
	e.metrics.CycleCompleted(took)
	slog.Debug("threat field published", "cycle", cycle, "took", took)
}

// acquire pins the published set until the caller releases it.
func (e *Engine) acquire() *LayerSet {
	for {
		s := e.published.Load()
		s.readers.Add(1)
		if e.published.Load() == s {
			return s
		}
		s.readers.Add(-1)
	}
}

func (e *Engine) index(p model.Pos) int {
	if p.X < 0 || p.Z < 0 || p.X >= float32(e.width*e.squareSize) || p.Z >= float32(e.height*e.squareSize) {
		panic(fmt.Sprintf("threat: position out of bounds: (%.1f, %.1f)", p.X, p.Z))
	}
	x := int(p.X) / e.squareSize
	z := int(p.Z) / e.squareSize
	return z*e.width + x
}

func (e *Engine) at(k LayerKind, p model.Pos) float32 {
	i := e.index(p)
	s := e.acquire()
	v := s.layers[k][i]
	s.readers.Add(-1)
	return v
}

func kindFor(def *model.UnitDef) LayerKind {
	switch {
	case def.IsAbleToFly():
		return LayerAir
	case def.IsAmphibious():
		return LayerAmphibious
	default:
		return LayerSurface
	}
}

// SetThreatType selects the layer ThreatAt reads, from how u moves.
func (e *Engine) SetThreatType(u model.Unit) {
	e.threatKind.Store(int32(kindFor(u.Def())))
}

// ThreatAt reads the layer chosen by the last SetThreatType. Out-of-bounds
// positions panic; callers clamp first.
func (e *Engine) ThreatAt(p model.Pos) float32 {
	return e.at(LayerKind(e.threatKind.Load()), p)
}

// UnitThreatAt reads the layer that matters to u, regardless of SetThreatType.
func (e *Engine) UnitThreatAt(u model.Unit, p model.Pos) float32 {
	return e.at(kindFor(u.Def()), p)
}

// AllThreatAt returns only the surface component. Air and amphibious
// fields are not summed in.
func (e *Engine) AllThreatAt(p model.Pos) float32 { return e.at(LayerSurface, p) }

// BuilderThreatAt is the surface threat a ground constructor would face.
func (e *Engine) BuilderThreatAt(p model.Pos) float32 { return e.at(LayerSurface, p) }

// LayerAt reads any layer directly.
func (e *Engine) LayerAt(k LayerKind, p model.Pos) float32 { return e.at(k, p) }

func (e *Engine) CloakAt(p model.Pos) float32  { return e.at(LayerCloak, p) }
func (e *Engine) ShieldAt(p model.Pos) float32 { return e.at(LayerShield, p) }

func (e *Engine) EnemyInfluenceAt(p model.Pos) float32 { return e.at(LayerInfluence, p) }

// InfluenceAt is allied minus enemy influence. Own units are not tracked,
// so the allied side is zero and the result is never positive.
func (e *Engine) InfluenceAt(p model.Pos) float32 { return -e.at(LayerInfluence, p) }

// Layer copies one published layer.
func (e *Engine) Layer(k LayerKind) []float32 {
	s := e.acquire()
	out := make([]float32, len(s.layers[k]))
	copy(out, s.layers[k])
	s.readers.Add(-1)
	return out
}

func (e *Engine) damage(r *enemy.Record) float32 { return r.Damage(e.cfg.UnknownDamage) }

// EnemyUnitThreat is the instantaneous danger of one enemy, boosted by any
// friendly shield covering it.
func (e *Engine) EnemyUnitThreat(r *enemy.Record) float32 {
	health := r.Health()
	if health <= 0 {
		return 0
	}
	shield := e.ShieldAt(r.Pos())
	return e.damage(r) * float32(math.Sqrt(float64(health+shield*e.cfg.ShieldMod)))
}

// UnitPower rates one of our own units the same way.
func (e *Engine) UnitPower(def *model.UnitDef, health, shieldPower float32) float32 {
	hp := max(health+shieldPower*e.cfg.ShieldMod, 0)
	return def.ThreatDamage() * float32(math.Sqrt(float64(hp)))
}

// DefThreat is the threat of a full-health unit of def.
func (e *Engine) DefThreat(def *model.UnitDef) float32 {
	return e.UnitPower(def, def.Health, def.ShieldPower)
}

func (e *Engine) SetEnemyUnitRange(r *enemy.Record) {
	def := r.Def()
	if def == nil {
		panic("threat: SetEnemyUnitRange on unidentified enemy")
	}
	r.SetRanges(e.RangesFor(def))
}

func (e *Engine) SetEnemyUnitThreat(r *enemy.Record) {
	r.SetThreat(e.EnemyUnitThreat(r))
}

func (e *Engine) NewEnemy(r *enemy.Record) {
	r.SetThreat(e.damage(r))
	r.SetRange(model.ThreatAir, e.rangeDefault)
	r.SetRange(model.ThreatLand, e.rangeDefault)
	r.SetRange(model.ThreatWater, e.rangeDefault)
	r.SetRange(model.ThreatCloak, e.distCloak)
}
