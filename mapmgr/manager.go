// Package mapmgr routes host visibility events into the enemy registry and
// drives threat field cycles.
package mapmgr

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/metrics"
	"github.com/nstehr/vimy/vimy-perception/model"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

// Config controls cycle cadence and bitmap resolution.
type Config struct {
	UpdateRateFrames int
	MaxAgeFrames     int     // enemies unseen this long are dropped
	UnderwaterDepth  float32 // below this, LOS also needs sonar
}

func DefaultConfig() Config {
	return Config{
		UpdateRateFrames: 10,
		MaxAgeFrames:     30 * 60 * 20,
		UnderwaterDepth:  model.UnderwaterDepth,
	}
}

// VisibilitySource returns the host's current bitmaps. EnqueueUpdate pulls
// from it before every cycle.
type VisibilitySource interface {
	Visibility() Bitmaps
}

// Manager is the only writer of the registry. All methods run on the
// authoritative thread.
type Manager struct {
	cfg      Config
	grid     *model.SectorGrid
	registry *enemy.Registry
	engine   *threat.Engine
	source   VisibilitySource
	metrics  *metrics.Collector

	vis        Bitmaps
	frame      int
	lastUpdate int
}

// New wires a manager around an engine and the registry that feeds it.
// source and m may be nil.
func New(cfg Config, grid *model.SectorGrid, reg *enemy.Registry, eng *threat.Engine, source VisibilitySource, m *metrics.Collector) *Manager {
	return &Manager{
		cfg:        cfg,
		grid:       grid,
		registry:   reg,
		engine:     eng,
		source:     source,
		metrics:    m,
		lastUpdate: -cfg.UpdateRateFrames,
	}
}

func (m *Manager) Registry() *enemy.Registry { return m.registry }
func (m *Manager) Engine() *threat.Engine    { return m.engine }
func (m *Manager) Frame() int                { return m.frame }
func (m *Manager) Grid() *model.SectorGrid   { return m.grid }

// SetTerrain pushes a recomputed sector grid to the registry and engine.
func (m *Manager) SetTerrain(grid *model.SectorGrid) {
	m.grid = grid
	m.registry.SetTerrain(grid)
	m.engine.SetTerrain(grid)
}

// SetVisibility replaces the bitmaps used by IsInLOS until the next refresh.
func (m *Manager) SetVisibility(b Bitmaps) { m.vis = b }

// IsInLOS reports whether the position is currently visible. Positions
// below the underwater depth also need sonar coverage.
func (m *Manager) IsInLOS(p model.Pos) bool {
	if p.Y < m.cfg.UnderwaterDepth && !m.vis.covered(m.vis.Sonar, m.vis.RadarMip, m.mapWidth(), p) {
		return false
	}
	return m.vis.covered(m.vis.LOS, m.vis.LosMip, m.mapWidth(), p)
}

// IsInRadar uses sonar instead of radar for submerged positions.
func (m *Manager) IsInRadar(p model.Pos) bool {
	if p.Y < m.cfg.UnderwaterDepth {
		return m.vis.covered(m.vis.Sonar, m.vis.RadarMip, m.mapWidth(), p)
	}
	return m.vis.covered(m.vis.Radar, m.vis.RadarMip, m.mapWidth(), p)
}

// mapWidth is the map width in heightmap squares.
func (m *Manager) mapWidth() int {
	return m.grid.Width * m.grid.SquareSize / model.SquareSize
}

// EnqueueUpdate snapshots the registry and hands it to the engine. It does
// nothing while a cycle is in flight. Enemies whose last known position is
// visible but who are no longer detected are marked hidden and left out.
func (m *Manager) EnqueueUpdate() bool {
	if m.engine.IsUpdating() {
		return false
	}
	if m.source != nil {
		m.vis = m.source.Visibility()
	}
	hostile := m.collect(m.registry.Hostile(), true)
	peaceful := m.collect(m.registry.Peaceful(), false)
	return m.engine.EnqueueUpdate(hostile, peaceful)
}

func (m *Manager) collect(records []*enemy.Record, refreshThreat bool) []threat.Snapshot {
	out := make([]threat.Snapshot, 0, len(records))
	for _, e := range records {
		if e.IsHidden() {
			continue
		}
		if e.NotInRadarAndLOS() && m.IsInLOS(e.Pos()) {
			e.SetHidden()
			continue
		}
		if refreshThreat && e.IsInLOS() {
			m.engine.SetEnemyUnitThreat(e)
		}
		out = append(out, threat.SnapshotOf(e))
	}
	return out
}

// Tick advances the frame counter, starts a cycle once per update period
// and drops long-lost enemies.
func (m *Manager) Tick(frame int) bool {
	m.frame = frame
	if frame-m.lastUpdate < m.cfg.UpdateRateFrames {
		return false
	}
	m.lastUpdate = frame
	if gone := m.registry.Expire(frame, m.cfg.MaxAgeFrames); len(gone) > 0 {
		slog.Debug("expired lost enemies", "frame", frame, "count", len(gone))
	}
	return m.EnqueueUpdate()
}

func (m *Manager) seen(e *enemy.Record, s enemy.Sighting) {
	e.Observe(s)
	e.SetLastSeen(m.frame)
}

// EnemyEnterLOS returns true the first time the enemy is identified.
func (m *Manager) EnemyEnterLOS(id enemy.ID, def *model.UnitDef, s enemy.Sighting) bool {
	m.metrics.Event("enter_los")
	e := m.registry.Register(id, def)
	m.seen(e, s)
	if !m.registry.EnemyEnterLOS(e) {
		return false
	}
	e.SetKnownFrame(m.frame)
	return true
}

func (m *Manager) EnemyLeaveLOS(id enemy.ID) {
	m.metrics.Event("leave_los")
	if e := m.registry.Get(id); e != nil {
		e.SetLastSeen(m.frame)
		m.registry.EnemyLeaveLOS(e)
	}
}

// EnemyEnterRadar does not reveal the unit type; a known def is kept.
func (m *Manager) EnemyEnterRadar(id enemy.ID, s enemy.Sighting) {
	m.metrics.Event("enter_radar")
	e := m.registry.Register(id, nil)
	m.seen(e, s)
	m.registry.EnemyEnterRadar(e)
}

func (m *Manager) EnemyLeaveRadar(id enemy.ID) {
	m.metrics.Event("leave_radar")
	if e := m.registry.Get(id); e != nil {
		e.SetLastSeen(m.frame)
		m.registry.EnemyLeaveRadar(e)
	}
}

// EnemyDestroyed returns whether the enemy had been identified. Unknown ids
// return false.
func (m *Manager) EnemyDestroyed(id enemy.ID) bool {
	m.metrics.Event("destroyed")
	e := m.registry.Get(id)
	if e == nil {
		return false
	}
	return m.registry.EnemyDestroyed(e)
}

// Observe updates a tracked enemy between transitions.
func (m *Manager) Observe(id enemy.ID, s enemy.Sighting) {
	e := m.registry.Get(id)
	if e == nil || !e.IsInRadarOrLOS() {
		return
	}
	m.seen(e, s)
	m.registry.Refresh(e)
}
