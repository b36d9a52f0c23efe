package mapmgr

import (
	"context"
	"testing"
	"time"

	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/model"
	"github.com/nstehr/vimy/vimy-perception/sched"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

type staticSource struct{ b Bitmaps }

func (s *staticSource) Visibility() Bitmaps { return s.b }

var (
	tankDef  = &model.UnitDef{ID: 1, Name: "tank", Caps: model.CapMobile | model.CapSurfToLand, DPS: 100, Damage: 100}
	minerDef = &model.UnitDef{ID: 2, Name: "miner", Caps: model.CapMobile}
)

func init() {
	tankDef.SetMaxRange(model.RangeLand, 200)
}

const size = 32

func newTestManager(t *testing.T, s *sched.Scheduler, src VisibilitySource) *Manager {
	t.Helper()
	grid := model.NewSectorGrid(model.SquareSize, size, size)
	cat := model.NewCatalogue([]*model.UnitDef{tankDef, minerDef})
	eng := threat.New(grid, cat, threat.DefaultConfig(), s, nil)
	reg := enemy.NewRegistry(eng, grid)
	return New(DefaultConfig(), grid, reg, eng, src, nil)
}

func cellPos(x, z int) model.Pos {
	return model.Pos{X: float32(x*model.SquareSize + 4), Z: float32(z*model.SquareSize + 4)}
}

// fullLOS covers every cell at mip 0.
func fullLOS() Bitmaps {
	b := Bitmaps{LOS: make([]int32, size*size), Radar: make([]int32, size*size), Sonar: make([]int32, size*size)}
	for i := range b.LOS {
		b.LOS[i] = 1
	}
	return b
}

func TestIsInLOSMipLevels(t *testing.T) {
	m := newTestManager(t, nil, nil)
	// mip 1 over a 32-square map: 16 cells wide, 16 world units per cell
	b := Bitmaps{LosMip: 1, RadarMip: 2, LOS: make([]int32, 16*16), Sonar: make([]int32, 8*8)}
	b.LOS[2*16+3] = 1
	m.SetVisibility(b)

	if !m.IsInLOS(model.Pos{X: 50, Z: 40}) {
		t.Error("covered LOS cell reported invisible")
	}
	if m.IsInLOS(model.Pos{X: 70, Z: 40}) {
		t.Error("neighbour cell reported visible")
	}

	deep := model.Pos{X: 50, Y: -60, Z: 40}
	if m.IsInLOS(deep) {
		t.Error("submerged position visible without sonar")
	}
	b.Sonar[1*8+1] = 1 // 32 world units per sonar cell
	m.SetVisibility(b)
	if !m.IsInLOS(deep) {
		t.Error("submerged position with sonar and LOS reported invisible")
	}
	if !m.IsInRadar(deep) {
		t.Error("sonar coverage not reported as radar below water")
	}
}

func TestIsInLOSWithoutBitmaps(t *testing.T) {
	m := newTestManager(t, nil, nil)
	if m.IsInLOS(cellPos(1, 1)) {
		t.Error("no bitmaps should mean no visibility")
	}
}

func TestEnqueueUpdateMarksLostEnemiesHidden(t *testing.T) {
	src := &staticSource{b: fullLOS()}
	m := newTestManager(t, nil, src)

	m.EnemyEnterRadar(1, enemy.Sighting{Pos: cellPos(2, 2)})
	m.EnemyLeaveRadar(1)
	m.EnemyEnterRadar(2, enemy.Sighting{Pos: cellPos(28, 28)})

	if !m.EnqueueUpdate() {
		t.Fatal("update refused")
	}
	lost := m.Registry().Get(1)
	if !lost.IsHidden() {
		t.Fatal("enemy at visible, empty spot not hidden")
	}
	if m.Registry().Get(2).IsHidden() {
		t.Fatal("radar contact hidden")
	}
	eng := m.Engine()
	if got := eng.CloakAt(cellPos(2, 2)); got != 0 {
		t.Errorf("hidden enemy still splatted: %v", got)
	}
	if got := eng.CloakAt(cellPos(28, 28)); got <= 0 {
		t.Errorf("tracked enemy missing from field: %v", got)
	}

	// re-detection clears hidden
	m.EnemyEnterRadar(1, enemy.Sighting{Pos: cellPos(3, 3)})
	if lost.IsHidden() {
		t.Error("re-detected enemy still hidden")
	}
}

func TestLostEnemyOutOfSightStaysTracked(t *testing.T) {
	m := newTestManager(t, nil, &staticSource{})
	m.EnemyEnterRadar(1, enemy.Sighting{Pos: cellPos(5, 5)})
	m.EnemyLeaveRadar(1)
	m.EnqueueUpdate()
	if m.Registry().Get(1).IsHidden() {
		t.Error("enemy hidden although its last position is not visible")
	}
	if m.Engine().AllThreatAt(cellPos(5, 5)) <= 0 {
		t.Error("untracked-but-not-lost enemy should still splat")
	}
}

func TestEnqueueUpdateRefreshesThreatInLOS(t *testing.T) {
	m := newTestManager(t, nil, nil)
	m.EnemyEnterLOS(1, tankDef, enemy.Sighting{Pos: cellPos(8, 8), Health: 100})
	before := m.Registry().Get(1).Threat()

	m.Observe(1, enemy.Sighting{Pos: cellPos(8, 8), Health: 25})
	m.EnqueueUpdate()
	after := m.Registry().Get(1).Threat()
	if after >= before || after <= 0 {
		t.Errorf("threat not refreshed: before %v after %v", before, after)
	}
}

func TestEnqueueUpdateSkippedWhileUpdating(t *testing.T) {
	s := sched.New(1, 4)
	defer s.Close()
	m := newTestManager(t, s, nil)

	if !m.EnqueueUpdate() {
		t.Fatal("first update refused")
	}
	if m.EnqueueUpdate() {
		t.Fatal("second update accepted while first in flight")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WaitGameJob(ctx); err != nil {
		t.Fatal(err)
	}
	if !m.EnqueueUpdate() {
		t.Fatal("update after publish refused")
	}
}

func TestTickCadenceAndExpiry(t *testing.T) {
	m := newTestManager(t, nil, nil)
	if !m.Tick(0) {
		t.Fatal("first tick should start a cycle")
	}
	m.EnemyEnterRadar(1, enemy.Sighting{Pos: cellPos(3, 3)})
	m.EnemyLeaveRadar(1)

	if m.Tick(5) {
		t.Error("cycle started before update period elapsed")
	}
	if !m.Tick(10) {
		t.Error("cycle not started after update period")
	}
	if m.Registry().Get(1) == nil {
		t.Fatal("enemy expired early")
	}

	m.Tick(DefaultConfig().MaxAgeFrames)
	if m.Registry().Get(1) != nil {
		t.Error("long-lost enemy not expired")
	}
}

func TestEventRouting(t *testing.T) {
	m := newTestManager(t, nil, nil)
	m.Tick(0)
	m.Tick(40)

	if !m.EnemyEnterLOS(3, minerDef, enemy.Sighting{Pos: cellPos(1, 1)}) {
		t.Fatal("first LOS sighting not newly known")
	}
	if got := m.Registry().Get(3).KnownFrame(); got != 40 {
		t.Errorf("known frame: got %d, want 40", got)
	}
	if !m.Registry().IsPeaceful(m.Registry().Get(3)) {
		t.Error("miner not peaceful")
	}
	m.EnemyLeaveLOS(3)
	if m.Registry().Get(3).IsInLOS() {
		t.Error("leave LOS not routed")
	}
	if !m.EnemyDestroyed(3) {
		t.Error("destroyed identified enemy should report known")
	}
	if m.EnemyDestroyed(3) {
		t.Error("destroying an unknown id reported known")
	}
	m.EnemyLeaveLOS(99)
	m.EnemyLeaveRadar(99)
	m.Observe(99, enemy.Sighting{})
}
