// Package agent runs one perception session per connected game host.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/nstehr/vimy/vimy-perception/config"
	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/ipc"
	"github.com/nstehr/vimy/vimy-perception/logging"
	"github.com/nstehr/vimy/vimy-perception/mapmgr"
	"github.com/nstehr/vimy/vimy-perception/metrics"
	"github.com/nstehr/vimy/vimy-perception/model"
	"github.com/nstehr/vimy/vimy-perception/rules"
	"github.com/nstehr/vimy/vimy-perception/sched"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

// Agent owns the enemy picture and threat field of a single player session.
// Handlers run on the connection's read loop, which is the authoritative
// thread for the registry and the scheduler's game jobs.
type Agent struct {
	Conn    *ipc.Connection
	Player  string
	Session string

	cfg     config.Config
	metrics *metrics.Collector
	log     *slog.Logger

	sched     *sched.Scheduler
	catalogue *model.Catalogue
	manager   *mapmgr.Manager
	vis       mapmgr.Bitmaps
}

// New creates an uninitialized session. conn and m may be nil.
func New(ctx context.Context, conn *ipc.Connection, cfg config.Config, m *metrics.Collector) *Agent {
	id := uuid.NewString()
	return &Agent{
		Conn:    conn,
		Session: id,
		cfg:     cfg,
		metrics: m,
		log:     logging.FromContext(ctx).With("session", id),
	}
}

// Register installs the session's handlers on its connection.
func (a *Agent) Register() {
	a.Conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	a.Conn.RegisterHandler(ipc.TypeEvents, a.HandleEvents)
	a.Conn.RegisterHandler(ipc.TypeVisibility, a.HandleVisibility)
	a.Conn.RegisterHandler(ipc.TypeTerrain, a.HandleTerrain)
	a.Conn.RegisterHandler(ipc.TypeTick, a.HandleTick)
	a.Conn.RegisterHandler(ipc.TypeQuery, a.HandleQuery)
}

// Manager is nil until hello.
func (a *Agent) Manager() *mapmgr.Manager { return a.manager }

// Visibility hands the latest bitmaps to the map manager before each cycle.
func (a *Agent) Visibility() mapmgr.Bitmaps { return a.vis }

// HandleHello builds the terrain, classifies the unit catalogue and starts
// the threat engine.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}
	if err := a.Init(hello); err != nil {
		return nil, err
	}

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Session: a.Session})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Init does the work of HandleHello without the envelope, for replays.
func (a *Agent) Init(hello ipc.HelloMessage) error {
	if a.manager != nil {
		return errors.New("session already initialized")
	}
	grid, err := terrainGrid(hello.Terrain)
	if err != nil {
		return err
	}
	defs, err := unitDefs(hello.Defs)
	if err != nil {
		return err
	}
	cat := model.NewCatalogue(defs)

	classifier, err := rules.NewClassifier(append(rules.CompileConfig(a.cfg.Rules), rules.DefaultRules()...))
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}
	classifier.SetFramesPerSec(a.cfg.Threat.FramesPerSec)
	flagged := classifier.Apply(cat)

	a.sched = sched.New(a.cfg.Threat.Workers, 0)
	eng := threat.New(grid, cat, a.cfg.ThreatConfig(), a.sched, a.metrics)
	reg := enemy.NewRegistry(eng, grid)
	reg.SetThreatMod(a.cfg.ThreatMod())
	a.catalogue = cat
	a.manager = mapmgr.New(a.cfg.MapConfig(), grid, reg, eng, a, a.metrics)

	a.Player = hello.Player
	if a.Conn != nil {
		a.Conn.Player = hello.Player
	}
	a.log.Info("player identified",
		"player", a.Player,
		"grid", fmt.Sprintf("%dx%d@%d", grid.Width, grid.Height, grid.SquareSize),
		"defs", cat.Len(),
		"flagged", flagged,
	)
	return nil
}

func (a *Agent) HandleEvents(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.EventsMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	return nil, a.Events(msg)
}

// Events applies a batch of transitions. Bad items are skipped and reported
// together once the rest of the batch is applied.
func (a *Agent) Events(msg ipc.EventsMessage) error {
	if a.manager == nil {
		return mapmgr.ErrNotInitialized
	}
	var errs []error
	for _, it := range msg.Items {
		if err := a.apply(it); err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", it.ID, it.Kind, err))
		}
	}
	if len(errs) > 0 {
		a.log.Warn("events partially applied", "frame", msg.Frame, "items", len(msg.Items), "errors", len(errs))
	}
	return errors.Join(errs...)
}

func (a *Agent) apply(it ipc.EventItem) error {
	id := enemy.ID(it.ID)
	s := enemy.Sighting{
		Pos:        it.Pos,
		Vel:        it.Vel,
		Health:     it.Health,
		Shield:     it.Shield,
		BeingBuilt: it.BeingBuilt,
		Paralyzed:  it.Paralyzed,
		Disarmed:   it.Disarmed,
	}
	switch it.Kind {
	case ipc.EventEnterLOS:
		var def *model.UnitDef
		if it.Def != nil {
			if def = a.catalogue.Get(model.DefID(*it.Def)); def == nil {
				return fmt.Errorf("unknown def %d", *it.Def)
			}
		}
		if a.manager.EnemyEnterLOS(id, def, s) && def != nil {
			a.log.Debug("enemy identified", "id", it.ID, "def", def.Name)
		}
	case ipc.EventLeaveLOS:
		a.manager.EnemyLeaveLOS(id)
	case ipc.EventEnterRadar:
		a.manager.EnemyEnterRadar(id, s)
	case ipc.EventLeaveRadar:
		a.manager.EnemyLeaveRadar(id)
	case ipc.EventDestroyed:
		if a.manager.EnemyDestroyed(id) {
			a.log.Debug("known enemy destroyed", "id", it.ID, "totals", a.manager.Registry().Totals())
		}
	case ipc.EventUpdate:
		a.manager.Observe(id, s)
	default:
		return fmt.Errorf("unknown event kind %q", it.Kind)
	}
	return nil
}

func (a *Agent) HandleVisibility(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.VisibilityMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	return nil, a.Visible(msg)
}

// Visible replaces the coverage bitmaps. Missing mip levels come from the
// map config.
func (a *Agent) Visible(msg ipc.VisibilityMessage) error {
	if a.manager == nil {
		return mapmgr.ErrNotInitialized
	}
	losMip, radarMip := a.cfg.Map.LosMipLevel, a.cfg.Map.RadarMipLevel
	if msg.LosMip != nil {
		losMip = *msg.LosMip
	}
	if msg.RadarMip != nil {
		radarMip = *msg.RadarMip
	}
	if losMip < 0 || radarMip < 0 {
		return fmt.Errorf("negative mip level: los %d radar %d", losMip, radarMip)
	}
	a.vis = mapmgr.Bitmaps{
		LosMip:   losMip,
		RadarMip: radarMip,
		LOS:      msg.LOS,
		Radar:    msg.Radar,
		Sonar:    msg.Sonar,
	}
	a.manager.SetVisibility(a.vis)
	return nil
}

func (a *Agent) HandleTerrain(env ipc.Envelope) (*ipc.Envelope, error) {
	var t ipc.TerrainData
	if err := env.Decode(&t); err != nil {
		return nil, err
	}
	return nil, a.Terrain(&t)
}

// Terrain swaps in a recomputed sector grid. The dimensions must match the
// grid from hello; the next cycle uses the new classification.
func (a *Agent) Terrain(t *ipc.TerrainData) error {
	if a.manager == nil {
		return mapmgr.ErrNotInitialized
	}
	grid, err := terrainGrid(t)
	if err != nil {
		return err
	}
	cur := a.manager.Grid()
	if grid.Width != cur.Width || grid.Height != cur.Height || grid.SquareSize != cur.SquareSize {
		return fmt.Errorf("terrain resized from %dx%d@%d to %dx%d@%d",
			cur.Width, cur.Height, cur.SquareSize, grid.Width, grid.Height, grid.SquareSize)
	}
	a.manager.SetTerrain(grid)
	a.log.Debug("terrain replaced", "frame", a.manager.Frame())
	return nil
}

// HandleTick publishes finished cycles, maybe starts a new one, and replies
// with a summary of the published field.
func (a *Agent) HandleTick(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.TickMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	sum, err := a.Tick(msg.Frame)
	if err != nil {
		return nil, err
	}
	resp, err := ipc.NewEnvelope(ipc.TypeThreatSummary, sum)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *Agent) Tick(frame int) (ipc.ThreatSummary, error) {
	if a.manager == nil {
		return ipc.ThreatSummary{}, mapmgr.ErrNotInitialized
	}
	published := a.sched.RunGameJobs()
	started := a.manager.Tick(frame)
	return a.summary(frame, started, published), nil
}

func (a *Agent) summary(frame int, started bool, published int) ipc.ThreatSummary {
	reg := a.manager.Registry()
	eng := a.manager.Engine()
	tot := reg.Totals()
	return ipc.ThreatSummary{
		Frame:     frame,
		Hostile:   reg.HostileLen(),
		Peaceful:  reg.PeacefulLen(),
		Started:   started,
		Updating:  eng.IsUpdating(),
		Published: published,
		MaxAir:    layerMax(eng.Layer(threat.LayerAir)),
		MaxSurf:   layerMax(eng.Layer(threat.LayerSurface)),
		MaxCloak:  layerMax(eng.Layer(threat.LayerCloak)),

		MobileCost:   tot.MobileCost,
		StaticCost:   tot.StaticCost,
		MobileThreat: tot.MobileThreat,
		StaticThreat: tot.StaticThreat,
	}
}

func (a *Agent) HandleQuery(env ipc.Envelope) (*ipc.Envelope, error) {
	var q ipc.QueryMessage
	if err := env.Decode(&q); err != nil {
		return nil, err
	}
	res, err := a.Query(q)
	if err != nil {
		return nil, err
	}
	resp, err := ipc.NewEnvelope(ipc.TypeQueryResult, res)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query samples the published field. Off-map positions are clamped to the
// nearest edge sector.
func (a *Agent) Query(q ipc.QueryMessage) (ipc.QueryResult, error) {
	if a.manager == nil {
		return ipc.QueryResult{}, mapmgr.ErrNotInitialized
	}
	eng := a.manager.Engine()
	var at func(model.Pos) float32
	switch q.Layer {
	case "all":
		at = eng.AllThreatAt
	case "builder":
		at = eng.BuilderThreatAt
	case "net_influence":
		at = eng.InfluenceAt
	case "cloak":
		at = eng.CloakAt
	case "shield":
		at = eng.ShieldAt
	default:
		k, ok := threat.ParseLayerKind(q.Layer)
		if !ok {
			return ipc.QueryResult{}, fmt.Errorf("unknown layer %q", q.Layer)
		}
		at = func(p model.Pos) float32 { return eng.LayerAt(k, p) }
	}

	grid := a.manager.Grid()
	out := ipc.QueryResult{Layer: q.Layer, Values: make([]float32, len(q.Positions))}
	for i, p := range q.Positions {
		out.Values[i] = at(grid.Clamp(p))
	}
	return out, nil
}

// Close stops the workers and publishes whatever they finished.
func (a *Agent) Close() {
	if a.sched == nil {
		return
	}
	a.sched.Close()
	a.sched.RunGameJobs()
	a.log.Info("session closed", "player", a.Player)
}

func layerMax(l []float32) float32 {
	var m float32
	for _, v := range l {
		m = max(m, v)
	}
	return m
}

func terrainGrid(t *ipc.TerrainData) (*model.SectorGrid, error) {
	if t == nil {
		return nil, errors.New("hello without terrain")
	}
	if t.SquareSize <= 0 || t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("bad terrain dimensions %dx%d@%d", t.Width, t.Height, t.SquareSize)
	}
	n := t.Width * t.Height
	if len(t.Types) != 0 && len(t.Types) != n {
		return nil, fmt.Errorf("terrain types: got %d sectors, want %d", len(t.Types), n)
	}
	if len(t.Elevation) != 0 && len(t.Elevation) != n {
		return nil, fmt.Errorf("terrain elevation: got %d sectors, want %d", len(t.Elevation), n)
	}
	grid := model.NewSectorGrid(t.SquareSize, t.Width, t.Height)
	for i := range grid.Sectors {
		if len(t.Types) > 0 {
			tt := t.Types[i]
			if tt < int(model.Land) || tt > int(model.Bridge) {
				return nil, fmt.Errorf("terrain types: unknown type %d at sector %d", tt, i)
			}
			grid.Sectors[i].Type = model.TerrainType(tt)
		}
		if len(t.Elevation) > 0 {
			e := t.Elevation[i]
			if math.IsNaN(float64(e)) {
				return nil, fmt.Errorf("terrain elevation: NaN at sector %d", i)
			}
			grid.Sectors[i].Elevation = e
		}
	}
	return grid, nil
}

func unitDefs(data []ipc.UnitDefData) ([]*model.UnitDef, error) {
	defs := make([]*model.UnitDef, 0, len(data))
	seen := make(map[int]bool, len(data))
	for _, d := range data {
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate def id %d", d.ID)
		}
		seen[d.ID] = true
		caps, err := model.ParseCapabilities(d.Caps)
		if err != nil {
			return nil, fmt.Errorf("def %q: %w", d.Name, err)
		}
		def := &model.UnitDef{
			ID:              model.DefID(d.ID),
			Name:            d.Name,
			Caps:            caps,
			Speed:           d.Speed,
			Aoe:             d.Aoe,
			XSize:           d.XSize,
			ZSize:           d.ZSize,
			Health:          d.Health,
			DPS:             d.DPS,
			Damage:          d.Damage,
			Cost:            d.Cost,
			ShieldRadius:    d.ShieldRadius,
			ShieldPower:     d.ShieldPower,
			Weapon:          d.Weapon,
			ProjectileSpeed: d.ProjectileSpeed,
			Tracks:          d.Tracks,
		}
		def.SetMaxRange(model.RangeAir, d.Range.Air)
		def.SetMaxRange(model.RangeLand, d.Range.Land)
		def.SetMaxRange(model.RangeWater, d.Range.Water)
		defs = append(defs, def)
	}
	return defs, nil
}
