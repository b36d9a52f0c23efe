package ipc

import "github.com/nstehr/vimy/vimy-perception/model"

// These constants must stay in sync with the host's message type enum.
const (
	TypeHello         = "hello"
	TypeAck           = "ack"
	TypeError         = "error"
	TypeEvents        = "events"
	TypeVisibility    = "visibility"
	TypeTerrain       = "terrain"
	TypeTick          = "tick"
	TypeThreatSummary = "threat_summary"
	TypeQuery         = "query"
	TypeQueryResult   = "query_result"
)

// HelloMessage opens a session with the static game data.
type HelloMessage struct {
	Player  string        `json:"player"`
	Terrain *TerrainData  `json:"terrain"`
	Defs    []UnitDefData `json:"defs"`
}

// TerrainData is the sector grid, row-major. Hello carries the first one;
// a terrain message replaces it after the host recomputes sectors.
type TerrainData struct {
	SquareSize int       `json:"squareSize"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Types      []int     `json:"types"`               // model.TerrainType per sector
	Elevation  []float32 `json:"elevation,omitempty"` // average height per sector
}

type RangeData struct {
	Air   float32 `json:"air,omitempty"`
	Land  float32 `json:"land,omitempty"`
	Water float32 `json:"water,omitempty"`
}

// UnitDefData describes one unit type. Caps uses the capability names
// of model.Capability ("mobile", "fly", "surf_to_air", ...).
type UnitDefData struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Caps            []string  `json:"caps"`
	Speed           float32   `json:"speed"`
	Aoe             float32   `json:"aoe,omitempty"`
	XSize           int       `json:"xsize"`
	ZSize           int       `json:"zsize"`
	Health          float32   `json:"health"`
	DPS             float32   `json:"dps,omitempty"`
	Damage          float32   `json:"damage,omitempty"`
	Cost            float32   `json:"cost,omitempty"`
	Range           RangeData `json:"range"`
	ShieldRadius    float32   `json:"shieldRadius,omitempty"`
	ShieldPower     float32   `json:"shieldPower,omitempty"`
	Weapon          string    `json:"weapon,omitempty"`
	ProjectileSpeed float32   `json:"projectileSpeed,omitempty"`
	Tracks          bool      `json:"tracks,omitempty"`
}

type AckMessage struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"` // message type that failed
	Error string `json:"error"`
}

// EventsMessage batches the visibility transitions of one frame.
type EventsMessage struct {
	Frame int         `json:"frame"`
	Items []EventItem `json:"items"`
}

// EventItem is one transition. Def is the unit type id when the host
// knows it; radar contacts usually carry none.
type EventItem struct {
	Kind       string    `json:"kind"`
	ID         int       `json:"id"`
	Def        *int      `json:"def,omitempty"`
	Pos        model.Pos `json:"pos"`
	Vel        model.Pos `json:"vel"`
	Health     float32   `json:"health,omitempty"`
	Shield     float32   `json:"shield,omitempty"`
	BeingBuilt bool      `json:"beingBuilt,omitempty"`
	Paralyzed  bool      `json:"paralyzed,omitempty"`
	Disarmed   bool      `json:"disarmed,omitempty"`
}

// VisibilityMessage carries the coverage bitmaps, row-major at their mip
// level. Cells > 0 are covered. Omitted mip levels fall back to the
// configured ones.
type VisibilityMessage struct {
	LosMip   *int    `json:"losMip,omitempty"`
	RadarMip *int    `json:"radarMip,omitempty"`
	LOS      []int32 `json:"los"`
	Radar    []int32 `json:"radar,omitempty"`
	Sonar    []int32 `json:"sonar,omitempty"`
}

type TickMessage struct {
	Frame int `json:"frame"`
}

// ThreatSummary answers a tick.
type ThreatSummary struct {
	Frame     int     `json:"frame"`
	Hostile   int     `json:"hostile"`
	Peaceful  int     `json:"peaceful"`
	Started   bool    `json:"started"` // a new cycle was queued this tick
	Updating  bool    `json:"updating"`
	Published int     `json:"published"` // cycles published while handling this tick
	MaxAir    float32 `json:"maxAir"`
	MaxSurf   float32 `json:"maxSurface"`
	MaxCloak  float32 `json:"maxCloak"`

	// Cost and threat of identified, non-ignored enemies still alive.
	MobileCost   float32 `json:"mobileCost"`
	StaticCost   float32 `json:"staticCost"`
	MobileThreat float32 `json:"mobileThreat"`
	StaticThreat float32 `json:"staticThreat"`
}

// QueryMessage asks for field values. Layer is "air", "surface",
// "amphibious", "cloak", "shield", "influence", "all", "builder" or
// "net_influence".
type QueryMessage struct {
	Layer     string      `json:"layer"`
	Positions []model.Pos `json:"positions"`
}

type QueryResult struct {
	Layer  string    `json:"layer"`
	Values []float32 `json:"values"` // NaN-free; off-map positions are clamped
}
