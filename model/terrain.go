package model

// TerrainType classifies a sector of the threat grid.
type TerrainType byte

const (
	Land   TerrainType = 0 // passable ground
	Water  TerrainType = 1 // naval only
	Cliff  TerrainType = 2 // impassable (rock, tree, wall)
	Bridge TerrainType = 3 // land corridor over water (chokepoint)
)

// Sector is one cell of the SectorGrid.
type Sector struct {
	Type      TerrainType
	Elevation float32 // average ground height, negative under water
}

func (s Sector) IsWater() bool { return s.Type == Water }

// IsDeep is true when a surface unit standing here would be submerged.
func (s Sector) IsDeep() bool { return s.Elevation < UnderwaterDepth }

// SectorGrid is the coarse terrain decomposition every threat layer shares.
// Each sector covers SquareSize x SquareSize world units.
type SectorGrid struct {
	SquareSize int      // world units per sector side
	Width      int      // sectors along X
	Height     int      // sectors along Z
	Sectors    []Sector // row-major: Sectors[z*Width + x]
}

// NewSectorGrid allocates an all-land grid.
func NewSectorGrid(squareSize, width, height int) *SectorGrid {
	if squareSize <= 0 || width <= 0 || height <= 0 {
		panic("model: sector grid dimensions must be positive")
	}
	return &SectorGrid{
		SquareSize: squareSize,
		Width:      width,
		Height:     height,
		Sectors:    make([]Sector, width*height),
	}
}

// Size is the number of sectors, the length of every threat layer.
func (g *SectorGrid) Size() int { return g.Width * g.Height }

// At returns the sector at grid coordinates (x, z).
// Returns a flat Land sector for out-of-bounds coordinates.
func (g *SectorGrid) At(x, z int) Sector {
	if x < 0 || x >= g.Width || z < 0 || z >= g.Height {
		return Sector{}
	}
	return g.Sectors[z*g.Width+x]
}

// Set overwrites a sector; out-of-bounds writes are ignored.
func (g *SectorGrid) Set(x, z int, s Sector) {
	if x < 0 || x >= g.Width || z < 0 || z >= g.Height {
		return
	}
	g.Sectors[z*g.Width+x] = s
}

// AtPos converts world coordinates to grid coordinates and returns the sector.
func (g *SectorGrid) AtPos(p Pos) Sector {
	x, z := g.PosToXZ(p)
	return g.At(x, z)
}

// ElevationAt is the ground height under a world position.
func (g *SectorGrid) ElevationAt(p Pos) float32 { return g.AtPos(p).Elevation }

// PosToXZ truncates a world position to sector coordinates.
func (g *SectorGrid) PosToXZ(p Pos) (int, int) {
	return int(p.X) / g.SquareSize, int(p.Z) / g.SquareSize
}

// XZToPos returns the world position of the center of sector (x, z).
func (g *SectorGrid) XZToPos(x, z int) Pos {
	return Pos{
		X: float32(x*g.SquareSize + g.SquareSize/2),
		Z: float32(z*g.SquareSize + g.SquareSize/2),
	}
}

func (g *SectorGrid) WorldWidth() float32  { return float32(g.Width * g.SquareSize) }
func (g *SectorGrid) WorldHeight() float32 { return float32(g.Height * g.SquareSize) }

// InBounds reports whether p lies on the map plane.
func (g *SectorGrid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.WorldWidth() && p.Z >= 0 && p.Z < g.WorldHeight()
}

// Clamp pulls a position back onto the map plane, keeping Y.
func (g *SectorGrid) Clamp(p Pos) Pos {
	maxX := g.WorldWidth() - 1
	maxZ := g.WorldHeight() - 1
	p.X = min(max(p.X, 0), maxX)
	p.Z = min(max(p.Z, 0), maxZ)
	return p
}

// HasWater returns true if any sector in the grid is classified as Water.
func (g *SectorGrid) HasWater() bool {
	for _, s := range g.Sectors {
		if s.IsWater() {
			return true
		}
	}
	return false
}
