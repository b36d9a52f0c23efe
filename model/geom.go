package model

import "math"

// SquareSize is the number of world units per heightmap square.
const SquareSize = 8

// ThreatRes is the number of heightmap squares the default slack spans.
const ThreatRes = 8

// DefaultSlack is the world-space margin added around every threat circle.
const DefaultSlack = SquareSize * ThreatRes

// UnderwaterDepth is the elevation below which a position counts as submerged
// for sonar and amphibious checks.
const UnderwaterDepth = -SquareSize * 5

// Pos is a world-space position. X and Z span the map plane, Y is elevation.
// Velocities use the same type in world units per frame.
type Pos struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Length2D ignores the vertical component.
func (p Pos) Length2D() float32 {
	return float32(math.Sqrt(float64(p.X*p.X + p.Z*p.Z)))
}
