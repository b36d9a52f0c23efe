package threat

import (
	"math"

	"github.com/nstehr/vimy/vimy-perception/model"
)

const (
	// ThreatCloak is the decloak field value at the detector's own cell.
	ThreatCloak = 16

	gradientFalloff = 0.5
	cloakFalloff    = 0.75
)

// canvas draws splats onto layers of one size. Ground splats consult grid
// for land/water classification.
type canvas struct {
	width, height, squareSize int
	grid                      *model.SectorGrid
}

func (c canvas) cell(p model.Pos) (int, int) {
	return int(p.X) / c.squareSize, int(p.Z) / c.squareSize
}

// box is the clipped [begin, end) span around a centre cell. The far edge
// of the circle is dropped, it only ever holds a single cell.
func (c canvas) box(px, pz, r int) (bx, ex, bz, ez int) {
	return max(px-r+1, 0), min(px+r, c.width), max(pz-r+1, 0), min(pz+r, c.height)
}

func falloff(sum, r int, k float32) float32 {
	return 1 - k*float32(math.Sqrt(float64(sum)))/float32(r)
}

func (c canvas) addAir(dst []float32, s *Snapshot, slack int) {
	px, pz := c.cell(s.Pos)
	r := s.Ranges[model.ThreatAir] + slack
	if r <= 0 {
		return
	}
	rsq := r * r
	bx, ex, bz, ez := c.box(px, pz, r)
	for z := bz; z < ez; z++ {
		dzsq := (pz - z) * (pz - z)
		for x := bx; x < ex; x++ {
			sum := (px-x)*(px-x) + dzsq
			if sum > rsq {
				continue
			}
			dst[z*c.width+x] += s.Threat * falloff(sum, r, gradientFalloff)
		}
	}
}

// groundRanges returns the land and water radii with slack applied, their
// squares (-1 when the weapon is absent) and the larger of the two.
func groundRanges(s *Snapshot, slack int) (landSq, waterSq, r int) {
	landSq, waterSq = -1, -1
	var land, water int
	if l := s.Ranges[model.ThreatLand]; l > 0 {
		land = l + slack
		landSq = land * land
	}
	if w := s.Ranges[model.ThreatWater]; w > 0 {
		water = w + slack
		waterSq = water * water
	}
	return landSq, waterSq, max(land, water)
}

// addAmph splats into the surface and amphibious layers. Water cells take
// the water range, land cells the land range; the amphibious layer skips
// land cells that lie deep enough to be out of reach from the surface.
// With constant set every reached cell gets the full threat.
func (c canvas) addAmph(surf, amph []float32, s *Snapshot, slack int, constant bool) {
	px, pz := c.cell(s.Pos)
	landSq, waterSq, r := groundRanges(s, slack)
	if r <= 0 {
		return
	}
	bx, ex, bz, ez := c.box(px, pz, r)
	for z := bz; z < ez; z++ {
		dzsq := (pz - z) * (pz - z)
		for x := bx; x < ex; x++ {
			sum := (px-x)*(px-x) + dzsq
			inLand := sum <= landSq
			inWater := sum <= waterSq
			if !inLand && !inWater {
				continue
			}
			sec := c.grid.At(x, z)
			waterThreat := inWater && sec.IsWater()
			heat := s.Threat
			if !constant {
				heat *= falloff(sum, r, gradientFalloff)
			}
			i := z*c.width + x
			if waterThreat || (inLand && !sec.IsDeep()) {
				amph[i] += heat
			}
			if waterThreat || inLand {
				surf[i] += heat
			}
		}
	}
}

func (c canvas) addDecloaker(dst []float32, s *Snapshot) {
	px, pz := c.cell(s.Pos)
	r := s.Ranges[model.ThreatCloak]
	if r <= 0 {
		return
	}
	rsq := r * r
	bx, ex, bz, ez := c.box(px, pz, r)
	for z := bz; z < ez; z++ {
		dzsq := (pz - z) * (pz - z)
		for x := bx; x < ex; x++ {
			sum := (px-x)*(px-x) + dzsq
			if sum > rsq {
				continue
			}
			dst[z*c.width+x] += ThreatCloak * falloff(sum, r, cloakFalloff)
		}
	}
}

// addInfluence spreads the enemy's threat over its land range, falling to
// zero at the edge. Buildings project over half the range.
func (c canvas) addInfluence(dst []float32, s *Snapshot) {
	px, pz := c.cell(s.Pos)
	r := s.Ranges[model.ThreatLand]
	if s.Def != nil && !s.Def.IsMobile() {
		r /= 2
	}
	if r <= 0 {
		return
	}
	rsq := r * r
	bx, ex, bz, ez := c.box(px, pz, r)
	for z := bz; z < ez; z++ {
		dzsq := (pz - z) * (pz - z)
		for x := bx; x < ex; x++ {
			sum := (px-x)*(px-x) + dzsq
			if sum > rsq {
				continue
			}
			dst[z*c.width+x] += s.Threat * falloff(sum, r, 1)
		}
	}
}

func (c canvas) addShield(dst []float32, s *Snapshot) {
	px, pz := c.cell(s.Pos)
	r := s.Ranges[model.ThreatShield]
	if r <= 0 {
		return
	}
	rsq := r * r
	bx, ex, bz, ez := c.box(px, pz, r)
	for z := bz; z < ez; z++ {
		rrz := rsq - (pz-z)*(pz-z)
		for x := bx; x < ex; x++ {
			if (px-x)*(px-x) > rrz {
				continue
			}
			dst[z*c.width+x] += s.ShieldPower
		}
	}
}
