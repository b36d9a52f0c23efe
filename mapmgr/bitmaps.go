package mapmgr

import "github.com/nstehr/vimy/vimy-perception/model"

// Bitmaps holds the host's mip-mapped coverage grids. LOS uses LosMip,
// radar and sonar share RadarMip. A cell is covered when its value is > 0.
type Bitmaps struct {
	LosMip   int
	RadarMip int
	LOS      []int32
	Radar    []int32
	Sonar    []int32
}

// covered looks up p in a bitmap of the given mip level over a map
// mapWidth heightmap squares wide. Missing or short bitmaps cover nothing.
func (b Bitmaps) covered(bits []int32, mip, mapWidth int, p model.Pos) bool {
	if len(bits) == 0 || p.X < 0 || p.Z < 0 {
		return false
	}
	conv := model.SquareSize << mip
	w := mapWidth >> mip
	x := int(p.X) / conv
	z := int(p.Z) / conv
	if x >= w {
		return false
	}
	i := z*w + x
	if i >= len(bits) {
		return false
	}
	return bits[i] > 0
}
