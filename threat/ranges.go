package threat

import (
	"math"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// RangeTable caches per-definition grid radii. It is built once and never
// mutated afterwards.
type RangeTable map[model.DefID]model.Ranges

// BuildRangeTable computes the radii of every def in cat.
func BuildRangeTable(cat *model.Catalogue, cfg Config, squareSize int) RangeTable {
	t := make(RangeTable, cat.Len())
	distCloak := cloakDist(cfg, squareSize)
	for _, d := range cat.All() {
		t[d.ID] = defRanges(d, cfg, squareSize, distCloak)
	}
	return t
}

func cloakDist(cfg Config, squareSize int) int {
	return int((cfg.DecloakRadius + model.DefaultSlack) / float32(squareSize))
}

func defRanges(d *model.UnitDef, cfg Config, squareSize, distCloak int) model.Ranges {
	sq := float32(squareSize)
	slack := sq - 1 + d.Aoe/2 + model.DefaultSlack*cfg.SlackAll
	if d.IsMobile() {
		slack += float32(cfg.UpdateRateFrames) * d.Speed / float32(max(cfg.FramesPerSec, 1))
	} else {
		slack += model.DefaultSlack * cfg.SlackStatic
	}
	reach := func(rt model.RangeType) int {
		return int(d.MaxRange(rt)+slack)/squareSize + 1
	}
	groundOK := func(rt model.RangeType) bool {
		return d.MaxRange(rt) <= cfg.AllowedRange && d.Speed <= cfg.AllowedSpeed
	}

	var r model.Ranges
	if d.HasAntiAir(false) {
		r[model.ThreatAir] = reach(model.RangeAir)
	}
	if d.HasAntiLand(false) && groundOK(model.RangeLand) {
		r[model.ThreatLand] = reach(model.RangeLand)
	}
	if d.HasAntiWater(false) && groundOK(model.RangeWater) {
		r[model.ThreatWater] = reach(model.RangeWater)
	}

	sizeX := float64(d.XSize * (model.SquareSize / 2))
	sizeZ := float64(d.ZSize * (model.SquareSize / 2))
	cloak := distCloak
	if d.IsMobile() {
		cloak += model.DefaultSlack * 2 / squareSize
	}
	r[model.ThreatCloak] = int(math.Sqrt(sizeX*sizeX+sizeZ*sizeZ))/squareSize + cloak

	if d.HasShield() {
		r[model.ThreatShield] = int(d.ShieldRadius)/squareSize + 1
	}
	return r
}
