package rules

import (
	"slices"
	"strings"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// DefEnv exposes one unit definition to rule expressions.
type DefEnv struct {
	Name            string
	Weapon          string
	Speed           float64
	Aoe             float64
	Health          float64
	DPS             float64
	Damage          float64
	ProjectileSpeed float64
	Tracks          bool
	Mobile          bool
	Fly             bool
	Amphibious      bool
	FramesPerSec    float64

	def *model.UnitDef
}

func newDefEnv(d *model.UnitDef, framesPerSec float64) DefEnv {
	return DefEnv{
		Name:            d.Name,
		Weapon:          d.Weapon,
		Speed:           float64(d.Speed),
		Aoe:             float64(d.Aoe),
		Health:          float64(d.Health),
		DPS:             float64(d.DPS),
		Damage:          float64(d.Damage),
		ProjectileSpeed: float64(d.ProjectileSpeed),
		Tracks:          d.Tracks,
		Mobile:          d.IsMobile(),
		Fly:             d.IsAbleToFly(),
		Amphibious:      d.IsAmphibious(),
		FramesPerSec:    framesPerSec,
		def:             d,
	}
}

// MaxRange returns the longest weapon range against "air", "land" or
// "water" targets, or the longest overall for any other argument.
func (e DefEnv) MaxRange(target string) float64 {
	switch strings.ToLower(target) {
	case "air":
		return float64(e.def.MaxRange(model.RangeAir))
	case "land":
		return float64(e.def.MaxRange(model.RangeLand))
	case "water":
		return float64(e.def.MaxRange(model.RangeWater))
	}
	return float64(max(e.def.MaxRange(model.RangeAir), e.def.MaxRange(model.RangeLand), e.def.MaxRange(model.RangeWater)))
}

// Can reports a capability by its name, e.g. Can("surf_to_air").
func (e DefEnv) Can(name string) bool {
	return slices.Contains(strings.Split(e.def.Caps.String(), "|"), strings.ToLower(name))
}

// NameIs matches the unit name case-insensitively against any of names.
func (e DefEnv) NameIs(names ...string) bool {
	return slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, e.Name) })
}
