package rules

import (
	"fmt"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// Config holds user-supplied expressions. A definition matching any
// expression of a list gets the corresponding flag.
type Config struct {
	Ignore    []string `yaml:"ignore"`
	AlwaysHit []string `yaml:"always_hit"`
	Attacker  []string `yaml:"attacker"`
}

// DefaultRules detects always-hit weapons: instant-hit beams, cannons whose
// shell arrives within a second over 80% of their range, and tracking
// missiles. Such weapons splat their full threat over the whole radius.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:         "always-hit-instant",
			Priority:     300,
			Category:     "always_hit",
			Exclusive:    true,
			ConditionSrc: `Weapon in ["BeamLaser", "LightningCannon", "Rifle"]`,
			Effect:       Effect{Set: model.CapAlwaysHit},
		},
		{
			Name:         "always-hit-fast-cannon",
			Priority:     290,
			Category:     "always_hit",
			Exclusive:    true,
			ConditionSrc: `Weapon in ["Cannon", "DGun", "EmgCannon", "Flame", "LaserCannon", "AircraftBomb"] && ProjectileSpeed * FramesPerSec >= 0.8 * MaxRange("")`,
			Effect:       Effect{Set: model.CapAlwaysHit},
		},
		{
			Name:         "always-hit-tracking-missile",
			Priority:     280,
			Category:     "always_hit",
			Exclusive:    true,
			ConditionSrc: `Weapon in ["MissileLauncher", "StarburstLauncher", "TorpedoLauncher"] && Tracks`,
			Effect:       Effect{Set: model.CapAlwaysHit},
		},
	}
}

// CompileConfig turns user expressions into rules. User rules outrank the
// defaults so they can force a flag the defaults would not set.
func CompileConfig(c Config) []*Rule {
	var rules []*Rule
	add := func(kind string, srcs []string, prio int, eff Effect) {
		for i, src := range srcs {
			rules = append(rules, &Rule{
				Name:         fmt.Sprintf("%s-%d", kind, i),
				Priority:     prio - i,
				Category:     kind,
				Exclusive:    true,
				ConditionSrc: src,
				Effect:       eff,
			})
		}
	}
	add("ignore", c.Ignore, 1000, Effect{Set: model.CapIgnore})
	add("always_hit", c.AlwaysHit, 900, Effect{Set: model.CapAlwaysHit})
	add("attacker", c.Attacker, 800, Effect{Set: model.CapAttacker})
	return rules
}
