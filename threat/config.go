package threat

import "github.com/nstehr/vimy/vimy-perception/model"

// Config tunes range slack and cycle timing.
type Config struct {
	SlackAll      float32 // multiplier on DefaultSlack for every def
	SlackStatic   float32 // extra DefaultSlack multiplier for buildings
	SpeedMod      float32 // velocity slack per world unit of 2-D speed, in DefaultSlack cells
	SpeedModMax   int     // velocity slack cap, in DefaultSlack cells
	DecloakRadius float32 // world units

	// Land and water weapons beyond AllowedRange, or on units faster than
	// AllowedSpeed, do not contribute to the field.
	AllowedRange float32
	AllowedSpeed float32

	ShieldMod        float32
	UpdateRateFrames int
	FramesPerSec     int
	UnknownDamage    float32
}

func DefaultConfig() Config {
	return Config{
		SlackAll:         1,
		SlackStatic:      1,
		SpeedMod:         1,
		SpeedModMax:      2,
		DecloakRadius:    model.DefaultSlack * 2,
		AllowedRange:     2000,
		AllowedSpeed:     200,
		ShieldMod:        1,
		UpdateRateFrames: 10,
		FramesPerSec:     30,
		UnknownDamage:    0.1,
	}
}
