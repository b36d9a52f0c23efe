// Package config loads the YAML configuration and validates it against an
// embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/mapmgr"
	"github.com/nstehr/vimy/vimy-perception/rules"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

// ErrInvalid wraps every schema violation.
var ErrInvalid = errors.New("invalid config")

type SlackMod struct {
	All    float32   `yaml:"all"`
	Static float32   `yaml:"static"`
	Speed  []float32 `yaml:"speed"` // [per-speed modifier, cap]
}

// ThrMod weighs enemy def threat into the mobile and static totals.
type ThrMod struct {
	Mobile float32 `yaml:"mobile"`
	Static float32 `yaml:"static"`
}

type Threat struct {
	SlackMod         SlackMod `yaml:"slack_mod"`
	ThrMod           ThrMod   `yaml:"thr_mod"`
	DecloakRadius    float32  `yaml:"decloak_radius"`
	AllowedRange     float32  `yaml:"allowed_range"`
	AllowedSpeed     float32  `yaml:"allowed_speed"`
	ShieldMod        float32  `yaml:"shield_mod"`
	UpdateRateFrames int      `yaml:"update_rate_frames"`
	FramesPerSec     int      `yaml:"frames_per_sec"`
	Workers          int      `yaml:"workers"`
	UnknownDamage    float32  `yaml:"unknown_damage"`
}

type Map struct {
	LosMipLevel     int     `yaml:"los_mip_level"`
	RadarMipLevel   int     `yaml:"radar_mip_level"`
	UnderwaterDepth float32 `yaml:"underwater_depth"`
	MaxAgeFrames    int     `yaml:"max_age_frames"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Metrics struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Config is the root of the YAML file.
type Config struct {
	Socket  string       `yaml:"socket"`
	Log     Log          `yaml:"log"`
	Metrics Metrics      `yaml:"metrics"`
	Threat  Threat       `yaml:"threat"`
	Map     Map          `yaml:"map"`
	Rules   rules.Config `yaml:"rules"`
}

// Default mirrors the engine's built-in tuning.
func Default() Config {
	tc := threat.DefaultConfig()
	mc := mapmgr.DefaultConfig()
	tm := enemy.DefaultThreatMod()
	return Config{
		Socket: "/tmp/vimy.sock",
		Log:    Log{Level: "info", Format: "text"},
		Threat: Threat{
			SlackMod: SlackMod{
				All:    tc.SlackAll,
				Static: tc.SlackStatic,
				Speed:  []float32{tc.SpeedMod, float32(tc.SpeedModMax)},
			},
			ThrMod:           ThrMod{Mobile: tm.Mobile, Static: tm.Static},
			DecloakRadius:    tc.DecloakRadius,
			AllowedRange:     tc.AllowedRange,
			AllowedSpeed:     tc.AllowedSpeed,
			ShieldMod:        tc.ShieldMod,
			UpdateRateFrames: tc.UpdateRateFrames,
			FramesPerSec:     tc.FramesPerSec,
			Workers:          4,
			UnknownDamage:    tc.UnknownDamage,
		},
		Map: Map{
			LosMipLevel:     1,
			RadarMipLevel:   3,
			UnderwaterDepth: mc.UnderwaterDepth,
			MaxAgeFrames:    mc.MaxAgeFrames,
		},
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates data and overlays it on Default. name is only used in
// error messages.
func Parse(name string, data []byte) (Config, error) {
	if err := Validate(name, data); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// ThreatConfig converts the threat section for the engine.
func (c Config) ThreatConfig() threat.Config {
	t := threat.DefaultConfig()
	t.SlackAll = c.Threat.SlackMod.All
	t.SlackStatic = c.Threat.SlackMod.Static
	if len(c.Threat.SlackMod.Speed) > 0 {
		t.SpeedMod = c.Threat.SlackMod.Speed[0]
	}
	if len(c.Threat.SlackMod.Speed) > 1 {
		t.SpeedModMax = int(c.Threat.SlackMod.Speed[1])
	}
	t.DecloakRadius = c.Threat.DecloakRadius
	t.AllowedRange = c.Threat.AllowedRange
	t.AllowedSpeed = c.Threat.AllowedSpeed
	t.ShieldMod = c.Threat.ShieldMod
	t.UpdateRateFrames = c.Threat.UpdateRateFrames
	t.FramesPerSec = c.Threat.FramesPerSec
	t.UnknownDamage = c.Threat.UnknownDamage
	return t
}

func (c Config) ThreatMod() enemy.ThreatMod {
	return enemy.ThreatMod{Mobile: c.Threat.ThrMod.Mobile, Static: c.Threat.ThrMod.Static}
}

func (c Config) MapConfig() mapmgr.Config {
	return mapmgr.Config{
		UpdateRateFrames: c.Threat.UpdateRateFrames,
		MaxAgeFrames:     c.Map.MaxAgeFrames,
		UnderwaterDepth:  c.Map.UnderwaterDepth,
	}
}
