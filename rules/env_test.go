package rules

import (
	"testing"

	"github.com/nstehr/vimy/vimy-perception/model"
)

func TestDefEnvMaxRange(t *testing.T) {
	d := &model.UnitDef{}
	d.SetMaxRange(model.RangeAir, 300)
	d.SetMaxRange(model.RangeLand, 500)
	env := newDefEnv(d, defaultFramesPerSec)

	tests := []struct {
		target string
		want   float64
	}{
		{"air", 300},
		{"LAND", 500},
		{"water", 0},
		{"", 500},
	}
	for _, tt := range tests {
		if got := env.MaxRange(tt.target); got != tt.want {
			t.Errorf("MaxRange(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestDefEnvCan(t *testing.T) {
	env := newDefEnv(&model.UnitDef{Caps: model.CapMobile | model.CapSurfToAir}, defaultFramesPerSec)
	if !env.Can("surf_to_air") || !env.Can("Mobile") {
		t.Error("Can missed a set capability")
	}
	if env.Can("fly") {
		t.Error("Can reported an unset capability")
	}
	if !env.Mobile || env.Fly {
		t.Errorf("movement flags: mobile=%v fly=%v", env.Mobile, env.Fly)
	}
}

func TestDefEnvNameIs(t *testing.T) {
	env := newDefEnv(&model.UnitDef{Name: "Tesla"}, defaultFramesPerSec)
	if !env.NameIs("tank", "tesla") {
		t.Error("NameIs should be case-insensitive")
	}
	if env.NameIs("tank") {
		t.Error("NameIs matched a different name")
	}
}
