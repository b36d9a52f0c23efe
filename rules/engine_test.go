package rules

import (
	"testing"

	"github.com/nstehr/vimy/vimy-perception/model"
)

func TestDefaultRulesCompile(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		t.Fatalf("NewClassifier(DefaultRules()) failed: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 rules, got %d", c.Len())
	}
	// Verify priority ordering (descending).
	for i := 1; i < len(c.rules); i++ {
		if c.rules[i].Priority > c.rules[i-1].Priority {
			t.Errorf("rules not sorted by priority: %s (%d) > %s (%d)",
				c.rules[i].Name, c.rules[i].Priority,
				c.rules[i-1].Name, c.rules[i-1].Priority)
		}
	}
}

func TestNewClassifierRejectsBadExpression(t *testing.T) {
	_, err := NewClassifier([]*Rule{{Name: "broken", ConditionSrc: `Speed >`}})
	if err == nil {
		t.Fatal("expected compile error")
	}
	_, err = NewClassifier([]*Rule{{Name: "not-bool", ConditionSrc: `Speed + 1`}})
	if err == nil {
		t.Fatal("expected error for non-bool condition")
	}
}

func TestClassifyAlwaysHit(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}

	fastCannon := &model.UnitDef{Name: "tank", Weapon: "Cannon", ProjectileSpeed: 20}
	fastCannon.SetMaxRange(model.RangeLand, 400)
	slowCannon := &model.UnitDef{Name: "arty", Weapon: "Cannon", ProjectileSpeed: 5}
	slowCannon.SetMaxRange(model.RangeLand, 1200)

	tests := []struct {
		name string
		def  *model.UnitDef
		want bool
	}{
		{"beam", &model.UnitDef{Name: "laser", Weapon: "BeamLaser"}, true},
		{"fast cannon", fastCannon, true},
		{"slow cannon", slowCannon, false},
		{"tracking missile", &model.UnitDef{Name: "sam", Weapon: "MissileLauncher", Tracks: true}, true},
		{"dumb missile", &model.UnitDef{Name: "rocket", Weapon: "MissileLauncher"}, false},
		{"unarmed", &model.UnitDef{Name: "miner"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.def).Has(model.CapAlwaysHit)
			if got != tt.want {
				t.Errorf("always hit = %v, want %v", got, tt.want)
			}
			if tt.def.Caps.Has(model.CapAlwaysHit) {
				t.Error("Classify modified the def")
			}
		})
	}
}

func TestExclusiveCategoryBlocksLowerPriority(t *testing.T) {
	rules := []*Rule{
		{Name: "low", Priority: 1, Category: "x", ConditionSrc: `true`, Effect: Effect{Clear: model.CapAttacker}},
		{Name: "high", Priority: 10, Category: "x", Exclusive: true, ConditionSrc: `true`, Effect: Effect{Set: model.CapAttacker}},
	}
	c, err := NewClassifier(rules)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Classify(&model.UnitDef{}).Has(model.CapAttacker) {
		t.Error("lower-priority rule overrode exclusive decision")
	}
}

func TestApplyUpdatesCatalogue(t *testing.T) {
	cat := model.NewCatalogue([]*model.UnitDef{
		{ID: 1, Name: "wall"},
		{ID: 2, Name: "laser", Weapon: "BeamLaser", DPS: 10},
		{ID: 3, Name: "miner"},
	})
	rules := append(DefaultRules(), CompileConfig(Config{Ignore: []string{`NameIs("wall", "fence")`}})...)
	c, err := NewClassifier(rules)
	if err != nil {
		t.Fatal(err)
	}
	if n := c.Apply(cat); n != 2 {
		t.Errorf("changed %d defs, want 2", n)
	}
	if !cat.Get(1).IsIgnore() {
		t.Error("wall not ignored")
	}
	if !cat.Get(2).IsAlwaysHit() || !cat.Get(2).IsAttacker() {
		t.Errorf("laser caps: %v", cat.Get(2).Caps)
	}
	if cat.Get(3).Caps != 0 {
		t.Errorf("miner caps changed: %v", cat.Get(3).Caps)
	}
}

func TestClassifyUsesFramesPerSec(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	arty := &model.UnitDef{Name: "arty", Weapon: "Cannon", ProjectileSpeed: 5}
	arty.SetMaxRange(model.RangeLand, 1200)

	if c.Classify(arty).Has(model.CapAlwaysHit) {
		t.Fatal("slow shell always hits at the default game speed")
	}
	c.SetFramesPerSec(0)
	if c.Classify(arty).Has(model.CapAlwaysHit) {
		t.Fatal("zero game speed replaced the default")
	}
	c.SetFramesPerSec(200)
	if !c.Classify(arty).Has(model.CapAlwaysHit) {
		t.Error("5 * 200 >= 0.8 * 1200 should always hit")
	}
}
