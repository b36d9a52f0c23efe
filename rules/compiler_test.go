package rules

import (
	"testing"

	"github.com/expr-lang/expr"
	"github.com/nstehr/vimy/vimy-perception/model"
)

func TestDefaultRulesAreValidExpr(t *testing.T) {
	for _, r := range DefaultRules() {
		_, err := expr.Compile(r.ConditionSrc, expr.Env(DefEnv{}), expr.AsBool())
		if err != nil {
			t.Errorf("rule %q failed to compile: %v\ncondition: %s", r.Name, err, r.ConditionSrc)
		}
	}
}

func TestCompileConfig(t *testing.T) {
	rules := CompileConfig(Config{
		Ignore:    []string{`NameIs("wall")`, `Health < 10`},
		AlwaysHit: []string{`Weapon == "Flame"`},
		Attacker:  []string{`Can("shield")`},
	})
	if len(rules) != 4 {
		t.Fatalf("got %d rules, want 4", len(rules))
	}

	want := map[string]Effect{
		"ignore-0":     {Set: model.CapIgnore},
		"ignore-1":     {Set: model.CapIgnore},
		"always_hit-0": {Set: model.CapAlwaysHit},
		"attacker-0":   {Set: model.CapAttacker},
	}
	for _, r := range rules {
		eff, ok := want[r.Name]
		if !ok {
			t.Errorf("unexpected rule %q", r.Name)
			continue
		}
		if r.Effect != eff {
			t.Errorf("rule %q effect %+v, want %+v", r.Name, r.Effect, eff)
		}
		if !r.Exclusive {
			t.Errorf("rule %q should be exclusive", r.Name)
		}
	}
	if rules[0].Priority <= rules[1].Priority {
		t.Error("earlier expressions should outrank later ones")
	}
}

func TestCompileConfigEmpty(t *testing.T) {
	if rules := CompileConfig(Config{}); len(rules) != 0 {
		t.Errorf("empty config produced %d rules", len(rules))
	}
}

func TestUserAttackerRule(t *testing.T) {
	c, err := NewClassifier(CompileConfig(Config{Attacker: []string{`Can("shield")`}}))
	if err != nil {
		t.Fatal(err)
	}
	gen := &model.UnitDef{Caps: model.CapShield}
	if !c.Classify(gen).Has(model.CapAttacker) {
		t.Error("shield generator not forced to attacker")
	}
}
