package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// Classifier runs compiled rules against unit definitions.
// Rules fire in priority order; exclusive rules block lower-priority rules
// in the same category.
type Classifier struct {
	rules        []*Rule
	framesPerSec float64
}

const defaultFramesPerSec = 30

// NewClassifier compiles all rule conditions into expr bytecode and sorts by priority.
func NewClassifier(rules []*Rule) (*Classifier, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Classifier{rules: compiled, framesPerSec: defaultFramesPerSec}, nil
}

// SetFramesPerSec sets the game speed rules see as FramesPerSec.
// Non-positive values are ignored.
func (c *Classifier) SetFramesPerSec(fps int) {
	if fps > 0 {
		c.framesPerSec = float64(fps)
	}
}

func (c *Classifier) Len() int { return len(c.rules) }

// Classify returns def's capabilities after every matching rule applied.
// def itself is not modified.
func (c *Classifier) Classify(def *model.UnitDef) model.Capability {
	env := newDefEnv(def, c.framesPerSec)
	caps := def.Caps
	fired := make(map[string]bool) // category → exclusive rule already fired

	for _, r := range c.rules {
		if fired[r.Category] {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "def", def.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		slog.Debug("rule fired", "rule", r.Name, "def", def.Name, "priority", r.Priority)
		caps = r.Effect.apply(caps)

		if r.Exclusive {
			fired[r.Category] = true
		}
	}
	return caps
}

// Apply classifies every definition of cat in place and returns how many
// changed.
func (c *Classifier) Apply(cat *model.Catalogue) int {
	changed := 0
	for _, d := range cat.All() {
		caps := c.Classify(d)
		if caps != d.Caps {
			d.Caps = caps
			changed++
		}
	}
	slog.Info("unit defs classified", "defs", cat.Len(), "changed", changed, "rules", len(c.rules))
	return changed
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(DefEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
