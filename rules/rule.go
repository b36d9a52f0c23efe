package rules

import (
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/vimy/vimy-perception/model"
)

// Effect is what a matching rule does to a unit definition's capabilities.
type Effect struct {
	Set   model.Capability
	Clear model.Capability
}

func (e Effect) apply(c model.Capability) model.Capability {
	return (c | e.Set) &^ e.Clear
}

// Rule is a condition → effect pair evaluated once per unit definition.
// Category + Exclusive stop lower-priority rules from overriding a
// decision already made for the same capability.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	ConditionSrc string      // expr source
	program      *vm.Program // compiled bytecode
	Effect       Effect
}
