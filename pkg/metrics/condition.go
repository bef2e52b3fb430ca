package metrics

import (
	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
)

// ConditionExtractor finds the two-outcome arcs of every short-circuit
// boolean jump in a compiled program. Each boolean jump can either take
// its target or fall through, so full coverage means both arcs were
// seen. This is the reduced model: two outcomes per condition, not the
// full combinatorial table.
type ConditionExtractor struct{}

// Kind returns Condition.
func (ConditionExtractor) Kind() Kind {
	return Condition
}

// Possible visits every unit of the program. For each boolean jump it
// emits the taken arc and the fallthrough arc. The fallthrough is
// omitted when the jump is the unit's last instruction; a target that
// matches no instruction address in the unit drops the taken arc.
func (ConditionExtractor) Possible(in Input) Set[Arc] {
	arcs := NewSet[Arc]()
	if in.Program == nil {
		return arcs
	}

	in.Program.Walk(func(u *codeunit.Unit) {
		valid := make(map[int]bool, len(u.Instructions))
		for _, ins := range u.Instructions {
			valid[ins.Offset] = true
		}
		for i, ins := range u.Instructions {
			if ins.Op != codeunit.OpBoolJump {
				continue
			}
			if valid[ins.Target] {
				arcs.Add(Arc{From: ins.Offset, To: ins.Target})
			}
			if i+1 < len(u.Instructions) {
				arcs.Add(Arc{From: ins.Offset, To: u.Instructions[i+1].Offset})
			}
		}
	})
	return arcs
}
