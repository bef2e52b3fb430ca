package metrics

import (
	"github.com/vitaliy-khomyn/minicov/pkg/cfg"
	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
)

// BytecodeExtractor finds the basic-block jump arcs of a compiled
// program: every control transfer its flow graphs allow.
type BytecodeExtractor struct{}

// Kind returns Bytecode.
func (BytecodeExtractor) Kind() Kind {
	return Bytecode
}

// Possible builds a control flow graph per unit and unions their jump
// arcs. Each unit is analyzed independently.
func (BytecodeExtractor) Possible(in Input) Set[Arc] {
	arcs := NewSet[Arc]()
	if in.Program == nil {
		return arcs
	}

	in.Program.Walk(func(u *codeunit.Unit) {
		for _, a := range cfg.New(u).Jumps() {
			arcs.Add(Arc(a))
		}
	})
	return arcs
}
