package metrics

import (
	"reflect"
	"testing"

	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
)

func singleUnitProgram(instrs ...codeunit.Instruction) *codeunit.Program {
	p := codeunit.NewProgram()
	p.Add(codeunit.Unit{Name: "<module>", Instructions: instrs})
	return p
}

func TestConditionArcs(t *testing.T) {
	tests := []struct {
		name    string
		program *codeunit.Program
		want    []Arc
	}{
		{
			name: "bool jump yields taken and fallthrough arcs",
			program: singleUnitProgram(
				codeunit.Instruction{Offset: 0, Op: codeunit.OpOther},
				codeunit.Instruction{Offset: 2, Op: codeunit.OpBoolJump, Target: 8},
				codeunit.Instruction{Offset: 4, Op: codeunit.OpOther},
				codeunit.Instruction{Offset: 6, Op: codeunit.OpOther},
				codeunit.Instruction{Offset: 8, Op: codeunit.OpTerm},
			),
			want: []Arc{{2, 4}, {2, 8}},
		},
		{
			name: "final bool jump has no fallthrough",
			program: singleUnitProgram(
				codeunit.Instruction{Offset: 0, Op: codeunit.OpOther},
				codeunit.Instruction{Offset: 2, Op: codeunit.OpBoolJump, Target: 0},
			),
			want: []Arc{{2, 0}},
		},
		{
			name: "misaligned target keeps only the fallthrough",
			program: singleUnitProgram(
				codeunit.Instruction{Offset: 0, Op: codeunit.OpBoolJump, Target: 99},
				codeunit.Instruction{Offset: 2, Op: codeunit.OpTerm},
			),
			want: []Arc{{0, 2}},
		},
		{
			name: "other jump classes are not conditions",
			program: singleUnitProgram(
				codeunit.Instruction{Offset: 0, Op: codeunit.OpCondJump, Target: 4},
				codeunit.Instruction{Offset: 2, Op: codeunit.OpJump, Target: 6},
				codeunit.Instruction{Offset: 4, Op: codeunit.OpBackJump, Target: 0},
				codeunit.Instruction{Offset: 6, Op: codeunit.OpTerm},
			),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortedArcs(ConditionExtractor{}.Possible(Input{Program: tt.program}))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("condition arcs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConditionArcsNestedUnits(t *testing.T) {
	p := codeunit.NewProgram()
	root := p.Add(codeunit.Unit{
		Name: "<module>",
		Instructions: []codeunit.Instruction{
			{Offset: 0, Op: codeunit.OpBoolJump, Target: 2},
			{Offset: 2, Op: codeunit.OpTerm},
		},
	})
	child := p.Add(codeunit.Unit{
		Name: "helper",
		Instructions: []codeunit.Instruction{
			{Offset: 0, Op: codeunit.OpOther},
			{Offset: 2, Op: codeunit.OpBoolJump, Target: 6},
			{Offset: 4, Op: codeunit.OpOther},
			{Offset: 6, Op: codeunit.OpTerm},
		},
	})
	p.Unit(root).Children = []int{child}

	got := SortedArcs(ConditionExtractor{}.Possible(Input{Program: p}))
	want := []Arc{{0, 2}, {2, 4}, {2, 6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("condition arcs = %v, want %v", got, want)
	}
}

func TestConditionTwoOutcomesPerJump(t *testing.T) {
	// Three interior bool jumps, each contributing exactly two arcs.
	p := singleUnitProgram(
		codeunit.Instruction{Offset: 0, Op: codeunit.OpBoolJump, Target: 6},
		codeunit.Instruction{Offset: 2, Op: codeunit.OpBoolJump, Target: 6},
		codeunit.Instruction{Offset: 4, Op: codeunit.OpBoolJump, Target: 8},
		codeunit.Instruction{Offset: 6, Op: codeunit.OpOther},
		codeunit.Instruction{Offset: 8, Op: codeunit.OpTerm},
	)
	arcs := ConditionExtractor{}.Possible(Input{Program: p})
	if arcs.Len() != 6 {
		t.Errorf("arc count = %d, want 6 (two per bool jump): %v", arcs.Len(), SortedArcs(arcs))
	}
}
