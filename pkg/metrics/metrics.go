// Package metrics computes coverage statistics. Four metric extractors
// produce the static "possible" sets of a source file; one generic
// calculation reconciles them with executed evidence.
package metrics

import (
	"sort"

	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
	"github.com/vitaliy-khomyn/minicov/pkg/source"
)

// Kind identifies one of the four coverage metrics.
type Kind int

const (
	Statement Kind = iota
	Branch
	Condition
	Bytecode
)

var kindNames = [...]string{
	Statement: "Statement",
	Branch:    "Branch",
	Condition: "Condition",
	Bytecode:  "Bytecode",
}

// String returns the metric's display name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Kinds returns every metric in display order.
func Kinds() []Kind {
	return []Kind{Statement, Branch, Condition, Bytecode}
}

// Set is an unordered collection of coverage elements: line numbers for
// the statement metric, arcs for the rest.
type Set[E comparable] map[E]struct{}

// NewSet returns a set holding the given elements.
func NewSet[E comparable](elems ...E) Set[E] {
	s := make(Set[E], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts an element.
func (s Set[E]) Add(e E) {
	s[e] = struct{}{}
}

// Has reports whether the element is present.
func (s Set[E]) Has(e E) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of elements.
func (s Set[E]) Len() int {
	return len(s)
}

// Arc is a control transfer between two points: source lines for the
// branch metric, instruction addresses for the condition and bytecode
// metrics.
type Arc struct {
	From int `msgpack:"from" json:"from"`
	To   int `msgpack:"to" json:"to"`
}

// Stats is the outcome of one metric over one file.
type Stats[E comparable] struct {
	Pct      float64
	Possible Set[E]
	Hit      Set[E]
	Missing  Set[E]
}

// Calculate reconciles the possible elements of a file with the
// executed evidence. An empty possible set means there was nothing to
// cover, which counts as full coverage. Executed elements outside the
// possible set are ignored.
func Calculate[E comparable](possible, executed Set[E]) Stats[E] {
	stats := Stats[E]{
		Possible: possible,
		Hit:      NewSet[E](),
		Missing:  NewSet[E](),
	}
	if len(possible) == 0 {
		stats.Possible = NewSet[E]()
		stats.Pct = 100.0
		return stats
	}

	for e := range possible {
		if executed.Has(e) {
			stats.Hit.Add(e)
		} else {
			stats.Missing.Add(e)
		}
	}
	stats.Pct = 100.0 * float64(len(stats.Hit)) / float64(len(possible))
	return stats
}

// SortedLines returns the set's lines in ascending order.
func SortedLines(s Set[int]) []int {
	out := make([]int, 0, len(s))
	for line := range s {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

// SortedArcs returns the set's arcs ordered by origin, then target.
func SortedArcs(s Set[Arc]) []Arc {
	out := make([]Arc, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Input bundles the static inputs extractors draw from. Any field may
// be absent; an extractor whose input is missing returns an empty set.
type Input struct {
	Path       string
	File       *source.File
	Suppressed source.SuppressionSet
	Program    *codeunit.Program
}

// Extractor finds the possible elements of one metric.
type Extractor[E comparable] interface {
	Kind() Kind
	Possible(in Input) Set[E]
}

var (
	_ Extractor[int] = StatementExtractor{}
	_ Extractor[Arc] = BranchExtractor{}
	_ Extractor[Arc] = ConditionExtractor{}
	_ Extractor[Arc] = BytecodeExtractor{}
)
