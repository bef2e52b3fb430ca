package metrics

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/vitaliy-khomyn/minicov/pkg/source"
)

// StatementExtractor finds the statement-capable lines of a parsed
// file.
type StatementExtractor struct{}

// Kind returns Statement.
func (StatementExtractor) Kind() Kind {
	return Statement
}

// Possible walks every node of the syntax tree. A statement node
// contributes its first line unless that line is suppressed. Elif
// clauses count as statements in their own right. Expression statements
// wrapping a bare constant (docstrings, standalone literals) are not
// executable targets. A decorated definition contributes each
// decorator's line; the underlying definition line arrives through the
// normal walk. Suppressing a line never hides the children of the
// statement on it.
func (StatementExtractor) Possible(in Input) Set[int] {
	lines := NewSet[int]()
	if in.File == nil {
		return lines
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.Type() == "elif_clause":
			addLine(lines, n, in.Suppressed)
		case n.Type() == "decorated_definition":
			for _, dec := range source.Decorators(n) {
				addLine(lines, dec, in.Suppressed)
			}
		case source.IsStatement(n.Type()) && !source.IsBareConstant(n):
			addLine(lines, n, in.Suppressed)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(in.File.Root())
	return lines
}

func addLine(lines Set[int], n *sitter.Node, suppressed source.SuppressionSet) {
	if line := source.Line(n); !suppressed.Has(line) {
		lines.Add(line)
	}
}
