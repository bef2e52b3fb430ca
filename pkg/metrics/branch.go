package metrics

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/vitaliy-khomyn/minicov/pkg/source"
)

// BranchExtractor finds the source-level branch arcs of a parsed file:
// (origin line, target line) pairs for every control transfer a
// branching statement can take.
type BranchExtractor struct{}

// Kind returns Branch.
func (BranchExtractor) Kind() Kind {
	return Branch
}

// Possible scans the statement tree top down. Each scope threads "the
// line of the next statement" so conditionals and loops can emit their
// fallthrough arcs; definitions open a fresh scope, so arcs never cross
// a function or class boundary.
func (BranchExtractor) Possible(in Input) Set[Arc] {
	arcs := NewSet[Arc]()
	if in.File == nil {
		return arcs
	}
	s := &branchScan{file: in.File, suppressed: in.Suppressed, arcs: arcs}
	s.body(source.BlockStatements(in.File.Root()), 0)
	return arcs
}

type branchScan struct {
	file       *source.File
	suppressed source.SuppressionSet
	arcs       Set[Arc]
}

// body scans a statement block. The effective next line of each
// statement is the following statement's first line, else the inherited
// one (0 = none). A statement on a suppressed line is skipped entirely:
// no arcs from it and no recursion into it.
func (s *branchScan) body(stmts []*sitter.Node, next int) {
	for i, stmt := range stmts {
		effNext := next
		if i+1 < len(stmts) {
			effNext = source.Line(stmts[i+1])
		}
		if s.suppressed.Has(source.Line(stmt)) {
			continue
		}
		s.node(stmt, effNext)
	}
}

func (s *branchScan) node(stmt *sitter.Node, next int) {
	switch stmt.Type() {
	case "function_definition", "class_definition",
		"async_function_definition":
		s.body(source.BlockStatements(source.Body(stmt)), 0)

	case "decorated_definition":
		if def := source.Definition(stmt); def != nil {
			s.node(def, 0)
		}

	case "if_statement":
		s.conditional(stmt, next)

	case "while_statement", "for_statement", "async_for_statement":
		s.loop(stmt, next)

	case "match_statement":
		s.match(stmt, next)

	case "try_statement":
		s.body(source.BlockStatements(source.Body(stmt)), next)
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			clause := stmt.NamedChild(i)
			switch clause.Type() {
			case "except_clause", "except_group_clause", "finally_clause":
				s.body(source.BlockStatements(source.LastBlockChild(clause)), next)
			case "else_clause":
				s.body(source.BlockStatements(source.Body(clause)), next)
			}
		}

	case "with_statement", "async_with_statement":
		s.body(source.BlockStatements(source.Body(stmt)), next)
	}
}

// conditional handles an if statement and its elif ladder iteratively.
// Each clause receives an arc from the condition governing it and then
// governs the next. A suppressed elif line breaks the ladder: the arc
// into it stays, nothing past it is emitted.
func (s *branchScan) conditional(stmt *sitter.Node, next int) {
	condLine := source.Line(stmt)
	if body := source.BlockStatements(stmt.ChildByFieldName("consequence")); len(body) > 0 {
		s.arcs.Add(Arc{From: condLine, To: source.Line(body[0])})
		s.body(body, next)
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		clause := stmt.NamedChild(i)
		switch clause.Type() {
		case "elif_clause":
			elifLine := source.Line(clause)
			s.arcs.Add(Arc{From: condLine, To: elifLine})
			if s.suppressed.Has(elifLine) {
				return
			}
			if body := source.BlockStatements(clause.ChildByFieldName("consequence")); len(body) > 0 {
				s.arcs.Add(Arc{From: elifLine, To: source.Line(body[0])})
				s.body(body, next)
			}
			condLine = elifLine

		case "else_clause":
			if body := source.BlockStatements(source.Body(clause)); len(body) > 0 {
				s.arcs.Add(Arc{From: condLine, To: source.Line(body[0])})
				s.body(body, next)
			}
			return
		}
	}

	if next != 0 {
		s.arcs.Add(Arc{From: condLine, To: next})
	}
}

// loop handles for and while statements. The body threads the loop's
// own line as its next so trailing statements arc back to the head. A
// loop else takes the exit arc; otherwise the loop line arcs straight
// to the next statement (never entered or exhausted).
func (s *branchScan) loop(stmt *sitter.Node, next int) {
	loopLine := source.Line(stmt)
	if body := source.BlockStatements(source.Body(stmt)); len(body) > 0 {
		s.arcs.Add(Arc{From: loopLine, To: source.Line(body[0])})
		s.body(body, loopLine)
	}

	if clause := source.FindChildByType(stmt, "else_clause"); clause != nil {
		if body := source.BlockStatements(source.Body(clause)); len(body) > 0 {
			s.arcs.Add(Arc{From: loopLine, To: source.Line(body[0])})
			s.body(body, next)
		}
		return
	}
	if next != 0 {
		s.arcs.Add(Arc{From: loopLine, To: next})
	}
}

// match arcs from the match line into each case body. Without a
// wildcard case the subject can fall through every pattern, so the
// match line also arcs to the next statement.
func (s *branchScan) match(stmt *sitter.Node, next int) {
	matchLine := source.Line(stmt)
	wildcard := false
	for _, clause := range caseClauses(stmt) {
		if body := caseBlock(clause); len(body) > 0 {
			s.arcs.Add(Arc{From: matchLine, To: source.Line(body[0])})
			s.body(body, next)
		}
		if s.isWildcard(clause) {
			wildcard = true
		}
	}
	if !wildcard && next != 0 {
		s.arcs.Add(Arc{From: matchLine, To: next})
	}
}

// caseClauses collects the case clauses of a match statement, looking
// through the wrapping block some grammar revisions insert.
func caseClauses(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "case_clause":
			out = append(out, child)
		case "block":
			out = append(out, source.ChildrenOfType(child, "case_clause")...)
		}
	}
	return out
}

func caseBlock(clause *sitter.Node) []*sitter.Node {
	block := clause.ChildByFieldName("consequence")
	if block == nil {
		block = source.LastBlockChild(clause)
	}
	return source.BlockStatements(block)
}

// isWildcard reports whether the case matches anything: a single
// pattern that is either the underscore or a bare capture name.
func (s *branchScan) isWildcard(clause *sitter.Node) bool {
	patterns := source.ChildrenOfType(clause, "case_pattern")
	if len(patterns) != 1 {
		return false
	}
	p := patterns[0]
	if p.NamedChildCount() == 0 {
		return s.file.Text(p) == "_"
	}
	child := p.NamedChild(0)
	switch child.Type() {
	case "identifier":
		return true
	case "dotted_name":
		return child.NamedChildCount() == 1
	}
	return false
}
