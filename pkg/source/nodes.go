package source

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// statementKinds names every node type the grammar produces for an
// executable statement, simple and compound.
var statementKinds = map[string]bool{
	"assert_statement":        true,
	"break_statement":         true,
	"continue_statement":      true,
	"delete_statement":        true,
	"exec_statement":          true,
	"expression_statement":    true,
	"future_import_statement": true,
	"global_statement":        true,
	"import_from_statement":   true,
	"import_statement":        true,
	"nonlocal_statement":      true,
	"pass_statement":          true,
	"print_statement":         true,
	"raise_statement":         true,
	"return_statement":        true,

	"class_definition":     true,
	"decorated_definition": true,
	"for_statement":        true,
	"function_definition":  true,
	"if_statement":         true,
	"match_statement":      true,
	"try_statement":        true,
	"while_statement":      true,
	"with_statement":       true,

	// Older grammar revisions give async forms their own node types.
	"async_for_statement":  true,
	"async_with_statement": true,
}

// constantKinds names the literal node types that form a bare constant
// expression statement (a docstring or stray constant).
var constantKinds = map[string]bool{
	"string":              true,
	"concatenated_string": true,
	"integer":             true,
	"float":               true,
	"true":                true,
	"false":               true,
	"none":                true,
	"ellipsis":            true,
}

// IsStatement reports whether nodeType names a statement.
func IsStatement(nodeType string) bool {
	return statementKinds[nodeType]
}

// IsBareConstant reports whether n is an expression statement wrapping a
// single constant literal. Those lines never execute as statements.
func IsBareConstant(n *sitter.Node) bool {
	if n == nil || n.Type() != "expression_statement" {
		return false
	}
	if n.NamedChildCount() != 1 {
		return false
	}
	child := n.NamedChild(0)
	return child != nil && constantKinds[child.Type()]
}

// Line returns the 1-based source line a node starts on.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// Body returns the block body of a compound statement or clause, nil if
// the grammar attached none.
func Body(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName("body")
}

// BlockStatements returns the statement children of a block-like node in
// order, skipping interleaved comment nodes.
func BlockStatements(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var stmts []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		stmts = append(stmts, child)
	}
	return stmts
}

// ChildrenOfType returns the named children of n with the given type.
func ChildrenOfType(n *sitter.Node, nodeType string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Type() == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// FindChildByType returns the first named child of n with the given type.
func FindChildByType(n *sitter.Node, nodeType string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// LastBlockChild returns the trailing block of a clause whose grammar
// rule carries no body field (except and finally clauses).
func LastBlockChild(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		child := n.NamedChild(i)
		if child != nil && child.Type() == "block" {
			return child
		}
	}
	return nil
}

// Decorators returns the decorator nodes of a decorated definition.
func Decorators(n *sitter.Node) []*sitter.Node {
	return ChildrenOfType(n, "decorator")
}

// Definition returns the function or class definition wrapped by a
// decorated definition.
func Definition(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def
	}
	if def := FindChildByType(n, "function_definition"); def != nil {
		return def
	}
	return FindChildByType(n, "class_definition")
}
