package federation

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// formatOperation prints a single-service operation: the operation keyword,
// the variable definitions used by the selected root fields (kept in their
// original order), the root fields, and the definition of every fragment the
// selection reaches, so the output parses on its own upstream.
func formatOperation(op *ast.OperationDefinition, fields []*ast.Field, usedVars map[string]bool, fragments map[string]*ast.FragmentDefinition) string {
	var sb strings.Builder

	switch op.Operation {
	case ast.Mutation:
		sb.WriteString("mutation")
	case ast.Subscription:
		sb.WriteString("subscription")
	default:
		sb.WriteString("query")
	}

	formatVariableDefinitions(&sb, op.VariableDefinitions, usedVars)

	sb.WriteString(" { ")
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		formatField(&sb, field)
	}
	sb.WriteString(" }")

	for _, fragment := range referencedFragments(fields, fragments) {
		sb.WriteByte(' ')
		formatFragmentDefinition(&sb, fragment)
	}

	return sb.String()
}

func formatVariableDefinitions(sb *strings.Builder, defs ast.VariableDefinitionList, used map[string]bool) {
	first := true
	for _, def := range defs {
		if !used[def.Variable] {
			continue
		}
		if first {
			sb.WriteByte('(')
			first = false
		} else {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(def.Variable)
		sb.WriteString(": ")
		sb.WriteString(def.Type.String())
		if def.DefaultValue != nil {
			sb.WriteString(" = ")
			formatValue(sb, def.DefaultValue)
		}
	}
	if !first {
		sb.WriteByte(')')
	}
}

func formatField(sb *strings.Builder, field *ast.Field) {
	// The parser fills Alias with the field name when none was written.
	if field.Alias != "" && field.Alias != field.Name {
		sb.WriteString(field.Alias)
		sb.WriteString(": ")
	}
	sb.WriteString(field.Name)

	if len(field.Arguments) > 0 {
		sb.WriteByte('(')
		for i, arg := range field.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.Name)
			sb.WriteString(": ")
			formatValue(sb, arg.Value)
		}
		sb.WriteByte(')')
	}

	if len(field.SelectionSet) > 0 {
		sb.WriteString(" { ")
		formatSelectionSet(sb, field.SelectionSet)
		sb.WriteString(" }")
	}
}

func formatSelectionSet(sb *strings.Builder, selectionSet ast.SelectionSet) {
	for i, selection := range selectionSet {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch selection := selection.(type) {
		case *ast.Field:
			formatField(sb, selection)
		case *ast.FragmentSpread:
			sb.WriteString("...")
			sb.WriteString(selection.Name)
		case *ast.InlineFragment:
			sb.WriteString("...")
			if selection.TypeCondition != "" {
				sb.WriteString(" on ")
				sb.WriteString(selection.TypeCondition)
			}
			sb.WriteString(" { ")
			formatSelectionSet(sb, selection.SelectionSet)
			sb.WriteString(" }")
		}
	}
}

func formatValue(sb *strings.Builder, value *ast.Value) {
	switch value.Kind {
	case ast.Variable:
		sb.WriteByte('$')
		sb.WriteString(value.Raw)
	case ast.StringValue, ast.BlockValue:
		formatString(sb, value.Raw)
	case ast.ListValue:
		sb.WriteByte('[')
		for i, child := range value.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatValue(sb, child.Value)
		}
		sb.WriteByte(']')
	case ast.ObjectValue:
		sb.WriteByte('{')
		for i, child := range value.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(child.Name)
			sb.WriteString(": ")
			formatValue(sb, child.Value)
		}
		sb.WriteByte('}')
	default:
		// Ints, floats, booleans, nulls, and enums print as parsed.
		sb.WriteString(value.Raw)
	}
}

// formatString prints a single-line string literal. The parser has already
// decoded escapes, so quotes, backslashes, and control characters must be
// re-escaped to keep the output parseable.
func formatString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// referencedFragments returns the definitions of every named fragment
// reachable from fields, in first-reference order. Spreads without a matching
// definition are left for the upstream to reject.
func referencedFragments(fields []*ast.Field, fragments map[string]*ast.FragmentDefinition) []*ast.FragmentDefinition {
	var ordered []*ast.FragmentDefinition
	seen := make(map[string]bool)

	var walk func(selectionSet ast.SelectionSet)
	walk = func(selectionSet ast.SelectionSet) {
		for _, selection := range selectionSet {
			switch selection := selection.(type) {
			case *ast.Field:
				walk(selection.SelectionSet)
			case *ast.FragmentSpread:
				if seen[selection.Name] {
					continue
				}
				seen[selection.Name] = true
				if fragment, ok := fragments[selection.Name]; ok {
					ordered = append(ordered, fragment)
					walk(fragment.SelectionSet)
				}
			case *ast.InlineFragment:
				walk(selection.SelectionSet)
			}
		}
	}

	for _, field := range fields {
		walk(field.SelectionSet)
	}
	return ordered
}

func formatFragmentDefinition(sb *strings.Builder, fragment *ast.FragmentDefinition) {
	sb.WriteString("fragment ")
	sb.WriteString(fragment.Name)
	sb.WriteString(" on ")
	sb.WriteString(fragment.TypeCondition)
	sb.WriteString(" { ")
	formatSelectionSet(sb, fragment.SelectionSet)
	sb.WriteString(" }")
}
