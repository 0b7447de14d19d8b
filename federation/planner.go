package federation

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/alvarotolentino/portkey/logger"
)

// QueryPlanner splits a client operation into per-service operations. It is
// stateless; every call borrows a FederatedSchema snapshot.
type QueryPlanner struct {
	log logger.Logger
}

func NewQueryPlanner(log logger.Logger) *QueryPlanner {
	return &QueryPlanner{log: log}
}

// serviceSelection accumulates the top-level fields of one operation that
// route to the same service, in the order they were encountered.
type serviceSelection struct {
	service string
	fields  []*ast.Field
}

// PlanQuery parses queryText, routes every top-level field to the first
// service owning its "<RootType>.<field>" key, and synthesises one operation
// per target service carrying only the variables that operation uses.
//
// A document may hold several operations; each is routed independently, and
// if two operations target the same service the later one replaces the
// earlier entry. Operations without top-level fields are skipped. A plan
// that ends up with no per-service operations is an error.
func (p *QueryPlanner) PlanQuery(queryText string, schema *FederatedSchema, variables map[string]interface{}) (*QueryPlan, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: queryText})
	if err != nil {
		return nil, QueryParseError{Msg: err.Error()}
	}

	fragments := make(map[string]*ast.FragmentDefinition, len(doc.Fragments))
	for _, fragment := range doc.Fragments {
		fragments[fragment.Name] = fragment
	}

	plan := &QueryPlan{
		ServiceQueries:   make(map[string]string),
		ServiceVariables: make(map[string]map[string]interface{}),
	}

	for _, op := range doc.Operations {
		rootType := rootTypeName(op.Operation)

		groups, err := routeFields(op, rootType, schema)
		if err != nil {
			return nil, err
		}

		for _, group := range groups {
			used := usedVariables(group.fields, fragments)
			plan.ServiceQueries[group.service] = formatOperation(op, group.fields, used, fragments)
			plan.ServiceVariables[group.service] = projectVariables(variables, used)
		}
	}

	if len(plan.ServiceQueries) == 0 {
		return nil, EmptyPlanError{}
	}

	p.log.Debug("planned query", "services", len(plan.ServiceQueries))
	return plan, nil
}

// routeFields assigns every top-level field of op to its owning service and
// groups fields per service, preserving encounter order within each group.
func routeFields(op *ast.OperationDefinition, rootType string, schema *FederatedSchema) ([]*serviceSelection, error) {
	var groups []*serviceSelection
	byService := make(map[string]*serviceSelection)

	for _, selection := range op.SelectionSet {
		field, ok := selection.(*ast.Field)
		if !ok {
			// Top-level spreads and inline fragments are not routable roots.
			continue
		}

		owners := schema.TypeToServiceMap[rootType+"."+field.Name]
		if len(owners) == 0 {
			return nil, UnroutableFieldError{Op: rootType, Field: field.Name}
		}

		service := owners[0]
		group, ok := byService[service]
		if !ok {
			group = &serviceSelection{service: service}
			byService[service] = group
			groups = append(groups, group)
		}
		group.fields = append(group.fields, field)
	}

	return groups, nil
}

// rootTypeName maps an operation kind to the root type consulted in the
// index. Shorthand operations parse as queries.
func rootTypeName(op ast.Operation) string {
	switch op {
	case ast.Mutation:
		return "Mutation"
	case ast.Subscription:
		return "Subscription"
	default:
		return "Query"
	}
}

// usedVariables computes the transitive set of variable names referenced in
// argument values under fields, following fragment spreads through their
// definitions. Spreads are expanded here only for variable collection.
func usedVariables(fields []*ast.Field, fragments map[string]*ast.FragmentDefinition) map[string]bool {
	used := make(map[string]bool)
	seen := make(map[string]bool)
	for _, field := range fields {
		collectFieldVariables(field, fragments, seen, used)
	}
	return used
}

func collectFieldVariables(field *ast.Field, fragments map[string]*ast.FragmentDefinition, seen, used map[string]bool) {
	for _, arg := range field.Arguments {
		collectValueVariables(arg.Value, used)
	}
	collectSelectionVariables(field.SelectionSet, fragments, seen, used)
}

func collectSelectionVariables(selectionSet ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, seen, used map[string]bool) {
	for _, selection := range selectionSet {
		switch selection := selection.(type) {
		case *ast.Field:
			collectFieldVariables(selection, fragments, seen, used)
		case *ast.FragmentSpread:
			if seen[selection.Name] {
				continue
			}
			seen[selection.Name] = true
			if fragment, ok := fragments[selection.Name]; ok {
				collectSelectionVariables(fragment.SelectionSet, fragments, seen, used)
			}
		case *ast.InlineFragment:
			collectSelectionVariables(selection.SelectionSet, fragments, seen, used)
		}
	}
}

func collectValueVariables(value *ast.Value, used map[string]bool) {
	if value == nil {
		return
	}
	if value.Kind == ast.Variable {
		used[value.Raw] = true
		return
	}
	for _, child := range value.Children {
		collectValueVariables(child.Value, used)
	}
}

// projectVariables restricts the client variables object to the names in
// used. Absent input means every service gets an empty object.
func projectVariables(variables map[string]interface{}, used map[string]bool) map[string]interface{} {
	projected := make(map[string]interface{})
	for name := range used {
		if value, ok := variables[name]; ok {
			projected[name] = value
		}
	}
	return projected
}
