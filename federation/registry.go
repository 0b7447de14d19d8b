package federation

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/alvarotolentino/portkey/logger"
)

// SchemaRegistry owns the set of registered subgraphs and the composed
// FederatedSchema built from them.
//
// The composed view is memoized in an atomic cell so readers never take a
// lock: GetSchema on the fast path is a single atomic load. Registering or
// refreshing clears the cell; the next GetSchema rebuilds and swaps the new
// snapshot in. Readers observe either the old snapshot or the new one, never
// a partially built one.
type SchemaRegistry struct {
	log logger.Logger

	// Strict makes RegisterService parse the schema up front instead of
	// deferring parse errors to the next GetSchema.
	Strict bool

	mu       sync.Mutex // guards services and the rebuild in GetSchema
	services ServiceMap

	composed atomic.Value // *FederatedSchema, nil while invalidated
}

func NewSchemaRegistry(log logger.Logger) *SchemaRegistry {
	return &SchemaRegistry{
		log:      log,
		services: make(ServiceMap),
	}
}

// RegisterService inserts or replaces the subgraph named cfg.Name and
// invalidates the composed view. In the default lenient mode a bad schema is
// accepted here and reported by the next GetSchema.
func (r *SchemaRegistry) RegisterService(cfg *ServiceConfig) error {
	if r.Strict {
		if _, err := parser.ParseSchema(&ast.Source{Name: cfg.Name, Input: cfg.Schema}); err != nil {
			return SchemaInvalidError{Service: cfg.Name, Msg: err.Error()}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[cfg.Name] = cfg
	r.composed.Store((*FederatedSchema)(nil))
	r.log.Debug("registered service", "service", cfg.Name, "url", cfg.URL)
	return nil
}

// GetSchema returns the composed snapshot, building it first if a
// registration invalidated the previous one.
func (r *SchemaRegistry) GetSchema() (*FederatedSchema, error) {
	if snapshot, ok := r.composed.Load().(*FederatedSchema); ok && snapshot != nil {
		return snapshot, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have rebuilt while we waited for the lock.
	if snapshot, ok := r.composed.Load().(*FederatedSchema); ok && snapshot != nil {
		return snapshot, nil
	}

	snapshot, err := composeSchema(r.services)
	if err != nil {
		return nil, err
	}
	r.composed.Store(snapshot)
	r.log.Debug("composed schema", "services", len(snapshot.Services), "keys", len(snapshot.TypeToServiceMap))
	return snapshot, nil
}

// Refresh invalidates the composed view without touching the service set.
func (r *SchemaRegistry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.composed.Store((*FederatedSchema)(nil))
}

// composeSchema parses every registered schema and builds the inverted index
// from schema keys to owning services. Services are visited in lexicographic
// name order so owner lists come out the same on every build.
func composeSchema(services ServiceMap) (*FederatedSchema, error) {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := &FederatedSchema{
		Services:         make(ServiceMap, len(services)),
		TypeToServiceMap: make(map[string][]string),
	}

	for _, name := range names {
		svc := services[name]
		snapshot.Services[name] = svc

		doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: svc.Schema})
		if err != nil {
			return nil, SchemaInvalidError{Service: name, Msg: err.Error()}
		}

		for _, def := range doc.Definitions {
			addOwner(snapshot.TypeToServiceMap, def.Name, name)

			// Only object fields route; bare keys for the other kinds stay
			// available for future entity resolution.
			if def.Kind != ast.Object {
				continue
			}
			for _, field := range def.Fields {
				addOwner(snapshot.TypeToServiceMap, def.Name+"."+field.Name, name)
				for _, arg := range field.Arguments {
					addOwner(snapshot.TypeToServiceMap, def.Name+"."+field.Name+"."+arg.Name, name)
				}
			}
		}
	}

	return snapshot, nil
}

// addOwner appends service to the owner list for key. Services are processed
// one at a time, so checking the last element is enough to keep lists unique.
func addOwner(index map[string][]string, key, service string) {
	owners := index[key]
	if len(owners) > 0 && owners[len(owners)-1] == service {
		return
	}
	index[key] = append(owners, service)
}
