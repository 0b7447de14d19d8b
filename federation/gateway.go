package federation

import (
	"context"
	"time"

	"github.com/samsarahq/go/oops"

	"github.com/alvarotolentino/portkey/logger"
)

// defaultRequestTimeout bounds upstream fan-out when the caller supplied no
// deadline of its own.
const defaultRequestTimeout = 30 * time.Second

// Gateway ties the registry, planner, and executor together. All three are
// fixed at construction; a request flows snapshot → plan → execute.
type Gateway struct {
	Registry *SchemaRegistry
	Planner  *QueryPlanner
	Executor *QueryExecutor

	configPath string
	log        logger.Logger
}

func NewGateway(registry *SchemaRegistry, planner *QueryPlanner, executor *QueryExecutor, configPath string, log logger.Logger) *Gateway {
	return &Gateway{
		Registry:   registry,
		Planner:    planner,
		Executor:   executor,
		configPath: configPath,
		log:        log,
	}
}

// ProcessRequest serves one client request end to end and returns the merged
// response object.
func (g *Gateway) ProcessRequest(ctx context.Context, request *GraphQLRequest) (map[string]interface{}, error) {
	start := time.Now()

	schema, err := g.Registry.GetSchema()
	if err != nil {
		return nil, err
	}

	plan, err := g.Planner.PlanQuery(request.Query, schema, request.Variables)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	response, err := g.Executor.ExecutePlan(ctx, plan, schema, request.AuthHeaders)
	if err != nil {
		return nil, err
	}

	g.log.Debug("processed request",
		"services", len(plan.ServiceQueries),
		"duration", time.Since(start))
	return response, nil
}

// RegisterService adds or replaces a subgraph.
func (g *Gateway) RegisterService(cfg *ServiceConfig) error {
	return g.Registry.RegisterService(cfg)
}

// LoadSchemas reads the supergraph manifest the gateway was constructed
// with, loads every referenced schema file, and registers each subgraph.
func (g *Gateway) LoadSchemas() error {
	config, err := LoadSupergraphConfig(g.configPath)
	if err != nil {
		return oops.Wrapf(err, "loading supergraph config %s", g.configPath)
	}

	for _, subgraph := range config.SortedSubgraphs() {
		schema, err := subgraph.ReadSchema()
		if err != nil {
			return oops.Wrapf(err, "reading schema for subgraph %s", subgraph.Name)
		}
		if err := g.RegisterService(&ServiceConfig{
			Name:   subgraph.Name,
			URL:    subgraph.RoutingURL,
			Schema: schema,
		}); err != nil {
			return oops.Wrapf(err, "registering subgraph %s", subgraph.Name)
		}
		g.log.Info("registered service", "service", subgraph.Name, "url", subgraph.RoutingURL)
	}
	return nil
}
