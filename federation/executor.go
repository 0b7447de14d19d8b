package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alvarotolentino/portkey/logger"
)

// QueryExecutor fans a QueryPlan out to its subgraphs over HTTP and merges
// the responses. It is stateless apart from the shared connection pool.
type QueryExecutor struct {
	client *http.Client
	log    logger.Logger
}

func NewQueryExecutor(log logger.Logger) *QueryExecutor {
	return &QueryExecutor{
		client: &http.Client{},
		log:    log,
	}
}

// postBody is the outbound wire shape for one subgraph call.
type postBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// ExecutePlan issues every per-service operation concurrently and merges the
// responses. The first transport failure, timeout, or non-2xx status fails
// the whole call and cancels the in-flight peers; partial merges never
// escape.
//
// Merging walks services in lexicographic name order: data objects
// shallow-merge (a key collision means a miscomposed schema and resolves to
// the last writer), error arrays concatenate verbatim.
func (e *QueryExecutor) ExecutePlan(ctx context.Context, plan *QueryPlan, schema *FederatedSchema, authHeaders map[string]string) (map[string]interface{}, error) {
	names := make([]string, 0, len(plan.ServiceQueries))
	for name := range plan.ServiceQueries {
		names = append(names, name)
	}
	sort.Strings(names)

	responses := make([]*GraphQLResponse, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			service, ok := schema.Services[name]
			if !ok {
				return ServiceNotFoundError{Name: name}
			}
			response, err := e.postQuery(ctx, service, plan.ServiceQueries[name], plan.ServiceVariables[name], authHeaders)
			if err != nil {
				return err
			}
			responses[i] = response
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make(map[string]interface{})
	var mergedErrors []json.RawMessage
	for _, response := range responses {
		for key, value := range response.Data {
			data[key] = value
		}
		mergedErrors = append(mergedErrors, response.Errors...)
	}

	merged := make(map[string]interface{})
	if len(data) == 0 && len(mergedErrors) > 0 {
		merged["errors"] = mergedErrors
		return merged, nil
	}
	merged["data"] = data
	if len(mergedErrors) > 0 {
		merged["errors"] = mergedErrors
	}
	return merged, nil
}

// postQuery sends one operation to one subgraph. Auth headers go on first
// with their spelling preserved; Content-Type is set last so it wins any
// conflict.
func (e *QueryExecutor) postQuery(ctx context.Context, service *ServiceConfig, query string, variables map[string]interface{}, authHeaders map[string]string) (*GraphQLResponse, error) {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	body, err := json.Marshal(postBody{Query: query, Variables: variables})
	if err != nil {
		return nil, UpstreamTransportError{Service: service.Name, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, service.URL, bytes.NewReader(body))
	if err != nil {
		return nil, UpstreamTransportError{Service: service.Name, Cause: err}
	}
	for name, value := range authHeaders {
		if http.CanonicalHeaderKey(name) == "Content-Type" {
			continue
		}
		req.Header[name] = []string{value}
	}
	req.Header.Set("Content-Type", "application/json")

	e.log.Debug("calling service", "service", service.Name, "url", service.URL)

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, UpstreamTimeoutError{Service: service.Name}
		}
		return nil, UpstreamTransportError{Service: service.Name, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, UpstreamTimeoutError{Service: service.Name}
		}
		return nil, UpstreamTransportError{Service: service.Name, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, UpstreamStatusError{Service: service.Name, Status: resp.StatusCode, Body: string(respBody)}
	}

	var response GraphQLResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, UpstreamTransportError{Service: service.Name, Cause: fmt.Errorf("unmarshaling response: %v", err)}
	}
	return &response, nil
}
