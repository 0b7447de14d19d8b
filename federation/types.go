package federation

import (
	"encoding/json"
)

// ServiceConfig identifies a single subgraph: a unique name, the URL the
// gateway posts operations to, and the subgraph's schema text.
//
// A ServiceConfig is never mutated in place; re-registering the same name
// replaces the whole value.
type ServiceConfig struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Schema string `json:"schema"`
}

// ServiceMap maps a service name to its config. The name key always equals
// the config's Name field.
type ServiceMap map[string]*ServiceConfig

// FederatedSchema is the composed view over every registered subgraph. It is
// built once, stored in an atomic cell, and shared between requests, so every
// value must be read-only after it is constructed.
//
// TypeToServiceMap is an inverted index from schema keys to the ordered list
// of services owning that key. Keys take three forms:
//
//	"User"          bare type name
//	"Query.users"   qualified field
//	"Query.user.id" qualified field argument
//
// Owner order reflects registration order; lookups take the first owner.
type FederatedSchema struct {
	Services         ServiceMap
	TypeToServiceMap map[string][]string
}

// QueryPlan partitions one client operation into per-service operations.
// ServiceQueries and ServiceVariables always have identical key sets, and
// every key names a service present in the snapshot the plan was built from.
type QueryPlan struct {
	ServiceQueries   map[string]string
	ServiceVariables map[string]map[string]interface{}
}

// GraphQLRequest is a single client request. AuthHeaders never crosses the
// client wire; the HTTP front-end fills it in and the executor forwards it to
// subgraphs verbatim.
//
// OperationName is accepted for wire compatibility but not used to select an
// operation: the planner routes every operation in the document.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
	AuthHeaders   map[string]string      `json:"-"`
}

// GraphQLResponse is the wire shape subgraphs reply with. Error objects are
// kept as raw JSON so they merge into the gateway response byte-for-byte.
type GraphQLResponse struct {
	Data   map[string]interface{} `json:"data,omitempty"`
	Errors []json.RawMessage      `json:"errors,omitempty"`
}

// GraphQLError is a single error object in the client-visible envelope.
type GraphQLError struct {
	Message string `json:"message"`
}
