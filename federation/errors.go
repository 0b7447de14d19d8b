package federation

import (
	"errors"
	"fmt"
)

// SanitizedError is an error whose message is safe to show to a client.
type SanitizedError interface {
	error
	SanitizedError() string
}

// SafeError carries a message that may be shown to a client verbatim.
type SafeError struct {
	message string
}

// ClientError is a SafeError caused by a malformed client request.
type ClientError SafeError

func (e ClientError) Error() string {
	return e.message
}

func (e ClientError) SanitizedError() string {
	return e.message
}

func (e SafeError) Error() string {
	return e.message
}

func (e SafeError) SanitizedError() string {
	return e.message
}

func NewClientError(format string, a ...interface{}) error {
	return ClientError{message: fmt.Sprintf(format, a...)}
}

func NewSafeError(format string, a ...interface{}) error {
	return SafeError{message: fmt.Sprintf(format, a...)}
}

// ConfigInvalidError reports an unusable supergraph manifest. Fatal at
// startup; never produced while serving.
type ConfigInvalidError struct {
	Msg string
}

func (e ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid supergraph config: %s", e.Msg)
}

func (e ConfigInvalidError) SanitizedError() string { return e.Error() }

// SchemaInvalidError reports a subgraph schema that failed to parse during
// composition. The previously composed snapshot, if any, stays in place.
type SchemaInvalidError struct {
	Service string
	Msg     string
}

func (e SchemaInvalidError) Error() string {
	return fmt.Sprintf("invalid schema for service %s: %s", e.Service, e.Msg)
}

func (e SchemaInvalidError) SanitizedError() string { return e.Error() }

// QueryParseError reports a client query that did not parse.
type QueryParseError struct {
	Msg string
}

func (e QueryParseError) Error() string {
	return fmt.Sprintf("parsing query: %s", e.Msg)
}

func (e QueryParseError) SanitizedError() string { return e.Error() }

// UnroutableFieldError reports a top-level field no registered service owns.
type UnroutableFieldError struct {
	Op    string
	Field string
}

func (e UnroutableFieldError) Error() string {
	return fmt.Sprintf("no service found for field %s.%s", e.Op, e.Field)
}

func (e UnroutableFieldError) SanitizedError() string { return e.Error() }

// EmptyPlanError reports an operation that produced no per-service queries.
type EmptyPlanError struct{}

func (e EmptyPlanError) Error() string { return "query plan is empty" }

func (e EmptyPlanError) SanitizedError() string { return e.Error() }

// ServiceNotFoundError means a plan referenced a service missing from the
// snapshot it was built against. That is a planner bug, so it deliberately
// does not implement SanitizedError.
type ServiceNotFoundError struct {
	Name string
}

func (e ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %s not found in schema", e.Name)
}

// UpstreamTransportError reports a subgraph request that failed below HTTP:
// connection refused, DNS, closed socket.
type UpstreamTransportError struct {
	Service string
	Cause   error
}

func (e UpstreamTransportError) Error() string {
	return fmt.Sprintf("request to service %s failed: %v", e.Service, e.Cause)
}

func (e UpstreamTransportError) SanitizedError() string { return e.Error() }

func (e UpstreamTransportError) Unwrap() error { return e.Cause }

// UpstreamStatusError reports a subgraph that answered outside 2xx.
type UpstreamStatusError struct {
	Service string
	Status  int
	Body    string
}

func (e UpstreamStatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.Status, e.Body)
}

func (e UpstreamStatusError) SanitizedError() string { return e.Error() }

// UpstreamTimeoutError reports a subgraph call that outlived the request
// deadline.
type UpstreamTimeoutError struct {
	Service string
}

func (e UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("request to service %s timed out", e.Service)
}

func (e UpstreamTimeoutError) SanitizedError() string { return e.Error() }

// sanitizeError picks the client-visible message for err.
func sanitizeError(err error) string {
	var sanitized SanitizedError
	if errors.As(err, &sanitized) {
		return sanitized.SanitizedError()
	}
	return "Internal server error"
}
