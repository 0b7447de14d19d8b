package federation

import (
	"encoding/json"
	"net/http"

	uuid "github.com/satori/go.uuid"

	"github.com/alvarotolentino/portkey/logger"
)

// HTTPHandler serves the gateway's /graphql endpoint: it decodes the client
// request, runs it through the gateway, and writes either the merged
// response or an error envelope. Errors keep HTTP 200 with the standard
// {"errors":[{"message":...}]} shape.
func HTTPHandler(gateway *Gateway, log logger.Logger) http.Handler {
	return withCORS(&httpHandler{gateway: gateway, log: log})
}

type httpHandler struct {
	gateway *Gateway
	log     logger.Logger
}

type httpPostBody struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewV4()

	writeResponse := func(value interface{}, err error) {
		if err != nil {
			value = map[string]interface{}{
				"errors": []GraphQLError{{Message: sanitizeError(err)}},
			}
		}
		responseJSON, err := json.Marshal(value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.Write(responseJSON)
	}

	ctx := r.Context()

	if r.Method != "POST" {
		writeResponse(nil, NewClientError("request must be a POST"))
		return
	}

	if r.Body == nil {
		writeResponse(nil, NewClientError("request must include a query"))
		return
	}

	var request httpPostBody
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeResponse(nil, NewClientError("parsing request: %v", err))
		return
	}

	var authHeaders map[string]string
	if auth := r.Header.Get("Authorization"); auth != "" {
		authHeaders = map[string]string{"Authorization": auth}
	}

	h.log.Debug("incoming request", "id", requestID.String(), "bytes", len(request.Query))

	response, err := h.gateway.ProcessRequest(ctx, &GraphQLRequest{
		Query:         request.Query,
		Variables:     request.Variables,
		OperationName: request.OperationName,
		AuthHeaders:   authHeaders,
	})
	if err != nil {
		h.log.Error("request failed", "id", requestID.String(), "error", err)
		writeResponse(nil, err)
		return
	}

	writeResponse(response, nil)
}

// withCORS answers preflights and marks every response for cross-origin
// use. Credentials are allowed, so the origin is echoed rather than
// wildcarded.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Apollo-Federation-Include-Trace")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
