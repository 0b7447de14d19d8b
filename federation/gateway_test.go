package federation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarotolentino/portkey/logger"
)

func newTestGateway(t *testing.T, configPath string) *Gateway {
	t.Helper()
	log := logger.NewNop()
	return NewGateway(NewSchemaRegistry(log), NewQueryPlanner(log), NewQueryExecutor(log), configPath, log)
}

func TestGatewayProcessRequest(t *testing.T) {
	users := stubService(t, 200, `{"data":{"users":[{"id":"1","name":"a"}]}}`)
	products := stubService(t, 200, `{"data":{"products":[{"id":"9"}]}}`)

	gateway := newTestGateway(t, "")
	require.NoError(t, gateway.RegisterService(&ServiceConfig{Name: "users", URL: users.URL, Schema: usersSchema}))
	require.NoError(t, gateway.RegisterService(&ServiceConfig{Name: "products", URL: products.URL, Schema: productsSchema}))

	response, err := gateway.ProcessRequest(context.Background(), &GraphQLRequest{
		Query: `{ users { id name } products { id } }`,
	})
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	assert.Contains(t, data, "users")
	assert.Contains(t, data, "products")
}

func TestGatewayPlanningErrorSurfaces(t *testing.T) {
	gateway := newTestGateway(t, "")
	require.NoError(t, gateway.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))

	_, err := gateway.ProcessRequest(context.Background(), &GraphQLRequest{Query: `{ widgets { id } }`})
	require.Error(t, err)
	var unroutable UnroutableFieldError
	require.ErrorAs(t, err, &unroutable)
}

func TestGatewayForwardsAuthHeaders(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"users":[]}}`))
	}))
	t.Cleanup(server.Close)

	gateway := newTestGateway(t, "")
	require.NoError(t, gateway.RegisterService(&ServiceConfig{Name: "users", URL: server.URL, Schema: usersSchema}))

	_, err := gateway.ProcessRequest(context.Background(), &GraphQLRequest{
		Query:       `{ users { id } }`,
		AuthHeaders: map[string]string{"Authorization": "Bearer tok"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func writeSupergraph(t *testing.T, dir string, usersURL, productsURL string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.graphql"), []byte(usersSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.graphql"), []byte(productsSchema), 0o644))

	manifest := `subgraphs:
  users:
    routing_url: ` + usersURL + `
    schema:
      file: users.graphql
  products:
    routing_url: ` + productsURL + `
    schema:
      file: products.graphql
`
	path := filepath.Join(dir, "supergraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

func TestGatewayLoadSchemas(t *testing.T) {
	users := stubService(t, 200, `{"data":{"users":[{"id":"1"}]}}`)
	products := stubService(t, 200, `{"data":{"products":[]}}`)

	path := writeSupergraph(t, t.TempDir(), users.URL, products.URL)
	gateway := newTestGateway(t, path)
	require.NoError(t, gateway.LoadSchemas())

	schema, err := gateway.Registry.GetSchema()
	require.NoError(t, err)
	assert.Contains(t, schema.Services, "users")
	assert.Contains(t, schema.Services, "products")

	response, err := gateway.ProcessRequest(context.Background(), &GraphQLRequest{Query: `{ users { id } }`})
	require.NoError(t, err)
	assert.Contains(t, response["data"].(map[string]interface{}), "users")
}

func TestGatewayLoadSchemasMissingManifest(t *testing.T) {
	gateway := newTestGateway(t, filepath.Join(t.TempDir(), "nope.yaml"))

	err := gateway.LoadSchemas()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
