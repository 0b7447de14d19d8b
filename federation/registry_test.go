package federation

import (
	"sync"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarotolentino/portkey/logger"
)

const usersSchema = `
type Query {
	users: [User!]!
	user(id: ID!): User
}
type User {
	id: ID!
	name: String!
}
`

const productsSchema = `
type Query {
	products: [Product!]!
	product(id: ID!): Product
}
type Mutation {
	createProduct(input: CreateProductInput!): Product!
}
type Product {
	id: ID!
	name: String!
	price: Float!
}
input CreateProductInput {
	name: String!
	price: Float!
}
enum Currency {
	USD
	EUR
}
`

func newTestRegistry(t *testing.T) *SchemaRegistry {
	t.Helper()
	return NewSchemaRegistry(logger.NewNop())
}

func TestRegistryComposesIndex(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "products", URL: "http://p", Schema: productsSchema}))

	schema, err := registry.GetSchema()
	require.NoError(t, err)

	// Bare type keys, qualified field keys, and qualified argument keys all
	// land in the index.
	assert.Equal(t, []string{"users"}, schema.TypeToServiceMap["User"])
	assert.Equal(t, []string{"users"}, schema.TypeToServiceMap["Query.users"])
	assert.Equal(t, []string{"users"}, schema.TypeToServiceMap["Query.user.id"])
	assert.Equal(t, []string{"products"}, schema.TypeToServiceMap["Query.products"])
	assert.Equal(t, []string{"products"}, schema.TypeToServiceMap["Mutation.createProduct"])
	assert.Equal(t, []string{"products"}, schema.TypeToServiceMap["Mutation.createProduct.input"])
	assert.Equal(t, []string{"products"}, schema.TypeToServiceMap["CreateProductInput"])
	assert.Equal(t, []string{"products"}, schema.TypeToServiceMap["Currency"])

	// Input objects and enums get bare keys only.
	assert.Empty(t, schema.TypeToServiceMap["CreateProductInput.name"])

	// Both services own Query; order follows lexicographic service names.
	assert.Equal(t, []string{"products", "users"}, schema.TypeToServiceMap["Query"])
}

func TestRegistryIdempotentRegistration(t *testing.T) {
	registry := newTestRegistry(t)
	cfg := &ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}

	require.NoError(t, registry.RegisterService(cfg))
	first, err := registry.GetSchema()
	require.NoError(t, err)

	require.NoError(t, registry.RegisterService(cfg))
	second, err := registry.GetSchema()
	require.NoError(t, err)

	if diff := pretty.Compare(first.TypeToServiceMap, second.TypeToServiceMap); diff != "" {
		t.Errorf("index changed across identical registrations: %s", diff)
	}
}

func TestRegistryReplacementDropsOldKeys(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))

	schema, err := registry.GetSchema()
	require.NoError(t, err)
	require.Contains(t, schema.TypeToServiceMap, "Query.user")

	require.NoError(t, registry.RegisterService(&ServiceConfig{
		Name:   "users",
		URL:    "http://u",
		Schema: `type Query { accounts: [String!]! }`,
	}))

	schema, err = registry.GetSchema()
	require.NoError(t, err)
	assert.Contains(t, schema.TypeToServiceMap, "Query.accounts")
	assert.NotContains(t, schema.TypeToServiceMap, "Query.user")
	assert.NotContains(t, schema.TypeToServiceMap, "User")
}

func TestRegistrySnapshotIsCached(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))

	first, err := registry.GetSchema()
	require.NoError(t, err)
	second, err := registry.GetSchema()
	require.NoError(t, err)
	assert.Same(t, first, second)

	registry.Refresh()
	third, err := registry.GetSchema()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestRegistryBadSchemaDeferredToGetSchema(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))
	_, err := registry.GetSchema()
	require.NoError(t, err)

	// Lenient mode accepts the broken schema at registration time.
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "broken", URL: "http://b", Schema: "type {{{"}))

	_, err = registry.GetSchema()
	require.Error(t, err)
	var schemaErr SchemaInvalidError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "broken", schemaErr.Service)

	// Replacing the broken schema heals composition.
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "broken", URL: "http://b", Schema: `type Query { ok: Boolean }`}))
	schema, err := registry.GetSchema()
	require.NoError(t, err)
	assert.Contains(t, schema.TypeToServiceMap, "Query.ok")
}

func TestRegistryStrictModeRejectsBadSchema(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Strict = true

	err := registry.RegisterService(&ServiceConfig{Name: "broken", URL: "http://b", Schema: "type {{{"})
	require.Error(t, err)
	var schemaErr SchemaInvalidError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "broken", schemaErr.Service)
}

func TestRegistryRegistrationVisibleToNextGetSchema(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))
	_, err := registry.GetSchema()
	require.NoError(t, err)

	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "products", URL: "http://p", Schema: productsSchema}))
	schema, err := registry.GetSchema()
	require.NoError(t, err)
	assert.Contains(t, schema.Services, "products")
	assert.Contains(t, schema.TypeToServiceMap, "Query.products")
}

func TestRegistryConcurrentReadersAndWriters(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.RegisterService(&ServiceConfig{Name: "users", URL: "http://u", Schema: usersSchema}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				schema, err := registry.GetSchema()
				if err != nil {
					t.Error(err)
					return
				}
				// A snapshot is never torn: the service map and index
				// always describe the same set of services.
				if _, ok := schema.Services["users"]; !ok {
					t.Error("snapshot missing users")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			if err := registry.RegisterService(&ServiceConfig{Name: "products", URL: "http://p", Schema: productsSchema}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	schema, err := registry.GetSchema()
	require.NoError(t, err)
	assert.Contains(t, schema.Services, "products")
}
