//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/testhelpers"
)

// mappingTestContext holds test dependencies for mapping store tests.
type mappingTestContext struct {
	t       *testing.T
	unifyDB *testhelpers.UnifyDB
	store   *MappingStore
}

func setupMappingTest(t *testing.T) *mappingTestContext {
	return &mappingTestContext{
		t:       t,
		unifyDB: testhelpers.GetUnifyDB(t),
		store:   NewMappingStore(),
	}
}

// createTestContext returns a context with an unscoped connection.
func (tc *mappingTestContext) createTestContext() (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.unifyDB.DB.WithoutAccount(ctx)
	if err != nil {
		tc.t.Fatalf("failed to create scope: %v", err)
	}
	return database.SetAccountScope(ctx, scope), scope.Close
}

func (tc *mappingTestContext) seed(ctx context.Context) *registry.Seed {
	tc.t.Helper()
	seed, err := registry.BuildSeed()
	require.NoError(tc.t, err)
	require.NoError(tc.t, tc.store.ReplaceRoot(ctx, seed.Root, seed.FieldMappings))
	return seed
}

func TestSchemaMappingRepository_ReplaceRootAndList(t *testing.T) {
	tc := setupMappingTest(t)
	ctx, cleanup := tc.createTestContext()
	defer cleanup()

	seed := tc.seed(ctx)

	mappings, err := tc.store.ListSchemaMappings(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, mappings)

	root := mappings[0]
	assert.True(t, root.IsRoot)
	assert.Equal(t, seed.Root.ID, root.ID)
	assert.Len(t, root.Schemas, len(seed.Root.Schemas))

	deal := root.Schema(models.ObjectDeal)
	require.NotNil(t, deal)
	assert.Equal(t, seed.Root.Schema(models.ObjectDeal).Fields, deal.Fields, "canonical field order survives storage")

	count, err := tc.store.CountFieldMappings(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, len(seed.FieldMappings), count)
}

func TestSchemaMappingRepository_ReplaceRootIsRepeatable(t *testing.T) {
	tc := setupMappingTest(t)
	ctx, cleanup := tc.createTestContext()
	defer cleanup()

	tc.seed(ctx)
	seed := tc.seed(ctx)

	root, err := tc.store.GetRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed.Root.ID, root.ID)

	count, err := tc.store.CountFieldMappings(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, len(seed.FieldMappings), count, "re-seeding replaces rows instead of duplicating them")
}

func TestSchemaMappingRepository_ReplaceRootRejectsNonRoot(t *testing.T) {
	tc := setupMappingTest(t)
	ctx, cleanup := tc.createTestContext()
	defer cleanup()

	err := tc.store.ReplaceRoot(ctx, &models.SchemaMapping{Name: "tenant"}, nil)
	require.Error(t, err)
}

func TestMappingStore_LoadsRegistry(t *testing.T) {
	tc := setupMappingTest(t)
	ctx, cleanup := tc.createTestContext()
	defer cleanup()

	seed := tc.seed(ctx)

	reg, err := registry.Load(ctx, tc.store)
	require.NoError(t, err)
	assert.Equal(t, seed.Root.ID, reg.Root().ID)

	schema := reg.Schema("", models.ObjectDeal)
	require.NotNil(t, schema)
	fm, ok := reg.Default(schema.ID, models.ProviderPipedrive, "amount")
	require.True(t, ok)
	src, ok := fm.SourceField()
	require.True(t, ok)
	assert.Equal(t, "value", src)
}

func TestSchemaMappingRepository_NoScope(t *testing.T) {
	repo := NewSchemaMappingRepository()

	_, err := repo.ListSchemaMappings(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoAccountScope)

	_, err = repo.GetRoot(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoAccountScope)
}
