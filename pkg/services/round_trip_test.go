package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// Every representable canonical field survives disunify followed by unify,
// for every seeded (object type, provider) pair.
func TestRoundTrip_SeededMappings(t *testing.T) {
	reg, err := registry.FromSeed()
	require.NoError(t, err)

	resolver := NewMappingResolver(reg, zap.NewNop())
	unifier := NewUnifyEngine(zap.NewNop())
	disunifier := NewDisunifyEngine(zap.NewNop())

	for _, domain := range models.AllDomains() {
		for _, objectType := range models.ObjectTypesByDomain(domain) {
			for _, provider := range registry.ProvidersForDomain(domain) {
				t.Run(fmt.Sprintf("%s/%s", objectType, provider), func(t *testing.T) {
					mapping, err := resolver.Resolve(context.Background(), ResolveRequest{ObjectType: objectType, Provider: provider})
					require.NoError(t, err)

					in := unified.NewObject()
					want := map[string]any{}
					for _, field := range mapping.Fields() {
						key, ok := mapping.ProviderKey(field)
						if !ok {
							continue
						}
						if owner, _ := mapping.CanonicalField(key); owner != field {
							continue
						}
						value := "v-" + field
						require.NoError(t, in.SetField(field, value))
						want[field] = value
					}

					payload, err := disunifier.Disunify(DisunifyInput{Object: in, Provider: provider, ObjectType: objectType, Mapping: mapping})
					require.NoError(t, err)

					out, err := unifier.Unify(UnifyInput{Raw: payload, Provider: provider, ObjectType: objectType, Mapping: mapping})
					require.NoError(t, err)

					assert.Equal(t, want, out.Fields().Map())
					assert.Equal(t, 0, out.Additional().Len())
				})
			}
		}
	}
}

func TestRoundTrip_PreservesAdditionalAndRelations(t *testing.T) {
	mapping := NewResolvedMapping(models.ObjectNote, models.ProviderPipedrive,
		[][2]string{{"text", "text"}},
		CustomFieldRename{Source: "a1b2", Target: "Priority"},
	)
	unifier := NewUnifyEngine(zap.NewNop())
	disunifier := NewDisunifyEngine(zap.NewNop())

	raw := map[string]any{
		"text":      "hi",
		"person_id": "42",
		"deal_id":   "7",
		"a1b2":      "high",
		"pinned":    true,
	}

	obj, err := unifier.Unify(UnifyInput{Raw: raw, Provider: models.ProviderPipedrive, ObjectType: models.ObjectNote, Mapping: mapping})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"contactId": "42", "dealId": "7"}, obj.Associations().Map())
	assert.Equal(t, map[string]any{"Priority": "high", "pinned": true}, obj.Additional().Map())

	payload, err := disunifier.Disunify(DisunifyInput{Object: obj, Provider: models.ProviderPipedrive, ObjectType: models.ObjectNote, Mapping: mapping})
	require.NoError(t, err)
	assert.Equal(t, raw, payload.Map())
}
