package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMapping_SourceField(t *testing.T) {
	tests := []struct {
		name   string
		source *string
		want   string
		wantOK bool
	}{
		{"defined", StringPtr("title"), "title", true},
		{"nil", nil, "", false},
		{"empty", StringPtr(""), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &FieldMapping{SourceFieldName: tt.source}
			got, ok := fm.SourceField()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			afm := &AccountFieldMapping{SourceFieldName: tt.source}
			got, ok = afm.SourceField()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccountFieldMappingConfig_Lookup(t *testing.T) {
	cfg := &AccountFieldMappingConfig{
		AccountID: uuid.New(),
		Mappings: []*AccountFieldMapping{
			{ObjectType: ObjectDeal, SourceProvider: ProviderPipedrive, SourceFieldName: StringPtr("deal_title"), TargetFieldName: "title", IsStandardField: true},
			{ObjectType: ObjectDeal, SourceProvider: ProviderHubspot, TargetFieldName: "amount", IsStandardField: true},
			{ObjectType: ObjectDeal, SourceProvider: ProviderPipedrive, SourceFieldName: StringPtr("f00d"), TargetFieldName: "region"},
		},
	}

	m, ok := cfg.Lookup(ProviderPipedrive, ObjectDeal, "title")
	require.True(t, ok)
	assert.Equal(t, "deal_title", *m.SourceFieldName)

	_, ok = cfg.Lookup(ProviderPipedrive, ObjectNote, "title")
	assert.False(t, ok)

	custom := cfg.CustomMappings(ProviderPipedrive, ObjectDeal)
	require.Len(t, custom, 1)
	assert.Equal(t, "region", custom[0].TargetFieldName)

	var nilCfg *AccountFieldMappingConfig
	_, ok = nilCfg.Lookup(ProviderPipedrive, ObjectDeal, "title")
	assert.False(t, ok)
	assert.Nil(t, nilCfg.CustomMappings(ProviderPipedrive, ObjectDeal))
}

func TestSchemaMapping_Schema(t *testing.T) {
	deal := &ObjectSchema{ObjectType: ObjectDeal, Fields: []string{"title", "amount"}}
	m := &SchemaMapping{Name: RootSchemaMappingName, IsRoot: true, Schemas: []*ObjectSchema{deal}}

	assert.Same(t, deal, m.Schema(ObjectDeal))
	assert.Nil(t, m.Schema(ObjectNote))
	assert.True(t, deal.HasField("amount"))
	assert.False(t, deal.HasField("Amount"))
}
