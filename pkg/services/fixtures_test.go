package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
)

// testRegistry builds a small root mapping:
//
//	deal: title, amount, stage   (pipedrive: title, value, ~; hubspot: dealname, amount, dealstage)
//	note: text                   (pipedrive: text; hubspot: hs_note_body)
//	ticket: name                 (zendesk: subject)
//
// plus a root custom rename for pipedrive deals (weighted_value -> forecastAmount).
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	root := &models.SchemaMapping{ID: uuid.New(), Name: models.RootSchemaMappingName, IsRoot: true}
	deal := &models.ObjectSchema{ID: uuid.New(), SchemaMappingID: root.ID, ObjectType: models.ObjectDeal, Fields: []string{"title", "amount", "stage"}}
	note := &models.ObjectSchema{ID: uuid.New(), SchemaMappingID: root.ID, ObjectType: models.ObjectNote, Fields: []string{"text"}}
	ticket := &models.ObjectSchema{ID: uuid.New(), SchemaMappingID: root.ID, ObjectType: models.ObjectTicket, Fields: []string{"name"}}
	root.Schemas = []*models.ObjectSchema{deal, note, ticket}

	std := func(schema *models.ObjectSchema, p models.ProviderID, target string, source *string) *models.FieldMapping {
		return &models.FieldMapping{ID: uuid.New(), SchemaID: schema.ID, SourceProvider: p, SourceFieldName: source, TargetFieldName: target, IsStandardField: true}
	}
	s := models.StringPtr

	fieldMappings := []*models.FieldMapping{
		std(deal, models.ProviderPipedrive, "title", s("title")),
		std(deal, models.ProviderPipedrive, "amount", s("value")),
		std(deal, models.ProviderPipedrive, "stage", nil),
		std(deal, models.ProviderHubspot, "title", s("dealname")),
		std(deal, models.ProviderHubspot, "amount", s("amount")),
		std(deal, models.ProviderHubspot, "stage", s("dealstage")),
		std(note, models.ProviderPipedrive, "text", s("text")),
		std(note, models.ProviderHubspot, "text", s("hs_note_body")),
		std(ticket, models.ProviderZendesk, "name", s("subject")),
		{ID: uuid.New(), SchemaID: deal.ID, SourceProvider: models.ProviderPipedrive, SourceFieldName: s("weighted_value"), TargetFieldName: "forecastAmount"},
	}

	reg, err := registry.New([]*models.SchemaMapping{root}, fieldMappings)
	require.NoError(t, err)
	return reg
}

func accountConfig(mappings ...*models.AccountFieldMapping) *models.AccountFieldMappingConfig {
	cfg := &models.AccountFieldMappingConfig{AccountID: uuid.New()}
	for _, m := range mappings {
		m.AccountID = cfg.AccountID
		cfg.Mappings = append(cfg.Mappings, m)
	}
	return cfg
}

func pipedriveDealMapping() *ResolvedMapping {
	return NewResolvedMapping(models.ObjectDeal, models.ProviderPipedrive, [][2]string{
		{"title", "title"},
		{"amount", "value"},
		{"stage", ""},
	})
}

func pipedriveNoteMapping() *ResolvedMapping {
	return NewResolvedMapping(models.ObjectNote, models.ProviderPipedrive, [][2]string{{"text", "text"}})
}

// counterValue sums the counter samples of name whose labels include want.
func counterValue(t *testing.T, g prometheus.Gatherer, name string, want map[string]string) float64 {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, m := range family.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
