package registry

import (
	"slices"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// ProviderSpec describes a supported third-party provider.
type ProviderSpec struct {
	ID     models.ProviderID
	Name   string // Display name
	Domain models.Domain
}

// providerSpecs is the single source of truth for which provider serves which domain.
var providerSpecs = map[models.ProviderID]ProviderSpec{
	models.ProviderHubspot:    {ID: models.ProviderHubspot, Name: "HubSpot", Domain: models.DomainCRM},
	models.ProviderSalesforce: {ID: models.ProviderSalesforce, Name: "Salesforce", Domain: models.DomainCRM},
	models.ProviderPipedrive:  {ID: models.ProviderPipedrive, Name: "Pipedrive", Domain: models.DomainCRM},
	models.ProviderZohoCRM:    {ID: models.ProviderZohoCRM, Name: "Zoho CRM", Domain: models.DomainCRM},
	models.ProviderCloseCRM:   {ID: models.ProviderCloseCRM, Name: "Close", Domain: models.DomainCRM},
	models.ProviderMSDynamics: {ID: models.ProviderMSDynamics, Name: "Microsoft Dynamics 365 Sales", Domain: models.DomainCRM},
	models.ProviderGreenhouse: {ID: models.ProviderGreenhouse, Name: "Greenhouse", Domain: models.DomainATS},
	models.ProviderLever:      {ID: models.ProviderLever, Name: "Lever", Domain: models.DomainATS},
	models.ProviderSlack:      {ID: models.ProviderSlack, Name: "Slack", Domain: models.DomainChat},
	models.ProviderDiscord:    {ID: models.ProviderDiscord, Name: "Discord", Domain: models.DomainChat},
	models.ProviderZendesk:    {ID: models.ProviderZendesk, Name: "Zendesk", Domain: models.DomainTicketing},
	models.ProviderJira:       {ID: models.ProviderJira, Name: "Jira", Domain: models.DomainTicketing},
	models.ProviderLinear:     {ID: models.ProviderLinear, Name: "Linear", Domain: models.DomainTicketing},
	models.ProviderQuickBooks: {ID: models.ProviderQuickBooks, Name: "QuickBooks", Domain: models.DomainAccounting},
	models.ProviderXero:       {ID: models.ProviderXero, Name: "Xero", Domain: models.DomainAccounting},
}

// LookupProvider returns the support entry for a provider.
func LookupProvider(id models.ProviderID) (ProviderSpec, bool) {
	spec, ok := providerSpecs[id]
	return spec, ok
}

// ProvidersForDomain returns the providers serving a domain, sorted by ID.
func ProvidersForDomain(d models.Domain) []models.ProviderID {
	var ids []models.ProviderID
	for id, spec := range providerSpecs {
		if spec.Domain == d {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// SupportsObject returns true if the provider serves the object type's domain.
func SupportsObject(id models.ProviderID, objectType models.ObjectType) bool {
	spec, ok := providerSpecs[id]
	if !ok {
		return false
	}
	return objectType.IsValid() && spec.Domain == objectType.Domain()
}
