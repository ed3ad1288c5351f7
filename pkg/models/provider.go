package models

// ProviderID identifies a third-party system (the "tpId" of a connection).
type ProviderID string

// CRM providers.
const (
	ProviderHubspot    ProviderID = "hubspot"
	ProviderSalesforce ProviderID = "salesforce"
	ProviderPipedrive  ProviderID = "pipedrive"
	ProviderZohoCRM    ProviderID = "zohocrm"
	ProviderCloseCRM   ProviderID = "closecrm"
	ProviderMSDynamics ProviderID = "ms_dynamics_365_sales"
)

// ATS providers.
const (
	ProviderGreenhouse ProviderID = "greenhouse"
	ProviderLever      ProviderID = "lever"
)

// Chat providers.
const (
	ProviderSlack   ProviderID = "slack"
	ProviderDiscord ProviderID = "discord"
)

// Ticketing providers.
const (
	ProviderZendesk ProviderID = "zendesk"
	ProviderJira    ProviderID = "jira"
	ProviderLinear  ProviderID = "linear"
)

// Accounting providers.
const (
	ProviderQuickBooks ProviderID = "quickbooks"
	ProviderXero       ProviderID = "xero"
)

// String returns the string representation of a ProviderID.
func (p ProviderID) String() string {
	return string(p)
}

// FieldDescriptor describes a provider custom field: the opaque key the
// provider uses in payloads and the human-readable name shown in its UI.
// Pipedrive, for example, keys custom fields by a 40-character hash.
type FieldDescriptor struct {
	Key  string `json:"key" validate:"required"`
	Name string `json:"name" validate:"required"`
}
