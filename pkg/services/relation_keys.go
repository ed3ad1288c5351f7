package services

import (
	"slices"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// Canonical relation names, the keys of a unified object's associations bag.
const (
	RelationContact     = "contactId"
	RelationCompany     = "companyId"
	RelationDeal        = "dealId"
	RelationLead        = "leadId"
	RelationCandidate   = "candidateId"
	RelationJob         = "jobId"
	RelationApplication = "applicationId"
	RelationChannel     = "channelId"
	RelationUser        = "userId"
	RelationThread      = "threadId"
	RelationRequester   = "requesterId"
	RelationAssignee    = "assigneeId"
	RelationTicket      = "ticketId"
	RelationCustomer    = "customerId"
	RelationVendor      = "vendorId"
	RelationInvoice     = "invoiceId"
	RelationAccount     = "accountId"
)

// domainRelations lists each domain's canonical relations in emission order.
var domainRelations = map[models.Domain][]string{
	models.DomainCRM:        {RelationContact, RelationCompany, RelationDeal, RelationLead},
	models.DomainATS:        {RelationCandidate, RelationJob, RelationApplication},
	models.DomainChat:       {RelationChannel, RelationUser, RelationThread},
	models.DomainTicketing:  {RelationRequester, RelationAssignee, RelationTicket},
	models.DomainAccounting: {RelationCustomer, RelationVendor, RelationInvoice, RelationAccount},
}

// RelationKeyTable maps canonical relation names to a provider's flat relation keys.
// A relation missing from the table has no flat provider key.
type RelationKeyTable map[string]string

// relationKeyTables is the per-provider strategy table consumed by the shared
// unify and disunify algorithms.
var relationKeyTables = map[models.ProviderID]RelationKeyTable{
	// HubSpot relates objects through its native associations structure only.
	models.ProviderHubspot: {},
	models.ProviderPipedrive: {
		RelationContact: "person_id",
		RelationCompany: "organization_id",
		RelationDeal:    "deal_id",
		RelationLead:    "lead_id",
	},
	models.ProviderSalesforce: {
		RelationContact: "ContactId",
		RelationCompany: "AccountId",
		RelationDeal:    "OpportunityId",
		RelationLead:    "LeadId",
	},
	models.ProviderZohoCRM: {
		RelationContact: "Contact_Name",
		RelationCompany: "Account_Name",
		RelationDeal:    "Deal_Name",
	},
	models.ProviderCloseCRM: {
		RelationContact: "contact_id",
		RelationDeal:    "opportunity_id",
		RelationLead:    "lead_id",
	},
	models.ProviderMSDynamics: {
		RelationContact: "_parentcontactid_value",
		RelationCompany: "_parentaccountid_value",
		RelationLead:    "_originatingleadid_value",
	},
	models.ProviderGreenhouse: {
		RelationCandidate:   "candidate_id",
		RelationJob:         "job_id",
		RelationApplication: "application_id",
	},
	models.ProviderLever: {
		RelationCandidate:   "contact",
		RelationJob:         "posting",
		RelationApplication: "opportunityId",
	},
	models.ProviderSlack: {
		RelationChannel: "channel",
		RelationUser:    "user",
		RelationThread:  "thread_ts",
	},
	models.ProviderDiscord: {
		RelationChannel: "channel_id",
		RelationUser:    "author",
		RelationThread:  "thread",
	},
	models.ProviderZendesk: {
		RelationRequester: "requester_id",
		RelationAssignee:  "assignee_id",
		RelationTicket:    "ticket_id",
	},
	models.ProviderJira: {
		RelationRequester: "reporter",
		RelationAssignee:  "assignee",
		RelationTicket:    "issueId",
	},
	models.ProviderLinear: {
		RelationRequester: "creatorId",
		RelationAssignee:  "assigneeId",
		RelationTicket:    "issueId",
	},
	models.ProviderQuickBooks: {
		RelationCustomer: "CustomerRef",
		RelationVendor:   "VendorRef",
		RelationInvoice:  "LinkedTxn",
		RelationAccount:  "AccountRef",
	},
	models.ProviderXero: {
		RelationCustomer: "Contact",
		RelationVendor:   "Contact",
		RelationInvoice:  "Invoice",
		RelationAccount:  "Account",
	},
}

// nativeAssociationNames maps a provider's native association collections to
// canonical relations.
var nativeAssociationNames = map[models.ProviderID]map[string]string{
	models.ProviderHubspot: {
		"contacts":  RelationContact,
		"companies": RelationCompany,
		"deals":     RelationDeal,
	},
}

// RelationKeys returns the relation-key table for a provider.
func RelationKeys(provider models.ProviderID) RelationKeyTable {
	return relationKeyTables[provider]
}

// RelationsForDomain returns the canonical relation names of a domain in emission order.
func RelationsForDomain(d models.Domain) []string {
	return domainRelations[d]
}

func isDomainRelation(d models.Domain, name string) bool {
	return slices.Contains(domainRelations[d], name)
}
