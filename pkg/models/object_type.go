// Package models contains domain types for ekaya-unify.
package models

import (
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
)

// Domain groups canonical object types by the family of providers that serve them.
type Domain string

const (
	DomainCRM        Domain = "crm"
	DomainATS        Domain = "ats"
	DomainChat       Domain = "chat"
	DomainTicketing  Domain = "ticketing"
	DomainAccounting Domain = "accounting"
)

// AllDomains returns every domain in a fixed order.
func AllDomains() []Domain {
	return []Domain{DomainCRM, DomainATS, DomainChat, DomainTicketing, DomainAccounting}
}

// String returns the string representation of a Domain.
func (d Domain) String() string {
	return string(d)
}

// ObjectType is a canonical (unified) object type such as "deal" or "candidate".
type ObjectType string

// CRM object types.
const (
	ObjectContact ObjectType = "contact"
	ObjectCompany ObjectType = "company"
	ObjectDeal    ObjectType = "deal"
	ObjectLead    ObjectType = "lead"
	ObjectEvent   ObjectType = "event"
	ObjectNote    ObjectType = "note"
	ObjectTask    ObjectType = "task"
	ObjectUser    ObjectType = "user"
)

// ATS object types.
const (
	ObjectCandidate   ObjectType = "candidate"
	ObjectJob         ObjectType = "job"
	ObjectApplication ObjectType = "application"
	ObjectInterview   ObjectType = "interview"
)

// Chat object types.
const (
	ObjectMessage ObjectType = "message"
	ObjectChannel ObjectType = "channel"
)

// Ticketing object types.
const (
	ObjectTicket  ObjectType = "ticket"
	ObjectComment ObjectType = "comment"
)

// Accounting object types.
const (
	ObjectCustomer ObjectType = "customer"
	ObjectVendor   ObjectType = "vendor"
	ObjectInvoice  ObjectType = "invoice"
	ObjectPayment  ObjectType = "payment"
	ObjectAccount  ObjectType = "account"
)

var objectDomains = map[ObjectType]Domain{
	ObjectContact:     DomainCRM,
	ObjectCompany:     DomainCRM,
	ObjectDeal:        DomainCRM,
	ObjectLead:        DomainCRM,
	ObjectEvent:       DomainCRM,
	ObjectNote:        DomainCRM,
	ObjectTask:        DomainCRM,
	ObjectUser:        DomainCRM,
	ObjectCandidate:   DomainATS,
	ObjectJob:         DomainATS,
	ObjectApplication: DomainATS,
	ObjectInterview:   DomainATS,
	ObjectMessage:     DomainChat,
	ObjectChannel:     DomainChat,
	ObjectTicket:      DomainTicketing,
	ObjectComment:     DomainTicketing,
	ObjectCustomer:    DomainAccounting,
	ObjectVendor:      DomainAccounting,
	ObjectInvoice:     DomainAccounting,
	ObjectPayment:     DomainAccounting,
	ObjectAccount:     DomainAccounting,
}

// String returns the string representation of an ObjectType.
func (t ObjectType) String() string {
	return string(t)
}

// Domain returns the domain the object type belongs to, or "" if unknown.
func (t ObjectType) Domain() Domain {
	return objectDomains[t]
}

// IsValid returns true if the object type is a known canonical type.
func (t ObjectType) IsValid() bool {
	_, ok := objectDomains[t]
	return ok
}

// ParseObjectType normalizes a caller-supplied object type name.
// Case and surrounding whitespace are ignored and plural forms are accepted,
// so "Deals" resolves to ObjectDeal. Returns false if the name is not known.
func ParseObjectType(name string) (ObjectType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", false
	}
	if t := ObjectType(normalized); t.IsValid() {
		return t, true
	}
	t := ObjectType(inflection.Singular(normalized))
	return t, t.IsValid()
}

// ObjectTypesByDomain returns the canonical object types of a domain.
func ObjectTypesByDomain(d Domain) []ObjectType {
	var types []ObjectType
	for t, domain := range objectDomains {
		if domain == d {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types
}
