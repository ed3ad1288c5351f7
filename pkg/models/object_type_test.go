package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseObjectType(t *testing.T) {
	tests := []struct {
		input  string
		want   ObjectType
		wantOK bool
	}{
		{"deal", ObjectDeal, true},
		{"Deals", ObjectDeal, true},
		{"  companies ", ObjectCompany, true},
		{"OPPORTUNITY", "opportunity", false},
		{"candidates", ObjectCandidate, true},
		{"invoices", ObjectInvoice, true},
		{"", "", false},
		{"widgets", "widget", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseObjectType(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestObjectType_Domain(t *testing.T) {
	assert.Equal(t, DomainCRM, ObjectNote.Domain())
	assert.Equal(t, DomainATS, ObjectInterview.Domain())
	assert.Equal(t, DomainChat, ObjectMessage.Domain())
	assert.Equal(t, DomainTicketing, ObjectComment.Domain())
	assert.Equal(t, DomainAccounting, ObjectPayment.Domain())
	assert.Equal(t, Domain(""), ObjectType("widget").Domain())
	assert.False(t, ObjectType("widget").IsValid())
}

func TestObjectTypesByDomain(t *testing.T) {
	assert.Equal(t, []ObjectType{ObjectChannel, ObjectMessage}, ObjectTypesByDomain(DomainChat))
	assert.Equal(t, []ObjectType{ObjectComment, ObjectTicket}, ObjectTypesByDomain(DomainTicketing))
	assert.Empty(t, ObjectTypesByDomain("erp"))
}
