package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntity_KnownCollections(t *testing.T) {
	tests := []struct {
		collection string
		want       any
	}{
		{CollectionLeads, &Lead{}},
		{CollectionContacts, &Contact{}},
		{CollectionCompanies, &Company{}},
		{CollectionOpportunities, &Opportunity{}},
		{CollectionActivities, &Activity{}},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			entity, err := NewEntity(tt.collection)
			require.NoError(t, err)
			assert.IsType(t, tt.want, entity)
		})
	}
}

func TestNewEntity_UnknownCollection(t *testing.T) {
	_, err := NewEntity("invoices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")
}

func TestRecord_DecodePayload(t *testing.T) {
	record := Record{
		Collection: CollectionLeads,
		Payload:    []byte(`{"first_name":"Ada","status":"new"}`),
	}

	entity, err := record.DecodePayload()
	require.NoError(t, err)

	lead, ok := entity.(*Lead)
	require.True(t, ok)
	assert.Equal(t, "Ada", lead.FirstName)
	assert.Equal(t, "new", lead.Status)
}

func TestRecord_DecodePayload_Malformed(t *testing.T) {
	record := Record{
		Collection: CollectionLeads,
		Payload:    []byte(`{"first_name":`),
	}

	_, err := record.DecodePayload()
	assert.Error(t, err)
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	raw, err := EncodePayload(&Company{Name: "Acme", Industry: "software"})
	require.NoError(t, err)

	record := Record{Collection: CollectionCompanies, Payload: raw}
	entity, err := record.DecodePayload()
	require.NoError(t, err)

	company := entity.(*Company)
	assert.Equal(t, "Acme", company.Name)
	assert.Equal(t, "software", company.Industry)
}

func TestRecord_Confirmed(t *testing.T) {
	assert.False(t, Record{}.Confirmed())
	assert.True(t, Record{ServerKey: "srv-1"}.Confirmed())
}
