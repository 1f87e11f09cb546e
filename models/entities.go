package models

import (
	"encoding/json"
	"fmt"
)

// Collection names. One SQLite-backed collection exists per entity type, plus
// the reserved mutation queue and sync metadata tables managed by the store.
const (
	CollectionLeads         = "leads"
	CollectionContacts      = "contacts"
	CollectionCompanies     = "companies"
	CollectionOpportunities = "opportunities"
	CollectionActivities    = "activities"
)

// Lead is a potential customer that has not yet been qualified.
type Lead struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Source    string `json:"source"`
	Status    string `json:"status" validate:"omitempty,oneof=new contacted qualified lost converted"`
	Notes     string `json:"notes"`
}

// Contact is a person attached to a company.
type Contact struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Title      string `json:"title"`
	CompanyKey string `json:"company_key"`
}

// Company is an organisation records can be attached to.
type Company struct {
	Name     string `json:"name" validate:"required"`
	Domain   string `json:"domain"`
	Industry string `json:"industry"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// Opportunity is a potential deal moving through the pipeline.
type Opportunity struct {
	Name       string  `json:"name" validate:"required"`
	CompanyKey string  `json:"company_key"`
	ContactKey string  `json:"contact_key"`
	Stage      string  `json:"stage" validate:"omitempty,oneof=prospecting proposal negotiation won lost"`
	Amount     float64 `json:"amount" validate:"gte=0"`
	Currency   string  `json:"currency" validate:"omitempty,len=3"`
	CloseDate  string  `json:"close_date"`
}

// Activity is a logged communication (call, email, meeting) against another
// record.
type Activity struct {
	Kind       string `json:"kind" validate:"required,oneof=call email meeting note"`
	Subject    string `json:"subject" validate:"required"`
	Body       string `json:"body"`
	RelatedKey string `json:"related_key"`
	OccurredAt string `json:"occurred_at"`
}

// NewEntity returns a zero value of the concrete entity type for collection,
// as a pointer suitable for json.Unmarshal. It is the single place the
// collection-name tag is mapped to a Go type, so dispatch on collection is
// exhaustive: an unknown name is an error, not a silently-untyped payload.
func NewEntity(collection string) (any, error) {
	switch collection {
	case CollectionLeads:
		return &Lead{}, nil
	case CollectionContacts:
		return &Contact{}, nil
	case CollectionCompanies:
		return &Company{}, nil
	case CollectionOpportunities:
		return &Opportunity{}, nil
	case CollectionActivities:
		return &Activity{}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

// DecodePayload decodes the record's raw payload into the concrete entity
// type for its collection.
func (r Record) DecodePayload() (any, error) {
	entity, err := NewEntity(r.Collection)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.Payload, entity); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r.Collection, err)
	}
	return entity, nil
}

// EncodePayload marshals a concrete entity value into the raw payload form
// stored on a Record.
func EncodePayload(entity any) (json.RawMessage, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}
