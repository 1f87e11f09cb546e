package service

import (
	"sort"

	"github.com/fieldline-crm/fieldline/models"
)

// collectionIndexes declares the secondary indexes maintained for each
// collection. Definitions are fixed at initialization; the store rewrites a
// record's index rows on every put, so re-registering a collection is
// harmless.
var collectionIndexes = map[string][]models.IndexDefinition{
	models.CollectionLeads: {
		{Name: "status", Extract: func(payload any) string {
			if l, ok := payload.(*models.Lead); ok {
				return l.Status
			}
			return ""
		}},
		{Name: "source", Extract: func(payload any) string {
			if l, ok := payload.(*models.Lead); ok {
				return l.Source
			}
			return ""
		}},
	},
	models.CollectionContacts: {
		{Name: "company_key", Extract: func(payload any) string {
			if c, ok := payload.(*models.Contact); ok {
				return c.CompanyKey
			}
			return ""
		}},
	},
	models.CollectionCompanies: {
		{Name: "industry", Extract: func(payload any) string {
			if c, ok := payload.(*models.Company); ok {
				return c.Industry
			}
			return ""
		}},
	},
	models.CollectionOpportunities: {
		{Name: "stage", Extract: func(payload any) string {
			if o, ok := payload.(*models.Opportunity); ok {
				return o.Stage
			}
			return ""
		}},
		{Name: "company_key", Extract: func(payload any) string {
			if o, ok := payload.(*models.Opportunity); ok {
				return o.CompanyKey
			}
			return ""
		}},
	},
	models.CollectionActivities: {
		{Name: "kind", Extract: func(payload any) string {
			if a, ok := payload.(*models.Activity); ok {
				return a.Kind
			}
			return ""
		}},
		{Name: "related_key", Extract: func(payload any) string {
			if a, ok := payload.(*models.Activity); ok {
				return a.RelatedKey
			}
			return ""
		}},
	},
}

// indexEntries derives the secondary-index rows for an entity payload from
// the collection's index definitions.
func indexEntries(collection string, entity any) []models.IndexEntry {
	defs := collectionIndexes[collection]
	entries := make([]models.IndexEntry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, models.IndexEntry{
			IndexName: def.Name,
			Value:     def.Extract(entity),
		})
	}
	return entries
}

func registeredCollections() []string {
	names := make([]string, 0, len(collectionIndexes))
	for name := range collectionIndexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
