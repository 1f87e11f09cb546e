package devserver

import (
	"encoding/json"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/fieldline-crm/fieldline/models"
)

// seed populates every collection with n generated records so a freshly
// started backend has data to browse.
func (s *Server) seed(n int) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	companyKeys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec := s.store.insertLocked(models.CollectionCompanies, mustJSON(models.Company{
			Name:     gofakeit.Company(),
			Domain:   gofakeit.DomainName(),
			Industry: gofakeit.RandomString([]string{"software", "manufacturing", "retail", "finance", "healthcare"}),
			City:     gofakeit.City(),
			Country:  gofakeit.Country(),
		}))
		companyKeys = append(companyKeys, rec.ServerKey)
	}

	contactKeys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec := s.store.insertLocked(models.CollectionContacts, mustJSON(models.Contact{
			FirstName:  gofakeit.FirstName(),
			LastName:   gofakeit.LastName(),
			Email:      gofakeit.Email(),
			Phone:      gofakeit.Phone(),
			Title:      gofakeit.JobTitle(),
			CompanyKey: gofakeit.RandomString(companyKeys),
		}))
		contactKeys = append(contactKeys, rec.ServerKey)
	}

	for i := 0; i < n; i++ {
		s.store.insertLocked(models.CollectionLeads, mustJSON(models.Lead{
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Email:     gofakeit.Email(),
			Phone:     gofakeit.Phone(),
			Company:   gofakeit.Company(),
			Source:    gofakeit.RandomString([]string{"web", "referral", "event", "outbound"}),
			Status:    gofakeit.RandomString([]string{"new", "contacted", "qualified"}),
		}))
	}

	for i := 0; i < n; i++ {
		s.store.insertLocked(models.CollectionOpportunities, mustJSON(models.Opportunity{
			Name:       gofakeit.BuzzWord() + " deal",
			CompanyKey: gofakeit.RandomString(companyKeys),
			ContactKey: gofakeit.RandomString(contactKeys),
			Stage:      gofakeit.RandomString([]string{"prospecting", "proposal", "negotiation"}),
			Amount:     gofakeit.Price(1000, 250000),
			Currency:   "USD",
			CloseDate:  gofakeit.FutureDate().Format("2006-01-02"),
		}))
	}

	for i := 0; i < n; i++ {
		s.store.insertLocked(models.CollectionActivities, mustJSON(models.Activity{
			Kind:       gofakeit.RandomString([]string{"call", "email", "meeting", "note"}),
			Subject:    gofakeit.Sentence(4),
			Body:       gofakeit.Paragraph(1, 2, 8, " "),
			RelatedKey: gofakeit.RandomString(contactKeys),
			OccurredAt: gofakeit.PastDate().Format("2006-01-02T15:04:05Z07:00"),
		}))
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
