package testutil

import (
	"context"
	"testing"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/store"
)

// Warehouse opens an in-memory fixture warehouse seeded with f and closes
// it when the test ends.
func Warehouse(t *testing.T, f *store.Fixtures) *store.SQLite {
	t.Helper()
	w, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if f != nil {
		if err := w.Seed(context.Background(), f); err != nil {
			t.Fatalf("Seed() failed: %v", err)
		}
	}
	return w
}

// Person builds a person row with EHR data.
func Person(id int64) store.PersonRow {
	return store.PersonRow{PersonID: id, HasEHRData: true}
}

// Male returns p as a male participant.
func Male(p store.PersonRow) store.PersonRow {
	p.Gender = "Male"
	p.GenderConceptID = criteria.Int64(GenderMale)
	return p
}

// Female returns p as a female participant.
func Female(p store.PersonRow) store.PersonRow {
	p.Gender = "Female"
	p.GenderConceptID = criteria.Int64(GenderFemale)
	return p
}

// Event builds an event row.
func Event(personID int64, date string, domain criteria.Domain, conceptID int64, standard bool) store.EventRow {
	return store.EventRow{
		PersonID:   personID,
		EntryDate:  date,
		Domain:     string(domain),
		ConceptID:  conceptID,
		IsStandard: standard,
	}
}

// AtVisit returns e attached to a visit.
func AtVisit(e store.EventRow, occurrenceID, visitConceptID int64) store.EventRow {
	e.VisitOccurrenceID = criteria.Int64(occurrenceID)
	e.VisitConceptID = criteria.Int64(visitConceptID)
	return e
}

// AtAge returns e with an age at event.
func AtAge(e store.EventRow, age int64) store.EventRow {
	e.AgeAtEvent = criteria.Int64(age)
	return e
}

// Gender concept ids used by fixtures.
const (
	GenderMale   int64 = 8507
	GenderFemale int64 = 8532
)
