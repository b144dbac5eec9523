package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Fixtures is the content of a fixture warehouse, as written in YAML.
type Fixtures struct {
	Persons   []PersonRow   `yaml:"persons"`
	Events    []EventRow    `yaml:"events"`
	Criteria  []CriteriaRow `yaml:"criteria"`
	Ancestors []AncestorRow `yaml:"ancestors"`
}

// PersonRow fills one row of both person tables, and of death when
// DeathDate is set.
type PersonRow struct {
	PersonID                   int64  `yaml:"person_id"`
	Gender                     string `yaml:"gender"`
	Race                       string `yaml:"race"`
	Ethnicity                  string `yaml:"ethnicity"`
	SexAtBirth                 string `yaml:"sex_at_birth"`
	GenderConceptID            *int64 `yaml:"gender_concept_id"`
	RaceConceptID              *int64 `yaml:"race_concept_id"`
	EthnicityConceptID         *int64 `yaml:"ethnicity_concept_id"`
	SexAtBirthConceptID        *int64 `yaml:"sex_at_birth_concept_id"`
	DOB                        string `yaml:"dob"`
	AgeAtConsent               *int64 `yaml:"age_at_consent"`
	AgeAtCDR                   *int64 `yaml:"age_at_cdr"`
	DeathDate                  string `yaml:"death_date"`
	HasEHRData                 bool   `yaml:"has_ehr_data"`
	HasPhysicalMeasurementData bool   `yaml:"has_physical_measurement_data"`
	HasFitbit                  bool   `yaml:"has_fitbit"`
	HasWholeGenomeVariant      bool   `yaml:"has_whole_genome_variant"`
	HasArrayData               bool   `yaml:"has_array_data"`
}

// EventRow is one row of cb_search_all_events.
type EventRow struct {
	PersonID               int64    `yaml:"person_id"`
	EntryDate              string   `yaml:"entry_date"`
	IsStandard             bool     `yaml:"is_standard"`
	ConceptID              int64    `yaml:"concept_id"`
	Domain                 string   `yaml:"domain"`
	AgeAtEvent             *int64   `yaml:"age_at_event"`
	VisitConceptID         *int64   `yaml:"visit_concept_id"`
	VisitOccurrenceID      *int64   `yaml:"visit_occurrence_id"`
	ValueAsNumber          *float64 `yaml:"value_as_number"`
	ValueAsConceptID       *int64   `yaml:"value_as_concept_id"`
	ValueSourceConceptID   *int64   `yaml:"value_source_concept_id"`
	Systolic               *float64 `yaml:"systolic"`
	Diastolic              *float64 `yaml:"diastolic"`
	SurveyVersionConceptID *int64   `yaml:"survey_version_concept_id"`
}

// CriteriaRow is one node of the criteria hierarchy. Path is the
// dot-separated chain of ids from the root to the node itself.
type CriteriaRow struct {
	ID           int64  `yaml:"id"`
	ParentID     int64  `yaml:"parent_id"`
	DomainID     string `yaml:"domain_id"`
	IsStandard   bool   `yaml:"is_standard"`
	Type         string `yaml:"type"`
	Subtype      string `yaml:"subtype"`
	ConceptID    *int64 `yaml:"concept_id"`
	Name         string `yaml:"name"`
	IsGroup      bool   `yaml:"is_group"`
	IsSelectable bool   `yaml:"is_selectable"`
	Path         string `yaml:"path"`
}

// AncestorRow is one pair of the ancestor closure.
type AncestorRow struct {
	AncestorID   int64 `yaml:"ancestor_id"`
	DescendantID int64 `yaml:"descendant_id"`
}

// ParseFixtures decodes YAML fixtures. Unknown keys are rejected.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixtures reads and decodes a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// Seed inserts fixtures in one transaction.
func (s *SQLite) Seed(ctx context.Context, f *Fixtures) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range f.Persons {
		if err := insertPerson(ctx, tx, p); err != nil {
			return fmt.Errorf("seed person %d: %w", p.PersonID, err)
		}
	}
	for i, e := range f.Events {
		if err := insertEvent(ctx, tx, e); err != nil {
			return fmt.Errorf("seed event %d: %w", i, err)
		}
	}
	for _, c := range f.Criteria {
		if err := insertCriteria(ctx, tx, c); err != nil {
			return fmt.Errorf("seed criteria %d: %w", c.ID, err)
		}
	}
	for _, a := range f.Ancestors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cb_criteria_ancestor (ancestor_id, descendant_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, a.AncestorID, a.DescendantID); err != nil {
			return fmt.Errorf("seed ancestor %d->%d: %w", a.AncestorID, a.DescendantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

func insertPerson(ctx context.Context, tx *sql.Tx, p PersonRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cb_search_person
		(person_id, gender, race, ethnicity, sex_at_birth, dob, age_at_consent, age_at_cdr, is_deceased,
		 has_ehr_data, has_physical_measurement_data, has_fitbit, has_whole_genome_variant, has_array_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.PersonID,
		nullString(p.Gender),
		nullString(p.Race),
		nullString(p.Ethnicity),
		nullString(p.SexAtBirth),
		nullString(p.DOB),
		p.AgeAtConsent,
		p.AgeAtCDR,
		flag(p.DeathDate != ""),
		flag(p.HasEHRData),
		flag(p.HasPhysicalMeasurementData),
		flag(p.HasFitbit),
		flag(p.HasWholeGenomeVariant),
		flag(p.HasArrayData),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO person
		(person_id, gender_concept_id, race_concept_id, ethnicity_concept_id, sex_at_birth_concept_id)
		VALUES (?, ?, ?, ?, ?)
	`, p.PersonID, p.GenderConceptID, p.RaceConceptID, p.EthnicityConceptID, p.SexAtBirthConceptID)
	if err != nil {
		return err
	}

	if p.DeathDate != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO death (person_id, death_date) VALUES (?, ?)`, p.PersonID, p.DeathDate); err != nil {
			return err
		}
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e EventRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cb_search_all_events
		(person_id, entry_date, is_standard, concept_id, domain, age_at_event, visit_concept_id,
		 visit_occurrence_id, value_as_number, value_as_concept_id, value_source_concept_id,
		 systolic, diastolic, survey_version_concept_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.PersonID,
		e.EntryDate,
		flag(e.IsStandard),
		e.ConceptID,
		e.Domain,
		e.AgeAtEvent,
		e.VisitConceptID,
		e.VisitOccurrenceID,
		e.ValueAsNumber,
		e.ValueAsConceptID,
		e.ValueSourceConceptID,
		e.Systolic,
		e.Diastolic,
		e.SurveyVersionConceptID,
	)
	return err
}

func insertCriteria(ctx context.Context, tx *sql.Tx, c CriteriaRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cb_criteria
		(id, parent_id, domain_id, is_standard, type, subtype, concept_id, name, is_group, is_selectable, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.ParentID,
		c.DomainID,
		flag(c.IsStandard),
		c.Type,
		nullString(c.Subtype),
		c.ConceptID,
		nullString(c.Name),
		flag(c.IsGroup),
		flag(c.IsSelectable),
		c.Path,
	)
	return err
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
