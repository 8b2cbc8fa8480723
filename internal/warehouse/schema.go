// Package warehouse builds a star schema from the cleaned case table
// and loads it into an embedded SQLite file or a PostgreSQL database.
package warehouse

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/table"
)

// ErrIntegrity signals a referential or value defect detected while
// building the star schema.
var ErrIntegrity = eris.New("warehouse: integrity violation")

// PatientDim is one distinct patient attribute tuple.
type PatientDim struct {
	Key       int
	Sex       *string
	Age       int
	Birthdate *string
	AgeGroup  *string
}

// ExamDim is one distinct exam attribute tuple.
type ExamDim struct {
	Key        int
	Date       *string
	Year       *int
	Hospital   *string
	Department *string
}

// PathologyDim is one distinct pathology attribute tuple.
type PathologyDim struct {
	Key         int
	Diagnosis   *string
	Chapter     *string
	Description *string
	KeyWords    *string
	Anatomy     *string
	Title       *string
}

// CaseFact is one case at the grain of the cleaned table, with foreign
// keys into the three dimensions.
type CaseFact struct {
	Key                  int
	CaseID               string
	PatientKey           int
	ExamKey              int
	PathologyKey         int
	ClinicalPresentation *string
	Commentary           *string
	QCM                  *string
	SourceFile           *string
}

// StarSchema holds the dimension and fact rows ready for loading.
// Surrogate keys are assigned in first-seen order starting at 1.
type StarSchema struct {
	Patients    []PatientDim
	Exams       []ExamDim
	Pathologies []PathologyDim
	Facts       []CaseFact
}

// Build derives the star schema from the enriched table. Every fact row
// must resolve all three foreign keys; the final pass re-verifies that
// and returns ErrIntegrity on any dangling reference.
func Build(t *table.Table) (*StarSchema, error) {
	s := &StarSchema{}
	patientKeys := map[string]int{}
	examKeys := map[string]int{}
	pathologyKeys := map[string]int{}

	for i, r := range t.Rows {
		age, err := rowAge(r)
		if err != nil {
			return nil, eris.Wrapf(ErrIntegrity, "row %d: %v", i, err)
		}

		pTuple := []*string{opt(r, "Sex"), opt(r, "Birthdate"), opt(r, "AgeGroup")}
		pFP := fingerprint(strconv.Itoa(age), pTuple...)
		pKey, ok := patientKeys[pFP]
		if !ok {
			pKey = len(s.Patients) + 1
			patientKeys[pFP] = pKey
			s.Patients = append(s.Patients, PatientDim{
				Key: pKey, Sex: pTuple[0], Age: age,
				Birthdate: pTuple[1], AgeGroup: pTuple[2],
			})
		}

		eTuple := []*string{opt(r, "Date"), opt(r, "Hospital"), opt(r, "Department")}
		year := rowYear(r)
		eFP := fingerprint(yearFP(year), eTuple...)
		eKey, ok := examKeys[eFP]
		if !ok {
			eKey = len(s.Exams) + 1
			examKeys[eFP] = eKey
			s.Exams = append(s.Exams, ExamDim{
				Key: eKey, Date: eTuple[0], Year: year,
				Hospital: eTuple[1], Department: eTuple[2],
			})
		}

		dTuple := []*string{
			opt(r, "Diagnosis"), opt(r, "Chapter"), opt(r, "Description"),
			opt(r, "KeyWords"), opt(r, "Anatomy"), opt(r, "Title"),
		}
		dFP := fingerprint("", dTuple...)
		dKey, ok := pathologyKeys[dFP]
		if !ok {
			dKey = len(s.Pathologies) + 1
			pathologyKeys[dFP] = dKey
			s.Pathologies = append(s.Pathologies, PathologyDim{
				Key: dKey, Diagnosis: dTuple[0], Chapter: dTuple[1],
				Description: dTuple[2], KeyWords: dTuple[3],
				Anatomy: dTuple[4], Title: dTuple[5],
			})
		}

		caseID := strconv.Itoa(i + 1)
		if v, ok := r.Get("ID"); ok {
			caseID = v
		}
		s.Facts = append(s.Facts, CaseFact{
			Key:                  len(s.Facts) + 1,
			CaseID:               caseID,
			PatientKey:           pKey,
			ExamKey:              eKey,
			PathologyKey:         dKey,
			ClinicalPresentation: opt(r, "ClinicalPresentation"),
			Commentary:           opt(r, "Commentary"),
			QCM:                  opt(r, "QCM"),
			SourceFile:           opt(r, "SourceFile"),
		})
	}

	if err := s.verify(); err != nil {
		return nil, err
	}
	return s, nil
}

// verify checks that every fact foreign key resolves to an existing
// dimension row.
func (s *StarSchema) verify() error {
	for _, f := range s.Facts {
		if f.PatientKey < 1 || f.PatientKey > len(s.Patients) {
			return eris.Wrapf(ErrIntegrity, "fact %d: dangling patient key %d", f.Key, f.PatientKey)
		}
		if f.ExamKey < 1 || f.ExamKey > len(s.Exams) {
			return eris.Wrapf(ErrIntegrity, "fact %d: dangling exam key %d", f.Key, f.ExamKey)
		}
		if f.PathologyKey < 1 || f.PathologyKey > len(s.Pathologies) {
			return eris.Wrapf(ErrIntegrity, "fact %d: dangling pathology key %d", f.Key, f.PathologyKey)
		}
	}
	return nil
}

func rowAge(r table.Row) (int, error) {
	raw, ok := r.Get("Age")
	if !ok {
		return 0, eris.New("age missing")
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("non-numeric age %q", raw)
	}
	return age, nil
}

func rowYear(r table.Row) *int {
	raw, ok := r.Get("Year")
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &year
}

func opt(r table.Row, col string) *string {
	if v, ok := r.Get(col); ok {
		return &v
	}
	return nil
}

// fingerprint distinguishes null from empty string so that attribute
// tuples compare the same way table.Dedupe compares rows.
func fingerprint(head string, vals ...*string) string {
	var b strings.Builder
	b.WriteString(head)
	for _, v := range vals {
		b.WriteByte('\x1f')
		if v == nil {
			b.WriteString("\x00null")
		} else {
			b.WriteString(*v)
		}
	}
	return b.String()
}

func yearFP(y *int) string {
	if y == nil {
		return "\x00null"
	}
	return strconv.Itoa(*y)
}
