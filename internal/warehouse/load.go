package warehouse

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrLoad signals a warehouse load failure. The wrapped message names
// the table that failed.
var ErrLoad = eris.New("warehouse: load failed")

// loadTable pairs a table's DDL with the shaping of its insert rows.
// Dimensions come before the fact so that foreign keys always point at
// loaded rows.
type loadTable struct {
	name    string
	ddl     string
	columns []string
	rows    func(*StarSchema) [][]any
}

var loadTables = []loadTable{
	{
		name: "dim_patient",
		ddl: `CREATE TABLE dim_patient (
	patient_key INTEGER PRIMARY KEY,
	sex         TEXT,
	age         INTEGER NOT NULL,
	birth_date  TEXT,
	age_group   TEXT
)`,
		columns: []string{"patient_key", "sex", "age", "birth_date", "age_group"},
		rows: func(s *StarSchema) [][]any {
			out := make([][]any, 0, len(s.Patients))
			for _, d := range s.Patients {
				out = append(out, []any{d.Key, strVal(d.Sex), d.Age, strVal(d.Birthdate), strVal(d.AgeGroup)})
			}
			return out
		},
	},
	{
		name: "dim_exam",
		ddl: `CREATE TABLE dim_exam (
	exam_key   INTEGER PRIMARY KEY,
	exam_date  TEXT,
	exam_year  INTEGER,
	hospital   TEXT,
	department TEXT
)`,
		columns: []string{"exam_key", "exam_date", "exam_year", "hospital", "department"},
		rows: func(s *StarSchema) [][]any {
			out := make([][]any, 0, len(s.Exams))
			for _, d := range s.Exams {
				out = append(out, []any{d.Key, strVal(d.Date), intVal(d.Year), strVal(d.Hospital), strVal(d.Department)})
			}
			return out
		},
	},
	{
		name: "dim_pathology",
		ddl: `CREATE TABLE dim_pathology (
	pathology_key INTEGER PRIMARY KEY,
	diagnosis     TEXT,
	chapter       TEXT,
	description   TEXT,
	keywords      TEXT,
	anatomy       TEXT,
	title         TEXT
)`,
		columns: []string{"pathology_key", "diagnosis", "chapter", "description", "keywords", "anatomy", "title"},
		rows: func(s *StarSchema) [][]any {
			out := make([][]any, 0, len(s.Pathologies))
			for _, d := range s.Pathologies {
				out = append(out, []any{
					d.Key, strVal(d.Diagnosis), strVal(d.Chapter), strVal(d.Description),
					strVal(d.KeyWords), strVal(d.Anatomy), strVal(d.Title),
				})
			}
			return out
		},
	},
	{
		name: "fact_case",
		ddl: `CREATE TABLE fact_case (
	case_key              INTEGER PRIMARY KEY,
	case_id               TEXT NOT NULL,
	patient_key           INTEGER NOT NULL REFERENCES dim_patient(patient_key),
	exam_key              INTEGER NOT NULL REFERENCES dim_exam(exam_key),
	pathology_key         INTEGER NOT NULL REFERENCES dim_pathology(pathology_key),
	clinical_presentation TEXT,
	commentary            TEXT,
	questionnaire         TEXT,
	source_file           TEXT
)`,
		columns: []string{
			"case_key", "case_id", "patient_key", "exam_key", "pathology_key",
			"clinical_presentation", "commentary", "questionnaire", "source_file",
		},
		rows: func(s *StarSchema) [][]any {
			out := make([][]any, 0, len(s.Facts))
			for _, f := range s.Facts {
				out = append(out, []any{
					f.Key, f.CaseID, f.PatientKey, f.ExamKey, f.PathologyKey,
					strVal(f.ClinicalPresentation), strVal(f.Commentary),
					strVal(f.QCM), strVal(f.SourceFile),
				})
			}
			return out
		},
	},
}

// Result reports which tables loaded and how many rows each received.
// On failure the slice covers the tables that completed before the
// error.
type Result struct {
	Tables []TableLoad
}

// TableLoad is the per-table outcome of a load.
type TableLoad struct {
	Name string
	Rows int64
}

// RowsLoaded sums the loaded row counts across all tables.
func (r *Result) RowsLoaded() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Rows
	}
	return n
}

// Load drops and recreates every warehouse table, then inserts
// dimensions before the fact. Loading is best-effort: a failure aborts
// the remaining tables but already-loaded tables stay in place, and the
// returned Result says how far the load got.
func Load(ctx context.Context, store Store, schema *StarSchema) (*Result, error) {
	res := &Result{}

	// Drop in reverse so the fact's foreign keys never block a dim drop.
	for i := len(loadTables) - 1; i >= 0; i-- {
		if err := store.ExecDDL(ctx, "DROP TABLE IF EXISTS "+loadTables[i].name); err != nil {
			return res, eris.Wrapf(ErrLoad, "drop %s: %v", loadTables[i].name, err)
		}
	}

	for _, lt := range loadTables {
		if err := store.ExecDDL(ctx, lt.ddl); err != nil {
			return res, eris.Wrapf(ErrLoad, "create %s: %v", lt.name, err)
		}
		n, err := store.BulkInsert(ctx, lt.name, lt.columns, lt.rows(schema))
		if err != nil {
			return res, eris.Wrapf(ErrLoad, "insert %s: %v", lt.name, err)
		}
		res.Tables = append(res.Tables, TableLoad{Name: lt.name, Rows: n})
		zap.L().Info("warehouse table loaded",
			zap.String("table", lt.name),
			zap.Int64("rows", n))
	}

	return res, nil
}

func strVal(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func intVal(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
