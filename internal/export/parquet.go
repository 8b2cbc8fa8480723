package export

import (
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/table"
)

// caseRecord is the fixed columnar schema for the Parquet export. The
// cleaned table's canonical columns map onto it; nullable fields are
// optional, everything is snappy-compressed.
type caseRecord struct {
	CaseID               *string `parquet:"case_id,optional,snappy"`
	Title                *string `parquet:"title,optional,snappy"`
	Diagnosis            *string `parquet:"diagnosis,optional,snappy"`
	Description          *string `parquet:"description,optional,snappy"`
	ClinicalPresentation *string `parquet:"clinical_presentation,optional,snappy"`
	Commentary           *string `parquet:"commentary,optional,snappy"`
	KeyWords             *string `parquet:"keywords,optional,snappy"`
	Anatomy              *string `parquet:"anatomy,optional,snappy"`
	Chapter              *string `parquet:"chapter,optional,snappy"`
	Hospital             *string `parquet:"hospital,optional,snappy"`
	Department           *string `parquet:"department,optional,snappy"`
	Sex                  *string `parquet:"sex,optional,snappy"`
	Age                  int32   `parquet:"age,snappy"`
	Birthdate            *string `parquet:"birth_date,optional,snappy"`
	ExamDate             *string `parquet:"exam_date,optional,snappy"`
	Year                 *int32  `parquet:"year,optional,snappy"`
	AgeGroup             *string `parquet:"age_group,optional,snappy"`
	QCM                  *string `parquet:"questionnaire,optional,snappy"`
	SourceFile           *string `parquet:"source_file,optional,snappy"`
}

// WriteParquet writes the cleaned table in compressed columnar form.
func WriteParquet(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	records := make([]caseRecord, 0, t.Len())
	for _, r := range t.Rows {
		records = append(records, toCaseRecord(r))
	}

	w := parquet.NewGenericWriter[caseRecord](f)
	if len(records) > 0 {
		if _, err := w.Write(records); err != nil {
			return eris.Wrap(err, "export: write parquet rows")
		}
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "export: close parquet writer")
	}

	return eris.Wrap(f.Close(), "export: close parquet file")
}

func toCaseRecord(r table.Row) caseRecord {
	rec := caseRecord{
		CaseID:               optStr(r, "ID"),
		Title:                optStr(r, "Title"),
		Diagnosis:            optStr(r, "Diagnosis"),
		Description:          optStr(r, "Description"),
		ClinicalPresentation: optStr(r, "ClinicalPresentation"),
		Commentary:           optStr(r, "Commentary"),
		KeyWords:             optStr(r, "KeyWords"),
		Anatomy:              optStr(r, "Anatomy"),
		Chapter:              optStr(r, "Chapter"),
		Hospital:             optStr(r, "Hospital"),
		Department:           optStr(r, "Department"),
		Sex:                  optStr(r, "Sex"),
		Birthdate:            optStr(r, "Birthdate"),
		ExamDate:             optStr(r, "Date"),
		AgeGroup:             optStr(r, "AgeGroup"),
		QCM:                  optStr(r, "QCM"),
		SourceFile:           optStr(r, "SourceFile"),
	}

	if v, ok := r.Get("Age"); ok {
		if age, err := strconv.Atoi(v); err == nil {
			rec.Age = int32(age)
		}
	}
	if v, ok := r.Get("Year"); ok {
		if year, err := strconv.Atoi(v); err == nil {
			y := int32(year)
			rec.Year = &y
		}
	}

	return rec
}

func optStr(r table.Row, col string) *string {
	if v, ok := r.Get(col); ok {
		return &v
	}
	return nil
}
