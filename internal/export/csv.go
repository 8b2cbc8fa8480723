// Package export writes the cleaned table to flat analytical formats
// and persists the schema-mapping document. All writers replace prior
// output unconditionally.
package export

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/table"
)

// WriteCSV writes the table as a header row plus one record per row.
// Null values render as empty fields.
func WriteCSV(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(t.Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			record[i], _ = r.Get(c)
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

// ReadCSV loads a previously exported table. Empty fields read back as
// null, mirroring WriteCSV.
func ReadCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv")
	}
	if len(records) == 0 {
		return table.New(), nil
	}

	header := records[0]
	t := table.New()
	for _, rec := range records[1:] {
		row := table.Row{}
		for i, c := range header {
			if i < len(rec) && rec[i] != "" {
				row.Set(c, rec[i])
			}
		}
		t.AddRowOrdered(row, header)
	}
	// Register every header column even when all rows are null in it.
	for _, c := range header {
		t.EnsureColumn(c)
	}
	return t, nil
}
