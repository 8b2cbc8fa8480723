package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/casimage-etl/internal/table"
)

// WriteXLSX writes the cleaned table as a single-sheet workbook for
// analyst review.
func WriteXLSX(t *table.Table, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("cases")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, c := range t.Columns {
		header.AddCell().Value = c
	}

	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, c := range t.Columns {
			v, _ := r.Get(c)
			row.AddCell().Value = v
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
