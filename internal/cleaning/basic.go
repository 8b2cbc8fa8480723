// Package cleaning implements the layered data-cleaning stages applied
// to the flattened case table: basic hygiene, heuristic age/sex
// inference, and type coercion with derived analytic columns.
package cleaning

import (
	"strings"

	"github.com/sells-group/casimage-etl/internal/table"
)

// Basic applies the baseline hygiene pass: drop exact-duplicate rows,
// trim surrounding whitespace on every value, and null out empty or
// whitespace-only values. Trimming can expose new exact duplicates, so
// a second dedupe runs at the end; the whole pass is idempotent.
func Basic(t *table.Table) int {
	removed := t.Dedupe()

	for _, r := range t.Rows {
		for _, c := range t.Columns {
			v, ok := r.Get(c)
			if !ok {
				continue
			}
			v = strings.TrimSpace(v)
			if v == "" {
				r.SetNull(c)
			} else {
				r.Set(c, v)
			}
		}
	}

	removed += t.Dedupe()
	return removed
}
