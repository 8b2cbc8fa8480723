package cleaning

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/table"
)

// ErrInvariant marks a violated cleaning-stage guarantee. It indicates
// a logic defect and aborts the run.
var ErrInvariant = eris.New("cleaning: invariant violation")

// dateColumns are coerced to ISO dates during enrichment.
var dateColumns = []string{"Date", "Birthdate"}

// Enrich coerces types on the cleaned table and derives the Year and
// AgeGroup columns. Every surviving row must carry an integer age in
// range; anything else is a defect upstream and fails loudly.
func Enrich(t *table.Table) error {
	for i, r := range t.Rows {
		raw, ok := r.Get("Age")
		if !ok {
			return eris.Wrapf(ErrInvariant, "row %d: age missing after advanced clean", i)
		}
		age, err := strconv.Atoi(raw)
		if err != nil {
			return eris.Wrapf(ErrInvariant, "row %d: non-numeric age %q", i, raw)
		}
		if age < MinAge || age > MaxAge {
			return eris.Wrapf(ErrInvariant, "row %d: age %d out of range", i, age)
		}

		// Unparseable dates become null, never an error.
		for _, col := range dateColumns {
			v, ok := r.Get(col)
			if !ok {
				continue
			}
			if ts, ok := ParseDate(v); ok {
				r.Set(col, ts.Format("2006-01-02"))
			} else {
				r.SetNull(col)
			}
		}
	}

	t.EnsureColumn("Year")
	t.EnsureColumn("AgeGroup")
	for _, r := range t.Rows {
		if v, ok := r.Get("Date"); ok {
			if ts, ok := ParseDate(v); ok {
				r.Set("Year", strconv.Itoa(ts.Year()))
			}
		}

		raw, _ := r.Get("Age")
		age, _ := strconv.Atoi(raw)
		r.Set("AgeGroup", AgeGroup(age))
	}

	return nil
}

// AgeGroup returns the fixed-width decade bucket for an age, e.g.
// "40-49". The top bucket is capped at the maximum accepted age.
func AgeGroup(age int) string {
	lo := (age / 10) * 10
	hi := lo + 9
	if hi > MaxAge {
		hi = MaxAge
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
