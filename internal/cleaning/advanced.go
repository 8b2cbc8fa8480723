package cleaning

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/casimage-etl/internal/markup"
	"github.com/sells-group/casimage-etl/internal/table"
)

// Stats reports what the advanced cleaner changed.
type Stats struct {
	RowsIn         int
	DroppedNoAge   int
	AgeResolved    int
	SexResolved    int
	ColumnsDropped []string
}

// Advanced applies the heuristic cleaning pass: text normalization, age
// resolution (rows without a resolvable age are dropped), sex
// resolution (unresolved stays null), and unconditional removal of
// technical metadata columns.
func Advanced(t *table.Table, rules *Rules) Stats {
	log := zap.L().With(zap.String("stage", "advanced_clean"))
	stats := Stats{RowsIn: t.Len()}

	for _, r := range t.Rows {
		for _, c := range t.Columns {
			if v, ok := r.Get(c); ok {
				r.Set(c, markup.CleanText(v))
			}
		}
	}

	t.EnsureColumn("Age")
	t.EnsureColumn("Sex")
	for _, r := range t.Rows {
		if age, ok := rules.ResolveAge(r); ok {
			r.Set("Age", strconv.Itoa(age))
			stats.AgeResolved++
		} else {
			r.SetNull("Age")
		}

		if sex, ok := rules.ResolveSex(r); ok {
			r.Set("Sex", sex)
			stats.SexResolved++
		} else {
			r.SetNull("Sex")
		}
	}

	// Technical metadata columns are dropped regardless of content.
	if rules.technicalPrefix != "" {
		var drop []string
		for _, c := range t.Columns {
			if strings.HasPrefix(c, rules.technicalPrefix) {
				drop = append(drop, c)
			}
		}
		if len(drop) > 0 {
			t.DropColumns(drop...)
			stats.ColumnsDropped = drop
		}
	}

	// Hard filter: a row without a resolved age is unusable downstream.
	stats.DroppedNoAge = t.Filter(func(r table.Row) bool {
		_, ok := r.Get("Age")
		return ok
	})

	log.Info("advanced cleaning complete",
		zap.Int("rows_in", stats.RowsIn),
		zap.Int("rows_out", t.Len()),
		zap.Int("dropped_no_age", stats.DroppedNoAge),
		zap.Int("sex_resolved", stats.SexResolved),
		zap.Strings("columns_dropped", stats.ColumnsDropped),
	)

	return stats
}
