// Package table implements the ordered in-memory table passed between
// pipeline stages. Columns appear in first-seen order; a missing key in
// a row is the null marker.
package table

import (
	"sort"
	"strings"
)

// Row maps column name to value. Absent keys are null.
type Row map[string]string

// Table is an ordered sequence of rows over a shared column set.
type Table struct {
	Columns []string
	Rows    []Row
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// AddRow appends a row, registering any new columns in first-seen order.
func (t *Table) AddRow(r Row) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.ensureColumn(k)
	}
	t.Rows = append(t.Rows, r)
}

// AddRowOrdered appends a row registering columns in the given order.
func (t *Table) AddRowOrdered(r Row, order []string) {
	for _, k := range order {
		if _, ok := r[k]; ok {
			t.ensureColumn(k)
		}
	}
	t.Rows = append(t.Rows, r)
}

// EnsureColumn registers a column if it is not already present. Needed
// when a stage sets a value on existing rows for a brand-new column.
func (t *Table) EnsureColumn(name string) { t.ensureColumn(name) }

func (t *Table) ensureColumn(name string) {
	for _, c := range t.Columns {
		if c == name {
			return
		}
	}
	t.Columns = append(t.Columns, name)
}

// HasColumn reports whether the column is registered.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Get returns the value at (row, col) and whether it is non-null.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

// Set assigns a value; SetNull removes it.
func (r Row) Set(col, val string) { r[col] = val }

// SetNull marks the column null in this row.
func (r Row) SetNull(col string) { delete(r, col) }

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// DropColumns removes the named columns from the schema and every row.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	for _, r := range t.Rows {
		for n := range drop {
			delete(r, n)
		}
	}
}

// Filter keeps only rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(Row) bool) int {
	kept := t.Rows[:0]
	dropped := 0
	for _, r := range t.Rows {
		if keep(r) {
			kept = append(kept, r)
		} else {
			dropped++
		}
	}
	t.Rows = kept
	return dropped
}

// fingerprint serializes a row over the table's column set, used for
// exact-duplicate detection. The \x1f separator cannot occur in cleaned
// values.
func (t *Table) fingerprint(r Row) string {
	var b strings.Builder
	for _, c := range t.Columns {
		if v, ok := r[c]; ok {
			b.WriteString(v)
		} else {
			b.WriteString("\x00null")
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Dedupe removes exact-duplicate rows, keeping the first occurrence.
// Returns the number removed.
func (t *Table) Dedupe() int {
	seen := make(map[string]bool, len(t.Rows))
	return t.Filter(func(r Row) bool {
		fp := t.fingerprint(r)
		if seen[fp] {
			return false
		}
		seen[fp] = true
		return true
	})
}
