package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRow_ColumnOrder(t *testing.T) {
	tb := New()
	tb.AddRowOrdered(Row{"ID": "1", "Title": "a"}, []string{"ID", "Title"})
	tb.AddRowOrdered(Row{"ID": "2", "Age": "40"}, []string{"ID", "Age"})

	assert.Equal(t, []string{"ID", "Title", "Age"}, tb.Columns)
	assert.Equal(t, 2, tb.Len())
}

func TestDedupe(t *testing.T) {
	tb := New()
	tb.AddRow(Row{"A": "x", "B": "y"})
	tb.AddRow(Row{"A": "x", "B": "y"})
	tb.AddRow(Row{"A": "x"}) // null B, distinct from empty B
	tb.AddRow(Row{"A": "x", "B": ""})

	removed := tb.Dedupe()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 3, tb.Len())
}

func TestDropColumns(t *testing.T) {
	tb := New()
	tb.AddRow(Row{"Keep": "1", "OType": "x", "OSys": "y"})
	tb.DropColumns("OType", "OSys")

	assert.Equal(t, []string{"Keep"}, tb.Columns)
	_, ok := tb.Rows[0].Get("OType")
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	tb := New()
	tb.AddRow(Row{"Age": "10"})
	tb.AddRow(Row{})
	tb.AddRow(Row{"Age": "20"})

	dropped := tb.Filter(func(r Row) bool {
		_, ok := r.Get("Age")
		return ok
	})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, tb.Len())
}

func TestClone_Independent(t *testing.T) {
	tb := New()
	tb.AddRow(Row{"A": "x"})
	cp := tb.Clone()
	cp.Rows[0].Set("A", "changed")
	cp.Columns = append(cp.Columns, "B")

	v, _ := tb.Rows[0].Get("A")
	assert.Equal(t, "x", v)
	assert.Equal(t, []string{"A"}, tb.Columns)
}
