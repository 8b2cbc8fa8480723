package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casimage-etl/internal/table"
)

func TestAdvanced_ResolvesAgeAndSexFromText(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{
		"ID":                   "1",
		"ClinicalPresentation": "Male patient of 52 years, normal exam",
	})

	stats := Advanced(tb, rules)

	require.Equal(t, 1, tb.Len())
	assert.Equal(t, 0, stats.DroppedNoAge)

	age, _ := tb.Rows[0].Get("Age")
	assert.Equal(t, "52", age)
	sex, _ := tb.Rows[0].Get("Sex")
	assert.Equal(t, "M", sex)
}

func TestAdvanced_DropsRowsWithoutAge(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{"ID": "1", "Age": "40"})
	tb.AddRow(table.Row{"ID": "2", "Description": "examen sans particularité"})

	stats := Advanced(tb, rules)

	assert.Equal(t, 1, stats.DroppedNoAge)
	require.Equal(t, 1, tb.Len())
	id, _ := tb.Rows[0].Get("ID")
	assert.Equal(t, "1", id)
}

func TestAdvanced_UnresolvedSexStaysNull(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{"ID": "1", "Age": "40", "Description": "fracture du tibia"})

	Advanced(tb, rules)

	require.Equal(t, 1, tb.Len())
	_, ok := tb.Rows[0].Get("Sex")
	assert.False(t, ok, "unresolvable sex must stay null, not drop the row")
}

func TestAdvanced_DropsTechnicalColumns(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{"ID": "1", "Age": "40", "OType": "meta", "OSysDate": "x"})

	stats := Advanced(tb, rules)

	assert.ElementsMatch(t, []string{"OType", "OSysDate"}, stats.ColumnsDropped)
	assert.False(t, tb.HasColumn("OType"))
	assert.False(t, tb.HasColumn("OSysDate"))
}

func TestAdvanced_NormalizesText(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{"Age": "40", "Description": "texte \x01 avec ***   artefacts"})

	Advanced(tb, rules)

	v, _ := tb.Rows[0].Get("Description")
	assert.Equal(t, "texte avec artefacts", v)
}

func TestAdvanced_BirthdateFallback(t *testing.T) {
	rules := defaultRules(t)
	tb := table.New()
	tb.AddRow(table.Row{"Birthdate": "1970-01-01", "Date": "2020-06-15"})

	Advanced(tb, rules)

	require.Equal(t, 1, tb.Len())
	age, _ := tb.Rows[0].Get("Age")
	assert.Equal(t, "50", age)
}
