package pipeline

import (
	"archive/zip"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sells-group/casimage-etl/internal/config"
	"github.com/sells-group/casimage-etl/internal/export"
	"github.com/sells-group/casimage-etl/internal/mapping"
)

const goodCase = `<CASIMAGE_CASE>
	<ID>101</ID>
	<Title>Fracture du tibia</Title>
	<Diagnosis>Fracture</Diagnosis>
	<Description>Patient de 52 ans, douleur à la jambe.</Description>
	<Date>15/06/2020</Date>
	<Hospital>HUG</Hospital>
	<OByte>448</OByte>
</CASIMAGE_CASE>`

const agelessCase = `<CASIMAGE_CASE>
	<ID>102</ID>
	<Title>Image de contrôle</Title>
	<Description>Examen de routine, rien à signaler.</Description>
</CASIMAGE_CASE>`

func writeArchive(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "casimage_export.zip"))
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range docs {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	return &config.Config{
		Paths: config.PathsConfig{
			DataDir:    dataDir,
			ExtractDir: filepath.Join(root, "data_temp"),
			OutputDir:  filepath.Join(root, "output"),
		},
		Store: config.StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(root, "warehouse.db"),
		},
		Mapper: config.MapperConfig{Mode: "offline"},
		Locale: config.DefaultLocale(),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeArchive(t, cfg.Paths.DataDir, map[string]string{
		"cases/case101.xml": goodCase,
		"cases/case102.xml": agelessCase,
		"cases/broken.xml":  `<CASIMAGE_CASE><ID>9</ID>`,
		"cases/notes.txt":   "not markup",
	})

	report, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "casimage_export.zip", report.Archive)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Extracted, "only markup files extracted")
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.ParseFailures)
	assert.Equal(t, 1, report.RowsDroppedNoAge)
	assert.Equal(t, 1, report.RowsCleaned)
	assert.Equal(t,
		[]string{"dim_patient", "dim_exam", "dim_pathology", "fact_case"},
		report.TablesLoaded)
	assert.Equal(t, int64(4), report.RowsLoaded)

	for _, name := range []string{"cases.csv", "cases.parquet", "cases.xlsx", "mapping.json"} {
		_, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, name))
		assert.NoError(t, err, name)
	}

	// The surviving case resolved its age from the narrative and its
	// year from the day-first exam date.
	tb, err := export.ReadCSV(filepath.Join(cfg.Paths.OutputDir, "cases.csv"))
	require.NoError(t, err)
	require.Equal(t, 1, tb.Len())
	age, _ := tb.Rows[0].Get("Age")
	assert.Equal(t, "52", age)
	year, _ := tb.Rows[0].Get("Year")
	assert.Equal(t, "2020", year)
	assert.False(t, tb.HasColumn("OByte"), "technical columns dropped")

	db, err := sql.Open("sqlite", cfg.Store.Path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fact_case`).Scan(&n))
	assert.Equal(t, 1, n)

	var caseID string
	require.NoError(t, db.QueryRow(
		`SELECT case_id FROM fact_case WHERE case_key = 1`).Scan(&caseID))
	assert.Equal(t, "101", caseID)
}

func TestRun_NoArchive(t *testing.T) {
	cfg := testConfig(t)

	_, err := New(cfg).Run(context.Background())
	require.Error(t, err)
}

func TestRun_Rerun(t *testing.T) {
	cfg := testConfig(t)
	writeArchive(t, cfg.Paths.DataDir, map[string]string{
		"case101.xml": goodCase,
	})

	p := New(cfg)
	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.RowsCleaned, second.RowsCleaned)
	assert.NotEqual(t, first.RunID, second.RunID)

	db, err := sql.Open("sqlite", cfg.Store.Path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fact_case`).Scan(&n))
	assert.Equal(t, 1, n, "rerun replaces the prior load")
}

func TestProposeMapping(t *testing.T) {
	cfg := testConfig(t)
	writeArchive(t, cfg.Paths.DataDir, map[string]string{
		"case101.xml": goodCase,
	})

	m, err := New(cfg).ProposeMapping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "casimage_cases", m.TargetTable)
	assert.NotEmpty(t, m.Columns)

	_, err = os.Stat(filepath.Join(cfg.Paths.OutputDir, "mapping.json"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.Paths.OutputDir, "cases.csv"))
	assert.True(t, os.IsNotExist(err), "mapping run writes no table exports")
}

func TestNew_OfflineProposerByDefault(t *testing.T) {
	p := New(testConfig(t))
	assert.IsType(t, mapping.Offline{}, p.proposer)
}

func TestNew_AssistedProposerWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mapper = config.MapperConfig{Mode: "anthropic", Model: "claude-haiku-4-5-20251001", APIKey: "sk-test"}

	p := New(cfg)
	assert.IsType(t, &mapping.Assisted{}, p.proposer)
}
