// Package pipeline orchestrates the full export run: archive discovery
// through warehouse load, in a fixed sequence with no fan-out.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casimage-etl/internal/archive"
	"github.com/sells-group/casimage-etl/internal/cleaning"
	"github.com/sells-group/casimage-etl/internal/config"
	"github.com/sells-group/casimage-etl/internal/export"
	"github.com/sells-group/casimage-etl/internal/flatten"
	"github.com/sells-group/casimage-etl/internal/mapping"
	"github.com/sells-group/casimage-etl/internal/markup"
	"github.com/sells-group/casimage-etl/internal/table"
	"github.com/sells-group/casimage-etl/internal/warehouse"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID              string        `json:"run_id"`
	Archive            string        `json:"archive"`
	Extracted          int           `json:"extracted"`
	Parsed             int           `json:"parsed"`
	ParseFailures      int           `json:"parse_failures"`
	DuplicatesDropped  int           `json:"duplicates_dropped"`
	RowsBeforeAdvanced int           `json:"rows_before_advanced"`
	RowsDroppedNoAge   int           `json:"rows_dropped_no_age"`
	RowsCleaned        int           `json:"rows_cleaned"`
	MappedColumns      int           `json:"mapped_columns"`
	UnmappedColumns    int           `json:"unmapped_columns"`
	RowsLoaded         int64         `json:"rows_loaded"`
	TablesLoaded       []string      `json:"tables_loaded"`
	Duration           time.Duration `json:"duration"`
}

// Pipeline runs the export end to end.
type Pipeline struct {
	cfg      *config.Config
	proposer mapping.Proposer
}

// New creates a Pipeline. The mapper mode picks the proposer: "offline"
// (default) or "anthropic" with offline fallback.
func New(cfg *config.Config) *Pipeline {
	var proposer mapping.Proposer = mapping.Offline{}
	if cfg.Mapper.Mode == "anthropic" && cfg.Mapper.APIKey != "" {
		proposer = &mapping.Assisted{
			Messenger: mapping.NewMessenger(cfg.Mapper.APIKey),
			Model:     cfg.Mapper.Model,
			Fallback:  mapping.Offline{},
		}
	}
	return &Pipeline{cfg: cfg, proposer: proposer}
}

// Run executes the full sequence. A malformed document is skipped and
// counted; any other stage failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("pipeline: starting run", zap.String("data_dir", p.cfg.Paths.DataDir))

	zipPath, err := archive.Find(p.cfg.Paths.DataDir)
	if err != nil {
		return report, err
	}
	report.Archive = filepath.Base(zipPath)

	files, err := archive.Extract(zipPath, p.cfg.Paths.ExtractDir)
	if err != nil {
		return report, err
	}
	report.Extracted = len(files)
	log.Info("pipeline: archive extracted",
		zap.String("archive", report.Archive),
		zap.Int("files", len(files)))

	t := p.parseAndFlatten(files, report, log)

	report.DuplicatesDropped = cleaning.Basic(t)
	report.RowsBeforeAdvanced = t.Len()

	rules, err := cleaning.Compile(p.cfg.Locale)
	if err != nil {
		return report, err
	}
	stats := cleaning.Advanced(t, rules)
	report.RowsDroppedNoAge = stats.DroppedNoAge

	if err := cleaning.Enrich(t); err != nil {
		return report, err
	}
	report.RowsCleaned = t.Len()
	log.Info("pipeline: table cleaned",
		zap.Int("rows", t.Len()),
		zap.Int("dropped_no_age", stats.DroppedNoAge),
		zap.Int("age_resolved", stats.AgeResolved),
		zap.Int("sex_resolved", stats.SexResolved))

	m, err := p.proposer.Propose(ctx, sampleFields(t))
	if err != nil {
		return report, eris.Wrap(err, "pipeline: propose mapping")
	}
	report.MappedColumns = len(m.Columns)
	report.UnmappedColumns = len(m.Unmapped)

	if err := p.export(t, m); err != nil {
		return report, err
	}
	log.Info("pipeline: exports written", zap.String("output_dir", p.cfg.Paths.OutputDir))

	schema, err := warehouse.Build(t)
	if err != nil {
		return report, err
	}

	store, err := warehouse.Open(ctx, p.cfg.Store)
	if err != nil {
		return report, err
	}
	defer store.Close() //nolint:errcheck

	res, lerr := warehouse.Load(ctx, store, schema)
	for _, tl := range res.Tables {
		report.TablesLoaded = append(report.TablesLoaded, tl.Name)
	}
	report.RowsLoaded = res.RowsLoaded()
	if lerr != nil {
		return report, lerr
	}

	report.Duration = time.Since(start)
	log.Info("pipeline: run complete",
		zap.Int("cases", t.Len()),
		zap.Int64("rows_loaded", report.RowsLoaded),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// ProposeMapping runs only as far as needed to produce the schema
// mapping document and writes it to the output directory. Used by the
// mapping subcommand to inspect an export without loading anything.
func (p *Pipeline) ProposeMapping(ctx context.Context) (*mapping.Mapping, error) {
	report := &Report{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", report.RunID))

	zipPath, err := archive.Find(p.cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	files, err := archive.Extract(zipPath, p.cfg.Paths.ExtractDir)
	if err != nil {
		return nil, err
	}

	t := p.parseAndFlatten(files, report, log)
	cleaning.Basic(t)

	// Structure outline of the first parseable document, for operators
	// inspecting an unfamiliar export.
	for _, f := range files {
		doc, err := markup.ParseFile(f)
		if err != nil {
			continue
		}
		log.Info("pipeline: document structure",
			zap.String("file", filepath.Base(f)),
			zap.String("outline", markup.FormatSummary(markup.Summarize(doc))))
		break
	}

	m, err := p.proposer.Propose(ctx, sampleFields(t))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: propose mapping")
	}

	if err := os.MkdirAll(p.cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create output dir %s", p.cfg.Paths.OutputDir)
	}
	if err := export.WriteMapping(m, filepath.Join(p.cfg.Paths.OutputDir, "mapping.json")); err != nil {
		return nil, err
	}
	log.Info("pipeline: mapping written",
		zap.Int("mapped", len(m.Columns)),
		zap.Int("unmapped", len(m.Unmapped)))
	return m, nil
}

// parseAndFlatten builds the raw table. Documents that fail to parse
// are logged and skipped so one corrupt file never sinks the batch.
func (p *Pipeline) parseAndFlatten(files []string, report *Report, log *zap.Logger) *table.Table {
	t := table.New()
	for _, f := range files {
		doc, err := markup.ParseFile(f)
		if err != nil {
			report.ParseFailures++
			log.Warn("pipeline: skipping malformed document",
				zap.String("file", filepath.Base(f)),
				zap.Error(err))
			continue
		}
		report.Parsed++
		row, order := flatten.Case(doc, filepath.Base(f))
		t.AddRowOrdered(row, order)
	}
	return t
}

// sampleFields pairs every column with its first non-null value.
func sampleFields(t *table.Table) []mapping.FieldSample {
	samples := make([]mapping.FieldSample, 0, len(t.Columns))
	for _, c := range t.Columns {
		s := mapping.FieldSample{Name: c}
		for _, r := range t.Rows {
			if v, ok := r.Get(c); ok {
				s.Sample = v
				break
			}
		}
		samples = append(samples, s)
	}
	return samples
}

func (p *Pipeline) export(t *table.Table, m *mapping.Mapping) error {
	out := p.cfg.Paths.OutputDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create output dir %s", out)
	}

	if err := export.WriteCSV(t, filepath.Join(out, "cases.csv")); err != nil {
		return err
	}
	if err := export.WriteParquet(t, filepath.Join(out, "cases.parquet")); err != nil {
		return err
	}
	if err := export.WriteXLSX(t, filepath.Join(out, "cases.xlsx")); err != nil {
		return err
	}
	return export.WriteMapping(m, filepath.Join(out, "mapping.json"))
}
