// Package mapping derives a field-correspondence document from the raw
// markup field names observed during a run. The output is purely
// informational and never alters the cleaned table.
package mapping

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// FieldSample pairs a raw field name with one observed value, used for
// type inference.
type FieldSample struct {
	Name   string
	Sample string
}

// Column describes one mapped field.
type Column struct {
	Name   string `json:"name"`   // normalized snake_case name
	Type   string `json:"type"`   // string | int | float | date
	Source string `json:"source"` // raw markup field name
	Target string `json:"target"` // canonical warehouse field
}

// Mapping is the schema-correspondence document written each run.
type Mapping struct {
	TargetTable string   `json:"target_table"`
	Columns     []Column `json:"columns"`
	Unmapped    []string `json:"unmapped,omitempty"`
}

// Proposer produces a mapping from observed field samples.
type Proposer interface {
	Propose(ctx context.Context, samples []FieldSample) (*Mapping, error)
}

// vocabulary maps a lowercase keyword to its canonical target field.
// First match wins; longer, more specific keywords come first.
var vocabulary = []struct {
	keyword string
	target  string
}{
	{"clinicalpresentation", "clinical_presentation"},
	{"presentation", "clinical_presentation"},
	{"birthdate", "birth_date"},
	{"naissance", "birth_date"},
	{"sourcefile", "source_file"},
	{"keyword", "keywords"},
	{"diagnos", "diagnosis"},
	{"descri", "description"},
	{"comment", "commentary"},
	{"anatom", "anatomy"},
	{"chapter", "chapter"},
	{"chapitre", "chapter"},
	{"hospital", "hospital"},
	{"hopital", "hospital"},
	{"depart", "department"},
	{"service", "department"},
	{"question", "questionnaire"},
	{"qcm", "questionnaire"},
	{"titre", "title"},
	{"title", "title"},
	{"sexe", "sex"},
	{"sex", "sex"},
	{"age", "age"},
	{"date", "exam_date"},
	{"id", "case_id"},
}

var (
	intRe     = regexp.MustCompile(`^-?\d+$`)
	floatRe   = regexp.MustCompile(`^-?\d+\.\d+$`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dayDateRe = regexp.MustCompile(`^\d{2}[/.-]\d{2}[/.-]\d{4}$`)
	nonWordRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Offline is the heuristic proposer used by default and as the
// fallback for the AI-assisted mode.
type Offline struct{}

// Propose maps each observed raw field to a canonical target by keyword
// matching, inferring a simple type from the sample value. Fields with
// no vocabulary match land in the unmapped bucket rather than erroring.
func (Offline) Propose(_ context.Context, samples []FieldSample) (*Mapping, error) {
	m := &Mapping{TargetTable: "casimage_cases"}

	sorted := append([]FieldSample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, s := range sorted {
		target, ok := matchTarget(s.Name)
		if !ok {
			m.Unmapped = append(m.Unmapped, s.Name)
			continue
		}
		m.Columns = append(m.Columns, Column{
			Name:   normalizeName(s.Name),
			Type:   inferType(s.Sample),
			Source: s.Name,
			Target: target,
		})
	}

	return m, nil
}

func matchTarget(rawName string) (string, bool) {
	lower := strings.ToLower(rawName)
	for _, v := range vocabulary {
		if strings.Contains(lower, v.keyword) {
			return v.target, true
		}
	}
	return "", false
}

// normalizeName lowers a raw tag to a snake_case identifier.
func normalizeName(raw string) string {
	name := nonWordRe.ReplaceAllString(strings.TrimSpace(raw), "_")
	name = strings.Trim(name, "_")
	// Split CamelCase boundaries before lowering.
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(name[i-1])
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	name = strings.ToLower(b.String())
	if name == "" {
		return "unknown"
	}
	return name
}

func inferType(sample string) string {
	v := strings.TrimSpace(sample)
	switch {
	case v == "":
		return "string"
	case intRe.MatchString(v):
		return "int"
	case floatRe.MatchString(v):
		return "float"
	case isoDateRe.MatchString(v), dayDateRe.MatchString(v):
		return "date"
	default:
		return "string"
	}
}

// Encode renders the mapping as stable, indented JSON.
func (m *Mapping) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "mapping: encode")
	}
	return data, nil
}

// Decode parses a mapping document, tolerating surrounding prose by
// extracting the outermost JSON object.
func Decode(data []byte) (*Mapping, error) {
	start := strings.Index(string(data), "{")
	end := strings.LastIndex(string(data), "}")
	if start < 0 || end <= start {
		return nil, eris.New("mapping: no JSON object found")
	}
	var m Mapping
	if err := json.Unmarshal(data[start:end+1], &m); err != nil {
		return nil, eris.Wrap(err, "mapping: decode")
	}
	return &m, nil
}
