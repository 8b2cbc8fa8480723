// Package flatten converts parsed case documents into flat tabular rows.
//
// Flattening policy: repeated questionnaire (QCM) sub-structures are
// collapsed into a single delimited text column rather than exploded
// into one row per item. This keeps the fact-table grain at one row per
// case, matching the reference exports.
package flatten

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/casimage-etl/internal/markup"
	"github.com/sells-group/casimage-etl/internal/table"
)

// QCMColumn holds the collapsed questionnaire text.
const QCMColumn = "QCM"

// SourceFileColumn records which extracted file produced a row.
const SourceFileColumn = "SourceFile"

// letterAnswers are the classic ANSWERA..ANSWERD questionnaire fields.
var letterAnswers = []string{"ANSWERA", "ANSWERB", "ANSWERC", "ANSWERD"}

// Case flattens one parsed document into a single row. Scalar children
// of the root element become columns in document order; the repeated
// QCM sub-structure is serialized into the QCM column.
func Case(doc markup.Value, sourceFile string) (table.Row, []string) {
	root := rootElement(doc)

	row := table.Row{}
	var order []string

	if root.Kind == markup.KindObject {
		for _, k := range root.Keys {
			child := root.Obj[k]
			if child.Kind != markup.KindString || strings.HasPrefix(k, "@") {
				continue
			}
			row.Set(k, child.Str)
			order = append(order, k)
		}

		if qcm := collapseQCM(root); qcm != "" {
			row.Set(QCMColumn, qcm)
			order = append(order, QCMColumn)
		}
	}

	row.Set(SourceFileColumn, sourceFile)
	order = append(order, SourceFileColumn)
	return row, order
}

// rootElement unwraps the single-key document object produced by the
// parser.
func rootElement(doc markup.Value) markup.Value {
	if doc.Kind == markup.KindObject && len(doc.Keys) == 1 {
		return doc.Obj[doc.Keys[0]]
	}
	return doc
}

// collapseQCM serializes every QCM item into one readable text block:
//
//	Question? | Réponses: a; b || Question2? | Réponses: c
//
// It tolerates the three answer layouts seen in legacy exports:
// ANSWERA..D, ANSWER1..N, and nested <ANSWER><TEXT>.
func collapseQCM(root markup.Value) string {
	var blocks []string
	for _, q := range root.Children("QCM") {
		if q.Kind != markup.KindObject {
			continue
		}

		question := strings.TrimSpace(q.Text("QUESTION"))
		answers := collectAnswers(q)

		answerText := "Aucune réponse"
		if len(answers) > 0 {
			answerText = strings.Join(answers, "; ")
		}
		blocks = append(blocks, fmt.Sprintf("%s | Réponses: %s", question, answerText))
	}
	return strings.Join(blocks, " || ")
}

func collectAnswers(q markup.Value) []string {
	var answers []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			answers = append(answers, s)
		}
	}

	for _, name := range letterAnswers {
		add(q.Text(name))
	}

	// Numbered variants: ANSWER1, ANSWER2, ... in stable order.
	var numbered []string
	for _, k := range q.Keys {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "answer") && q.Obj[k].Kind == markup.KindString {
			numbered = append(numbered, k)
		}
	}
	sort.Strings(numbered)
	for _, k := range numbered {
		add(q.Obj[k].Str)
	}

	// Nested form: <ANSWER><TEXT>...</TEXT></ANSWER>
	if a, ok := q.Get("ANSWER"); ok && a.Kind == markup.KindObject {
		add(a.Text("TEXT"))
	}

	return answers
}
