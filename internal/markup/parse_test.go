package markup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleCase = `<?xml version="1.0"?>
<CASIMAGE_CASE>
  <ID>1042</ID>
  <Title>Fracture du f&eacute;mur</Title>
  <Age>52</Age>
  <QCM>
    <QUESTION>Quel est le diagnostic?</QUESTION>
    <ANSWERA>Fracture</ANSWERA>
    <ANSWERB>Entorse</ANSWERB>
  </QCM>
  <QCM>
    <QUESTION>Conduite?</QUESTION>
    <ANSWER1>Chirurgie</ANSWER1>
  </QCM>
</CASIMAGE_CASE>`

func TestParse_NestedDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleCase))
	require.NoError(t, err)

	root, ok := doc.Get("CASIMAGE_CASE")
	require.True(t, ok)
	assert.Equal(t, KindObject, root.Kind)
	assert.Equal(t, "1042", root.Text("ID"))
	assert.Equal(t, "Fracture du fémur", root.Text("Title"))

	qcms := root.Children("QCM")
	require.Len(t, qcms, 2)
	assert.Equal(t, "Quel est le diagnostic?", qcms[0].Text("QUESTION"))
	assert.Equal(t, "Chirurgie", qcms[1].Text("ANSWER1"))
}

func TestParse_SingleElementIsNotList(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<R><A>x</A></R>`))
	require.NoError(t, err)
	root, _ := doc.Get("R")
	assert.Len(t, root.Children("A"), 1)
}

func TestParse_UnbalancedTags(t *testing.T) {
	_, err := Parse(strings.NewReader(`<R><A>x</B></R>`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrParse))
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrParse))
}

func TestParse_Attributes(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<R version="2"><A>x</A></R>`))
	require.NoError(t, err)
	root, _ := doc.Get("R")
	assert.Equal(t, "2", root.Text("@version"))
}

func TestParseFile_Latin1(t *testing.T) {
	// Encode a document as ISO-8859-1, including a raw accented byte.
	raw, err := charmap.ISO8859_1.NewEncoder().String(
		`<CASIMAGE_CASE><Title>Lésion cérébrale</Title></CASIMAGE_CASE>`)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "case.xml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	root, _ := doc.Get("CASIMAGE_CASE")
	assert.Equal(t, "Lésion cérébrale", root.Text("Title"))
}

func TestParseFile_StripsIllegalBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.xml")
	content := "<R><A>a\x02b</A></R>"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	root, _ := doc.Get("R")
	assert.Equal(t, "ab", root.Text("A"))
}

func TestCleanText(t *testing.T) {
	in := "  Homme \x01 de *** 52   ans\n\n"
	want := "Homme de 52 ans"
	assert.Equal(t, want, CleanText(in))
	// Idempotent.
	assert.Equal(t, want, CleanText(CleanText(in)))
}

func TestSummarize(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleCase))
	require.NoError(t, err)

	counts := Summarize(doc)
	byTag := map[string]TagCount{}
	for _, tc := range counts {
		byTag[tc.Tag] = tc
	}

	assert.Equal(t, 1, byTag["CASIMAGE_CASE"].Count)
	assert.Equal(t, 0, byTag["CASIMAGE_CASE"].Depth)
	assert.Equal(t, 2, byTag["QCM"].Count)
	assert.Equal(t, 1, byTag["QCM"].Depth)
	assert.Equal(t, 2, byTag["QUESTION"].Count)

	rendered := FormatSummary(counts)
	assert.Contains(t, rendered, "- CASIMAGE_CASE (1 occurrences)")
	assert.Contains(t, rendered, "  - QCM (2 occurrences)")
}
