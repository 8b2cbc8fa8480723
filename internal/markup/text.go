package markup

import (
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]`)
	multiSpace   = regexp.MustCompile(`\s+`)
	// illegalXML matches control bytes the XML parser rejects in content.
	illegalXML = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F]")
)

// DecodeLatin1 decodes an ISO-8859-1 byte stream to a UTF-8 string and
// strips bytes that are illegal in XML content.
func DecodeLatin1(r io.Reader) (string, error) {
	decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(r))
	if err != nil {
		return "", eris.Wrap(err, "markup: decode latin-1")
	}
	return illegalXML.ReplaceAllString(string(decoded), ""), nil
}

// CleanText normalizes a scalar field value: control characters and the
// "***" separator artifact become spaces, runs of whitespace collapse to
// one space. Idempotent.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = controlChars.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "***", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
