package markup

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrParse marks a malformed markup document. Per-file parse failures
// are skipped and logged by the pipeline, never fatal to the run.
var ErrParse = eris.New("markup: malformed document")

// Parse reads one XML document into a Value tree. The result is an
// object with a single key, the root element name. Repeated sibling
// elements become lists; HTML named entities common in legacy exports
// are resolved during decoding.
func Parse(r io.Reader) (Value, error) {
	d := xml.NewDecoder(r)
	d.Entity = xml.HTMLEntity

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return Value{}, eris.Wrap(ErrParse, "no root element")
		}
		if err != nil {
			return Value{}, eris.Wrapf(ErrParse, "%v", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		root, err := parseElement(d, se)
		if err != nil {
			return Value{}, err
		}

		doc := Object()
		doc.set(se.Name.Local, root)
		return doc, nil
	}
}

// ParseFile decodes a legacy single-byte encoded file and parses it.
// Scalar values are text-cleaned in place.
func ParseFile(path string) (Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return Value{}, eris.Wrapf(err, "markup: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	text, err := DecodeLatin1(f)
	if err != nil {
		return Value{}, err
	}

	doc, err := Parse(strings.NewReader(text))
	if err != nil {
		return Value{}, eris.Wrapf(err, "markup: parse %s", path)
	}

	return cleanValue(doc), nil
}

// parseElement consumes tokens until the matching end element, building
// the Value for one element.
func parseElement(d *xml.Decoder, start xml.StartElement) (Value, error) {
	obj := Object()
	for _, attr := range start.Attr {
		obj.set("@"+attr.Name.Local, String(attr.Value))
	}

	var text strings.Builder
	hasChildren := len(obj.Keys) > 0

	for {
		tok, err := d.Token()
		if err != nil {
			return Value{}, eris.Wrapf(ErrParse, "in <%s>: %v", start.Name.Local, err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			child, err := parseElement(d, t)
			if err != nil {
				return Value{}, err
			}
			obj.set(t.Name.Local, child)
			hasChildren = true
		case xml.EndElement:
			if hasChildren {
				return obj, nil
			}
			return String(strings.TrimSpace(text.String())), nil
		}
	}
}

// cleanValue applies CleanText to every scalar in the tree.
func cleanValue(v Value) Value {
	switch v.Kind {
	case KindString:
		return String(CleanText(v.Str))
	case KindList:
		out := Value{Kind: KindList, List: make([]Value, len(v.List))}
		for i, e := range v.List {
			out.List[i] = cleanValue(e)
		}
		return out
	default:
		out := Object()
		for _, k := range v.Keys {
			out.set(k, cleanValue(v.Obj[k]))
		}
		return out
	}
}
