// Package markup parses legacy CASIMAGE XML case files into dynamic
// nested values. Field sets vary per file, so parsed documents are
// represented as a tagged value tree rather than fixed structs.
package markup

// Kind discriminates the value variants produced by the parser.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindObject
)

// Value is one node of a parsed markup document: scalar text, a list of
// repeated sibling elements, or a nested object of child elements.
type Value struct {
	Kind Kind
	Str  string
	List []Value
	Obj  map[string]Value
	Keys []string // child element names in document order
}

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Object returns an empty object value.
func Object() Value {
	return Value{Kind: KindObject, Obj: map[string]Value{}}
}

// Get returns the named child of an object value.
func (v Value) Get(name string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	c, ok := v.Obj[name]
	return c, ok
}

// Text returns the scalar text of the named child, or "" when the child
// is absent or not a scalar.
func (v Value) Text(name string) string {
	c, ok := v.Get(name)
	if !ok || c.Kind != KindString {
		return ""
	}
	return c.Str
}

// Children returns the named child normalized to a list: a repeated
// element yields its elements, a single element yields a one-item list,
// an absent element yields nil.
func (v Value) Children(name string) []Value {
	c, ok := v.Get(name)
	if !ok {
		return nil
	}
	if c.Kind == KindList {
		return c.List
	}
	return []Value{c}
}

// set appends or promotes a child: a second occurrence of the same
// element name turns the child into a list.
func (v *Value) set(name string, child Value) {
	existing, ok := v.Obj[name]
	if !ok {
		v.Obj[name] = child
		v.Keys = append(v.Keys, name)
		return
	}
	if existing.Kind == KindList {
		existing.List = append(existing.List, child)
		v.Obj[name] = existing
		return
	}
	v.Obj[name] = Value{Kind: KindList, List: []Value{existing, child}}
}
