package markup

import (
	"fmt"
	"sort"
	"strings"
)

// TagCount reports how often an element name occurs at a given depth.
type TagCount struct {
	Tag   string
	Depth int
	Count int
}

// Summarize walks a parsed document and counts element occurrences per
// depth. The result feeds the schema mapper and run diagnostics.
func Summarize(doc Value) []TagCount {
	type key struct {
		tag   string
		depth int
	}
	counts := map[key]int{}

	var walk func(name string, v Value, depth int)
	walk = func(name string, v Value, depth int) {
		if v.Kind == KindList {
			for _, e := range v.List {
				walk(name, e, depth)
			}
			return
		}
		counts[key{name, depth}]++
		if v.Kind == KindObject {
			for _, k := range v.Keys {
				walk(k, v.Obj[k], depth+1)
			}
		}
	}
	for _, k := range doc.Keys {
		walk(k, doc.Obj[k], 0)
	}

	out := make([]TagCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, TagCount{Tag: k.tag, Depth: k.depth, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// FormatSummary renders tag counts as an indented outline.
func FormatSummary(counts []TagCount) string {
	var b strings.Builder
	for _, tc := range counts {
		fmt.Fprintf(&b, "%s- %s (%d occurrences)\n", strings.Repeat("  ", tc.Depth), tc.Tag, tc.Count)
	}
	return b.String()
}
