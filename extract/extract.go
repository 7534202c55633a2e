// Package extract pulls HDL source out of free-form model completions.
//
// A completion is examined by an ordered list of rules. Each fence delimiter
// is one rule: the text is split on the fence and the resulting segments are
// checked, in order, for both required markers. The first qualifying segment
// wins. When no rule produces a segment the whole completion is used, so
// extraction never fails.
package extract

import "strings"

// Fences lists the recognised fence delimiters in precedence order.
var Fences = []string{"```", "***", "~~~"}

// Markers are the two substrings a segment must contain to be accepted as
// source code.
type Markers struct {
	Open  string
	Close string
}

// Verilog accepts segments holding a complete Verilog module.
var Verilog = Extractor{
	Fences:  Fences,
	Markers: Markers{Open: "module", Close: "endmodule"},
}

// Extractor picks source code out of free-form model output.
type Extractor struct {
	Fences  []string
	Markers Markers
}

// Match describes how [Extractor.Find] arrived at its result.
type Match struct {
	Source string

	// Fence is the delimiter whose segment was chosen; empty on fallback.
	Fence string

	// Segment is the index of the chosen segment, or -1 on fallback.
	Segment int

	// Fallback reports that no fenced segment qualified and Source is the
	// whole trimmed input.
	Fallback bool
}

// Segments splits text on fence. It reports false when the fence does not
// occur in text, in which case the rule does not apply.
func (e Extractor) Segments(text, fence string) ([]string, bool) {
	if fence == "" || !strings.Contains(text, fence) {
		return nil, false
	}
	return strings.Split(text, fence), true
}

// Qualifies reports whether segment contains both markers.
func (e Extractor) Qualifies(segment string) bool {
	return strings.Contains(segment, e.Markers.Open) && strings.Contains(segment, e.Markers.Close)
}

// Select returns the index of the first qualifying segment, or -1.
func (e Extractor) Select(segments []string) int {
	for i, s := range segments {
		if e.Qualifies(s) {
			return i
		}
	}
	return -1
}

// Find applies the fence rules in order and returns the first qualifying
// segment, trimmed. A fence that is present but yields nothing falls through
// to the next fence.
func (e Extractor) Find(text string) Match {
	for _, fence := range e.Fences {
		segments, ok := e.Segments(text, fence)
		if !ok {
			continue
		}

		if i := e.Select(segments); i >= 0 {
			return Match{
				Source:  strings.TrimSpace(segments[i]),
				Fence:   fence,
				Segment: i,
			}
		}
	}

	return Match{
		Source:   strings.TrimSpace(text),
		Segment:  -1,
		Fallback: true,
	}
}

// Extract returns the best guess at the source code in text.
func (e Extractor) Extract(text string) string {
	return e.Find(text).Source
}
