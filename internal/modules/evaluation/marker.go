package evaluation

import (
	"encoding/json"
	"strings"
)

// StageMarker is the completion signal a sequential persona is instructed to
// embed in its prose once the conversation has run its course. Extraction is
// best-effort: the model may ignore the instruction entirely, so the marker
// only ever accelerates completion, never gates it.
type StageMarker struct {
	StageComplete bool     `json:"stage_complete"`
	Score         int      `json:"score"`
	Takeaways     []string `json:"takeaways"`
}

// ExtractStageMarker scans evaluator prose for an embedded completion marker.
// It tries every balanced JSON object containing "stage_complete", front to
// back, and returns the first that decodes with stage_complete=true and a
// score in range.
func ExtractStageMarker(text string) (*StageMarker, bool) {
	offset := 0
	for {
		idx := strings.Index(text[offset:], "{")
		if idx < 0 {
			return nil, false
		}
		start := offset + idx
		candidate, ok := balancedObject(text[start:])
		if ok && strings.Contains(candidate, "stage_complete") {
			var m StageMarker
			if err := json.Unmarshal([]byte(candidate), &m); err == nil &&
				m.StageComplete && m.Score >= 0 && m.Score <= 10 {
				if m.Takeaways == nil {
					m.Takeaways = []string{}
				}
				return &m, true
			}
		}
		offset = start + 1
	}
}

// StripStageMarker removes the first embedded marker object from the text so
// clients can render the prose without the raw JSON tail.
func StripStageMarker(text string) string {
	offset := 0
	for {
		idx := strings.Index(text[offset:], "{")
		if idx < 0 {
			return text
		}
		start := offset + idx
		candidate, ok := balancedObject(text[start:])
		if ok && strings.Contains(candidate, "stage_complete") {
			var m StageMarker
			if err := json.Unmarshal([]byte(candidate), &m); err == nil && m.StageComplete {
				return strings.TrimSpace(text[:start] + text[start+len(candidate):])
			}
		}
		offset = start + 1
	}
}

// balancedObject returns the shortest brace-balanced prefix of s, which must
// start with '{'. String literals and escapes are respected so braces inside
// quoted takeaways do not unbalance the scan.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
