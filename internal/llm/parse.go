package llm

import (
	"encoding/json"
	"strings"
	"unicode"
)

// minLineLength drops fragments too short to be a standalone statement.
const minLineLength = 10

// Meta-commentary the models like to wrap their lists in. Matched
// case-insensitively as substrings, per output language.
var (
	FactSkipPhrases = []string{
		"here are the extracted facts",
		"here are the facts",
		"extracted facts:",
		"no facts found",
		"oto wyodrębnione fakty",
		"oto fakty",
		"brak faktów",
	}

	PredictionSkipPhrases = []string{
		"here are the predictions",
		"based on the provided facts",
		"no predictions",
		"oto predykcje",
		"brak predykcji",
	}

	UnknownSkipPhrases = []string{
		"here are the missing",
		"missing information:",
		"no missing information",
		"oto brakujące informacje",
		"brak brakujących informacji",
	}
)

// ParseLines turns a free-text LLM response into discrete statements.
// Splits on newlines, strips bullet markers and list numbering, then
// drops blanks, fragments under the minimum length, and lines matching
// the skip-phrase denylist.
func ParseLines(raw string, skipPhrases []string) []string {
	var out []string

	for _, line := range strings.Split(raw, "\n") {
		line = stripBullet(strings.TrimSpace(line))
		if len([]rune(line)) < minLineLength {
			continue
		}
		if matchesAny(line, skipPhrases) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func stripBullet(line string) string {
	for _, marker := range []string{"-", "*", "•"} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest)
		}
	}
	// Numbered lists: "1. fact" or "12) fact"
	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

func matchesAny(line string, phrases []string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// SourcedPrediction is one entry of the structured reasoning response:
// a prediction with 0-based indices into the numbered fact list it was
// derived from.
type SourcedPrediction struct {
	Prediction    string `json:"prediction"`
	SourceFactIDs []int  `json:"source_fact_ids"`
}

// ParseSourcedPredictions locates a JSON array in the raw response and
// decodes it as sourced predictions. Out-of-range source indices are
// dropped; predictions with empty text are dropped. Returns ok=false
// when no parseable array is present, which callers treat as the signal
// to fall back to line-based extraction.
func ParseSourcedPredictions(raw string, factCount int) ([]SourcedPrediction, bool) {
	payload, ok := ExtractJSONArray(raw)
	if !ok {
		return nil, false
	}

	var parsed []SourcedPrediction
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, false
	}

	out := make([]SourcedPrediction, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Prediction) == "" {
			continue
		}
		valid := make([]int, 0, len(p.SourceFactIDs))
		for _, id := range p.SourceFactIDs {
			if id >= 0 && id < factCount {
				valid = append(valid, id)
			}
		}
		p.SourceFactIDs = valid
		out = append(out, p)
	}
	return out, true
}

// ExtractJSONArray scans raw text for the first balanced JSON array that
// actually decodes, skipping prose and code fences around it.
func ExtractJSONArray(raw string) (string, bool) {
	return extractBalanced(raw, '[', ']')
}

// ExtractJSONObject scans raw text for the first balanced JSON object.
// If the text ends inside the object (a truncated response), the scrub
// pass closes open strings and brackets so the prefix still decodes.
func ExtractJSONObject(raw string) (string, bool) {
	if payload, ok := extractBalanced(raw, '{', '}'); ok {
		return payload, true
	}

	// Truncated response: take everything from the first brace and
	// close whatever is still open.
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", false
	}
	repaired := repairTruncated(scrubControlChars(raw[start:]))
	if json.Valid([]byte(repaired)) {
		return repaired, true
	}
	return "", false
}

// extractBalanced finds the first open..close span that is balanced
// outside of string literals and decodes as JSON. Candidates that fail
// to decode are skipped and the scan continues.
func extractBalanced(raw string, open, closer byte) (string, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != open {
			continue
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(raw); i++ {
			c := raw[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == open:
				depth++
			case c == closer:
				depth--
				if depth == 0 {
					candidate := scrubControlChars(raw[start : i+1])
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(raw) // abandon this start position
				}
			}
		}
	}
	return "", false
}

// scrubControlChars replaces raw control characters inside string
// literals with spaces. Local models emit literal newlines inside JSON
// strings, which encoding/json rejects.
func scrubControlChars(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		}
		if inString && c < 0x20 {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// repairTruncated closes any string and bracket left open at the end of
// a truncated JSON fragment. A trailing comma or colon is removed first
// so the closers produce a valid value.
func repairTruncated(raw string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := raw
	if inString {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	for strings.HasSuffix(out, ",") || strings.HasSuffix(out, ":") {
		if strings.HasSuffix(out, ":") {
			out += " null"
			break
		}
		out = strings.TrimRight(out[:len(out)-1], " \t\r\n")
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}
