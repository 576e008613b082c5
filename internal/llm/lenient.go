package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// How a JSON payload was located inside model output.
const (
	MethodDirect   = "direct"
	MethodFenced   = "fenced"
	MethodBraces   = "braces"
	MethodBrackets = "brackets"
)

var (
	reFenced        = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)

	smartQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`,
		"‘", "'", "’", "'",
	)
)

// LocateJSON finds a JSON object (or array) in free-form model output. It tries the
// whole output as an object, then a fenced block as an object, then the span from the
// first '{' to the last '}'. Only when no object turns up does it fall back to the span
// from '[' to ']', so `[{"a":1}]` yields the object. Each candidate gets one repair
// pass when the strict parse fails.
func LocateJSON(raw string) (value any, method string, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, "", false
	}
	if v, ok := parseObject(s); ok {
		return v, MethodDirect, true
	}
	if m := reFenced.FindStringSubmatch(s); m != nil {
		if v, ok := parseObject(strings.TrimSpace(m[1])); ok {
			return v, MethodFenced, true
		}
	}
	if v, ok := parseSpan(s, "{", "}"); ok {
		return v, MethodBraces, true
	}
	if v, ok := parseSpan(s, "[", "]"); ok {
		return v, MethodBrackets, true
	}
	return nil, "", false
}

func parseSpan(s, open, close string) (any, bool) {
	i, j := strings.Index(s, open), strings.LastIndex(s, close)
	if i < 0 || j <= i {
		return nil, false
	}
	return parseLenient(s[i : j+1])
}

func parseObject(s string) (any, bool) {
	v, ok := parseLenient(s)
	if _, isObj := v.(map[string]any); !ok || !isObj {
		return nil, false
	}
	return v, true
}

// parseLenient accepts only objects and arrays.
func parseLenient(s string) (any, bool) {
	if v, ok := parseContainer(s); ok {
		return v, true
	}
	repaired := repairJSON(s)
	if repaired == s {
		return nil, false
	}
	return parseContainer(repaired)
}

func parseContainer(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	default:
		return nil, false
	}
}

// repairJSON fixes the two mistakes small local models make most: typographic quotes
// and trailing commas before a closing brace or bracket.
func repairJSON(s string) string {
	s = smartQuotes.Replace(s)
	return reTrailingComma.ReplaceAllString(s, "$1")
}
