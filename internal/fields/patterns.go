package fields

import (
	"regexp"
	"strings"
)

var (
	reEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	rePhone = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)*\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

func findEmail(text string) string {
	return reEmail.FindString(text)
}

func findPhone(text string) string {
	return strings.TrimSpace(rePhone.FindString(text))
}

// group returns capture group n of the first match of re, trimmed, or NotFound.
func group(re *regexp.Regexp, text string, n int) string {
	m := re.FindStringSubmatch(text)
	if len(m) <= n {
		return NotFound
	}
	return strings.TrimSpace(m[n])
}

// nonBlankLines returns the trimmed, non-empty lines of text.
func nonBlankLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

func firstLine(text string) string {
	if lines := nonBlankLines(text); len(lines) > 0 {
		return lines[0]
	}
	return NotFound
}

// flatten copies the scalar fields named in keys into a new map, used for the
// "fields" entry that tabular consumers read.
func flatten(m *FieldMap, keys ...string) *FieldMap {
	out := NewFieldMap()
	for _, k := range keys {
		v, _ := m.Get(k)
		out.Set(k, v)
	}
	return out
}
