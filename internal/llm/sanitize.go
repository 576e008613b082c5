package llm

import (
	"log/slog"
	"strconv"
	"strings"
)

// DefaultFieldConfidence is used when the model returns a value without a score.
const DefaultFieldConfidence = 0.8

// CustomField is one caller-requested field as reported by the model.
type CustomField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// CustomFields maps requested field name to its extracted value.
type CustomFields map[string]CustomField

// NormalizeCustomFields coerces a model answer into one {value, confidence} per requested
// name. Bare values get DefaultFieldConfidence, keys are matched loosely ("Due Date" finds
// "due_date"), missing fields become {nil, 0} and unrequested keys are dropped.
func NormalizeCustomFields(v any, names []string, logger *slog.Logger) (CustomFields, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	obj, _ := v.(map[string]any)

	byKey := make(map[string]string, len(obj))
	for k := range obj {
		byKey[fieldKey(k)] = k
	}

	out := make(CustomFields, len(names))
	used := map[string]bool{}
	for _, name := range names {
		src, ok := obj[name]
		if !ok {
			if orig, found := byKey[fieldKey(name)]; found {
				src, ok = obj[orig], true
				used[orig] = true
			}
		} else {
			used[name] = true
		}
		if !ok {
			out[name] = CustomField{}
			continue
		}
		out[name] = coerceField(src)
	}

	var dropped []string
	for k := range obj {
		if !used[k] {
			dropped = append(dropped, k)
		}
	}
	if len(dropped) > 0 {
		logger.Debug("llm.custom_fields.dropped", "keys", dropped)
	}
	return out, dropped
}

func coerceField(v any) CustomField {
	m, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return CustomField{}
		}
		return CustomField{Value: v, Confidence: DefaultFieldConfidence}
	}
	val, hasValue := m["value"]
	if !hasValue {
		// An object without "value" is itself the value.
		return CustomField{Value: m, Confidence: DefaultFieldConfidence}
	}
	if val == nil {
		return CustomField{}
	}
	return CustomField{Value: val, Confidence: coerceConfidence(m["confidence"])}
}

func coerceConfidence(v any) float64 {
	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return DefaultFieldConfidence
		}
		if strings.HasSuffix(strings.TrimSpace(t), "%") {
			f /= 100
		}
		c = f
	default:
		return DefaultFieldConfidence
	}
	switch {
	case c > 1 && c <= 100:
		c /= 100
	case c > 100:
		c = 1
	case c < 0:
		c = 0
	}
	return c
}

func fieldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
