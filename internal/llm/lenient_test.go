package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocateJSON(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   any
		method string
	}{
		{"direct object", `{"a":1}`, map[string]any{"a": float64(1)}, MethodDirect},
		{"bare array", `["x","y"]`, []any{"x", "y"}, MethodBrackets},
		{"object inside array", `[{"a":1}]`, map[string]any{"a": float64(1)}, MethodBraces},
		{"fenced array falls back", "```json\n[\"x\"]\n```", []any{"x"}, MethodBrackets},
		{"fenced json", "here is the result:\n```json\n{\"a\":1}\n```\nthanks", map[string]any{"a": float64(1)}, MethodFenced},
		{"fenced bare", "```\n{\"b\":2}\n```", map[string]any{"b": float64(2)}, MethodFenced},
		{"fence wins over later braces", "```json\n{\"a\":1}\n```\nalso {oops}", map[string]any{"a": float64(1)}, MethodFenced},
		{"braces", `Sure! {"c":3} hope it helps`, map[string]any{"c": float64(3)}, MethodBraces},
		{"braces with trailing commas", `Result: {"d": [1,2,],}`, map[string]any{"d": []any{float64(1), float64(2)}}, MethodBraces},
		{"smart quotes", `{“name”: “Jane”}`, map[string]any{"name": "Jane"}, MethodDirect},
		{"brackets", `Fields: ["x", "y"] end`, []any{"x", "y"}, MethodBrackets},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, method, ok := LocateJSON(tc.in)
			assert.True(t, ok)
			assert.Equal(t, tc.want, v)
			assert.Equal(t, tc.method, method)
		})
	}
}

func TestLocateJSONRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "no json here", "42", `"just a string"`, "{broken", "} backwards {"} {
		_, _, ok := LocateJSON(in)
		assert.False(t, ok, "%q", in)
	}
}
