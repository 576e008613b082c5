package llm

import (
	"time"

	"github.com/joseph-ayodele/docextract/constants"
)

// Result is the terminal outcome of an invocation. Exactly one of Value (Structured),
// Raw (RawText) or Reason (Failed) is meaningful for a given Status.
type Result struct {
	Status     constants.ModelOutcome `json:"status"`
	Value      any                    `json:"value,omitempty"`
	Raw        string                 `json:"raw,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Attempts   int                    `json:"attempts"`
	Model      string                 `json:"model"`
	Method     string                 `json:"method,omitempty"`
	Confidence float64                `json:"confidence"`
	Elapsed    time.Duration          `json:"elapsed_ns"`
}

func Structured(v any, method string, confidence float64) Result {
	return Result{Status: constants.OutcomeStructured, Value: v, Method: method, Confidence: confidence}
}

func RawText(raw string) Result {
	return Result{Status: constants.OutcomeRawText, Raw: raw}
}

func Failed(reason string) Result {
	return Result{Status: constants.OutcomeFailed, Reason: reason}
}

func (r Result) IsStructured() bool { return r.Status == constants.OutcomeStructured }

// Object returns the structured value when it is a JSON object.
func (r Result) Object() (map[string]any, bool) {
	if !r.IsStructured() {
		return nil, false
	}
	m, ok := r.Value.(map[string]any)
	return m, ok
}
