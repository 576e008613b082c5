package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by a Backend when a single generation exceeded its deadline.
var ErrTimeout = errors.New("model call timed out")

// Call is one generation request handed to a Backend.
type Call struct {
	Model  string
	Prompt string
}

// Output is what the model process produced. For HTTP backends Stdout carries the
// response text and ExitCode is always zero.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a model process that terminated with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("model process exited with status %d", e.Code)
	}
	return fmt.Sprintf("model process exited with status %d: %s", e.Code, e.Stderr)
}

// Backend generates text for a prompt. Implementations must honor ctx cancellation and
// report a deadline as ErrTimeout so the invoker can tell it apart from other failures.
type Backend interface {
	Name() string
	Generate(ctx context.Context, call Call) (Output, error)
}

// Request is the invoker's input. Zero values take the invoker defaults.
type Request struct {
	Prompt         string
	Model          string
	MaxAttempts    int
	AttemptTimeout time.Duration
}
