package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// maxArgPrompt is the largest prompt passed as an argv element. Longer prompts go
// through stdin so they are not cut off by the OS argument limit.
const maxArgPrompt = 64 << 10

// OllamaCLI runs `ollama run <model> -- <prompt>` once per Generate call. The prompt is
// a single argv element after the end-of-options marker; no shell is involved.
type OllamaCLI struct {
	binary    string
	killGrace time.Duration
	logger    *slog.Logger
}

func NewOllamaCLI(binary string, killGrace time.Duration, logger *slog.Logger) *OllamaCLI {
	if binary == "" {
		binary = "ollama"
	}
	if killGrace <= 0 {
		killGrace = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaCLI{binary: binary, killGrace: killGrace, logger: logger}
}

func (o *OllamaCLI) Name() string { return "ollama-cli" }

func (o *OllamaCLI) Generate(ctx context.Context, call Call) (Output, error) {
	args := []string{"run", call.Model, "--"}
	var stdin io.Reader
	if len(call.Prompt) > maxArgPrompt {
		stdin = strings.NewReader(call.Prompt)
	} else {
		args = append(args, call.Prompt)
	}

	return o.run(ctx, stdin, args...)
}

// ListModels parses `ollama list`.
func (o *OllamaCLI) ListModels(ctx context.Context) ([]ModelInfo, error) {
	out, err := o.run(ctx, nil, "list")
	if err != nil {
		return nil, fmt.Errorf("ollama list: %w", err)
	}
	return ParseOllamaList(out.Stdout), nil
}

func (o *OllamaCLI) run(ctx context.Context, stdin io.Reader, args ...string) (Output, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, o.binary, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = o.killGrace
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	elapsed := time.Since(start)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		o.logger.Warn("llm.exec.timeout", "cmd", o.binary, "sub", args[0], "elapsed_ms", elapsed.Milliseconds())
		out.ExitCode = -1
		return out, fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond))
	case ctx.Err() != nil:
		out.ExitCode = -1
		return out, ctx.Err()
	case err != nil:
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			out.ExitCode = ee.ExitCode()
			o.logger.Warn("llm.exec.failed",
				"cmd", o.binary,
				"sub", args[0],
				"exit_code", out.ExitCode,
				"stderr", truncate(out.Stderr, 2<<10),
				"elapsed_ms", elapsed.Milliseconds(),
			)
			return out, &ExitError{Code: out.ExitCode, Stderr: truncate(strings.TrimSpace(out.Stderr), 2<<10)}
		}
		out.ExitCode = -1
		return out, fmt.Errorf("run %s: %w", o.binary, err)
	}

	o.logger.Debug("llm.exec.ok",
		"cmd", o.binary,
		"sub", args[0],
		"stdout_bytes", stdout.Len(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return out, nil
}
