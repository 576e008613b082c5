package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// OllamaHTTP talks to a running ollama server through /api/generate.
type OllamaHTTP struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewOllamaHTTP(baseURL string, client *http.Client, logger *slog.Logger) *OllamaHTTP {
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if client == nil {
		// Per-attempt deadlines come from the invoker's context.
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaHTTP{baseURL: baseURL, client: client, logger: logger}
}

func (o *OllamaHTTP) Name() string { return "ollama-http" }

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *OllamaHTTP) Generate(ctx context.Context, call Call) (Output, error) {
	body := map[string]any{
		"model":  call.Model,
		"prompt": call.Prompt,
		"stream": false,
	}
	raw, err := SendJSON(ctx, o.client, o.baseURL+"/api/generate", body, nil, o.logger)
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			return Output{Stderr: he.Body, ExitCode: he.Status}, &ExitError{Code: he.Status, Stderr: truncate(he.Body, 2<<10)}
		}
		return Output{ExitCode: -1}, err
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Output{Stdout: string(raw)}, fmt.Errorf("decode ollama response: %w", err)
	}
	if resp.Error != "" {
		return Output{Stderr: resp.Error, ExitCode: 1}, &ExitError{Code: 1, Stderr: resp.Error}
	}
	return Output{Stdout: resp.Response}, nil
}

// ListModels reads /api/tags.
func (o *OllamaHTTP) ListModels(ctx context.Context) ([]ModelInfo, error) {
	raw, err := GetJSON(ctx, o.client, o.baseURL+"/api/tags", nil, o.logger)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	var tags struct {
		Models []struct {
			Name       string `json:"name"`
			Digest     string `json:"digest"`
			Size       int64  `json:"size"`
			ModifiedAt string `json:"modified_at"`
		} `json:"models"`
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}
	out := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		id := m.Digest
		if len(id) > 12 {
			id = id[:12]
		}
		out = append(out, ModelInfo{
			Name:     m.Name,
			ID:       id,
			Size:     humanBytes(m.Size),
			Modified: m.ModifiedAt,
		})
	}
	return out, nil
}

func humanBytes(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}
