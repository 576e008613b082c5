package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/docextract/internal/llm"
)

func (c *Client) Name() string { return "openai" }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate implements llm.Backend with a single-turn chat completion. The prompt is
// sent as the user message.
func (c *Client) Generate(ctx context.Context, call llm.Call) (llm.Output, error) {
	start := time.Now()

	body := map[string]any{
		"model":       call.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": call.Prompt},
		},
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	raw, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body, c.headers(), c.logger)
	if err != nil {
		var he *llm.HTTPError
		if errors.As(err, &he) {
			return llm.Output{Stderr: he.Body, ExitCode: he.Status}, &llm.ExitError{Code: he.Status, Stderr: he.Body}
		}
		c.logger.Warn("llm.openai.http_error", "model", call.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Output{ExitCode: -1}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.Output{Stdout: string(raw)}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.Output{Stdout: string(raw)}, fmt.Errorf("no choices in chat response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Debug("llm.openai.ok",
		"model", call.Model,
		"finish_reason", cc.Choices[0].FinishReason,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Output{Stdout: content}, nil
}

// ListModels reads /models.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	raw, err := llm.GetJSON(ctx, c.http, c.cfg.BaseURL+"/models", c.headers(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	out := make([]llm.ModelInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		out = append(out, llm.ModelInfo{Name: m.ID, ID: m.ID})
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	if c.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
