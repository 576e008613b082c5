package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// Config for an OpenAI-compatible chat-completions server. Local servers (llama.cpp,
// vLLM, LM Studio) usually ignore the API key.
type Config struct {
	APIKey      string  // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string  // default http://localhost:8080/v1
	Temperature float32 // 0..2
	JSONMode    bool    // request response_format json_object
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient does not set an HTTP timeout; each call is bounded by its context.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}
