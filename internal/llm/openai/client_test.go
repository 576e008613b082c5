package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/internal/llm"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-local", r.Header.Get("Authorization"))
		var body struct {
			Model          string           `json:"model"`
			Messages       []map[string]any `json:"messages"`
			ResponseFormat map[string]any   `json:"response_format"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen2.5", body.Model)
		assert.Equal(t, "extract please", body.Messages[0]["content"])
		assert.Equal(t, "json_object", body.ResponseFormat["type"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"a\":1}  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-local", BaseURL: srv.URL + "/v1/", JSONMode: true}, nil)
	out, err := c.Generate(context.Background(), llm.Call{Model: "qwen2.5", Prompt: "extract please"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out.Stdout)
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading model"))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Generate(context.Background(), llm.Call{Model: "m", Prompt: "p"})
	var ee *llm.ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusServiceUnavailable, ee.Code)
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Generate(context.Background(), llm.Call{Model: "m", Prompt: "p"})
	assert.ErrorContains(t, err, "no choices")
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"qwen2.5"},{"id":"llama3"}]}`))
	}))
	defer srv.Close()

	models, err := NewClient(Config{BaseURL: srv.URL}, nil).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []llm.ModelInfo{{Name: "qwen2.5", ID: "qwen2.5"}, {Name: "llama3", ID: "llama3"}}, models)
}
