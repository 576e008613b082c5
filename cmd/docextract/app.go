package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/docextract/internal/cache"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/fields"
	"github.com/joseph-ayodele/docextract/internal/llm"
	"github.com/joseph-ayodele/docextract/internal/llm/openai"
	"github.com/joseph-ayodele/docextract/internal/ocr"
	"github.com/joseph-ayodele/docextract/internal/pipeline"
)

// app holds the components a command needs, built from cfg.
type app struct {
	extractor *ocr.Extractor
	cache     *cache.Cache
	processor *pipeline.Processor
}

// backend is the union every configured model backend satisfies.
type backend interface {
	llm.Backend
	llm.ModelLister
}

func newBackend(c common.LLMConfig, logger *slog.Logger) (backend, error) {
	switch c.Backend {
	case "", "ollama-cli":
		return llm.NewOllamaCLI(c.Binary, c.KillGrace, logger), nil
	case "ollama-http":
		return llm.NewOllamaHTTP(c.BaseURL, &http.Client{}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, JSONMode: true}, logger), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown llm backend %q", c.Backend), common.ErrInvalidInput)
	}
}

func newInvoker(ctx context.Context, c common.LLMConfig, logger *slog.Logger) (*llm.Invoker, error) {
	b, err := newBackend(c, logger)
	if err != nil {
		return nil, err
	}
	var opts []llm.InvokerOption
	if c.DiscoverModels {
		reg, err := llm.Discover(ctx, b, c.Model)
		if err != nil {
			return nil, common.NewAppError(common.CodeModelInvocationFailed, "discover models", err)
		}
		logger.Info("llm.models.discovered", "backend", b.Name(), "count", len(reg.Models()))
		opts = append(opts, llm.WithRegistry(reg))
	}
	return llm.NewInvoker(b, llm.InvokerConfigFrom(c), logger, opts...), nil
}

type buildOptions struct {
	withModel bool
}

func buildApp(ctx context.Context, bo buildOptions) (*app, error) {
	a := &app{}
	ex, err := ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
	if err != nil {
		return nil, err
	}
	a.extractor = ex

	var popts []pipeline.Option
	if cfg.Cache.Enabled {
		c, err := cache.Open(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		a.cache = c
		popts = append(popts, pipeline.WithCache(c))
	}

	var enricher pipeline.Enricher
	if bo.withModel {
		iv, err := newInvoker(ctx, cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		enricher = llm.NewEnricher(iv, cfg.Pipeline.PromptTextLimit, logger)
	}

	a.processor = pipeline.NewProcessor(ex, fields.DefaultRegistry(), enricher, pipeline.Config{
		PreviewChars:     cfg.Pipeline.PreviewChars,
		ModelConcurrency: cfg.Pipeline.ModelConcurrency,
	}, logger, popts...)
	return a, nil
}

func (a *app) Close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		logger.Warn("cache.close_failed", "error", err)
	}
}
