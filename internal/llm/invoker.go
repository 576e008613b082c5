package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/docextract/internal/common"
)

// InvokerConfig bounds how hard the invoker tries.
type InvokerConfig struct {
	Model          string
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff is the wait after the first failed attempt; it doubles each time. Zero
	// retries immediately.
	Backoff time.Duration
	// RatePerSecond > 0 throttles attempts across all callers sharing the invoker.
	RatePerSecond float64
	RateBurst     int
	// RetryUnparsable spends remaining attempts when the model answered without JSON.
	RetryUnparsable bool
}

func InvokerConfigFrom(c common.LLMConfig) InvokerConfig {
	return InvokerConfig{
		Model:           c.Model,
		MaxAttempts:     c.MaxAttempts,
		AttemptTimeout:  c.AttemptTimeout,
		Backoff:         c.Backoff,
		RatePerSecond:   c.RatePerSecond,
		RateBurst:       c.RateBurst,
		RetryUnparsable: c.RetryUnparsable,
	}
}

// Invoker gets JSON out of a slow, sometimes hanging local model. Invoke never returns
// an error; every outcome is a Result.
type Invoker struct {
	backend Backend
	cfg     InvokerConfig
	models  *Registry
	limiter *rate.Limiter
	logger  *slog.Logger
}

type InvokerOption func(*Invoker)

// WithRegistry resolves request model names against installed models.
func WithRegistry(r *Registry) InvokerOption { return func(iv *Invoker) { iv.models = r } }

func NewInvoker(backend Backend, cfg InvokerConfig, logger *slog.Logger, opts ...InvokerOption) *Invoker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	iv := &Invoker{backend: backend, cfg: cfg, logger: logger}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		iv.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, o := range opts {
		o(iv)
	}
	if iv.models == nil {
		iv.models = NewRegistry(cfg.Model)
	}
	return iv
}

func (iv *Invoker) Invoke(ctx context.Context, req Request) Result {
	start := time.Now()
	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = iv.cfg.MaxAttempts
	}
	timeout := req.AttemptTimeout
	if timeout <= 0 {
		timeout = iv.cfg.AttemptTimeout
	}

	log := common.Logger(ctx, iv.logger).With("backend", iv.backend.Name())

	model, err := iv.models.Resolve(req.Model)
	if err != nil {
		log.Error("llm.invoke.resolve_failed", "model", req.Model, "error", err)
		res := Failed(err.Error())
		res.Model = req.Model
		res.Elapsed = time.Since(start)
		return res
	}
	log = log.With("model", model)

	var (
		n       int
		lastErr error
		lastRaw string
		haveRaw bool
	)
	for n < attempts {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if iv.limiter != nil {
			if err := iv.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		n++
		out, err := iv.attempt(ctx, model, req.Prompt, timeout)
		if err == nil {
			if v, method, ok := LocateJSON(out.Stdout); ok {
				res := Structured(v, method, confidenceFor(v, method))
				log.Info("llm.invoke.ok", "attempt", n, "method", method, "elapsed_ms", time.Since(start).Milliseconds())
				return iv.finish(res, n, model, start)
			}
			lastRaw, haveRaw = out.Stdout, true
			log.Warn("llm.invoke.unparsable", "attempt", n, "max_attempts", attempts, "raw_bytes", len(out.Stdout))
			if !iv.cfg.RetryUnparsable {
				break
			}
		} else {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			log.Warn("llm.invoke.retry", "attempt", n, "max_attempts", attempts, "timeout", errors.Is(err, ErrTimeout), "error", err)
		}

		if n < attempts && iv.cfg.Backoff > 0 {
			wait := iv.cfg.Backoff * (1 << uint(n-1))
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
	}

	if haveRaw {
		log.Warn("llm.invoke.raw_text", "attempts", n, "raw_bytes", len(lastRaw))
		return iv.finish(RawText(lastRaw), n, model, start)
	}

	reason := fmt.Sprintf("failed after %d attempts: %v", n, lastErr)
	if ctx.Err() != nil {
		reason = fmt.Sprintf("cancelled after %d attempts: %v", n, lastErr)
	}
	log.Error("llm.invoke.failed", "attempts", n, "error", lastErr, "elapsed_ms", time.Since(start).Milliseconds())
	return iv.finish(Failed(reason), n, model, start)
}

func (iv *Invoker) attempt(ctx context.Context, model, prompt string, timeout time.Duration) (Output, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := iv.backend.Generate(actx, Call{Model: model, Prompt: prompt})
	if err != nil && !errors.Is(err, ErrTimeout) && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return out, err
}

func (iv *Invoker) finish(res Result, attempts int, model string, start time.Time) Result {
	res.Attempts = attempts
	res.Model = model
	res.Elapsed = time.Since(start)
	return res
}

// confidenceFor prefers a top-level "confidence" the model reported in [0,1]; otherwise
// it scores by how much digging it took to find the JSON.
func confidenceFor(v any, method string) float64 {
	if m, ok := v.(map[string]any); ok {
		if c, ok := m["confidence"].(float64); ok && c >= 0 && c <= 1 {
			return c
		}
	}
	switch method {
	case MethodDirect:
		return 0.9
	case MethodFenced:
		return 0.85
	default:
		return 0.7
	}
}
