package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
	Log      LogConfig
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Engine        string // "tesseract" | "gosseract"
	NativePDF     string // "pdftotext" | "pdfcpu"
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	Language      string
	DPI           int
	MaxPages      int
	PSM           int
	TessdataDir   string
	HeicConverter string
}

// LLMConfig holds model invocation configuration
type LLMConfig struct {
	Backend         string // "ollama-cli" | "ollama-http" | "openai"
	Binary          string
	BaseURL         string
	APIKey          string
	Model           string
	MaxAttempts     int
	AttemptTimeout  time.Duration
	KillGrace       time.Duration
	Backoff         time.Duration
	RatePerSecond   float64
	RateBurst       int
	RetryUnparsable bool
	DiscoverModels  bool
}

// PipelineConfig holds per-document processing configuration
type PipelineConfig struct {
	PreviewChars     int
	PromptTextLimit  int
	ModelConcurrency int // model calls in flight per document
	Workers          int
	QueueSize        int
	DocumentTimeout  time.Duration
}

// CacheConfig holds extraction cache configuration
type CacheConfig struct {
	Enabled    bool
	DSN        string // "" = in-memory, "sqlite:<path>", or a postgres:// URL
	MaxEntries int
	Table      string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" | "text"
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Engine:        "tesseract",
			NativePDF:     "pdftotext",
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Tesseract:     "tesseract",
			Language:      "eng",
			DPI:           300,
			HeicConverter: "magick",
		},
		LLM: LLMConfig{
			Backend:         "ollama-cli",
			Binary:          "ollama",
			BaseURL:         "http://localhost:11434",
			Model:           "llama3.2:3b",
			MaxAttempts:     3,
			AttemptTimeout:  180 * time.Second,
			KillGrace:       2 * time.Second,
			Backoff:         500 * time.Millisecond,
			RetryUnparsable: true,
		},
		Pipeline: PipelineConfig{
			PreviewChars:     300,
			PromptTextLimit:  4000,
			ModelConcurrency: 1,
			Workers:          4,
			QueueSize:        64,
			DocumentTimeout:  10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 512,
			Table:      "extraction_cache",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration: defaults, then the optional TOML file at path, then
// environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// fileConfig mirrors Config for TOML files; durations are strings such as "90s".
type fileConfig struct {
	OCR struct {
		Engine        *string `toml:"engine"`
		NativePDF     *string `toml:"native_pdf"`
		Pdftotext     *string `toml:"pdftotext"`
		Pdftoppm      *string `toml:"pdftoppm"`
		Tesseract     *string `toml:"tesseract"`
		Language      *string `toml:"language"`
		DPI           *int    `toml:"dpi"`
		MaxPages      *int    `toml:"max_pages"`
		PSM           *int    `toml:"psm"`
		TessdataDir   *string `toml:"tessdata_dir"`
		HeicConverter *string `toml:"heic_converter"`
	} `toml:"ocr"`
	LLM struct {
		Backend         *string  `toml:"backend"`
		Binary          *string  `toml:"binary"`
		BaseURL         *string  `toml:"base_url"`
		APIKey          *string  `toml:"api_key"`
		Model           *string  `toml:"model"`
		MaxAttempts     *int     `toml:"max_attempts"`
		AttemptTimeout  *string  `toml:"attempt_timeout"`
		KillGrace       *string  `toml:"kill_grace"`
		Backoff         *string  `toml:"backoff"`
		RatePerSecond   *float64 `toml:"rate_per_second"`
		RateBurst       *int     `toml:"rate_burst"`
		RetryUnparsable *bool    `toml:"retry_unparsable"`
		DiscoverModels  *bool    `toml:"discover_models"`
	} `toml:"llm"`
	Pipeline struct {
		PreviewChars     *int    `toml:"preview_chars"`
		PromptTextLimit  *int    `toml:"prompt_text_limit"`
		ModelConcurrency *int    `toml:"model_concurrency"`
		Workers          *int    `toml:"workers"`
		QueueSize        *int    `toml:"queue_size"`
		DocumentTimeout  *string `toml:"document_timeout"`
	} `toml:"pipeline"`
	Cache struct {
		Enabled    *bool   `toml:"enabled"`
		DSN        *string `toml:"dsn"`
		MaxEntries *int    `toml:"max_entries"`
		Table      *string `toml:"table"`
	} `toml:"cache"`
	Log struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, "read config file", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse %s", path), err)
	}

	setString(&c.OCR.Engine, fc.OCR.Engine)
	setString(&c.OCR.NativePDF, fc.OCR.NativePDF)
	setString(&c.OCR.Pdftotext, fc.OCR.Pdftotext)
	setString(&c.OCR.Pdftoppm, fc.OCR.Pdftoppm)
	setString(&c.OCR.Tesseract, fc.OCR.Tesseract)
	setString(&c.OCR.Language, fc.OCR.Language)
	setInt(&c.OCR.DPI, fc.OCR.DPI)
	setInt(&c.OCR.MaxPages, fc.OCR.MaxPages)
	setInt(&c.OCR.PSM, fc.OCR.PSM)
	setString(&c.OCR.TessdataDir, fc.OCR.TessdataDir)
	setString(&c.OCR.HeicConverter, fc.OCR.HeicConverter)

	setString(&c.LLM.Backend, fc.LLM.Backend)
	setString(&c.LLM.Binary, fc.LLM.Binary)
	setString(&c.LLM.BaseURL, fc.LLM.BaseURL)
	setString(&c.LLM.APIKey, fc.LLM.APIKey)
	setString(&c.LLM.Model, fc.LLM.Model)
	setInt(&c.LLM.MaxAttempts, fc.LLM.MaxAttempts)
	setInt(&c.LLM.RateBurst, fc.LLM.RateBurst)
	if fc.LLM.RatePerSecond != nil {
		c.LLM.RatePerSecond = *fc.LLM.RatePerSecond
	}
	if fc.LLM.RetryUnparsable != nil {
		c.LLM.RetryUnparsable = *fc.LLM.RetryUnparsable
	}
	if fc.LLM.DiscoverModels != nil {
		c.LLM.DiscoverModels = *fc.LLM.DiscoverModels
	}

	setInt(&c.Pipeline.PreviewChars, fc.Pipeline.PreviewChars)
	setInt(&c.Pipeline.PromptTextLimit, fc.Pipeline.PromptTextLimit)
	setInt(&c.Pipeline.ModelConcurrency, fc.Pipeline.ModelConcurrency)
	setInt(&c.Pipeline.Workers, fc.Pipeline.Workers)
	setInt(&c.Pipeline.QueueSize, fc.Pipeline.QueueSize)

	if fc.Cache.Enabled != nil {
		c.Cache.Enabled = *fc.Cache.Enabled
	}
	setString(&c.Cache.DSN, fc.Cache.DSN)
	setInt(&c.Cache.MaxEntries, fc.Cache.MaxEntries)
	setString(&c.Cache.Table, fc.Cache.Table)

	setString(&c.Log.Level, fc.Log.Level)
	setString(&c.Log.Format, fc.Log.Format)

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"llm.attempt_timeout", fc.LLM.AttemptTimeout, &c.LLM.AttemptTimeout},
		{"llm.kill_grace", fc.LLM.KillGrace, &c.LLM.KillGrace},
		{"llm.backoff", fc.LLM.Backoff, &c.LLM.Backoff},
		{"pipeline.document_timeout", fc.Pipeline.DocumentTimeout, &c.Pipeline.DocumentTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(*d.src))
		if err != nil {
			return NewAppError(CodeConfig, fmt.Sprintf("%s: invalid duration %q", d.key, *d.src), ErrInvalidInput)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.NativePDF = getEnv("OCR_NATIVE_PDF", c.OCR.NativePDF)
	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Language = getEnv("OCR_LANG", c.OCR.Language)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)

	c.LLM.Backend = getEnv("LLM_BACKEND", c.LLM.Backend)
	c.LLM.Binary = getEnv("OLLAMA_BIN", c.LLM.Binary)
	c.LLM.BaseURL = getEnv("OLLAMA_HOST", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.AttemptTimeout = getEnvAsDuration("LLM_ATTEMPT_TIMEOUT", c.LLM.AttemptTimeout)
	c.LLM.KillGrace = getEnvAsDuration("LLM_KILL_GRACE", c.LLM.KillGrace)
	c.LLM.Backoff = getEnvAsDuration("LLM_BACKOFF", c.LLM.Backoff)
	c.LLM.RatePerSecond = getEnvAsFloat64("LLM_RATE_PER_SECOND", c.LLM.RatePerSecond)
	c.LLM.RateBurst = getEnvAsInt("LLM_RATE_BURST", c.LLM.RateBurst)
	c.LLM.RetryUnparsable = getEnvAsBool("LLM_RETRY_UNPARSABLE", c.LLM.RetryUnparsable)
	c.LLM.DiscoverModels = getEnvAsBool("LLM_DISCOVER_MODELS", c.LLM.DiscoverModels)

	c.Pipeline.PreviewChars = getEnvAsInt("PREVIEW_CHARS", c.Pipeline.PreviewChars)
	c.Pipeline.PromptTextLimit = getEnvAsInt("PROMPT_TEXT_LIMIT", c.Pipeline.PromptTextLimit)
	c.Pipeline.ModelConcurrency = getEnvAsInt("MODEL_CONCURRENCY", c.Pipeline.ModelConcurrency)
	c.Pipeline.Workers = getEnvAsInt("WORKERS", c.Pipeline.Workers)
	c.Pipeline.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Pipeline.QueueSize)
	c.Pipeline.DocumentTimeout = getEnvAsDuration("DOCUMENT_TIMEOUT", c.Pipeline.DocumentTimeout)

	c.Cache.Enabled = getEnvAsBool("CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.DSN = getEnv("CACHE_DSN", c.Cache.DSN)
	c.Cache.MaxEntries = getEnvAsInt("CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.Table = getEnv("CACHE_TABLE", c.Cache.Table)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("ocr.engine", c.OCR.Engine, OneOf("tesseract", "gosseract"))
	v.Field("ocr.native_pdf", c.OCR.NativePDF, OneOf("pdftotext", "pdfcpu"))
	v.Field("ocr.language", c.OCR.Language, Required)
	v.Field("ocr.dpi", c.OCR.DPI, Positive)
	v.Field("llm.backend", c.LLM.Backend, OneOf("ollama-cli", "ollama-http", "openai"))
	v.Field("llm.model", c.LLM.Model, Required)
	v.Field("llm.max_attempts", c.LLM.MaxAttempts, Positive)
	v.Field("llm.attempt_timeout", c.LLM.AttemptTimeout, Positive)
	v.Field("pipeline.workers", c.Pipeline.Workers, Positive)
	v.Field("pipeline.preview_chars", c.Pipeline.PreviewChars, Positive)
	v.Field("pipeline.model_concurrency", c.Pipeline.ModelConcurrency, Positive)
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	if c.Cache.Enabled {
		v.Field("cache.table", c.Cache.Table, Required, Identifier, MaxLength(63))
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
