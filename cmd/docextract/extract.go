package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/ingest"
	"github.com/joseph-ayodele/docextract/internal/pipeline"
)

var (
	extractEnrich     bool
	extractFields     []string
	extractSuggest    bool
	extractModel      string
	extractJobs       int
	extractSkipHidden bool
	extractPretty     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file-or-dir>...",
	Short: "Classify documents and extract their fields",
	Long: `Runs text extraction, classification and field extraction on each document and
prints one JSON result per line. Directories are walked recursively.
Model-backed enrichment, custom fields and suggestions are opt-in.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractEnrich, "enrich", false, "ask the model to enrich the extracted fields")
	extractCmd.Flags().StringSliceVar(&extractFields, "fields", nil, "custom field names to extract with the model")
	extractCmd.Flags().BoolVar(&extractSuggest, "suggest", false, "ask the model which fields are worth extracting")
	extractCmd.Flags().StringVar(&extractModel, "model", "", "model name (defaults to llm.model)")
	extractCmd.Flags().IntVarP(&extractJobs, "jobs", "j", 0, "documents processed concurrently (defaults to pipeline.workers)")
	extractCmd.Flags().BoolVar(&extractSkipHidden, "skip-hidden", true, "skip hidden files and directories")
	extractCmd.Flags().BoolVar(&extractPretty, "pretty", false, "indent JSON output")
	rootCmd.AddCommand(extractCmd)
}

type extractFailure struct {
	Path   string `json:"path"`
	Code   string `json:"code"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func newFailure(path string, err error) extractFailure {
	return extractFailure{
		Path:   path,
		Code:   common.CodeOf(err),
		Status: common.StatusCode(err).String(),
		Error:  err.Error(),
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := pipeline.Options{
		Enrich:        extractEnrich,
		CustomFields:  extractFields,
		SuggestFields: extractSuggest,
		Model:         extractModel,
	}

	docs, stats, err := ingest.Collect(ctx, args, extractSkipHidden)
	if err != nil {
		return err
	}
	logger.Info("extract.collected", "scanned", stats.Scanned, "matched", stats.Matched, "loaded", stats.Loaded, "failed", stats.Failed)

	a, err := buildApp(ctx, buildOptions{withModel: opts.Enrich || len(opts.CustomFields) > 0 || opts.SuggestFields})
	if err != nil {
		return err
	}
	defer a.Close()

	out := newJSONWriter(cmd.OutOrStdout(), extractPretty)
	jobs := extractJobs
	if jobs <= 0 {
		jobs = cfg.Pipeline.Workers
	}

	var failed int
	var mu sync.Mutex
	fail := func(path string, err error) {
		mu.Lock()
		failed++
		mu.Unlock()
		_ = out.write(newFailure(path, err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, r := range docs {
		if r.Err != nil {
			fail(r.Path, r.Err)
			continue
		}
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(gctx, cfg.Pipeline.DocumentTimeout)
			defer cancel()
			res, err := a.processor.Process(dctx, r.Document, opts)
			if err != nil {
				fail(r.Path, err)
				return nil
			}
			return out.write(res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// jsonWriter serializes concurrent writers onto one stream, one document per line.
type jsonWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONWriter(w io.Writer, pretty bool) *jsonWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &jsonWriter{enc: enc}
}

func (j *jsonWriter) write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(v)
}
