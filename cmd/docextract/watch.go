package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docextract/internal/async"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/ingest"
	"github.com/joseph-ayodele/docextract/internal/pipeline"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
	watchEnrich   bool
	watchModel    string
	watchDrain    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Process documents as they appear in a directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "also process files already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is processed")
	watchCmd.Flags().BoolVar(&watchEnrich, "enrich", false, "ask the model to enrich the extracted fields")
	watchCmd.Flags().StringVar(&watchModel, "model", "", "model name (defaults to llm.model)")
	watchCmd.Flags().DurationVar(&watchDrain, "drain-timeout", 30*time.Second, "on exit, how long queued documents may finish before running ones are cancelled")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, buildOptions{withModel: watchEnrich})
	if err != nil {
		return err
	}
	defer a.Close()

	out := newJSONWriter(cmd.OutOrStdout(), false)
	sink := func(res pipeline.Result, err error) {
		if err != nil {
			_ = out.write(newFailure(res.Filename, err))
			return
		}
		_ = out.write(res)
	}
	q := async.NewQueue(async.ProcessorHandler(a.processor, sink), logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.DocumentTimeout),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchInitial,
		SkipHidden:  true,
		Debounce:    watchDebounce,
		Logger:      logger,
	})
	if err != nil {
		_ = q.Shutdown(context.Background())
		return err
	}

	opts := pipeline.Options{Enrich: watchEnrich, Model: watchModel}
loop:
	for {
		select {
		case path, ok := <-events:
			if !ok {
				break loop
			}
			doc, err := entity.LoadRawDocument(path)
			if err != nil {
				logger.Warn("watch.load_failed", "path", path, "error", err)
				continue
			}
			rctx, _ := common.EnsureRequestID(ctx)
			if err := q.Enqueue(rctx, async.Job{Document: doc, Options: opts}); err != nil {
				logger.Warn("watch.enqueue_failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		case <-ctx.Done():
			break loop
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), watchDrain)
	defer cancel()
	return q.Shutdown(sctx)
}
