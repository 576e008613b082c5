package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docextract/internal/cache"
	"github.com/joseph-ayodele/docextract/internal/common"
)

var (
	cacheHealthTimeout time.Duration
	cachePurgeOlder    time.Duration
)

var cacheHealthCmd = &cobra.Command{
	Use:   "cache-health",
	Short: "Check the extraction cache database and optionally purge old entries",
	Args:  cobra.NoArgs,
	RunE:  runCacheHealth,
}

func init() {
	cacheHealthCmd.Flags().DurationVar(&cacheHealthTimeout, "timeout", 3*time.Second, "ping timeout")
	cacheHealthCmd.Flags().DurationVar(&cachePurgeOlder, "purge-older-than", 0, "delete entries older than this (0 keeps everything)")
	rootCmd.AddCommand(cacheHealthCmd)
}

func runCacheHealth(cmd *cobra.Command, _ []string) error {
	if cfg.Cache.DSN == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "cache: in-memory (nothing to check)")
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cacheHealthTimeout+10*time.Second)
	defer cancel()

	s, err := cache.OpenSQL(ctx, cfg.Cache.DSN, cfg.Cache.Table, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.HealthCheck(ctx, cacheHealthTimeout); err != nil {
		return common.NewAppError(common.CodeInternal, fmt.Sprintf("cache (%s): FAIL", s.Dialect()), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cache (%s): OK\n", s.Dialect())

	if cachePurgeOlder > 0 {
		n, err := s.Purge(ctx, time.Now().Add(-cachePurgeOlder))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
	}
	return nil
}
