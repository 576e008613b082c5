package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/docextract/internal/common"
)

var (
	configPath string
	envFile    string
	logLevel   string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "docextract",
	Short:         "Extract text and structured fields from PDFs and images",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
			return err
		}
		c, err := common.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger = common.NewLogger(c.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DOCEXTRACT_CONFIG"), "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadEnv reads a dotenv file without overriding variables already set. A missing default
// file is fine; a missing file named explicitly is not.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, os.ErrNotExist)) {
		return nil
	}
	return common.NewAppError(common.CodeConfig, fmt.Sprintf("load %s", path), err)
}

// exitCode maps an error's status code onto a process exit code.
func exitCode(err error) int {
	fmt.Fprintln(os.Stderr, "error:", err)
	switch common.StatusCode(err) {
	case codes.OK:
		return 0
	case codes.InvalidArgument, codes.FailedPrecondition, codes.Unimplemented:
		return 2
	case codes.Unavailable, codes.DeadlineExceeded:
		return 3
	case codes.Canceled:
		return 130
	default:
		return 1
	}
}
