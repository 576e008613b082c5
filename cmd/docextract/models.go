package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the configured backend",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "output models as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	b, err := newBackend(cfg.LLM, logger)
	if err != nil {
		return err
	}
	models, err := b.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if modelsJSON {
		return newJSONWriter(cmd.OutOrStdout(), true).write(models)
	}
	if len(models) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No models installed.")
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tSIZE\tMODIFIED")
	for _, m := range models {
		marker := ""
		if m.Name == cfg.LLM.Model {
			marker = " *"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n", m.Name, marker, m.ID, m.Size, m.Modified)
	}
	return tw.Flush()
}
