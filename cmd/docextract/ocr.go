package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

var ocrJSON bool

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Print the text extracted from one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runOCR,
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrJSON, "json", false, "print provenance and page details as JSON")
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	doc, err := entity.LoadRawDocument(args[0])
	if err != nil {
		return common.NewAppError(common.CodeInvalidInput, "load document", err)
	}
	a, err := buildApp(cmd.Context(), buildOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, _ := common.EnsureRequestID(cmd.Context())
	et, err := a.extractor.Extract(ctx, doc)
	if err != nil {
		return err
	}
	if ocrJSON {
		return newJSONWriter(cmd.OutOrStdout(), true).write(et)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), et.Text)
	return err
}
