package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/llm"
)

var (
	invokeModel    string
	invokeAttempts int
	invokeTimeout  time.Duration
	invokeType     string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [prompt]",
	Short: "Send a prompt to the model and print the resilient result",
	Long: `Runs one prompt through the retrying model invoker and prints the outcome
(structured, raw_text or failed) as JSON. The prompt is read from stdin when
no argument is given. With --type the document-type prefix is prepended.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInvoke,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeModel, "model", "", "model name (defaults to llm.model)")
	invokeCmd.Flags().IntVar(&invokeAttempts, "attempts", 0, "maximum attempts (defaults to llm.max_attempts)")
	invokeCmd.Flags().DurationVar(&invokeTimeout, "timeout", 0, "per-attempt timeout (defaults to llm.attempt_timeout)")
	invokeCmd.Flags().StringVar(&invokeType, "type", "", "document type whose prompt prefix is prepended")
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if invokeType != "" {
		t, ok := constants.ParseDocumentType(invokeType)
		if !ok {
			return common.NewAppError(common.CodeUnknownDocumentType, fmt.Sprintf("unknown document type %q", invokeType), common.ErrUnknownDocumentType)
		}
		prompt = llm.PromptPrefix(t) + "\n\n" + prompt
	}

	ctx, _ := common.EnsureRequestID(cmd.Context())
	iv, err := newInvoker(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	res := iv.Invoke(ctx, llm.Request{
		Prompt:         prompt,
		Model:          invokeModel,
		MaxAttempts:    invokeAttempts,
		AttemptTimeout: invokeTimeout,
	})
	if err := newJSONWriter(cmd.OutOrStdout(), true).write(res); err != nil {
		return err
	}
	if res.Status == constants.OutcomeFailed {
		return common.NewAppError(common.CodeModelInvocationFailed, res.Reason, common.ErrModelInvocationFailed)
	}
	return nil
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	var prompt string
	if len(args) == 1 {
		prompt = args[0]
	} else {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(b)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", common.NewAppError(common.CodeInvalidInput, "prompt is empty", common.ErrInvalidInput)
	}
	return prompt, nil
}
