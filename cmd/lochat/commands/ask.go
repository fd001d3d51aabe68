package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lochat/internal/logging"
)

// NewAskCmd constructs the `lochat ask` command, which runs a single chat
// turn and streams the response to stdout.
func NewAskCmd() *cobra.Command {
	var model string
	var docPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the streamed answer",
		Long: `Send one question to the model and stream the answer to stdout.

With --doc, the file is chunked, embedded, and indexed first, and the
answer is grounded in the retrieved passages.

Examples:
  lochat ask "explain goroutine leaks"
  lochat ask --model llama3.1 "summarise the trade-offs of UDP"
  lochat ask --doc notes.txt "what did we decide about retries?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			sess, _ := buildSession(log)

			if model == "" {
				model = envModel()
			}
			if model == "" {
				if err := sess.FetchModels(ctx); err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				models := sess.Models()
				if len(models) == 0 {
					return fmt.Errorf("ask: no chat-capable models installed")
				}
				model = models[0].Name
			}

			if err := sess.InitChat(ctx, model, ""); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if docPath != "" {
				data, err := os.ReadFile(docPath)
				if err != nil {
					return fmt.Errorf("ask: read document: %w", err)
				}
				if err := sess.BuildIndex(ctx, string(data)); err != nil {
					return fmt.Errorf("ask: index document: %w", err)
				}
			}

			sess.SetOnDelta(func(delta string) { fmt.Print(delta) })

			var err error
			if sess.RAGEnabled() {
				err = sess.SendChatWithRAG(ctx, args[0])
			} else {
				err = sess.SendChat(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Chat model to use (default: LOCHAT_MODEL or first available)")
	cmd.Flags().StringVarP(&docPath, "doc", "d", "", "Text document to index before answering")

	return cmd
}
