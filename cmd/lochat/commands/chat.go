package commands

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lochat/internal/logging"
	"lochat/internal/tui"
)

// NewChatCmd constructs the `lochat chat` command: the interactive
// terminal chat client.
func NewChatCmd() *cobra.Command {
	var model string
	var logFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session in the terminal",
		Long: `Start an interactive terminal chat with the configured model.

Inside the session:
  /doc <path>   index a text document; later answers cite it
  /reset        restart the conversation
  /quit         exit

Examples:
  lochat chat
  lochat chat --model llama3.1
  lochat chat --model qwen3 --log chat.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal, so logs go to a file or nowhere.
			logDst := io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("chat: open log file: %w", err)
				}
				defer f.Close()
				logDst = f
			}
			log := logging.NewAt(logDst)

			sess, _ := buildSession(log)

			if model == "" {
				model = envModel()
			}

			p := tea.NewProgram(tui.New(sess, model), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Chat model to use (default: LOCHAT_MODEL or first available)")
	cmd.Flags().StringVar(&logFile, "log", "", "Append structured logs to this file")

	return cmd
}
