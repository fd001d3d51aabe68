package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lochat/internal/logging"
)

// NewModelsCmd constructs the `lochat models` command, which lists the
// chat-capable models installed on the Ollama server.
func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List chat-capable models on the Ollama server",
		Long: `List the models installed on the Ollama server, hiding
embedding-only models that cannot hold a conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			sess, _ := buildSession(log)

			if err := sess.FetchModels(cmd.Context()); err != nil {
				return fmt.Errorf("models: %w", err)
			}

			models := sess.Models()
			if len(models) == 0 {
				fmt.Println("No chat-capable models installed.")
				return nil
			}
			for _, m := range models {
				if len(m.FamilyTags) > 0 {
					fmt.Printf("%s\t(%s)\n", m.Name, strings.Join(m.FamilyTags, ", "))
				} else {
					fmt.Println(m.Name)
				}
			}
			return nil
		},
	}
}
