// Package commands defines all Cobra CLI commands for the lochat binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lochat/internal/audit"
	"lochat/internal/config"
	"lochat/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lochat",
		Short: "lochat — chat with a locally hosted LLM, with your documents as context",
		Long: `lochat is a local-first chat client for Ollama-hosted models.

It keeps the whole conversation in memory, streams responses token by
token, and can index a document on the fly so answers are grounded in it
(retrieval-augmented generation, no external vector store required).

The chat model is selected via the LOCHAT_MODEL environment variable or a
YAML config file (~/.lochat/config.yaml).
See 'lochat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional and never overrides the real environment.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.lochat/config.yaml)")

	root.AddCommand(
		NewChatCmd(),
		NewAskCmd(),
		NewModelsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
