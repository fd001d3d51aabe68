package commands

import (
	"log/slog"
	"os"

	"lochat/internal/ollama"
	"lochat/internal/session"
)

// buildSession wires an Ollama client and a session from the environment.
// The returned client is also needed separately for readiness probes.
func buildSession(log *slog.Logger) (*session.Session, *ollama.Client) {
	client := ollama.New(os.Getenv("OLLAMA_HOST"))
	sess := session.New(client, session.OptionsFromEnv(), log)
	return sess, client
}

// envModel returns the configured default chat model, empty if unset.
func envModel() string {
	return os.Getenv("LOCHAT_MODEL")
}
