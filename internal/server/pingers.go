package server

import (
	"context"
	"fmt"

	"lochat/internal/ollama"
)

// OllamaPinger probes the local model server using its version endpoint,
// which costs no tokens. It satisfies the Pinger interface and is used by
// GET /api/ready.
type OllamaPinger struct {
	// client is the Ollama client to probe.
	client *ollama.Client
}

// NewOllamaPinger constructs an OllamaPinger for the given client.
func NewOllamaPinger(client *ollama.Client) *OllamaPinger {
	return &OllamaPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *OllamaPinger) Name() string { return "ollama" }

// Ping checks that the model server answers its version endpoint.
// Returns nil if it is reachable, or a descriptive error otherwise.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}
	return nil
}
