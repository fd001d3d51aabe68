package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo describes one model known to the Ollama server.
type ModelInfo struct {
	// Name is the model tag (e.g. "llama3.2:latest").
	Name string `json:"name"`
	// FamilyTags lists the model architecture families reported by the
	// server (e.g. "llama", "bert").
	FamilyTags []string `json:"families"`
}

// tagsResponse is the JSON body returned from GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Details struct {
			Families []string `json:"families"`
		} `json:"details"`
	} `json:"models"`
	Error string `json:"error,omitempty"`
}

// ListModels enumerates the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultListTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: decode tags response: %w", err)
	}
	if err := statusError(resp, result.Error); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, ModelInfo{Name: m.Name, FamilyTags: m.Details.Families})
	}
	return models, nil
}

// embeddingFamily is the architecture family marker identifying dedicated
// embedding models (nomic-embed-text and friends report "bert").
const embeddingFamily = "bert"

// IsEmbeddingModel reports whether the model is an embedding-only model:
// its name contains "embed" or its family tags include the known embedding
// architecture marker. Such models cannot chat and are hidden from the
// selectable model list.
func IsEmbeddingModel(m ModelInfo) bool {
	if strings.Contains(strings.ToLower(m.Name), "embed") {
		return true
	}
	for _, f := range m.FamilyTags {
		if f == embeddingFamily {
			return true
		}
	}
	return false
}

// FilterChatModels returns the chat-capable models sorted by name
// descending. The input slice is not modified.
func FilterChatModels(models []ModelInfo) []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		if !IsEmbeddingModel(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out
}
