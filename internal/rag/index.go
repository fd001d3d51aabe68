// Package rag implements the retrieval half of lochat's RAG pipeline: cosine
// similarity scoring and an in-process retrieval index over one source
// document. The index holds parallel chunk/embedding slices whose shared
// position is the sole join key; it is built once per document and replaced
// wholesale on rebuild, never merged.
package rag

import (
	"fmt"
	"sort"
)

// Index is the retrieval index for a single source document. Chunks and
// embeddings are parallel: embeddings[i] is the vector for chunks[i].
// An Index is immutable after construction.
type Index struct {
	// chunks are the document windows in original order.
	chunks []string
	// embeddings are the per-chunk vectors, parallel to chunks.
	embeddings [][]float32
	// enabled gates whether retrieval consults this index.
	enabled bool
}

// NewIndex constructs an enabled Index from parallel chunk and embedding
// slices. The slices must have equal length.
func NewIndex(chunks []string, embeddings [][]float32) (*Index, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("rag: %d chunks but %d embeddings — slices must be parallel", len(chunks), len(embeddings))
	}
	return &Index{chunks: chunks, embeddings: embeddings, enabled: true}, nil
}

// Enabled reports whether retrieval should consult this index.
// A nil Index is disabled.
func (ix *Index) Enabled() bool { return ix != nil && ix.enabled }

// Len returns the number of indexed chunks. A nil Index has zero.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.chunks)
}

// TopK scores every stored embedding against query with Cosine and returns
// the texts of the k best chunks, highest score first. Equal scores are
// broken by ascending original position so results are deterministic.
// A disabled or empty index returns nil without error. k larger than the
// index is clamped; k < 1 returns nil (callers substitute their default
// before calling).
func (ix *Index) TopK(query []float32, k int) []string {
	if !ix.Enabled() || len(ix.chunks) == 0 || k < 1 {
		return nil
	}

	type scored struct {
		pos   int
		score float64
	}
	results := make([]scored, len(ix.embeddings))
	for i, emb := range ix.embeddings {
		results[i] = scored{pos: i, score: Cosine(query, emb)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]string, 0, k)
	for _, r := range results[:k] {
		out = append(out, ix.chunks[r.pos])
	}
	return out
}
