// Package chunker splits raw text into overlapping fixed-size windows for
// retrieval indexing. Chunking is a pure function of its inputs so an index
// built from the same document is always identical.
package chunker

import "fmt"

const (
	// DefaultSize is the chunk window length in characters.
	DefaultSize = 1200
	// DefaultOverlap is the number of characters consecutive windows share.
	DefaultOverlap = 200
)

// Chunk splits text into windows of size characters, each subsequent window
// starting size-overlap characters after the previous one. The final window
// may be shorter when it reaches the end of the text; an empty trailing
// chunk is never emitted. Empty input yields no chunks.
//
// size must be positive and overlap must satisfy 0 <= overlap < size —
// an overlap of size or more would never advance.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be in [0,%d), got %d", size, overlap)
	}

	var chunks []string
	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks, nil
}
