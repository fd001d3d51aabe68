package rag

import (
	"math"
	"testing"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	t.Parallel()

	vecs := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{5, 5, 5, 5},
	}
	for _, v := range vecs {
		if got := Cosine(v, v); math.Abs(got-1) > 1e-9 {
			t.Errorf("Cosine(v, v) = %v, want ~1 for %v", got, v)
		}
	}
}

func TestCosine_Symmetric(t *testing.T) {
	t.Parallel()

	a := []float32{0.1, 0.9, -0.4}
	b := []float32{-0.6, 0.2, 0.8}
	if Cosine(a, b) != Cosine(b, a) {
		t.Errorf("Cosine is not symmetric: %v vs %v", Cosine(a, b), Cosine(b, a))
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("Cosine([1,0],[0,1]) = %v, want ~0", got)
	}
}

func TestCosine_MismatchedLengthsTruncate(t *testing.T) {
	t.Parallel()

	// Extra components on the longer vector must be ignored.
	a := []float32{1, 0}
	b := []float32{1, 0, 99, 99}
	if got := Cosine(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine with truncation = %v, want ~1", got)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	t.Parallel()

	got := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("Cosine with zero vector = %v, want finite", got)
	}
}

func TestNewIndex_ParallelMismatch(t *testing.T) {
	t.Parallel()

	if _, err := NewIndex([]string{"a", "b"}, [][]float32{{1}}); err == nil {
		t.Error("expected error for mismatched chunk/embedding lengths")
	}
}

func TestTopK_OrdersByScore(t *testing.T) {
	t.Parallel()

	ix, err := NewIndex(
		[]string{"north", "east", "south"},
		[][]float32{{0, 1}, {1, 0}, {0, -1}},
	)
	if err != nil {
		t.Fatal(err)
	}

	got := ix.TopK([]float32{1, 0.1}, 2)
	want := []string{"east", "north"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("TopK = %v, want %v", got, want)
	}
}

// TestTopK_StableTieBreak verifies that chunks with identical scores are
// returned in ascending original position.
func TestTopK_StableTieBreak(t *testing.T) {
	t.Parallel()

	// All chunks share the same embedding, so every score ties.
	same := []float32{0.5, 0.5}
	ix, err := NewIndex(
		[]string{"first", "second", "third"},
		[][]float32{same, same, same},
	)
	if err != nil {
		t.Fatal(err)
	}

	got := ix.TopK([]float32{1, 1}, 3)
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopK tie order = %v, want %v", got, want)
		}
	}
}

func TestTopK_Deterministic(t *testing.T) {
	t.Parallel()

	ix, err := NewIndex(
		[]string{"a", "b", "c", "d"},
		[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}, {0.5, 0.5}},
	)
	if err != nil {
		t.Fatal(err)
	}

	query := []float32{0.7, 0.3}
	first := ix.TopK(query, 4)
	for i := 0; i < 10; i++ {
		again := ix.TopK(query, 4)
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d position %d: %q != %q", i, j, again[j], first[j])
			}
		}
	}
}

func TestTopK_EmptyAndDisabled(t *testing.T) {
	t.Parallel()

	var nilIndex *Index
	if got := nilIndex.TopK([]float32{1}, 3); got != nil {
		t.Errorf("nil index TopK = %v, want nil", got)
	}

	empty, err := NewIndex(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := empty.TopK([]float32{1}, 3); got != nil {
		t.Errorf("empty index TopK = %v, want nil", got)
	}
}

func TestTopK_KClampedToLen(t *testing.T) {
	t.Parallel()

	ix, err := NewIndex([]string{"only"}, [][]float32{{1}})
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.TopK([]float32{1}, 10); len(got) != 1 {
		t.Errorf("TopK(k=10) returned %d chunks, want 1", len(got))
	}
}
