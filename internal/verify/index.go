package verify

import "sort"

// Index is a row-aligned matrix of normalized embedding vectors. Cosine
// similarity reduces to a dot product.
type Index struct {
	vectors [][]float32
}

// NewIndex wraps the vectors; rows must already be L2-normalized.
func NewIndex(vectors [][]float32) *Index {
	return &Index{vectors: vectors}
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Hit is one retrieval result.
type Hit struct {
	Row   int
	Score float32
}

// TopK returns the k most similar rows to query, best first.
func (ix *Index) TopK(query []float32, k int) []Hit {
	if len(ix.vectors) == 0 || k <= 0 {
		return nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}
	hits := make([]Hit, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits[i] = Hit{Row: i, Score: dot(vec, query)}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:k]
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
