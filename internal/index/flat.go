// Package index holds the exact nearest-neighbour index over corpus text
// embeddings.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrDimension is returned when a vector does not match the index dimension.
var ErrDimension = errors.New("index: vector dimension mismatch")

// Hit is one search result. Position is the corpus position of the vector.
type Hit struct {
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
}

// Searcher returns the k nearest corpus positions for a query vector,
// nearest first.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
}

// Flat is an exact L2 index. Vectors are stored contiguously; position i is
// the i-th vector added. It must not be modified once searches start, after
// which any number of goroutines may search it.
type Flat struct {
	dim   int
	model string
	data  []float32
}

// NewFlat creates an empty index.
func NewFlat(dim int, model string) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim, model: model}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Model names the embedding model the vectors came from.
func (f *Flat) Model() string { return f.model }

// Len returns the number of vectors.
func (f *Flat) Len() int { return len(f.data) / f.dim }

// Add appends one vector and returns its position.
func (f *Flat) Add(vec []float32) (int, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), f.dim)
	}
	f.data = append(f.data, vec...)
	return f.Len() - 1, nil
}

// Vector returns a copy of the vector at position i.
func (f *Flat) Vector(i int) ([]float32, bool) {
	if i < 0 || i >= f.Len() {
		return nil, false
	}
	return append([]float32(nil), f.data[i*f.dim:(i+1)*f.dim]...), true
}

// Search scans every vector and returns the k nearest by squared Euclidean
// distance. Equal distances are ordered by position. k larger than the index
// returns every vector.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(query), f.dim)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Position: i, Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Position < hits[b].Position
	})
	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
