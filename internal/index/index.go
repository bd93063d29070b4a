package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a descriptor's length differs from
// the index dimension F. It indicates index corruption risk and is surfaced
// immediately rather than recorded as an item failure.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Neighbor is one nearest-neighbor result. Distance is Euclidean; lower is
// closer and identical descriptors have distance exactly 0.
type Neighbor struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Index answers nearest-neighbor queries over fixed-length descriptors.
// Implementations must be deterministic: equal distances break ties by
// ascending identifier. The linear in-memory index is the default; remote
// implementations can be substituted behind this interface.
type Index interface {
	Insert(ctx context.Context, id string, descriptor []float32) error
	Query(ctx context.Context, descriptor []float32, k int) ([]Neighbor, error)
	Len() int
}

// MemoryIndex is a linear-scan index. At the target scale (hundreds to low
// thousands of descriptors) a full scan is fast enough and keeps distance
// computation exactly reproducible. The orchestrator is the only writer;
// concurrent readers are safe at any time.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float32
}

// NewMemoryIndex creates an empty index for descriptors of length dim.
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{
		dim:     dim,
		vectors: make(map[string][]float32),
	}
}

// Insert stores a descriptor under id, replacing any previous entry.
func (idx *MemoryIndex) Insert(_ context.Context, id string, descriptor []float32) error {
	if len(descriptor) != idx.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(descriptor), idx.dim)
	}

	vec := make([]float32, len(descriptor))
	copy(vec, descriptor)

	idx.mu.Lock()
	idx.vectors[id] = vec
	idx.mu.Unlock()
	return nil
}

// Query returns the k nearest identifiers by Euclidean distance, ties
// broken by ascending identifier. An empty index yields an empty result.
func (idx *MemoryIndex) Query(_ context.Context, descriptor []float32, k int) ([]Neighbor, error) {
	if len(descriptor) != idx.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(descriptor), idx.dim)
	}

	idx.mu.RLock()
	neighbors := make([]Neighbor, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		neighbors = append(neighbors, Neighbor{ID: id, Distance: euclidean(descriptor, vec)})
	}
	idx.mu.RUnlock()

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ID < neighbors[j].ID
	})

	if k < 0 {
		k = 0
	}
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

// Len returns the number of stored descriptors.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	if sum == 0 {
		return 0
	}
	return math.Sqrt(sum)
}
