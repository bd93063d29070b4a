package index

import (
	"context"
	"errors"
	"testing"
)

func vec(dim int, vals ...float32) []float32 {
	v := make([]float32, dim)
	copy(v, vals)
	return v
}

// TestQuerySelfMatch verifies that inserting a descriptor and querying it
// back returns that descriptor with distance exactly 0.
func TestQuerySelfMatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)

	if err := idx.Insert(ctx, "a", vec(4, 0.1, 0.2, 0.3, 0.4)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(ctx, "b", vec(4, 0.9, 0.8, 0.7, 0.6)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := idx.Query(ctx, vec(4, 0.1, 0.2, 0.3, 0.4), 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 neighbor, got %d", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("Expected neighbor a, got %s", got[0].ID)
	}
	if got[0].Distance != 0 {
		t.Errorf("Self-match distance should be exactly 0, got %v", got[0].Distance)
	}
}

// TestQueryTieBreak verifies that equal distances break ties by ascending
// identifier so results are reproducible.
func TestQueryTieBreak(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	// b and a are equidistant from the origin query
	if err := idx.Insert(ctx, "b", vec(2, 1, 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(ctx, "a", vec(2, 0, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := idx.Query(ctx, vec(2, 0, 0), 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 neighbors, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Expected tie broken by ID (a, b), got (%s, %s)", got[0].ID, got[1].ID)
	}
	if got[0].Distance != got[1].Distance {
		t.Errorf("Expected equal distances, got %v and %v", got[0].Distance, got[1].Distance)
	}
}

// TestQueryEmptyIndex verifies an empty index yields an empty result, not
// an error.
func TestQueryEmptyIndex(t *testing.T) {
	idx := NewMemoryIndex(4)

	got, err := idx.Query(context.Background(), vec(4), 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d neighbors", len(got))
	}
}

// TestQueryKClamping verifies k larger than the index size returns all
// entries and k<=0 returns none.
func TestQueryKClamping(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	for _, id := range []string{"x", "y", "z"} {
		if err := idx.Insert(ctx, id, vec(2, float32(len(id)), 0)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := idx.Query(ctx, vec(2), 100)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected all 3 entries for oversized k, got %d", len(got))
	}

	got, err = idx.Query(ctx, vec(2), 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no entries for k=0, got %d", len(got))
	}
}

// TestDimensionMismatch verifies wrong-length descriptors are rejected on
// both insert and query.
func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(4)

	if err := idx.Insert(ctx, "a", vec(3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch on insert, got %v", err)
	}
	if _, err := idx.Query(ctx, vec(5), 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch on query, got %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Rejected insert should not change index size, got %d", idx.Len())
	}
}

// TestInsertReplaces verifies re-inserting an ID overwrites instead of
// duplicating.
func TestInsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	if err := idx.Insert(ctx, "a", vec(2, 1, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(ctx, "a", vec(2, 5, 5)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Expected 1 entry after re-insert, got %d", idx.Len())
	}

	got, err := idx.Query(ctx, vec(2, 5, 5), 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got[0].Distance != 0 {
		t.Errorf("Expected updated vector to self-match, distance %v", got[0].Distance)
	}
}

// TestInsertCopiesDescriptor verifies later mutation of the caller's slice
// does not corrupt the stored vector.
func TestInsertCopiesDescriptor(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	v := vec(2, 1, 2)
	if err := idx.Insert(ctx, "a", v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v[0] = 99

	got, err := idx.Query(ctx, vec(2, 1, 2), 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got[0].Distance != 0 {
		t.Errorf("Stored vector should be unaffected by caller mutation, distance %v", got[0].Distance)
	}
}
