package index

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// stubPointsClient records upserts without a live qdrant. Embedding the
// interface leaves the unused methods unimplemented.
type stubPointsClient struct {
	pb.PointsClient
	upserts int
}

func (s *stubPointsClient) Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	s.upserts++
	return &pb.PointsOperationResponse{}, nil
}

// TestQdrantLenCountsDistinctIDs verifies re-inserting an ID (resume
// reprocessing the in-flight chunk) upserts without growing Len.
func TestQdrantLenCountsDistinctIDs(t *testing.T) {
	stub := &stubPointsClient{}
	q := &QdrantIndex{
		pointsClient: stub,
		collection:   "test",
		dim:          4,
		known:        make(map[string]struct{}),
	}
	ctx := context.Background()

	desc := []float32{0.25, 0.25, 0.25, 0.25}
	for _, id := range []string{"a", "a", "b"} {
		if err := q.Insert(ctx, id, desc); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}

	if stub.upserts != 3 {
		t.Errorf("Expected 3 upserts sent, got %d", stub.upserts)
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 distinct descriptors, got %d", q.Len())
	}
}

// TestQdrantInsertDimensionMismatch verifies wrong-length descriptors are
// rejected before any remote call.
func TestQdrantInsertDimensionMismatch(t *testing.T) {
	stub := &stubPointsClient{}
	q := &QdrantIndex{
		pointsClient: stub,
		collection:   "test",
		dim:          4,
		known:        make(map[string]struct{}),
	}

	if err := q.Insert(context.Background(), "a", []float32{1, 2}); err == nil {
		t.Fatal("Expected dimension mismatch error")
	}
	if stub.upserts != 0 {
		t.Errorf("Mismatched insert must not reach the backend, got %d upserts", stub.upserts)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty index, got %d", q.Len())
	}
}
