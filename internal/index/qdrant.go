package index

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// QdrantConfig holds configuration for the remote index connection.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	APIKey     string // Qdrant Cloud API key (enables TLS automatically)
	UseTLS     bool   // Explicitly enable TLS without API key
	Dimension  int
}

// apiKeyInterceptor creates a unary interceptor that adds the API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantIndex is a remote Index implementation over qdrant's grpc API.
// It is substituted for the linear scan when configured and reachable;
// the selection happens once at startup and never mixes within a run.
type QdrantIndex struct {
	conn          *grpc.ClientConn
	pointsClient  pb.PointsClient
	collectClient pb.CollectionsClient
	collection    string
	dim           int

	mu    sync.Mutex
	known map[string]struct{}
}

// NewQdrantIndex connects to qdrant. Supports both local deployments
// (insecure) and Qdrant Cloud (TLS + API key).
func NewQdrantIndex(cfg *QdrantConfig) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var opts []grpc.DialOption
	useTLS := cfg.UseTLS || cfg.APIKey != ""
	if useTLS {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantIndex{
		conn:          conn,
		pointsClient:  pb.NewPointsClient(conn),
		collectClient: pb.NewCollectionsClient(conn),
		collection:    cfg.Collection,
		dim:           cfg.Dimension,
		known:         make(map[string]struct{}),
	}, nil
}

// Close closes the grpc connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// EnsureCollection creates the collection if missing and verifies the
// vector size of an existing one matches the configured dimension.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	info, err := q.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: q.collection,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(q.dim) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", q.collection, size, q.dim)
			}
		}
		return nil
	}

	_, err = q.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.dim),
					Distance: pb.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}
	config := info.GetConfig()
	if config == nil {
		return 0, false
	}
	params := config.GetParams()
	if params == nil {
		return 0, false
	}
	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

// pointID derives a deterministic qdrant UUID from a record identifier.
func pointID(id string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(id)).String()
}

// Insert upserts a descriptor keyed by the record identifier.
func (q *QdrantIndex) Insert(ctx context.Context, id string, descriptor []float32) error {
	if len(descriptor) != q.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(descriptor), q.dim)
	}

	points := []*pb.PointStruct{
		{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: descriptor},
				},
			},
			Payload: map[string]*pb.Value{
				"record_id": {Kind: &pb.Value_StringValue{StringValue: id}},
			},
		},
	}

	_, err := q.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	q.mu.Lock()
	q.known[id] = struct{}{}
	q.mu.Unlock()
	return nil
}

// Query performs a remote nearest-neighbor search.
func (q *QdrantIndex) Query(ctx context.Context, descriptor []float32, k int) ([]Neighbor, error) {
	if len(descriptor) != q.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(descriptor), q.dim)
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}

	resp, err := q.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         descriptor,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(resp.Result))
	for _, scored := range resp.Result {
		id := scored.Id.GetUuid()
		if payload := scored.Payload; payload != nil {
			if v, ok := payload["record_id"]; ok {
				id = v.GetStringValue()
			}
		}
		neighbors = append(neighbors, Neighbor{ID: id, Distance: float64(scored.Score)})
	}
	return neighbors, nil
}

// Len returns the number of distinct descriptors inserted through this
// handle. Re-inserting an ID is an upsert and does not grow the count.
func (q *QdrantIndex) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.known)
}
