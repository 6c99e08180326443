package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/index"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// pointNamespace seeds deterministic point IDs so re-indexing a corpus
// overwrites its previous points.
var pointNamespace = uuid.MustParse("6f1c6c52-3b0e-4f57-9a55-6d79676f7265")

// apiKeyInterceptor adds the Qdrant Cloud api-key header to every call.
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository keeps corpus line vectors in a Qdrant collection and
// serves nearest-neighbour queries with Euclidean distance.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

var _ index.Searcher = (*QdrantRepository)(nil)

// NewQdrantRepository connects to Qdrant. TLS is used when an API key is set
// or use_tls is true.
// Parameters:
//   - cfg: qdrant section of the configuration.
//   - dim: vector size of the collection.
//
// Returns:
//   - *QdrantRepository: repository bound to cfg.Collection.
//   - error: non-nil if the gRPC client cannot be created.
func NewQdrantRepository(cfg *config.QdrantConfig, dim int) (*QdrantRepository, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("qdrant: vector dimension must be positive, got %d", dim)
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS13,
		})))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: dim,
	}, nil
}

// Close closes the gRPC connection.
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and checks the
// vector size of an existing one.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
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
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil || params.GetSize() == 0 {
		return 0, false
	}
	return params.GetSize(), true
}

// LinePoint is one corpus line to index.
type LinePoint struct {
	Position int
	Text     string
	Tones    []string
	Vector   []float32
}

// PointID returns the stable point ID of a corpus position.
func (r *QdrantRepository) PointID(position int) string {
	return uuid.NewSHA1(pointNamespace, []byte(r.collectionName+":"+strconv.Itoa(position))).String()
}

// Upsert writes points in one request.
func (r *QdrantRepository) Upsert(ctx context.Context, points []LinePoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != r.vectorDimension {
			return fmt.Errorf("%w: position %d has %d values, collection expects %d", index.ErrDimension, p.Position, len(p.Vector), r.vectorDimension)
		}
		structs = append(structs, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.PointID(p.Position)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: linePayload(p),
		})
	}

	wait := true
	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func linePayload(p LinePoint) map[string]*pb.Value {
	tones := make([]*pb.Value, len(p.Tones))
	for i, t := range p.Tones {
		tones[i] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: t}}
	}
	return map[string]*pb.Value{
		"position": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Position)}},
		"text":     {Kind: &pb.Value_StringValue{StringValue: p.Text}},
		"tones":    {Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: tones}}},
	}
}

// Search returns the k nearest corpus positions. Qdrant reports Euclidean
// distance; it is squared here to match the flat index.
func (r *QdrantRepository) Search(ctx context.Context, query []float32, k int) ([]index.Hit, error) {
	if len(query) != r.vectorDimension {
		return nil, fmt.Errorf("%w: query has %d values, collection expects %d", index.ErrDimension, len(query), r.vectorDimension)
	}
	if k <= 0 {
		return []index.Hit{}, nil
	}

	resp, err := r.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Include{
				Include: &pb.PayloadIncludeSelector{Fields: []string{"position"}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return hitsFromScored(resp.GetResult()), nil
}

func hitsFromScored(scored []*pb.ScoredPoint) []index.Hit {
	hits := make([]index.Hit, 0, len(scored))
	for _, sp := range scored {
		v, ok := sp.GetPayload()["position"]
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{
			Position: int(v.GetIntegerValue()),
			Distance: sp.GetScore() * sp.GetScore(),
		})
	}
	return hits
}
