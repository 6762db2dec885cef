package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// payloadIDField mirrors the donor's PAYLOAD_ID_FIELD convention: Qdrant
// point IDs must be UUIDs or positive integers, so a chunk's real ID is
// stashed in the payload and recovered on search (§4.2, grounded on
// _examples/intelligencedev-manifold/internal/persistence/databases/qdrant_vector.go).
const payloadIDField = "_original_id"
const payloadDocumentIDField = "document_id"
const payloadContentField = "content"

// QdrantStore is the primary C2 backend. One instance owns exactly one
// named collection; dimension is fixed at collection-creation time and
// enforced on every insert thereafter.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	metric     string

	mu        sync.RWMutex
	dimension int
}

// QdrantConfig configures one QdrantStore (§4.2's persist_directory concept
// maps to a gRPC endpoint for this backend rather than a filesystem path).
type QdrantConfig struct {
	DSN        string
	Collection string
	Dimension  int
	Metric     string // cosine|l2|euclidean|ip|dot|manhattan
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Collection == "" {
		return nil, ragerrors.Configuration("qdrant collection name is required", nil)
	}
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, ragerrors.Configuration("parse qdrant dsn", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, ragerrors.Configuration("invalid port in qdrant dsn", err)
	}
	clientCfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		clientCfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		clientCfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, ragerrors.ModelInit("create qdrant client", err)
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		metric:     strings.ToLower(strings.TrimSpace(cfg.Metric)),
		dimension:  cfg.Dimension,
	}, nil
}

func (q *QdrantStore) Initialize(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return ragerrors.Retrieval("check qdrant collection exists", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		// Dimension is fixed on first insert when not supplied up front
		// (§4.2 "D is fixed on first insert").
		return nil
	}
	return q.createCollection(ctx, q.dimension)
}

func (q *QdrantStore) createCollection(ctx context.Context, dim int) error {
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: distance,
		}),
	})
	if err != nil {
		return ragerrors.Retrieval("create qdrant collection", err)
	}
	q.mu.Lock()
	q.dimension = dim
	q.mu.Unlock()
	return nil
}

func pointIDFor(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *QdrantStore) AddVectors(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	for _, r := range records {
		if len(r.Embedding) != dim {
			return ragerrors.Retrieval("embeddings in one add_vectors batch must share dimension", nil)
		}
	}

	q.mu.RLock()
	collectionDim := q.dimension
	q.mu.RUnlock()
	if collectionDim == 0 {
		if err := q.createCollection(ctx, dim); err != nil {
			return err
		}
	} else if collectionDim != dim {
		return ragerrors.Retrieval(fmt.Sprintf("embedding dimension %d does not match collection dimension %d", dim, collectionDim), nil)
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		uuidStr := pointIDFor(r.ChunkID)
		payload := map[string]any{
			payloadDocumentIDField: r.DocumentID,
			payloadContentField:    r.Content,
		}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		if uuidStr != r.ChunkID {
			payload[payloadIDField] = r.ChunkID
		}
		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	upsert := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: points})
		return err
	}
	if err := upsert(); err != nil {
		// One retry with a short delay for transient I/O errors (§4.2
		// "transient I/O errors are retried once with a short delay").
		time.Sleep(200 * time.Millisecond)
		if err2 := upsert(); err2 != nil {
			return ragerrors.Retrieval("qdrant upsert failed", err2)
		}
	}
	return nil
}

func (q *QdrantStore) SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter domain.VectorFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	vec := make([]float32, len(queryVector))
	copy(vec, queryVector)

	var queryFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(topK)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, ragerrors.Retrieval("qdrant query failed", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score < threshold {
			continue
		}
		uuidStr := hit.Id.GetUuid()
		chunkID := uuidStr
		documentID := ""
		content := ""
		metadata := map[string]any{}
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadIDField:
					chunkID = v.GetStringValue()
				case payloadDocumentIDField:
					documentID = v.GetStringValue()
				case payloadContentField:
					content = v.GetStringValue()
				default:
					metadata[k] = v.GetStringValue()
				}
			}
		}
		results = append(results, domain.SearchResult{
			ChunkID:         chunkID,
			DocumentID:      documentID,
			Content:         content,
			SimilarityScore: score,
			Metadata:        metadata,
		})
	}
	sortByScoreDesc(results)
	return results, nil
}

func (q *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadDocumentIDField, documentID)},
		}),
	})
	if err != nil {
		return ragerrors.Retrieval("qdrant delete_by_document failed", err)
	}
	return nil
}

func (q *QdrantStore) GetCollectionInfo(ctx context.Context) (domain.CollectionInfo, error) {
	info, err := q.client.GetCollectionInfo(ctx, q.collection)
	if err != nil {
		return domain.CollectionInfo{}, ragerrors.Retrieval("qdrant get_collection_info failed", err)
	}
	q.mu.RLock()
	dim := q.dimension
	q.mu.RUnlock()
	count := int64(0)
	if info.PointsCount != nil {
		count = int64(*info.PointsCount)
	}
	return domain.CollectionInfo{Name: q.collection, Count: count, Dimension: dim}, nil
}

func (q *QdrantStore) Cleanup(ctx context.Context) error {
	return q.client.Close()
}
