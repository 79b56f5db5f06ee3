package cluster

import "context"

// EmbeddingClient generates vector embeddings for batches of text
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorRecord is a vector plus its scalar metadata, as stored in the index
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Match represents a single match from a vector index query
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// QueryParams controls a vector index query
type QueryParams struct {
	TopK            int
	Filter          map[string]any
	IncludeMetadata bool
}

// VectorIndex performs vector storage, filtered similarity search and
// per-vector metadata updates
type VectorIndex interface {
	UpsertBatch(ctx context.Context, records []VectorRecord) (int, error)
	Query(ctx context.Context, vector []float32, params QueryParams) ([]Match, error)
	UpdateMetadata(ctx context.Context, id string, vector []float32, metadata map[string]any) error
}
