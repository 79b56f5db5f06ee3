package adapters

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iofold/evalcore/clients/pinecone"
	"github.com/iofold/evalcore/clients/voyage"
	"github.com/iofold/evalcore/cluster"
)

// VoyageEmbeddingAdapter adapts the Voyage client to the cluster.EmbeddingClient interface
type VoyageEmbeddingAdapter struct {
	client interface {
		GenerateEmbeddings(ctx context.Context, texts []string, embeddingType voyage.VoyageEmbeddingType) ([][]float32, error)
	}
}

// NewVoyageEmbeddingAdapter creates a new adapter for Voyage AI
func NewVoyageEmbeddingAdapter(apiKey *string) (*VoyageEmbeddingAdapter, error) {
	key, err := loadEnvVar(apiKey, "VOYAGEAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return &VoyageEmbeddingAdapter{
		client: voyage.NewEmbeddingService(*key),
	}, nil
}

// GenerateEmbeddings implements cluster.EmbeddingClient
func (a *VoyageEmbeddingAdapter) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return a.client.GenerateEmbeddings(ctx, texts, voyage.VoyageEmbeddingTypeDefault)
}

// PineconeVectorAdapter adapts the Pinecone client to the cluster.VectorIndex interface
type PineconeVectorAdapter struct {
	index interface {
		Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]pinecone.QueryMatch, error)
		Upsert(ctx context.Context, vectors []pinecone.Vector) (int, error)
		UpdateMetadata(ctx context.Context, vectorID string, metadata *pinecone.Metadata) error
	}
}

// NewPineconeVectorAdapter creates a new adapter for Pinecone
func NewPineconeVectorAdapter(apiKey *string, host *string, namespace string) (*PineconeVectorAdapter, error) {
	key, err := loadEnvVar(apiKey, "PINECONE_API_KEY")
	if err != nil {
		return nil, err
	}

	h, err := loadEnvVar(host, "PINECONE_HOST")
	if err != nil {
		return nil, err
	}

	client, err := pinecone.NewPineconeService(*key)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone service: %w", err)
	}

	index, err := client.ForIndex(*h, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	return &PineconeVectorAdapter{index: index}, nil
}

// UpsertBatch implements cluster.VectorIndex
func (a *PineconeVectorAdapter) UpsertBatch(ctx context.Context, records []cluster.VectorRecord) (int, error) {
	vectors := make([]pinecone.Vector, len(records))
	for i, record := range records {
		metadataStruct, err := structpb.NewStruct(record.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to convert metadata for %s: %w", record.ID, err)
		}
		vectors[i] = pinecone.Vector{
			Id:     record.ID,
			Values: record.Vector,
			Metadata: &pinecone.Metadata{
				Fields: metadataStruct.Fields,
			},
		}
	}

	return a.index.Upsert(ctx, vectors)
}

// Query implements cluster.VectorIndex
func (a *PineconeVectorAdapter) Query(ctx context.Context, vector []float32, params cluster.QueryParams) ([]cluster.Match, error) {
	matches, err := a.index.Search(ctx, vector, params.TopK, params.Filter, params.IncludeMetadata)
	if err != nil {
		return nil, err
	}

	results := make([]cluster.Match, len(matches))
	for i, match := range matches {
		metadata := make(map[string]any)
		if match.Vector != nil && match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}

		results[i] = cluster.Match{
			ID:       match.Vector.Id,
			Score:    match.Score,
			Metadata: metadata,
		}
	}

	return results, nil
}

// UpdateMetadata implements cluster.VectorIndex. Pinecone updates metadata by
// id, so the vector argument is unused here.
func (a *PineconeVectorAdapter) UpdateMetadata(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	metadataStruct, err := structpb.NewStruct(metadata)
	if err != nil {
		return fmt.Errorf("failed to convert metadata for %s: %w", id, err)
	}

	return a.index.UpdateMetadata(ctx, id, &pinecone.Metadata{
		Fields: metadataStruct.Fields,
	})
}

// loadEnvVar loads an environment variable into a pointer if no value is provided
func loadEnvVar(target *string, envKey string) (*string, error) {
	if target != nil && *target != "" {
		return target, nil
	}

	value := os.Getenv(envKey)
	if value == "" {
		return nil, fmt.Errorf("missing %s: pass a value or set the environment variable", envKey)
	}
	return &value, nil
}
