package cluster

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Engine groups semantically similar items with a greedy, seed-based pass over
// a vector index. One call to ClusterItems is atomic from the caller's view:
// it runs to completion or fails with no partial result.
type Engine struct {
	embedding           EmbeddingClient
	index               VectorIndex
	similarityThreshold float32
	minClusterSize      int
	topK                int
}

// NewEngine creates a new clustering Engine with the given configuration
func NewEngine(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	if cfg.Embedding == nil {
		return nil, fmt.Errorf("cluster: embedding client is required")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("cluster: vector index is required")
	}

	return &Engine{
		embedding:           cfg.Embedding,
		index:               cfg.Index,
		similarityThreshold: cfg.SimilarityThreshold,
		minClusterSize:      cfg.MinClusterSize,
		topK:                cfg.TopK,
	}, nil
}

// ClusterItems runs one full greedy clustering pass over the given items.
//
// The pass embeds every text in a single batch, upserts all vectors as
// unassigned, then walks the items in input order treating each still
// unassigned item as a cluster seed. Seeds must be processed sequentially:
// each seed's query depends on which items earlier seeds already claimed.
// Clusters smaller than MinClusterSize are dissolved into the orphan set at
// the end, so every unique input id lands in exactly one of the returned
// clusters or OrphanedIDs.
func (e *Engine) ClusterItems(ctx context.Context, items []Item) (*ClusterResult, error) {
	if len(items) == 0 {
		return &ClusterResult{}, nil
	}

	// Step 1: embed all texts in one batch. Failure aborts the whole pass
	// before any vector state is written.
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	vectors, err := e.embedding.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed items: %w", err)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d items", len(vectors), len(items))
	}

	// Duplicate ids collapse to their first occurrence.
	byID := make(map[string]int, len(items))
	records := make([]VectorRecord, 0, len(items))
	for i, item := range items {
		if _, seen := byID[item.ID]; seen {
			continue
		}
		byID[item.ID] = i
		records = append(records, VectorRecord{
			ID:       item.ID,
			Vector:   vectors[i],
			Metadata: ItemState{Status: StatusUnassigned}.metadata(item.OwnerID),
		})
	}

	// Step 2: upsert every vector as unassigned in one batch call
	if _, err := e.index.UpsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	// Step 3: greedy seed pass, strictly sequential
	assigned := make(map[string]string, len(byID))
	var clusters []Cluster

	for i, item := range items {
		if byID[item.ID] != i {
			continue // duplicate occurrence
		}
		if _, taken := assigned[item.ID]; taken {
			continue
		}

		matches, err := e.index.Query(ctx, vectors[i], QueryParams{
			TopK:            e.topK,
			Filter:          map[string]any{"status": StatusUnassigned.String()},
			IncludeMetadata: true,
		})
		if err != nil {
			return nil, fmt.Errorf("seed query failed for item %s: %w", item.ID, err)
		}

		// Step 4: keep in-batch matches above the threshold that no earlier
		// seed claimed. The seed itself always joins, even when the index
		// omits self-matches, and does not count toward the similarity mean.
		members := map[string]struct{}{item.ID: {}}
		var scoreSum float32
		scored := 0
		for _, m := range matches {
			if m.Score < e.similarityThreshold {
				continue
			}
			if _, inBatch := byID[m.ID]; !inBatch {
				continue
			}
			if _, taken := assigned[m.ID]; taken {
				continue
			}
			if m.ID == item.ID {
				continue
			}
			members[m.ID] = struct{}{}
			scoreSum += m.Score
			scored++
		}

		avgSimilarity := float32(1.0)
		if scored > 0 {
			avgSimilarity = scoreSum / float32(scored)
		}

		// Step 5: record the cluster and mark every member claimed
		clusterID := uuid.New().String()
		memberIDs := make([]string, 0, len(members))
		memberTexts := make([]string, 0, len(members))
		for j, candidate := range items {
			if byID[candidate.ID] != j {
				continue
			}
			if _, ok := members[candidate.ID]; !ok {
				continue
			}
			memberIDs = append(memberIDs, candidate.ID)
			memberTexts = append(memberTexts, candidate.Text)
			assigned[candidate.ID] = clusterID

			state := ItemState{Status: StatusClustered, ClusterID: clusterID}
			if err := e.index.UpdateMetadata(ctx, candidate.ID, vectors[j], state.metadata(candidate.OwnerID)); err != nil {
				return nil, fmt.Errorf("failed to mark item %s clustered: %w", candidate.ID, err)
			}
		}

		clusters = append(clusters, Cluster{
			ID:                clusterID,
			SeedID:            item.ID,
			MemberIDs:         memberIDs,
			MemberTexts:       memberTexts,
			AverageSimilarity: avgSimilarity,
		})
	}

	// Step 6: dissolve clusters below the minimum size into the orphan set
	result := &ClusterResult{TotalProcessed: len(byID)}
	for _, c := range clusters {
		if len(c.MemberIDs) >= e.minClusterSize {
			result.Clusters = append(result.Clusters, c)
			continue
		}

		for _, id := range c.MemberIDs {
			item := items[byID[id]]
			state := ItemState{Status: StatusOrphaned}
			if err := e.index.UpdateMetadata(ctx, id, vectors[byID[id]], state.metadata(item.OwnerID)); err != nil {
				return nil, fmt.Errorf("failed to mark item %s orphaned: %w", id, err)
			}
			result.OrphanedIDs = append(result.OrphanedIDs, id)
		}
	}

	return result, nil
}
