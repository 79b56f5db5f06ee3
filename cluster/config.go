package cluster

const (
	// DefaultSimilarityThreshold is the minimum query score for an item to
	// join a seed's cluster
	DefaultSimilarityThreshold = 0.85

	// DefaultMinClusterSize is the smallest member count a cluster may have
	// and still be returned; smaller groups are orphaned
	DefaultMinClusterSize = 5

	// DefaultTopK is the query breadth used for each seed. Generously large
	// so a seed can see every unassigned candidate in a typical batch.
	DefaultTopK = 100
)

// Config holds configuration for the clustering Engine
type Config struct {
	// Embedding generates vectors for item texts. Required.
	Embedding EmbeddingClient

	// Index stores vectors and answers filtered similarity queries. Required.
	Index VectorIndex

	// SimilarityThreshold is the minimum score for cluster membership
	// (0.0 to 1.0). If 0, uses DefaultSimilarityThreshold.
	SimilarityThreshold float32

	// MinClusterSize is the minimum member count for a valid cluster.
	// If 0, uses DefaultMinClusterSize.
	MinClusterSize int

	// TopK is how many matches each seed query requests. If 0, uses DefaultTopK.
	TopK int
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}

	if c.MinClusterSize == 0 {
		c.MinClusterSize = DefaultMinClusterSize
	}

	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
}
