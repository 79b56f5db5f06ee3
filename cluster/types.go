package cluster

// Item is one unit of input to clustering. Items are immutable.
type Item struct {
	// ID uniquely identifies the item across clustering runs
	ID string

	// Text is the content that gets embedded and compared
	Text string

	// OwnerID scopes the item to the workspace or agent that produced it
	OwnerID string
}

// Status is the assignment state of an item's vector record. The only legal
// transitions are Unassigned -> Clustered and Unassigned -> Orphaned, and the
// engine is the only writer.
type Status int

const (
	StatusUnassigned Status = iota
	StatusClustered
	StatusOrphaned
)

// String returns the metadata representation of the status
func (s Status) String() string {
	switch s {
	case StatusClustered:
		return "clustered"
	case StatusOrphaned:
		return "orphaned"
	default:
		return "unassigned"
	}
}

// ItemState is the tagged assignment state stored alongside each vector.
// ClusterID is set only when Status is StatusClustered.
type ItemState struct {
	Status    Status
	ClusterID string
}

// metadata serializes the state into the flat scalar form the vector index stores
func (s ItemState) metadata(ownerID string) map[string]any {
	md := map[string]any{
		"status":   s.Status.String(),
		"owner_id": ownerID,
	}
	if s.Status == StatusClustered {
		md["cluster_id"] = s.ClusterID
	}
	return md
}

// Cluster is one group produced by a greedy pass. Immutable after creation.
type Cluster struct {
	// ID is the generated cluster identifier
	ID string

	// SeedID is the item whose embedding seeded the cluster query
	SeedID string

	// MemberIDs are the unique item ids in the cluster, in input order
	MemberIDs []string

	// MemberTexts are the texts of the members, aligned with MemberIDs
	MemberTexts []string

	// AverageSimilarity is the mean query score over the non-seed members,
	// or 1.0 when the cluster contains only its seed
	AverageSimilarity float32
}

// ClusterResult is the outcome of one full clustering pass. Every unique input
// item id appears in exactly one of Clusters' members or OrphanedIDs.
type ClusterResult struct {
	Clusters       []Cluster
	OrphanedIDs    []string
	TotalProcessed int
}
