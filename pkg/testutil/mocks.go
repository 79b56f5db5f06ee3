// Package testutil provides mock implementations of the engine interfaces for
// testing without live providers.
package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/iofold/evalcore/agreement"
	"github.com/iofold/evalcore/cluster"
	"github.com/iofold/evalcore/monitor"
)

// MockEmbeddingClient is a mock implementation of cluster.EmbeddingClient
type MockEmbeddingClient struct {
	GenerateEmbeddingsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	CallCount int
	LastTexts []string
}

func (m *MockEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTexts = texts
	m.mu.Unlock()

	if m.GenerateEmbeddingsFunc != nil {
		return m.GenerateEmbeddingsFunc(ctx, texts)
	}

	// Default: identical texts get identical unit vectors, distinct texts
	// get near-orthogonal ones
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 8)
		h := 0
		for _, r := range text {
			h = h*31 + int(r)
		}
		vec[(h%8+8)%8] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

// MockVectorIndex is an in-memory implementation of cluster.VectorIndex.
// Its default Query computes cosine similarity over the stored vectors and
// honors equality filters on metadata, so clustering tests only need to pick
// embeddings.
type MockVectorIndex struct {
	UpsertBatchFunc    func(ctx context.Context, records []cluster.VectorRecord) (int, error)
	QueryFunc          func(ctx context.Context, vector []float32, params cluster.QueryParams) ([]cluster.Match, error)
	UpdateMetadataFunc func(ctx context.Context, id string, vector []float32, metadata map[string]any) error

	mu          sync.Mutex
	Records     map[string]cluster.VectorRecord
	QueryCount  int
	UpsertCount int
	UpdateCount int
}

func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{Records: make(map[string]cluster.VectorRecord)}
}

func (m *MockVectorIndex) UpsertBatch(ctx context.Context, records []cluster.VectorRecord) (int, error) {
	m.mu.Lock()
	m.UpsertCount++
	m.mu.Unlock()

	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, records)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		m.Records[record.ID] = cluster.VectorRecord{
			ID:       record.ID,
			Vector:   record.Vector,
			Metadata: cloneMetadata(record.Metadata),
		}
	}
	return len(records), nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, params cluster.QueryParams) ([]cluster.Match, error) {
	m.mu.Lock()
	m.QueryCount++
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, vector, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []cluster.Match
	for _, record := range m.Records {
		if !matchesFilter(record.Metadata, params.Filter) {
			continue
		}
		matches = append(matches, cluster.Match{
			ID:       record.ID,
			Score:    cosine(vector, record.Vector),
			Metadata: cloneMetadata(record.Metadata),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if params.TopK > 0 && len(matches) > params.TopK {
		matches = matches[:params.TopK]
	}
	return matches, nil
}

func (m *MockVectorIndex) UpdateMetadata(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	m.mu.Lock()
	m.UpdateCount++
	m.mu.Unlock()

	if m.UpdateMetadataFunc != nil {
		return m.UpdateMetadataFunc(ctx, id, vector, metadata)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.Records[id]
	if !ok {
		return fmt.Errorf("vector %s not found", id)
	}
	record.Metadata = cloneMetadata(metadata)
	m.Records[id] = record
	return nil
}

// StatusOf returns the stored status metadata for an id, for assertions
func (m *MockVectorIndex) StatusOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.Records[id]
	if !ok {
		return ""
	}
	status, _ := record.Metadata["status"].(string)
	return status
}

func cloneMetadata(metadata map[string]any) map[string]any {
	clone := make(map[string]any, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}

func matchesFilter(metadata, filter map[string]any) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// MockJudgeRunner is a mock implementation of agreement.JudgeRunner
type MockJudgeRunner struct {
	RunFunc func(ctx context.Context, candidateSpec string, trace agreement.LabeledTrace) (*agreement.Verdict, error)

	mu        sync.Mutex
	CallCount int
}

func (m *MockJudgeRunner) Run(ctx context.Context, candidateSpec string, trace agreement.LabeledTrace) (*agreement.Verdict, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, candidateSpec, trace)
	}
	return &agreement.Verdict{Score: 1, Feedback: "ok"}, nil
}

// MemoryMetricsStore is an in-memory implementation of monitor.MetricsStore
type MemoryMetricsStore struct {
	mu         sync.Mutex
	Settings   map[string]monitor.JudgeSettings
	Executions []monitor.ExecutionRecord
	Alerts     map[string]*monitor.PerformanceAlert
	Snapshots  map[string]monitor.Snapshot
	Cooldowns  map[string]monitor.AutoRefineCooldown

	// FailFor makes every read for the given judge id fail, to test cycle
	// error isolation
	FailFor string
}

func NewMemoryMetricsStore() *MemoryMetricsStore {
	return &MemoryMetricsStore{
		Settings:  make(map[string]monitor.JudgeSettings),
		Alerts:    make(map[string]*monitor.PerformanceAlert),
		Snapshots: make(map[string]monitor.Snapshot),
		Cooldowns: make(map[string]monitor.AutoRefineCooldown),
	}
}

func (m *MemoryMetricsStore) JudgeIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.Settings))
	for id := range m.Settings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryMetricsStore) JudgeSettings(ctx context.Context, judgeID string) (*monitor.JudgeSettings, error) {
	if judgeID == m.FailFor && m.FailFor != "" {
		return nil, fmt.Errorf("store failure for judge %s", judgeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.Settings[judgeID]
	if !ok {
		return &monitor.JudgeSettings{JudgeID: judgeID}, nil
	}
	return &settings, nil
}

func (m *MemoryMetricsStore) ExecutionRecords(ctx context.Context, judgeID string, since time.Time) ([]monitor.ExecutionRecord, error) {
	if judgeID == m.FailFor && m.FailFor != "" {
		return nil, fmt.Errorf("store failure for judge %s", judgeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []monitor.ExecutionRecord
	for _, rec := range m.Executions {
		if rec.JudgeID != judgeID {
			continue
		}
		if !since.IsZero() && rec.ExecutedAt.Before(since) {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ExecutedAt.Before(records[j].ExecutedAt)
	})
	return records, nil
}

func (m *MemoryMetricsStore) UnresolvedAlert(ctx context.Context, judgeID string, alertType monitor.AlertType) (*monitor.PerformanceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range m.Alerts {
		if alert.JudgeID == judgeID && alert.Type == alertType && alert.ResolvedAt == nil {
			clone := *alert
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MemoryMetricsStore) InsertAlert(ctx context.Context, alert *monitor.PerformanceAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *alert
	m.Alerts[alert.ID] = &clone
	return nil
}

func (m *MemoryMetricsStore) UpdateAlert(ctx context.Context, alert *monitor.PerformanceAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Alerts[alert.ID]
	if !ok {
		return fmt.Errorf("alert %s not found", alert.ID)
	}
	existing.Severity = alert.Severity
	existing.CurrentValue = alert.CurrentValue
	existing.ThresholdValue = alert.ThresholdValue
	existing.Message = alert.Message
	return nil
}

func (m *MemoryMetricsStore) MarkAlertAcknowledged(ctx context.Context, alertID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.Alerts[alertID]
	if !ok {
		return fmt.Errorf("alert %s not found", alertID)
	}
	alert.AcknowledgedAt = &at
	return nil
}

func (m *MemoryMetricsStore) MarkAlertResolved(ctx context.Context, alertID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.Alerts[alertID]
	if !ok {
		return fmt.Errorf("alert %s not found", alertID)
	}
	alert.ResolvedAt = &at
	return nil
}

func (m *MemoryMetricsStore) UpsertSnapshot(ctx context.Context, snapshot monitor.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots[snapshot.JudgeID+"|"+snapshot.Date] = snapshot
	return nil
}

func (m *MemoryMetricsStore) Cooldown(ctx context.Context, judgeID string) (*monitor.AutoRefineCooldown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cooldown, ok := m.Cooldowns[judgeID]
	if !ok {
		return nil, nil
	}
	return &cooldown, nil
}

func (m *MemoryMetricsStore) UpsertCooldown(ctx context.Context, cooldown monitor.AutoRefineCooldown) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cooldowns[cooldown.JudgeID] = cooldown
	return nil
}
