package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"vegcensus/internal/pipeline"
)

type resultKey struct {
	runID  string
	siteID string
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps results in process memory. Snapshots are kept as encoded
// JSON so loads return independent copies, matching the durable backends.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[resultKey][]byte
	records map[resultKey]RunRecord
}

// NewMemory constructs an empty in-memory result store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		results: make(map[resultKey][]byte),
		records: make(map[resultKey]RunRecord),
	}
}

func (s *MemoryStore) SaveResult(_ context.Context, res *pipeline.SiteResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	key := resultKey{runID: res.RunID, siteID: res.SiteID}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = payload
	s.records[key] = RunRecord{
		RunID:       res.RunID,
		SiteID:      res.SiteID,
		GeneratedAt: res.GeneratedAt,
		PlotYears:   len(res.PlotSummary),
	}
	return nil
}

func (s *MemoryStore) LoadResult(_ context.Context, runID, siteID string) (*pipeline.SiteResult, error) {
	s.mu.RLock()
	payload, ok := s.results[resultKey{runID: runID, siteID: siteID}]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s site %s: %w", runID, siteID, ErrNoResult)
	}
	var res pipeline.SiteResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (s *MemoryStore) ListResults(_ context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	records := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	s.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool {
		if records[i].RunID != records[j].RunID {
			return records[i].RunID < records[j].RunID
		}
		return records[i].SiteID < records[j].SiteID
	})
	return records, nil
}

func (s *MemoryStore) Close() error { return nil }
