package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/chloe/pkg/adapters/storage"
	"github.com/aescanero/chloe/pkg/domain"
)

// RunStore implements ports.RunStore in memory. Records are stored
// serialized so callers never share memory with the store.
type RunStore struct {
	mu   sync.RWMutex
	seq  uint64
	runs map[string]storedRun
}

type storedRun struct {
	data []byte
	seq  uint64
}

// NewRunStore creates a new in-memory run store
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]storedRun),
	}
}

// Save creates or replaces a run record
func (s *RunStore) Save(ctx context.Context, record *domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[record.ID]
	if !ok {
		s.seq++
		stored.seq = s.seq
	}
	stored.data = data
	s.runs[record.ID] = stored
	return nil
}

// Get retrieves a run record
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	stored, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(stored.data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &record, nil
}

// Delete removes a run record
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, runID)
	return nil
}

// List returns the stored run IDs, most recently created first
func (s *RunStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.runs[ids[i]].seq > s.runs[ids[j]].seq
	})
	return ids, nil
}
