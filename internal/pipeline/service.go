package pipeline

import (
	"sync"
	"time"

	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
)

// Snapshot is one computed run of the index, held in memory for the API.
type Snapshot struct {
	Table      *dataset.Table
	Result     *composite.Result
	ComputedAt time.Time
}

// Service owns the latest snapshot. Refresh replaces it atomically, so
// API reads never observe a half-built run.
type Service struct {
	pipe *Pipeline

	mu   sync.RWMutex
	snap *Snapshot
}

// NewService creates a snapshot service over the pipeline.
func NewService(pipe *Pipeline) *Service {
	return &Service{pipe: pipe}
}

// Refresh recomputes the index and swaps in the new snapshot.
func (s *Service) Refresh() error {
	t, res, err := s.pipe.Run()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snap = &Snapshot{Table: t, Result: res, ComputedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Snapshot returns the latest computed snapshot, or false before the
// first successful refresh.
func (s *Service) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, false
	}
	return s.snap, true
}
