package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/services/pipeline/domain"
)

type leaseKey struct {
	timestamp string
	variant   product.Variant
}

// Memory is a process-local domain.StorageRepo for runs without a SQL backend
type Memory struct {
	mu     sync.Mutex
	runs   map[string]domain.Run
	leases map[leaseKey]string
}

// NewMemory returns an empty in-process ledger
func NewMemory() *Memory {
	return &Memory{runs: map[string]domain.Run{}, leases: map[leaseKey]string{}}
}

func (m *Memory) CreateRun(_ context.Context, r domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; ok {
		return perr.Conflictf("run %s already exists", r.ID)
	}
	r.Files = nil
	m.runs[r.ID] = r
	return nil
}

func (m *Memory) FinishRun(_ context.Context, r domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.runs[r.ID]
	if !ok {
		return perr.NotFoundf("run %s was never created", r.ID)
	}
	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = r.FinishedAt.UTC()
	}
	cur.Status, cur.Error, cur.FinishedAt = r.Status, r.Error, &finished
	m.runs[r.ID] = cur
	return nil
}

func (m *Memory) Run(_ context.Context, id string) (domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return domain.Run{}, perr.WithField(perr.NotFoundf("run %s", id), "id")
	}
	return r, nil
}

func (m *Memory) Runs(_ context.Context, timestamp string) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Run
	for _, r := range m.runs {
		if r.Timestamp == timestamp {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Claim(_ context.Context, timestamp string, v product.Variant, runID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := leaseKey{timestamp, v}
	if _, held := m.leases[k]; held {
		return false, nil
	}
	m.leases[k] = runID
	return true, nil
}

func (m *Memory) Release(_ context.Context, timestamp string, v product.Variant, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := leaseKey{timestamp, v}
	if m.leases[k] == runID {
		delete(m.leases, k)
	}
	return nil
}
