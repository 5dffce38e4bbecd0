package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"carbon-registry/certification-service/internal/domain"
)

type memoryStore struct {
	mu        sync.RWMutex
	proofs    map[uuid.UUID]domain.Proof
	decisions []domain.DecisionRecord
}

func NewMemoryStore() Store {
	return &memoryStore{proofs: make(map[uuid.UUID]domain.Proof)}
}

func (s *memoryStore) CreateProof(ctx context.Context, proof *domain.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs[proof.ID] = *proof
	return nil
}

func (s *memoryStore) GetProofByID(ctx context.Context, id uuid.UUID) (*domain.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proofs[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memoryStore) UpdateProof(ctx context.Context, proof *domain.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proofs[proof.ID]; !ok {
		return domain.NewNotFoundError("proof", proof.ID)
	}
	s.proofs[proof.ID] = *proof
	return nil
}

func (s *memoryStore) ListProofs(ctx context.Context, projectID uuid.UUID, status *domain.ProofStatus) ([]domain.Proof, error) {
	s.mu.RLock()
	proofs := []domain.Proof{}
	for _, p := range s.proofs {
		if p.ProjectID != projectID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		proofs = append(proofs, p)
	}
	s.mu.RUnlock()

	sort.Slice(proofs, func(i, j int) bool {
		if proofs[i].SubmittedAt.Equal(proofs[j].SubmittedAt) {
			return proofs[i].ID.String() < proofs[j].ID.String()
		}
		return proofs[i].SubmittedAt.Before(proofs[j].SubmittedAt)
	})
	return proofs, nil
}

func (s *memoryStore) CountForProject(ctx context.Context, projectID uuid.UUID) (*ProofCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := &ProofCounts{}
	for _, p := range s.proofs {
		if p.ProjectID != projectID {
			continue
		}
		counts.Total++
		if p.Status == domain.ProofPending {
			counts.Pending++
		}
	}
	return counts, nil
}

func (s *memoryStore) CountPending(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.proofs {
		if p.Status == domain.ProofPending {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) AppendDecision(ctx context.Context, record *domain.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, *record)
	return nil
}

func (s *memoryStore) ListDecisions(ctx context.Context, projectID uuid.UUID) ([]domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := []domain.DecisionRecord{}
	for _, r := range s.decisions {
		if r.ProjectID == projectID {
			records = append(records, r)
		}
	}
	return records, nil
}
