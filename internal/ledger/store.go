package ledger

import (
	"context"

	"github.com/google/uuid"

	"carbon-registry/certification-service/internal/domain"
)

// ProofCounts is the per-project proof tally used by project summaries.
type ProofCounts struct {
	Total   int `db:"total"`
	Pending int `db:"pending"`
}

// Store is the persistence boundary of the proof ledger. Proofs are
// append-only apart from the single Pending -> Verified/Rejected decision
// update; decision records are strictly append-only.
type Store interface {
	CreateProof(ctx context.Context, proof *domain.Proof) error
	GetProofByID(ctx context.Context, id uuid.UUID) (*domain.Proof, error)
	UpdateProof(ctx context.Context, proof *domain.Proof) error
	ListProofs(ctx context.Context, projectID uuid.UUID, status *domain.ProofStatus) ([]domain.Proof, error)
	CountForProject(ctx context.Context, projectID uuid.UUID) (*ProofCounts, error)
	CountPending(ctx context.Context) (int, error)

	AppendDecision(ctx context.Context, record *domain.DecisionRecord) error
	ListDecisions(ctx context.Context, projectID uuid.UUID) ([]domain.DecisionRecord, error)
}
