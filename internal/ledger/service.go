package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/evidence"
	"carbon-registry/certification-service/internal/registry"
	"carbon-registry/certification-service/pkg/locks"
	"carbon-registry/certification-service/pkg/workflows"
)

type SubmitProofRequest struct {
	ProjectID    uuid.UUID `json:"project_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	EvidenceRefs []string  `json:"evidence_refs"`
}

type ProofFilter struct {
	Status *domain.ProofStatus
}

// Service stores proofs and exposes the one-way verify/reject decisions.
// RecordDecision is the append-only audit hook also used by the
// certification engine.
type Service interface {
	SubmitProof(ctx context.Context, req SubmitProofRequest) (*domain.Proof, error)
	VerifyProof(ctx context.Context, proofID uuid.UUID, actor domain.Actor) error
	RejectProof(ctx context.Context, proofID uuid.UUID, actor domain.Actor, reason string) error
	ListProofs(ctx context.Context, projectID uuid.UUID, filter ProofFilter) ([]domain.Proof, error)
	ProofCounts(ctx context.Context, projectID uuid.UUID) (*ProofCounts, error)
	ListDecisions(ctx context.Context, projectID uuid.UUID) ([]domain.DecisionRecord, error)
	RecordDecision(ctx context.Context, record *domain.DecisionRecord) error
}

type proofService struct {
	store        Store
	registry     registry.Service
	evidence     evidence.Store
	stateMachine *workflows.StateMachine
	proofLocks   *locks.Keyed
	logger       *zap.Logger
}

func NewService(store Store, reg registry.Service, ev evidence.Store, logger *zap.Logger) Service {
	return &proofService{
		store:        store,
		registry:     reg,
		evidence:     ev,
		stateMachine: workflows.NewProofStateMachine(),
		proofLocks:   locks.NewKeyed(),
		logger:       logger,
	}
}

func (s *proofService) SubmitProof(ctx context.Context, req SubmitProofRequest) (*domain.Proof, error) {
	if req.Title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if req.Description == "" {
		return nil, domain.NewValidationError("description", "is required")
	}
	if len(req.EvidenceRefs) == 0 {
		return nil, domain.NewValidationError("evidence_refs", "at least one evidence reference is required")
	}
	for _, ref := range req.EvidenceRefs {
		ok, err := s.evidence.Exists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("checking evidence ref %q: %w", ref, err)
		}
		if !ok {
			return nil, domain.NewValidationError("evidence_refs", fmt.Sprintf("unknown evidence reference %q", ref))
		}
	}

	project, err := s.registry.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	// Certified projects are closed to new evidence.
	if project.Status == domain.StatusCertified {
		return nil, domain.NewValidationError("project_id", "project is already certified and closed to new evidence")
	}

	counts, err := s.store.CountForProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	proof := &domain.Proof{
		ID:           uuid.New(),
		ProjectID:    req.ProjectID,
		Title:        req.Title,
		Description:  req.Description,
		EvidenceRefs: req.EvidenceRefs,
		Status:       domain.ProofPending,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateProof(ctx, proof); err != nil {
		return nil, err
	}

	// First proof moves the project out of Registered. AdvanceToCollecting
	// is a no-op beyond Registered, so a racing second submission is
	// harmless.
	if counts.Total == 0 {
		if err := s.registry.AdvanceToCollecting(ctx, req.ProjectID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("proof submitted",
		zap.String("proof_id", proof.ID.String()),
		zap.String("project_id", req.ProjectID.String()),
		zap.Int("evidence_refs", len(req.EvidenceRefs)))
	return proof, nil
}

func (s *proofService) VerifyProof(ctx context.Context, proofID uuid.UUID, actor domain.Actor) error {
	return s.decide(ctx, proofID, actor, domain.ProofVerified, "")
}

func (s *proofService) RejectProof(ctx context.Context, proofID uuid.UUID, actor domain.Actor, reason string) error {
	if reason == "" {
		return domain.NewValidationError("reason", "is required")
	}
	return s.decide(ctx, proofID, actor, domain.ProofRejected, reason)
}

// decide applies a terminal verification decision under the per-proof lock,
// so two verifiers can never both decide the same proof.
func (s *proofService) decide(ctx context.Context, proofID uuid.UUID, actor domain.Actor, status domain.ProofStatus, reason string) error {
	if !actor.CanDecide() {
		return &domain.UnauthorizedError{ActorID: actor.ID, Op: "decide proof"}
	}

	key := proofID.String()
	s.proofLocks.Lock(key)
	defer s.proofLocks.Unlock(key)

	proof, err := s.store.GetProofByID(ctx, proofID)
	if err != nil {
		return err
	}
	if proof == nil {
		return domain.NewNotFoundError("proof", proofID)
	}
	if !s.stateMachine.CanTransition(string(proof.Status), string(status)) {
		return &domain.InvalidStateError{Entity: "proof", ID: proofID, State: string(proof.Status), Op: "decide"}
	}

	now := time.Now().UTC()
	proof.Status = status
	proof.DecidedAt = &now
	proof.DecidedBy = &actor.ID
	if status == domain.ProofRejected {
		proof.RejectReason = &reason
	}
	if err := s.store.UpdateProof(ctx, proof); err != nil {
		return err
	}

	action := domain.ActionVerifyProof
	if status == domain.ProofRejected {
		action = domain.ActionRejectProof
	}
	record := &domain.DecisionRecord{
		ID:        uuid.New(),
		ProjectID: proof.ProjectID,
		ProofID:   &proofID,
		Action:    action,
		ActorID:   actor.ID,
		Reason:    reason,
		CreatedAt: now,
	}
	if err := s.store.AppendDecision(ctx, record); err != nil {
		return err
	}

	s.logger.Info("proof decided",
		zap.String("proof_id", proofID.String()),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.ID))
	return nil
}

func (s *proofService) ListProofs(ctx context.Context, projectID uuid.UUID, filter ProofFilter) ([]domain.Proof, error) {
	if _, err := s.registry.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListProofs(ctx, projectID, filter.Status)
}

func (s *proofService) ProofCounts(ctx context.Context, projectID uuid.UUID) (*ProofCounts, error) {
	return s.store.CountForProject(ctx, projectID)
}

func (s *proofService) ListDecisions(ctx context.Context, projectID uuid.UUID) ([]domain.DecisionRecord, error) {
	if _, err := s.registry.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListDecisions(ctx, projectID)
}

func (s *proofService) RecordDecision(ctx context.Context, record *domain.DecisionRecord) error {
	return s.store.AppendDecision(ctx, record)
}
