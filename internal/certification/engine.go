package certification

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/registry"
	"carbon-registry/certification-service/pkg/locks"
)

// EligibilityResult explains whether a project may be certified right now.
type EligibilityResult struct {
	Eligible      bool   `json:"eligible"`
	VerifiedCount int    `json:"verified_count"`
	RejectedCount int    `json:"rejected_count"`
	PendingCount  int    `json:"pending_count"`
	Reason        string `json:"reason"`
}

// Config carries the business constants of the engine.
type Config struct {
	// Coefficients maps project type to credits per hectare. Types absent
	// from the map fall back to DefaultCoefficients.
	Coefficients map[domain.ProjectType]float64
	// Tolerance is how far rejected proofs may outnumber verified ones
	// before certification is blocked. At the default of 0, rejections must
	// not outnumber verifications.
	Tolerance int
}

// Engine decides certification eligibility and issues credits. It is the
// only caller of registry.Certify, and it serializes certification per
// project so a project can never be certified twice.
type Engine struct {
	registry     registry.Service
	ledger       ledger.Service
	coefficients map[domain.ProjectType]float64
	tolerance    int
	projectLocks *locks.Keyed
	logger       *zap.Logger
}

func NewEngine(reg registry.Service, led ledger.Service, cfg Config, logger *zap.Logger) *Engine {
	coefficients := make(map[domain.ProjectType]float64, len(DefaultCoefficients))
	for t, c := range DefaultCoefficients {
		coefficients[t] = c
	}
	for t, c := range cfg.Coefficients {
		coefficients[t] = c
	}
	return &Engine{
		registry:     reg,
		ledger:       led,
		coefficients: coefficients,
		tolerance:    cfg.Tolerance,
		projectLocks: locks.NewKeyed(),
		logger:       logger,
	}
}

// EvaluateEligibility reads the project's proofs and applies the
// sufficient-validated-proofs rule: at least one verified proof, and
// rejections must not exceed verifications by more than the tolerance.
func (e *Engine) EvaluateEligibility(ctx context.Context, projectID uuid.UUID) (*EligibilityResult, error) {
	proofs, err := e.ledger.ListProofs(ctx, projectID, ledger.ProofFilter{})
	if err != nil {
		return nil, err
	}

	result := &EligibilityResult{}
	for _, p := range proofs {
		switch p.Status {
		case domain.ProofVerified:
			result.VerifiedCount++
		case domain.ProofRejected:
			result.RejectedCount++
		default:
			result.PendingCount++
		}
	}

	switch {
	case result.VerifiedCount == 0:
		result.Reason = "no verified proofs"
	case result.RejectedCount > result.VerifiedCount+e.tolerance:
		result.Reason = fmt.Sprintf("rejected proofs (%d) outnumber verified proofs (%d) beyond tolerance (%d)",
			result.RejectedCount, result.VerifiedCount, e.tolerance)
	default:
		result.Eligible = true
		result.Reason = fmt.Sprintf("%d verified, %d rejected, %d pending proofs",
			result.VerifiedCount, result.RejectedCount, result.PendingCount)
	}
	return result, nil
}

// EstimateCredits computes the credit award the project would receive if
// certified now, together with its current eligibility.
func (e *Engine) EstimateCredits(ctx context.Context, projectID uuid.UUID) (int64, *EligibilityResult, error) {
	project, err := e.registry.GetProject(ctx, projectID)
	if err != nil {
		return 0, nil, err
	}
	eligibility, err := e.EvaluateEligibility(ctx, projectID)
	if err != nil {
		return 0, nil, err
	}
	return e.creditAmount(project), eligibility, nil
}

// CertifyProject performs the atomic certification step: eligibility check,
// credit computation and the single-shot registry write, all under the
// per-project lock. A retry after success fails with InvalidStateError and
// leaves the issued credits untouched.
func (e *Engine) CertifyProject(ctx context.Context, projectID uuid.UUID, actor domain.Actor) (*domain.CertificationDecision, error) {
	if !actor.CanDecide() {
		return nil, &domain.UnauthorizedError{ActorID: actor.ID, Op: "certify project"}
	}

	key := projectID.String()
	e.projectLocks.Lock(key)
	defer e.projectLocks.Unlock(key)

	project, err := e.registry.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.StatusCertified {
		return nil, &domain.InvalidStateError{Entity: "project", ID: projectID, State: string(project.Status), Op: "certify"}
	}

	eligibility, err := e.EvaluateEligibility(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, &domain.IneligibleError{ProjectID: projectID, Reason: eligibility.Reason}
	}

	credits := e.creditAmount(project)
	certified, err := e.registry.Certify(ctx, projectID, credits, actor.ID)
	if err != nil {
		return nil, err
	}

	decision := &domain.CertificationDecision{
		ProjectID:     projectID,
		CreditsIssued: certified.CreditsIssued,
		VerifierID:    actor.ID,
		DecidedAt:     *certified.CertifiedAt,
	}
	record := &domain.DecisionRecord{
		ID:        uuid.New(),
		ProjectID: projectID,
		Action:    domain.ActionCertifyProject,
		ActorID:   actor.ID,
		Reason:    eligibility.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.ledger.RecordDecision(ctx, record); err != nil {
		// The certification itself stands; a lost audit row is logged, not
		// rolled back.
		e.logger.Error("recording certification decision failed",
			zap.String("project_id", projectID.String()), zap.Error(err))
	}

	e.logger.Info("certification issued",
		zap.String("project_id", projectID.String()),
		zap.Int64("credits", decision.CreditsIssued),
		zap.String("verifier_id", actor.ID))
	return decision, nil
}

// creditAmount is round(area * coefficient) clamped to [MinCredits, MaxCredits].
func (e *Engine) creditAmount(project *domain.Project) int64 {
	coefficient := e.coefficients[project.ProjectType]
	credits := int64(math.Round(project.AreaHectares * coefficient))
	if credits < MinCredits {
		credits = MinCredits
	}
	if credits > MaxCredits {
		credits = MaxCredits
	}
	return credits
}
