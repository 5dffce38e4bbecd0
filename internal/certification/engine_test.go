package certification

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/evidence"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/registry"
)

type fixture struct {
	registry registry.Service
	ledger   ledger.Service
	evidence evidence.Store
	engine   *Engine
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger := zap.NewNop()
	reg := registry.NewService(registry.NewMemoryStore(), logger)
	ev := evidence.NewMemoryStore()
	led := ledger.NewService(ledger.NewMemoryStore(), reg, ev, logger)
	return &fixture{
		registry: reg,
		ledger:   led,
		evidence: ev,
		engine:   NewEngine(reg, led, cfg, logger),
	}
}

var owner = domain.Actor{ID: "owner-1", Role: domain.RoleOwner}
var verifier = domain.Actor{ID: "verifier-1", Role: domain.RoleVerifier}

func (f *fixture) createProject(t *testing.T, projectType domain.ProjectType, area float64) uuid.UUID {
	t.Helper()
	project, err := f.registry.CreateProject(context.Background(), registry.CreateProjectRequest{
		Name:         "Reforestation X",
		Description:  "test project",
		ProjectType:  projectType,
		Location:     "Brazil",
		AreaHectares: area,
	}, owner)
	require.NoError(t, err)
	return project.ID
}

func (f *fixture) submitProof(t *testing.T, projectID uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ref := uuid.New().String()
	require.NoError(t, f.evidence.Put(ctx, ref, "image/png", strings.NewReader("fake content")))
	proof, err := f.ledger.SubmitProof(ctx, ledger.SubmitProofRequest{
		ProjectID:    projectID,
		Title:        "Planting evidence",
		Description:  "Photos of the initial planting",
		EvidenceRefs: []string{ref},
	})
	require.NoError(t, err)
	return proof.ID
}

func TestCertifyProjectSuccess(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeReforestation, 100)
	proofID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, proofID, verifier))

	decision, err := f.engine.CertifyProject(ctx, projectID, verifier)

	require.NoError(t, err)
	// round(100 * 4.5) with the default reforestation coefficient.
	assert.Equal(t, int64(450), decision.CreditsIssued)
	assert.Equal(t, "verifier-1", decision.VerifierID)

	project, err := f.registry.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCertified, project.Status)
	assert.Equal(t, int64(450), project.CreditsIssued)
	assert.NotNil(t, project.CertifiedAt)
}

func TestCertifyProjectNoVerifiedProofs(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeConservation, 50)
	proofID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.RejectProof(ctx, proofID, verifier, "blurry photos"))

	decision, err := f.engine.CertifyProject(ctx, projectID, verifier)

	assert.Nil(t, decision)
	var ineligibleErr *domain.IneligibleError
	require.ErrorAs(t, err, &ineligibleErr)
	assert.Equal(t, "no verified proofs", ineligibleErr.Reason)

	// The failed attempt deletes nothing and leaves status unchanged.
	project, err := f.registry.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCollectingEvidence, project.Status)
	assert.Equal(t, int64(0), project.CreditsIssued)
}

func TestCertifyProjectRejectionsOutnumberVerifications(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeAgroforestry, 45)
	verifiedID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, verifiedID, verifier))
	for i := 0; i < 2; i++ {
		rejectedID := f.submitProof(t, projectID)
		require.NoError(t, f.ledger.RejectProof(ctx, rejectedID, verifier, "insufficient detail"))
	}

	_, err := f.engine.CertifyProject(ctx, projectID, verifier)

	var ineligibleErr *domain.IneligibleError
	require.ErrorAs(t, err, &ineligibleErr)
	assert.Contains(t, ineligibleErr.Reason, "outnumber")
}

func TestCertifyProjectToleranceAllowsExtraRejections(t *testing.T) {
	f := newFixture(t, Config{Tolerance: 1})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeAgroforestry, 45)
	verifiedID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, verifiedID, verifier))
	for i := 0; i < 2; i++ {
		rejectedID := f.submitProof(t, projectID)
		require.NoError(t, f.ledger.RejectProof(ctx, rejectedID, verifier, "insufficient detail"))
	}

	decision, err := f.engine.CertifyProject(ctx, projectID, verifier)

	require.NoError(t, err)
	// round(45 * 4.0) with the default agroforestry coefficient.
	assert.Equal(t, int64(180), decision.CreditsIssued)
}

func TestCertifyProjectTwice(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeMangroveProtection, 30)
	proofID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, proofID, verifier))

	first, err := f.engine.CertifyProject(ctx, projectID, verifier)
	require.NoError(t, err)

	second, err := f.engine.CertifyProject(ctx, projectID, verifier)
	assert.Nil(t, second)
	var invalidStateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &invalidStateErr)

	project, err := f.registry.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, first.CreditsIssued, project.CreditsIssued)
}

func TestCertifyProjectConcurrentRace(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeReforestation, 200)
	proofID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, proofID, verifier))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.CertifyProject(ctx, projectID, verifier)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var invalidStateErr *domain.InvalidStateError
		assert.ErrorAs(t, err, &invalidStateErr)
	}
	assert.Equal(t, 1, successes, "exactly one certification must succeed")

	project, err := f.registry.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), project.CreditsIssued)
}

func TestCertifyProjectRequiresVerifierRole(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeReforestation, 100)

	_, err := f.engine.CertifyProject(ctx, projectID, owner)

	var unauthorizedErr *domain.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorizedErr)
}

func TestCreditAmountClamped(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	tiny := f.createProject(t, domain.TypeConservation, 0.1)
	huge := f.createProject(t, domain.TypeMangroveProtection, 50000)

	for _, projectID := range []uuid.UUID{tiny, huge} {
		proofID := f.submitProof(t, projectID)
		require.NoError(t, f.ledger.VerifyProof(ctx, proofID, verifier))
	}

	tinyDecision, err := f.engine.CertifyProject(ctx, tiny, verifier)
	require.NoError(t, err)
	assert.Equal(t, MinCredits, tinyDecision.CreditsIssued)

	hugeDecision, err := f.engine.CertifyProject(ctx, huge, verifier)
	require.NoError(t, err)
	assert.Equal(t, MaxCredits, hugeDecision.CreditsIssued)
}

func TestEvaluateEligibilityCounts(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeRenewableEnergy, 80)
	verifiedID := f.submitProof(t, projectID)
	rejectedID := f.submitProof(t, projectID)
	f.submitProof(t, projectID) // stays pending
	require.NoError(t, f.ledger.VerifyProof(ctx, verifiedID, verifier))
	require.NoError(t, f.ledger.RejectProof(ctx, rejectedID, verifier, "wrong site"))

	result, err := f.engine.EvaluateEligibility(ctx, projectID)

	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, 1, result.VerifiedCount)
	assert.Equal(t, 1, result.RejectedCount)
	assert.Equal(t, 1, result.PendingCount)
}

func TestEstimateCredits(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeAgroforestry, 45)

	credits, eligibility, err := f.engine.EstimateCredits(ctx, projectID)

	require.NoError(t, err)
	assert.Equal(t, int64(180), credits)
	assert.False(t, eligibility.Eligible)
}

func TestCoefficientOverride(t *testing.T) {
	f := newFixture(t, Config{
		Coefficients: map[domain.ProjectType]float64{domain.TypeReforestation: 2.0},
	})
	ctx := context.Background()

	projectID := f.createProject(t, domain.TypeReforestation, 100)
	proofID := f.submitProof(t, projectID)
	require.NoError(t, f.ledger.VerifyProof(ctx, proofID, verifier))

	decision, err := f.engine.CertifyProject(ctx, projectID, verifier)

	require.NoError(t, err)
	assert.Equal(t, int64(200), decision.CreditsIssued)
}
