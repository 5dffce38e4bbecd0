package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProjectStatus string

const (
	StatusRegistered          ProjectStatus = "Registered"
	StatusCollectingEvidence  ProjectStatus = "CollectingEvidence"
	StatusPendingVerification ProjectStatus = "PendingVerification"
	StatusCertified           ProjectStatus = "Certified"
)

type ProjectType string

const (
	TypeReforestation      ProjectType = "reforestation"
	TypeConservation       ProjectType = "conservation"
	TypeAgroforestry       ProjectType = "agroforestry"
	TypeMangroveProtection ProjectType = "mangrove-protection"
	TypeRenewableEnergy    ProjectType = "renewable-energy"
)

// ProjectTypes lists every recognized project type.
var ProjectTypes = []ProjectType{
	TypeReforestation,
	TypeConservation,
	TypeAgroforestry,
	TypeMangroveProtection,
	TypeRenewableEnergy,
}

func (t ProjectType) Valid() bool {
	for _, pt := range ProjectTypes {
		if t == pt {
			return true
		}
	}
	return false
}

type ProofStatus string

const (
	ProofPending  ProofStatus = "Pending"
	ProofVerified ProofStatus = "Verified"
	ProofRejected ProofStatus = "Rejected"
)

// Project is a registered climate project. Status and CreditsIssued are
// written only by the registry; CreditsIssued becomes non-zero exactly once,
// when the project is certified.
type Project struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	ProjectType   ProjectType   `json:"project_type" db:"project_type"`
	Location      string        `json:"location" db:"location"`
	Latitude      *float64      `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64      `json:"longitude,omitempty" db:"longitude"`
	AreaHectares  float64       `json:"area_hectares" db:"area_hectares"`
	Status        ProjectStatus `json:"status" db:"status"`
	CreditsIssued int64         `json:"credits_issued" db:"credits_issued"`
	OwnerID       string        `json:"owner_id" db:"owner_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	CertifiedAt   *time.Time    `json:"certified_at,omitempty" db:"certified_at"`
}

// Proof is an evidence submission attached to a project. EvidenceRefs are
// opaque content references; the binary content lives in the evidence store.
// Once the status is Verified or Rejected the decision never reverts.
type Proof struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	ProjectID    uuid.UUID      `json:"project_id" db:"project_id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	EvidenceRefs pq.StringArray `json:"evidence_refs" db:"evidence_refs"`
	Status       ProofStatus    `json:"status" db:"status"`
	RejectReason *string        `json:"reject_reason,omitempty" db:"reject_reason"`
	SubmittedAt  time.Time      `json:"submitted_at" db:"submitted_at"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty" db:"decided_at"`
	DecidedBy    *string        `json:"decided_by,omitempty" db:"decided_by"`
}

// CertificationDecision is the record returned by a successful certification.
type CertificationDecision struct {
	ProjectID     uuid.UUID `json:"project_id"`
	CreditsIssued int64     `json:"credits_issued"`
	VerifierID    string    `json:"verifier_id"`
	DecidedAt     time.Time `json:"decided_at"`
}

type DecisionAction string

const (
	ActionVerifyProof    DecisionAction = "VERIFY_PROOF"
	ActionRejectProof    DecisionAction = "REJECT_PROOF"
	ActionCertifyProject DecisionAction = "CERTIFY_PROJECT"
)

// DecisionRecord is an audit entry for a verifier action. Records are
// append-only and survive proof/project state changes.
type DecisionRecord struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	ProjectID uuid.UUID      `json:"project_id" db:"project_id"`
	ProofID   *uuid.UUID     `json:"proof_id,omitempty" db:"proof_id"`
	Action    DecisionAction `json:"action" db:"action"`
	ActorID   string         `json:"actor_id" db:"actor_id"`
	Reason    string         `json:"reason" db:"reason"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// ProjectSummary is the read model served by listing endpoints.
type ProjectSummary struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	ProjectType   ProjectType   `json:"project_type"`
	Location      string        `json:"location"`
	AreaHectares  float64       `json:"area_hectares"`
	Status        ProjectStatus `json:"status"`
	CreditsIssued int64         `json:"credits_issued"`
	ProofCount    int           `json:"proof_count"`
	PendingProofs int           `json:"pending_proofs"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Stats is the aggregate view backing the public dashboard.
type Stats struct {
	TotalProjects      int       `json:"total_projects"`
	TotalCreditsIssued int64     `json:"total_credits_issued"`
	TotalAreaHectares  float64   `json:"total_area_hectares"`
	CertifiedCount     int       `json:"certified_count"`
	PendingProofCount  int       `json:"pending_proof_count"`
	ComputedAt         time.Time `json:"computed_at"`
}
