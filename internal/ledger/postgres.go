package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"carbon-registry/certification-service/internal/domain"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by the proofs and
// decision_records tables.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateProof(ctx context.Context, proof *domain.Proof) error {
	query := `
		INSERT INTO proofs (
			id, project_id, title, description, evidence_refs, status,
			reject_reason, submitted_at, decided_at, decided_by
		) VALUES (
			:id, :project_id, :title, :description, :evidence_refs, :status,
			:reject_reason, :submitted_at, :decided_at, :decided_by
		)`
	_, err := s.db.NamedExecContext(ctx, query, proof)
	return err
}

func (s *postgresStore) GetProofByID(ctx context.Context, id uuid.UUID) (*domain.Proof, error) {
	var p domain.Proof
	err := s.db.GetContext(ctx, &p, "SELECT * FROM proofs WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *postgresStore) UpdateProof(ctx context.Context, proof *domain.Proof) error {
	query := `
		UPDATE proofs SET
			status = :status,
			reject_reason = :reject_reason,
			decided_at = :decided_at,
			decided_by = :decided_by
		WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, proof)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("proof", proof.ID)
	}
	return nil
}

func (s *postgresStore) ListProofs(ctx context.Context, projectID uuid.UUID, status *domain.ProofStatus) ([]domain.Proof, error) {
	proofs := []domain.Proof{}
	if status != nil {
		err := s.db.SelectContext(ctx, &proofs,
			"SELECT * FROM proofs WHERE project_id = $1 AND status = $2 ORDER BY submitted_at ASC, id ASC",
			projectID, *status)
		return proofs, err
	}
	err := s.db.SelectContext(ctx, &proofs,
		"SELECT * FROM proofs WHERE project_id = $1 ORDER BY submitted_at ASC, id ASC", projectID)
	return proofs, err
}

func (s *postgresStore) CountForProject(ctx context.Context, projectID uuid.UUID) (*ProofCounts, error) {
	var counts ProofCounts
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'Pending') AS pending
		FROM proofs WHERE project_id = $1`
	err := s.db.GetContext(ctx, &counts, query, projectID)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (s *postgresStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM proofs WHERE status = 'Pending'")
	return count, err
}

func (s *postgresStore) AppendDecision(ctx context.Context, record *domain.DecisionRecord) error {
	query := `
		INSERT INTO decision_records (
			id, project_id, proof_id, action, actor_id, reason, created_at
		) VALUES (
			:id, :project_id, :proof_id, :action, :actor_id, :reason, :created_at
		)`
	_, err := s.db.NamedExecContext(ctx, query, record)
	return err
}

func (s *postgresStore) ListDecisions(ctx context.Context, projectID uuid.UUID) ([]domain.DecisionRecord, error) {
	records := []domain.DecisionRecord{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM decision_records WHERE project_id = $1 ORDER BY created_at ASC", projectID)
	return records, err
}
