package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/pkg/workflows"
)

type CreateProjectRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	ProjectType  domain.ProjectType `json:"project_type"`
	Location     string             `json:"location"`
	Latitude     *float64           `json:"latitude"`
	Longitude    *float64           `json:"longitude"`
	AreaHectares float64            `json:"area_hectares"`
}

// Service is the canonical writer of project status and credits_issued.
// AdvanceToCollecting and Certify are internal operations: the former is
// called by the proof ledger on first submission, the latter only by the
// certification engine.
type Service interface {
	CreateProject(ctx context.Context, req CreateProjectRequest, owner domain.Actor) (*domain.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	AdvanceToCollecting(ctx context.Context, id uuid.UUID) error
	Certify(ctx context.Context, id uuid.UUID, credits int64, verifierID string) (*domain.Project, error)
}

type projectService struct {
	store        Store
	stateMachine *workflows.StateMachine
	logger       *zap.Logger
}

func NewService(store Store, logger *zap.Logger) Service {
	return &projectService{
		store:        store,
		stateMachine: workflows.NewProjectStateMachine(),
		logger:       logger,
	}
}

func (s *projectService) CreateProject(ctx context.Context, req CreateProjectRequest, owner domain.Actor) (*domain.Project, error) {
	if req.Name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if req.Location == "" {
		return nil, domain.NewValidationError("location", "is required")
	}
	if !req.ProjectType.Valid() {
		return nil, domain.NewValidationError("project_type", "unknown project type "+string(req.ProjectType))
	}
	if req.AreaHectares <= 0 {
		return nil, domain.NewValidationError("area_hectares", "must be positive")
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return nil, domain.NewValidationError("latitude", "out of range")
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return nil, domain.NewValidationError("longitude", "out of range")
	}

	project := &domain.Project{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		ProjectType:   req.ProjectType,
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		AreaHectares:  req.AreaHectares,
		Status:        domain.StatusRegistered,
		CreditsIssued: 0,
		OwnerID:       owner.ID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.Create(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project registered",
		zap.String("project_id", project.ID.String()),
		zap.String("project_type", string(project.ProjectType)),
		zap.Float64("area_hectares", project.AreaHectares))
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.NewNotFoundError("project", id)
	}
	return project, nil
}

func (s *projectService) AdvanceToCollecting(ctx context.Context, id uuid.UUID) error {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	// No-op once the project has moved beyond Registered.
	if project.Status != domain.StatusRegistered {
		return nil
	}
	project.Status = domain.StatusCollectingEvidence
	return s.store.Update(ctx, project)
}

func (s *projectService) Certify(ctx context.Context, id uuid.UUID, credits int64, verifierID string) (*domain.Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.StatusCertified {
		return nil, &domain.InvalidStateError{Entity: "project", ID: id, State: string(project.Status), Op: "certify"}
	}
	// Certification passes through PendingVerification and lands on
	// Certified in one step, so either hop makes the request legal.
	legal := s.stateMachine.CanTransition(string(project.Status), string(domain.StatusPendingVerification)) ||
		s.stateMachine.CanTransition(string(project.Status), string(domain.StatusCertified))
	if !legal {
		return nil, &domain.InvalidStateError{Entity: "project", ID: id, State: string(project.Status), Op: "certify"}
	}

	now := time.Now().UTC()
	project.Status = domain.StatusCertified
	project.CreditsIssued = credits
	project.CertifiedAt = &now
	if err := s.store.Update(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project certified",
		zap.String("project_id", id.String()),
		zap.Int64("credits_issued", credits),
		zap.String("verifier_id", verifierID))
	return project, nil
}
