package registry

import (
	"context"

	"github.com/google/uuid"

	"carbon-registry/certification-service/internal/domain"
)

// ProjectFilter narrows listing queries. Search matches case-insensitively
// against name, location and project type.
type ProjectFilter struct {
	Status      *domain.ProjectStatus
	ProjectType *domain.ProjectType
	Search      string
	Limit       int
	Offset      int
}

// ProjectTotals is the fold over all projects used by aggregate stats.
type ProjectTotals struct {
	TotalProjects  int     `db:"total_projects"`
	TotalCredits   int64   `db:"total_credits"`
	TotalArea      float64 `db:"total_area"`
	CertifiedCount int     `db:"certified_count"`
}

// Store is the persistence boundary of the project registry. GetByID
// returns (nil, nil) when the project does not exist; the service layer
// turns that into a NotFoundError.
type Store interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	Count(ctx context.Context, filter ProjectFilter) (int, error)
	Totals(ctx context.Context) (*ProjectTotals, error)
}
