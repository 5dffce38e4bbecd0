package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"carbon-registry/certification-service/internal/domain"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by the projects table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (
			id, name, description, project_type, location, latitude, longitude,
			area_hectares, status, credits_issued, owner_id, created_at, certified_at
		) VALUES (
			:id, :name, :description, :project_type, :location, :latitude, :longitude,
			:area_hectares, :status, :credits_issued, :owner_id, :created_at, :certified_at
		)`
	_, err := s.db.NamedExecContext(ctx, query, project)
	return err
}

func (s *postgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := s.db.GetContext(ctx, &p, "SELECT * FROM projects WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *postgresStore) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects SET
			name = :name,
			description = :description,
			status = :status,
			credits_issued = :credits_issued,
			certified_at = :certified_at
		WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("project", project.ID)
	}
	return nil
}

func buildFilter(filter ProjectFilter) (string, []interface{}) {
	where := ""
	var args []interface{}
	argCount := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filter.Status)
		argCount++
	}
	if filter.ProjectType != nil {
		where += fmt.Sprintf(" AND project_type = $%d", argCount)
		args = append(args, *filter.ProjectType)
		argCount++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR location ILIKE $%d OR project_type ILIKE $%d)", argCount, argCount, argCount)
		args = append(args, "%"+filter.Search+"%")
		argCount++
	}
	return where, args
}

func (s *postgresStore) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	where, args := buildFilter(filter)
	query := "SELECT * FROM projects WHERE 1=1" + where + " ORDER BY created_at ASC, id ASC"
	argCount := len(args) + 1
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	projects := []domain.Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	return projects, err
}

func (s *postgresStore) Count(ctx context.Context, filter ProjectFilter) (int, error) {
	where, args := buildFilter(filter)
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM projects WHERE 1=1"+where, args...)
	return count, err
}

func (s *postgresStore) Totals(ctx context.Context) (*ProjectTotals, error) {
	var totals ProjectTotals
	query := `
		SELECT
			COUNT(*) AS total_projects,
			COALESCE(SUM(credits_issued), 0) AS total_credits,
			COALESCE(SUM(area_hectares), 0) AS total_area,
			COUNT(*) FILTER (WHERE status = 'Certified') AS certified_count
		FROM projects`
	err := s.db.GetContext(ctx, &totals, query)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
