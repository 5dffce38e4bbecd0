// Package query serves the read-only listing and dashboard views. It never
// mutates state; it folds over registry and ledger snapshots.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/registry"
)

// Page selects a slice of a listing. Page numbers start at 1.
type Page struct {
	Page    int
	PerPage int
}

const defaultPerPage = 20

func (p Page) limitOffset() (int, int) {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

// ProjectList is a page of summaries plus the unpaginated match count.
type ProjectList struct {
	Projects []domain.ProjectSummary `json:"projects"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PerPage  int                     `json:"per_page"`
}

type Service struct {
	projects registry.Store
	proofs   ledger.Store
	logger   *zap.Logger

	mu     sync.RWMutex
	cached *domain.Stats
	cron   *cron.Cron
}

func NewService(projects registry.Store, proofs ledger.Store, logger *zap.Logger) *Service {
	return &Service{projects: projects, proofs: proofs, logger: logger}
}

// ListProjects returns project summaries matching the filter, enriched with
// proof counts. Results page stably over the store snapshot.
func (s *Service) ListProjects(ctx context.Context, filter registry.ProjectFilter, page Page) (*ProjectList, error) {
	limit, offset := page.limitOffset()
	filter.Limit = limit
	filter.Offset = offset

	total, err := s.projects.Count(ctx, registry.ProjectFilter{
		Status:      filter.Status,
		ProjectType: filter.ProjectType,
		Search:      filter.Search,
	})
	if err != nil {
		return nil, err
	}

	projects, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		counts, err := s.proofs.CountForProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.ProjectSummary{
			ID:            p.ID,
			Name:          p.Name,
			ProjectType:   p.ProjectType,
			Location:      p.Location,
			AreaHectares:  p.AreaHectares,
			Status:        p.Status,
			CreditsIssued: p.CreditsIssued,
			ProofCount:    counts.Total,
			PendingProofs: counts.Pending,
			CreatedAt:     p.CreatedAt,
		})
	}

	pageNum := page.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	return &ProjectList{Projects: summaries, Total: total, Page: pageNum, PerPage: limit}, nil
}

// AggregateStats computes the dashboard totals from current snapshots.
func (s *Service) AggregateStats(ctx context.Context) (*domain.Stats, error) {
	totals, err := s.projects.Totals(ctx)
	if err != nil {
		return nil, err
	}
	pendingProofs, err := s.proofs.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.Stats{
		TotalProjects:      totals.TotalProjects,
		TotalCreditsIssued: totals.TotalCredits,
		TotalAreaHectares:  totals.TotalArea,
		CertifiedCount:     totals.CertifiedCount,
		PendingProofCount:  pendingProofs,
		ComputedAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	s.cached = stats
	s.mu.Unlock()
	return stats, nil
}

// CachedStats returns the last computed stats snapshot, computing one on
// first use. Callers that tolerate staleness (the public dashboard) read
// this instead of folding on every request.
func (s *Service) CachedStats(ctx context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.AggregateStats(ctx)
}

// StartStatsRefresh recomputes the cached snapshot on the given cron
// schedule until Stop is called.
func (s *Service) StartStatsRefresh(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.AggregateStats(context.Background()); err != nil {
			s.logger.Warn("stats refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("stats refresh scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts the background stats refresh, if running.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
