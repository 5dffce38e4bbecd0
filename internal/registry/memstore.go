package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"carbon-registry/certification-service/internal/domain"
)

// memoryStore keeps projects in process memory behind a RWMutex. Reads
// return copies, so listings are snapshots and never observe half-applied
// writes.
type memoryStore struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]domain.Project
}

func NewMemoryStore() Store {
	return &memoryStore{projects: make(map[uuid.UUID]domain.Project)}
}

func (s *memoryStore) Create(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = *project
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memoryStore) Update(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return domain.NewNotFoundError("project", project.ID)
	}
	s.projects[project.ID] = *project
	return nil
}

func (s *memoryStore) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	s.mu.RLock()
	matched := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Project{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *memoryStore) Count(ctx context.Context, filter ProjectFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.projects {
		if matches(p, filter) {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Totals(ctx context.Context) (*ProjectTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := &ProjectTotals{}
	for _, p := range s.projects {
		totals.TotalProjects++
		totals.TotalCredits += p.CreditsIssued
		totals.TotalArea += p.AreaHectares
		if p.Status == domain.StatusCertified {
			totals.CertifiedCount++
		}
	}
	return totals, nil
}

func matches(p domain.Project, filter ProjectFilter) bool {
	if filter.Status != nil && p.Status != *filter.Status {
		return false
	}
	if filter.ProjectType != nil && p.ProjectType != *filter.ProjectType {
		return false
	}
	if filter.Search != "" {
		q := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Location), q) &&
			!strings.Contains(strings.ToLower(string(p.ProjectType)), q) {
			return false
		}
	}
	return true
}
