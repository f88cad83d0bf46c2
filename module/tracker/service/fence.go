package service

import (
	"context"
	"fmt"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database"
)

type fenceSetter interface {
	SetFences(fences []domain.Fence)
}

// FenceService loads the configured fences and hands them to the engine.
type FenceService struct {
	repo   database.FenceRepository
	engine fenceSetter
}

func NewFenceService(repo database.FenceRepository, engine fenceSetter) *FenceService {
	return &FenceService{repo: repo, engine: engine}
}

// Reload replaces the engine's fences with the repository contents and
// returns how many records were loaded.
func (s *FenceService) Reload(ctx context.Context) (int, error) {
	fences, err := s.repo.ListFences(ctx)
	if err != nil {
		return 0, fmt.Errorf("load fences: %w", err)
	}
	s.engine.SetFences(fences)
	return len(fences), nil
}
