package services

import (
	"context"
	"fmt"

	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/repositories"
)

type LeadershipService interface {
	// History — периоды лидерства зала, новейшие первыми.
	History(ctx context.Context, gymID int, limit int) ([]models.LeadershipPeriod, error)
	// CurrentPeriod — открытый период зала, если есть.
	CurrentPeriod(ctx context.Context, gymID int) (*models.LeadershipPeriod, error)
}

type leadershipService struct {
	leadershipRepo repositories.LeadershipRepository
}

func NewLeadershipService(leadershipRepo repositories.LeadershipRepository) LeadershipService {
	return &leadershipService{leadershipRepo: leadershipRepo}
}

func (s *leadershipService) History(ctx context.Context, gymID int, limit int) ([]models.LeadershipPeriod, error) {
	periods, err := s.leadershipRepo.ListByGym(ctx, gymID, limit)
	if err != nil {
		return nil, fmt.Errorf("leadership history for gym %d: %w", gymID, err)
	}
	return periods, nil
}

func (s *leadershipService) CurrentPeriod(ctx context.Context, gymID int) (*models.LeadershipPeriod, error) {
	open, err := s.leadershipRepo.ListOpenByGym(ctx, gymID)
	if err != nil {
		return nil, fmt.Errorf("current leadership period for gym %d: %w", gymID, err)
	}
	if len(open) == 0 {
		return nil, ErrNotFound
	}
	return &open[0], nil
}
