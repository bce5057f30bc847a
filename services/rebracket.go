package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pogoleague/league-system/models"
)

// reopenForTie разруливает ничью наверху таблицы: вместо назначения
// лидера броском монеты на зал открывается новый диспут только между
// лидирующими. Типы, выбранные в исходном диспуте, переносятся, поэтому
// повторная регистрация не нужна — участники сразу пригодны к старту.
//
// Порядок записей диктует уникальный индекс "один активный диспут на
// зал": сперва финализируется старый диспут (индекс освобождается),
// затем создаётся преемник, и только потом вычищаются дочерние записи
// старого. Флаг in_dispute у зала не снимается — зал занят всё время.
func (s *disputeService) reopenForTie(ctx context.Context, gym *models.Gym, old *models.Dispute, participants []models.DisputeParticipant, tiedUserIDs []int) (*models.Dispute, error) {
	chosenTypes := make(map[int]string, len(participants))
	for _, p := range participants {
		chosenTypes[p.UserID] = p.ChosenType
	}

	if err := s.disputeRepo.Finalize(ctx, nil, old.ID, nil, true); err != nil {
		return nil, fmt.Errorf("tie rebracket for dispute %d: finalize: %w", old.ID, err)
	}

	successor := &models.Dispute{
		GymID:            gym.ID,
		Status:           models.DisputeRegistration,
		OriginalType:     old.OriginalType,
		PreviousLeaderID: old.PreviousLeaderID,
		SeasonID:         old.SeasonID,
		Origin:           models.OriginTieRebracket,
	}
	if err := s.disputeRepo.Create(ctx, successor); err != nil {
		return nil, fmt.Errorf("tie rebracket for dispute %d: create successor: %w", old.ID, err)
	}

	for _, userID := range tiedUserIDs {
		chosenType := chosenTypes[userID]
		if chosenType == "" {
			chosenType = old.OriginalType
		}
		participant := &models.DisputeParticipant{
			DisputeID:  successor.ID,
			UserID:     userID,
			ChosenType: chosenType,
		}
		if err := s.participantRepo.Create(ctx, participant); err != nil {
			return nil, fmt.Errorf("tie rebracket: seed participant %d into dispute %d: %w", userID, successor.ID, err)
		}
	}

	if err := s.scheduleDisputeWindows(ctx, successor); err != nil {
		return nil, err
	}

	if err := s.purgeDispute(ctx, old.ID); err != nil {
		return nil, err
	}

	s.logger.Info("dispute reopened after tie",
		slog.Int("gym_id", gym.ID), slog.Int("old_dispute_id", old.ID),
		slog.Int("new_dispute_id", successor.ID), slog.Any("tied_user_ids", tiedUserIDs))
	s.broadcast(gym.ID, "DISPUTE_CREATED", successor)

	return successor, nil
}
