package services

import (
	"context"
	"fmt"

	"github.com/pogoleague/league-system/models"
)

// runWalkoverPass применяет правило WO при закрытии окна боёв: если по
// неупорядоченной паре участников есть ровно один pending-результат и
// ни одного подтверждённого, односторонняя заявка считается
// неоспоренной и подтверждается автоматически. Две противоречащие
// заявки по одной паре гасят друг друга. Ничьи под WO не попадают —
// ничья требует явного подтверждения второй стороны.
func (s *disputeService) runWalkoverPass(ctx context.Context, results []models.MatchResult) (int, error) {
	byPair := make(map[[2]int][]models.MatchResult)
	for _, res := range results {
		key := res.PairKey()
		byPair[key] = append(byPair[key], res)
	}

	promoted := 0
	for _, group := range byPair {
		confirmed := false
		var pending []models.MatchResult
		for _, res := range group {
			switch res.Status {
			case models.ResultConfirmed:
				confirmed = true
			case models.ResultPending:
				pending = append(pending, res)
			}
		}
		if confirmed || len(pending) != 1 || pending[0].Tie {
			continue
		}

		if err := s.resultRepo.Confirm(ctx, nil, pending[0].ID); err != nil {
			return promoted, fmt.Errorf("walkover promotion of result %d: %w", pending[0].ID, err)
		}
		promoted++
	}

	return promoted, nil
}
