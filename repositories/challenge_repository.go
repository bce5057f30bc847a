package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pogoleague/league-system/models"
)

var (
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrChallengeInvalidGym = errors.New("invalid gym reference for challenge")
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	ListPendingByGym(ctx context.Context, gymID int) ([]models.Challenge, error)
	// CloseAllPendingByGym закрывает все открытые вызовы зала: лидерство
	// только что переразыграно диспутом.
	CloseAllPendingByGym(ctx context.Context, exec SQLExecutor, gymID int) (int64, error)
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

func (r *postgresChallengeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO challenges (gym_id, challenger_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, c.GymID, c.ChallengerID, c.Status).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "challenges_gym_id_fkey" {
				return ErrChallengeInvalidGym
			}
		}
		return err
	}
	return nil
}

func (r *postgresChallengeRepository) ListPendingByGym(ctx context.Context, gymID int) ([]models.Challenge, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT id, gym_id, challenger_id, status, created_at
		FROM challenges
		WHERE gym_id = $1 AND status = $2
		ORDER BY created_at ASC`

	rows, err := executor.QueryContext(ctx, query, gymID, models.ChallengePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := make([]models.Challenge, 0)
	for rows.Next() {
		var c models.Challenge
		if scanErr := rows.Scan(&c.ID, &c.GymID, &c.ChallengerID, &c.Status, &c.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *postgresChallengeRepository) CloseAllPendingByGym(ctx context.Context, exec SQLExecutor, gymID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `UPDATE challenges SET status = $1 WHERE gym_id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, models.ChallengeClosed, gymID, models.ChallengePending)
	if err != nil {
		return 0, fmt.Errorf("failed to close pending challenges for gym %d: %w", gymID, err)
	}
	return result.RowsAffected()
}
