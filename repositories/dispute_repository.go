package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pogoleague/league-system/models"
)

var (
	ErrDisputeNotFound      = errors.New("dispute not found")
	ErrDisputeInvalidGym    = errors.New("invalid gym reference for dispute")
	ErrDisputeAlreadyActive = errors.New("gym already has an active dispute")
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id int) (*models.Dispute, error)
	// GetActiveByGym возвращает единственный диспут зала в статусе
	// registration или battling, либо ErrDisputeNotFound.
	GetActiveByGym(ctx context.Context, gymID int) (*models.Dispute, error)
	MarkBattling(ctx context.Context, id int, startedAt time.Time) error
	Finalize(ctx context.Context, exec SQLExecutor, id int, winnerID *int, tieAtTop bool) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `id, gym_id, status, original_type, previous_leader_id, season_id, origin, winner_id, finalization_applied, tie_at_top, created_at, started_at`

func scanDispute(scanner interface{ Scan(...interface{}) error }) (*models.Dispute, error) {
	var d models.Dispute
	err := scanner.Scan(
		&d.ID, &d.GymID, &d.Status, &d.OriginalType, &d.PreviousLeaderID, &d.SeasonID,
		&d.Origin, &d.WinnerID, &d.FinalizationApplied, &d.TieAtTop, &d.CreatedAt, &d.StartedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *postgresDisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO disputes (gym_id, status, original_type, previous_leader_id, season_id, origin, finalization_applied, tie_at_top)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		d.GymID, d.Status, d.OriginalType, d.PreviousLeaderID, d.SeasonID, d.Origin,
		d.FinalizationApplied, d.TieAtTop,
	).Scan(&d.ID, &d.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				// Частичный уникальный индекс: на зал не более одного
				// диспута в активном статусе.
				if pqErr.Constraint == "disputes_one_active_per_gym" {
					return ErrDisputeAlreadyActive
				}
			case "23503":
				if pqErr.Constraint == "disputes_gym_id_fkey" {
					return ErrDisputeInvalidGym
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, id int) (*models.Dispute, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return scanDispute(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) GetActiveByGym(ctx context.Context, gymID int) (*models.Dispute, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE gym_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1`
	return scanDispute(executor.QueryRowContext(ctx, query, gymID, models.DisputeRegistration, models.DisputeBattling))
}

func (r *postgresDisputeRepository) MarkBattling(ctx context.Context, id int, startedAt time.Time) error {
	executor := r.getExecutor(nil)
	query := `UPDATE disputes SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`
	result, err := executor.ExecContext(ctx, query, models.DisputeBattling, startedAt, id, models.DisputeRegistration)
	if err != nil {
		return fmt.Errorf("failed to mark dispute %d battling: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) Finalize(ctx context.Context, exec SQLExecutor, id int, winnerID *int, tieAtTop bool) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE disputes SET
			status = $1,
			winner_id = $2,
			finalization_applied = TRUE,
			tie_at_top = $3
		WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, models.DisputeFinalized, winnerID, tieAtTop, id)
	if err != nil {
		return fmt.Errorf("failed to finalize dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM disputes WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}
