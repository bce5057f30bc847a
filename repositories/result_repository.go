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
	ErrResultNotFound       = errors.New("match result not found")
	ErrResultInvalidDispute = errors.New("invalid dispute reference for match result")
)

type ResultRepository interface {
	Create(ctx context.Context, result *models.MatchResult) error
	GetByID(ctx context.Context, id int) (*models.MatchResult, error)
	ListByDispute(ctx context.Context, disputeID int, status *models.ResultStatus) ([]models.MatchResult, error)
	Confirm(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByDispute(ctx context.Context, exec SQLExecutor, disputeID int) error
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const resultColumns = `id, dispute_id, winner_id, loser_id, tie, reported_by, status, created_at`

func scanResult(scanner interface{ Scan(...interface{}) error }) (*models.MatchResult, error) {
	var m models.MatchResult
	err := scanner.Scan(&m.ID, &m.DisputeID, &m.WinnerID, &m.LoserID, &m.Tie, &m.ReportedBy, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresResultRepository) Create(ctx context.Context, m *models.MatchResult) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO match_results (dispute_id, winner_id, loser_id, tie, reported_by, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.DisputeID, m.WinnerID, m.LoserID, m.Tie, m.ReportedBy, m.Status,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "match_results_dispute_id_fkey" {
				return ErrResultInvalidDispute
			}
		}
		return err
	}
	return nil
}

func (r *postgresResultRepository) GetByID(ctx context.Context, id int) (*models.MatchResult, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE id = $1`
	return scanResult(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresResultRepository) ListByDispute(ctx context.Context, disputeID int, status *models.ResultStatus) ([]models.MatchResult, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE dispute_id = $1`
	args := []interface{}{disputeID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.MatchResult, 0)
	for rows.Next() {
		m, scanErr := scanResult(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		results = append(results, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *postgresResultRepository) Confirm(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE match_results SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, models.ResultConfirmed, id, models.ResultPending)
	if err != nil {
		return fmt.Errorf("failed to confirm match result %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresResultRepository) DeleteByDispute(ctx context.Context, exec SQLExecutor, disputeID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM match_results WHERE dispute_id = $1`
	_, err := executor.ExecContext(ctx, query, disputeID)
	return err
}
