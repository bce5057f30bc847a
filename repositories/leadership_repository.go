package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pogoleague/league-system/models"
)

var ErrLeadershipPeriodNotFound = errors.New("leadership period not found")

type LeadershipRepository interface {
	// Open вставляет новый период с end = null. Вызывающий обязан перед
	// этим закрыть предыдущий открытый период зала.
	Open(ctx context.Context, exec SQLExecutor, period *models.LeadershipPeriod) error
	ListOpenByGym(ctx context.Context, gymID int) ([]models.LeadershipPeriod, error)
	// CloseOpenByGym проставляет end всем открытым периодам зала.
	// Открытых должно быть 0 или 1; если из-за старой ошибки больше —
	// закрываются все.
	CloseOpenByGym(ctx context.Context, exec SQLExecutor, gymID int, endedAt time.Time) (int64, error)
	ListByGym(ctx context.Context, gymID int, limit int) ([]models.LeadershipPeriod, error)
}

type postgresLeadershipRepository struct {
	db *sql.DB
}

func NewPostgresLeadershipRepository(db *sql.DB) LeadershipRepository {
	return &postgresLeadershipRepository{db: db}
}

func (r *postgresLeadershipRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const leadershipColumns = `id, gym_id, leader_id, started_at, ended_at, origin, type_held, season_id`

func scanLeadershipPeriod(scanner interface{ Scan(...interface{}) error }) (*models.LeadershipPeriod, error) {
	var p models.LeadershipPeriod
	err := scanner.Scan(&p.ID, &p.GymID, &p.LeaderID, &p.StartedAt, &p.EndedAt, &p.Origin, &p.TypeHeld, &p.SeasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeadershipPeriodNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresLeadershipRepository) Open(ctx context.Context, exec SQLExecutor, p *models.LeadershipPeriod) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO leadership_periods (gym_id, leader_id, started_at, origin, type_held, season_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		p.GymID, p.LeaderID, p.StartedAt, p.Origin, p.TypeHeld, p.SeasonID,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to open leadership period for gym %d: %w", p.GymID, err)
	}
	return nil
}

func (r *postgresLeadershipRepository) ListOpenByGym(ctx context.Context, gymID int) ([]models.LeadershipPeriod, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + leadershipColumns + ` FROM leadership_periods WHERE gym_id = $1 AND ended_at IS NULL ORDER BY started_at DESC`
	return r.queryPeriods(ctx, executor, query, gymID)
}

func (r *postgresLeadershipRepository) CloseOpenByGym(ctx context.Context, exec SQLExecutor, gymID int, endedAt time.Time) (int64, error) {
	executor := r.getExecutor(exec)
	query := `UPDATE leadership_periods SET ended_at = $1 WHERE gym_id = $2 AND ended_at IS NULL`
	result, err := executor.ExecContext(ctx, query, endedAt, gymID)
	if err != nil {
		return 0, fmt.Errorf("failed to close open leadership periods for gym %d: %w", gymID, err)
	}
	return result.RowsAffected()
}

func (r *postgresLeadershipRepository) ListByGym(ctx context.Context, gymID int, limit int) ([]models.LeadershipPeriod, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + leadershipColumns + ` FROM leadership_periods WHERE gym_id = $1 ORDER BY started_at DESC`
	args := []interface{}{gymID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.queryPeriods(ctx, executor, query, args...)
}

func (r *postgresLeadershipRepository) queryPeriods(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.LeadershipPeriod, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]models.LeadershipPeriod, 0)
	for rows.Next() {
		p, scanErr := scanLeadershipPeriod(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		periods = append(periods, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return periods, nil
}
