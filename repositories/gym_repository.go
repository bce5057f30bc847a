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
	ErrGymNotFound      = errors.New("gym not found")
	ErrGymNameConflict  = errors.New("gym name conflict in this league")
	ErrGymInvalidLeader = errors.New("invalid gym leader reference")
)

type ListGymsFilter struct {
	League    *string
	InDispute *bool
	LeaderID  *int
	Limit     int
	Offset    int
}

type GymRepository interface {
	Create(ctx context.Context, gym *models.Gym) error
	GetByID(ctx context.Context, id int) (*models.Gym, error)
	List(ctx context.Context, filter ListGymsFilter) ([]models.Gym, error)
	Update(ctx context.Context, gym *models.Gym) error
	// ApplyLeadership обновляет лидера, тип, флаг in_dispute и счётчик
	// поражений одной записью — это самый "видимый" шаг закрытия диспута.
	ApplyLeadership(ctx context.Context, exec SQLExecutor, id int, leaderID *int, battleType string, inDispute bool, consecutiveLosses int) error
	SetInDispute(ctx context.Context, exec SQLExecutor, id int, inDispute bool) error
	UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error
}

type postgresGymRepository struct {
	db *sql.DB
}

func NewPostgresGymRepository(db *sql.DB) GymRepository {
	return &postgresGymRepository{db: db}
}

func (r *postgresGymRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const gymColumns = `id, name, battle_type, leader_id, league, in_dispute, consecutive_losses, photo_key, created_at`

func scanGym(scanner interface{ Scan(...interface{}) error }) (*models.Gym, error) {
	var g models.Gym
	err := scanner.Scan(
		&g.ID, &g.Name, &g.BattleType, &g.LeaderID, &g.League,
		&g.InDispute, &g.ConsecutiveLosses, &g.PhotoKey, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *postgresGymRepository) Create(ctx context.Context, g *models.Gym) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO gyms (name, battle_type, leader_id, league, in_dispute, consecutive_losses, photo_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		g.Name, g.BattleType, g.LeaderID, g.League, g.InDispute, g.ConsecutiveLosses, g.PhotoKey,
	).Scan(&g.ID, &g.CreatedAt)

	return r.handleGymError(err)
}

func (r *postgresGymRepository) GetByID(ctx context.Context, id int) (*models.Gym, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE id = $1`
	return scanGym(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresGymRepository) List(ctx context.Context, filter ListGymsFilter) ([]models.Gym, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.League != nil {
		query += fmt.Sprintf(" AND league = $%d", argID)
		args = append(args, *filter.League)
		argID++
	}
	if filter.InDispute != nil {
		query += fmt.Sprintf(" AND in_dispute = $%d", argID)
		args = append(args, *filter.InDispute)
		argID++
	}
	if filter.LeaderID != nil {
		query += fmt.Sprintf(" AND leader_id = $%d", argID)
		args = append(args, *filter.LeaderID)
		argID++
	}

	query += " ORDER BY league ASC, name ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gyms := make([]models.Gym, 0)
	for rows.Next() {
		g, scanErr := scanGym(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		gyms = append(gyms, *g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return gyms, nil
}

func (r *postgresGymRepository) Update(ctx context.Context, g *models.Gym) error {
	executor := r.getExecutor(nil)
	query := `
		UPDATE gyms SET
			name = $1,
			battle_type = $2,
			league = $3
		WHERE id = $4`

	result, err := executor.ExecContext(ctx, query, g.Name, g.BattleType, g.League, g.ID)
	if err != nil {
		return r.handleGymError(err)
	}
	return checkAffectedRows(result, ErrGymNotFound)
}

func (r *postgresGymRepository) ApplyLeadership(ctx context.Context, exec SQLExecutor, id int, leaderID *int, battleType string, inDispute bool, consecutiveLosses int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE gyms SET
			leader_id = $1,
			battle_type = $2,
			in_dispute = $3,
			consecutive_losses = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, leaderID, battleType, inDispute, consecutiveLosses, id)
	if err != nil {
		return r.handleGymError(err)
	}
	return checkAffectedRows(result, ErrGymNotFound)
}

func (r *postgresGymRepository) SetInDispute(ctx context.Context, exec SQLExecutor, id int, inDispute bool) error {
	executor := r.getExecutor(exec)
	query := `UPDATE gyms SET in_dispute = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, inDispute, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGymNotFound)
}

func (r *postgresGymRepository) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE gyms SET photo_key = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, photoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update gym photo key: %w", err)
	}
	return checkAffectedRows(result, ErrGymNotFound)
}

func (r *postgresGymRepository) handleGymError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "gyms_league_name_key" {
				return ErrGymNameConflict
			}
		case "23503":
			if pqErr.Constraint == "gyms_leader_id_fkey" {
				return ErrGymInvalidLeader
			}
		}
	}
	return err
}
