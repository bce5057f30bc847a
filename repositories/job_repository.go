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
	ErrJobNotFound   = errors.New("scheduled job not found")
	ErrJobInvalidGym = errors.New("invalid gym reference for scheduled job")
)

type JobRepository interface {
	Create(ctx context.Context, job *models.ScheduledJob) error
	GetByID(ctx context.Context, id int) (*models.ScheduledJob, error)
	// ListDue возвращает pending-задачи с fire_at <= now, старейшие
	// первыми, не больше limit за один тик.
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error)
	ListByGym(ctx context.Context, gymID int) ([]models.ScheduledJob, error)
	MarkExecuted(ctx context.Context, exec SQLExecutor, id int, executedAt time.Time) error
	MarkError(ctx context.Context, id int, message string) error
	// FinalizeMatching помечает executed все pending-задачи зала с тем же
	// действием (и диспутом, если указан). Один UPDATE — совпадающие
	// задачи гасятся атомарно.
	FinalizeMatching(ctx context.Context, gymID int, action models.JobAction, disputeID *int, executedAt time.Time) (int64, error)
	CancelPendingByGym(ctx context.Context, gymID int) (int64, error)
}

type postgresJobRepository struct {
	db *sql.DB
}

func NewPostgresJobRepository(db *sql.DB) JobRepository {
	return &postgresJobRepository{db: db}
}

func (r *postgresJobRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const jobColumns = `id, key, gym_id, dispute_id, action, fire_at, status, origin, executed_at, last_error, created_at`

func scanJob(scanner interface{ Scan(...interface{}) error }) (*models.ScheduledJob, error) {
	var j models.ScheduledJob
	err := scanner.Scan(
		&j.ID, &j.Key, &j.GymID, &j.DisputeID, &j.Action, &j.FireAt,
		&j.Status, &j.Origin, &j.ExecutedAt, &j.LastError, &j.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *postgresJobRepository) Create(ctx context.Context, j *models.ScheduledJob) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO scheduled_jobs (key, gym_id, dispute_id, action, fire_at, status, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		j.Key, j.GymID, j.DisputeID, j.Action, j.FireAt, j.Status, j.Origin,
	).Scan(&j.ID, &j.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "scheduled_jobs_gym_id_fkey" {
				return ErrJobInvalidGym
			}
		}
		return err
	}
	return nil
}

func (r *postgresJobRepository) GetByID(ctx context.Context, id int) (*models.ScheduledJob, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE id = $1`
	return scanJob(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresJobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE status = $1 AND fire_at <= $2
		ORDER BY fire_at ASC, id ASC
		LIMIT $3`

	rows, err := executor.QueryContext(ctx, query, models.JobPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *postgresJobRepository) ListByGym(ctx context.Context, gymID int) ([]models.ScheduledJob, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE gym_id = $1 ORDER BY fire_at DESC`
	rows, err := executor.QueryContext(ctx, query, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]models.ScheduledJob, error) {
	jobs := make([]models.ScheduledJob, 0)
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *postgresJobRepository) MarkExecuted(ctx context.Context, exec SQLExecutor, id int, executedAt time.Time) error {
	executor := r.getExecutor(exec)
	// Переход только из pending: повторный вызов не перезапишет
	// терминальный статус.
	query := `UPDATE scheduled_jobs SET status = $1, executed_at = $2 WHERE id = $3 AND status = $4`
	result, err := executor.ExecContext(ctx, query, models.JobExecuted, executedAt, id, models.JobPending)
	if err != nil {
		return fmt.Errorf("failed to mark job %d executed: %w", id, err)
	}
	return checkAffectedRows(result, ErrJobNotFound)
}

func (r *postgresJobRepository) MarkError(ctx context.Context, id int, message string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE scheduled_jobs SET status = $1, last_error = $2 WHERE id = $3 AND status = $4`
	result, err := executor.ExecContext(ctx, query, models.JobError, message, id, models.JobPending)
	if err != nil {
		return fmt.Errorf("failed to mark job %d errored: %w", id, err)
	}
	return checkAffectedRows(result, ErrJobNotFound)
}

func (r *postgresJobRepository) FinalizeMatching(ctx context.Context, gymID int, action models.JobAction, disputeID *int, executedAt time.Time) (int64, error) {
	executor := r.getExecutor(nil)
	query := `
		UPDATE scheduled_jobs SET status = $1, executed_at = $2
		WHERE gym_id = $3 AND action = $4 AND status = $5`
	args := []interface{}{models.JobExecuted, executedAt, gymID, action, models.JobPending}
	if disputeID != nil {
		query += ` AND (dispute_id IS NULL OR dispute_id = $6)`
		args = append(args, *disputeID)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize matching jobs for gym %d: %w", gymID, err)
	}
	return result.RowsAffected()
}

func (r *postgresJobRepository) CancelPendingByGym(ctx context.Context, gymID int) (int64, error) {
	executor := r.getExecutor(nil)
	query := `UPDATE scheduled_jobs SET status = $1 WHERE gym_id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, models.JobCancelled, gymID, models.JobPending)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending jobs for gym %d: %w", gymID, err)
	}
	return result.RowsAffected()
}
