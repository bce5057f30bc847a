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
	ErrParticipantNotFound       = errors.New("dispute participant not found")
	ErrParticipantAlreadyInList  = errors.New("user is already registered in this dispute")
	ErrParticipantInvalidDispute = errors.New("invalid dispute reference for participant")
	ErrParticipantInvalidUser    = errors.New("invalid user reference for participant")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.DisputeParticipant) error
	GetByID(ctx context.Context, id int) (*models.DisputeParticipant, error)
	GetByDisputeAndUser(ctx context.Context, disputeID, userID int) (*models.DisputeParticipant, error)
	ListByDispute(ctx context.Context, disputeID int, includeRemoved bool) ([]models.DisputeParticipant, error)
	SetChosenType(ctx context.Context, id int, chosenType string) error
	MarkRemoved(ctx context.Context, exec SQLExecutor, id int) error
	// RemoveWithoutType массово помечает removed участников без
	// выбранного типа — первая фаза старта диспута.
	RemoveWithoutType(ctx context.Context, exec SQLExecutor, disputeID int) (int64, error)
	DeleteByDispute(ctx context.Context, exec SQLExecutor, disputeID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, dispute_id, user_id, chosen_type, removed, created_at`

func scanParticipant(scanner interface{ Scan(...interface{}) error }) (*models.DisputeParticipant, error) {
	var p models.DisputeParticipant
	err := scanner.Scan(&p.ID, &p.DisputeID, &p.UserID, &p.ChosenType, &p.Removed, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.DisputeParticipant) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO dispute_participants (dispute_id, user_id, chosen_type, removed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, p.DisputeID, p.UserID, p.ChosenType, p.Removed).
		Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "dispute_participants_dispute_id_user_id_key" {
					return ErrParticipantAlreadyInList
				}
			case "23503":
				switch pqErr.Constraint {
				case "dispute_participants_dispute_id_fkey":
					return ErrParticipantInvalidDispute
				case "dispute_participants_user_id_fkey":
					return ErrParticipantInvalidUser
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.DisputeParticipant, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + participantColumns + ` FROM dispute_participants WHERE id = $1`
	return scanParticipant(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresParticipantRepository) GetByDisputeAndUser(ctx context.Context, disputeID, userID int) (*models.DisputeParticipant, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + participantColumns + ` FROM dispute_participants WHERE dispute_id = $1 AND user_id = $2`
	return scanParticipant(executor.QueryRowContext(ctx, query, disputeID, userID))
}

func (r *postgresParticipantRepository) ListByDispute(ctx context.Context, disputeID int, includeRemoved bool) ([]models.DisputeParticipant, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + participantColumns + ` FROM dispute_participants WHERE dispute_id = $1`
	if !includeRemoved {
		query += ` AND removed = FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.DisputeParticipant, 0)
	for rows.Next() {
		p, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) SetChosenType(ctx context.Context, id int, chosenType string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE dispute_participants SET chosen_type = $1 WHERE id = $2 AND removed = FALSE`
	result, err := executor.ExecContext(ctx, query, chosenType, id)
	if err != nil {
		return fmt.Errorf("failed to set chosen type for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) MarkRemoved(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE dispute_participants SET removed = TRUE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) RemoveWithoutType(ctx context.Context, exec SQLExecutor, disputeID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `UPDATE dispute_participants SET removed = TRUE WHERE dispute_id = $1 AND chosen_type = '' AND removed = FALSE`
	result, err := executor.ExecContext(ctx, query, disputeID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove typeless participants of dispute %d: %w", disputeID, err)
	}
	return result.RowsAffected()
}

func (r *postgresParticipantRepository) DeleteByDispute(ctx context.Context, exec SQLExecutor, disputeID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM dispute_participants WHERE dispute_id = $1`
	_, err := executor.ExecContext(ctx, query, disputeID)
	return err
}
