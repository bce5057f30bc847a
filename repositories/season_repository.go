package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pogoleague/league-system/models"
)

var ErrSeasonNotFound = errors.New("season not found")

type SeasonRepository interface {
	GetCurrent(ctx context.Context) (*models.Season, error)
	GetByID(ctx context.Context, id int) (*models.Season, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

const seasonColumns = `id, name, start_date, end_date, current`

func scanSeason(scanner interface{ Scan(...interface{}) error }) (*models.Season, error) {
	var s models.Season
	err := scanner.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSeasonRepository) GetCurrent(ctx context.Context) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE current = TRUE ORDER BY start_date DESC LIMIT 1`
	return scanSeason(r.db.QueryRowContext(ctx, query))
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, id int) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	return scanSeason(r.db.QueryRowContext(ctx, query, id))
}
