package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/adstack/ingest-api/internal/models"
)

type RunRepository interface {
	Create(ctx context.Context, params CreateRunParams) (models.LoadRun, error)
	List(ctx context.Context, platform string, limit, offset int) ([]models.LoadRun, error)
}

type runRepository struct {
	db *sql.DB
}

type CreateRunParams struct {
	Platform     string
	Status       models.LoadRunStatus
	RowsLoaded   int64
	StartDate    *string
	EndDate      *string
	Destination  *string
	ErrorMessage *string
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, params CreateRunParams) (models.LoadRun, error) {
	const query = `
		INSERT INTO etl.load_runs (id, platform, status, rows_loaded, start_date, end_date, destination, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, platform, status, rows_loaded, start_date, end_date, destination, error_message, created_at
	`
	row := r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		params.Platform,
		params.Status,
		params.RowsLoaded,
		params.StartDate,
		params.EndDate,
		params.Destination,
		params.ErrorMessage,
	)
	return scanRun(row)
}

func (r *runRepository) List(ctx context.Context, platform string, limit, offset int) ([]models.LoadRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
		SELECT id, platform, status, rows_loaded, start_date, end_date, destination, error_message, created_at
		FROM etl.load_runs
		WHERE $1 = '' OR platform = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, platform, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.LoadRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (models.LoadRun, error) {
	var (
		run          models.LoadRun
		startDate    sql.NullString
		endDate      sql.NullString
		destination  sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(
		&run.ID,
		&run.Platform,
		&run.Status,
		&run.RowsLoaded,
		&startDate,
		&endDate,
		&destination,
		&errorMessage,
		&run.CreatedAt,
	); err != nil {
		return models.LoadRun{}, err
	}

	if startDate.Valid {
		val := startDate.String
		run.StartDate = &val
	}
	if endDate.Valid {
		val := endDate.String
		run.EndDate = &val
	}
	if destination.Valid {
		val := destination.String
		run.Destination = &val
	}
	if errorMessage.Valid {
		val := errorMessage.String
		run.ErrorMessage = &val
	}

	return run, nil
}
