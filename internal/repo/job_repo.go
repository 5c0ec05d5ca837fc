package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
)

// JobRepo — репозиторий для работы с jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create создаёт новый job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO jobs (id, run_id, step_id, name, type, attempt, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.RunID,
		job.StepID,
		job.Name,
		job.Type,
		job.Attempt,
		job.Status,
		payloadJSON,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, run_id, step_id, name, type, attempt, status, payload, outputs,
		       result_ref, started_at, finished_at, error, created_at
		FROM jobs
		WHERE id = $1
	`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// ListByRunID возвращает все jobs для run.
func (r *JobRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.Job, error) {
	query := `
		SELECT id, run_id, step_id, name, type, attempt, status, payload, outputs,
		       result_ref, started_at, finished_at, error, created_at
		FROM jobs
		WHERE run_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by run_id: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetByRunAndStepID возвращает job по run_id и step_id.
func (r *JobRepo) GetByRunAndStepID(ctx context.Context, runID uuid.UUID, stepID string) (*domain.Job, error) {
	query := `
		SELECT id, run_id, step_id, name, type, attempt, status, payload, outputs,
		       result_ref, started_at, finished_at, error, created_at
		FROM jobs
		WHERE run_id = $1 AND step_id = $2
	`
	return r.scanJob(r.pool.QueryRow(ctx, query, runID, stepID))
}

// Update обновляет job.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	outputsJSON, err := json.Marshal(job.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	query := `
		UPDATE jobs
		SET attempt = $2, status = $3, outputs = $4, result_ref = $5,
		    started_at = $6, finished_at = $7, error = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Attempt,
		job.Status,
		outputsJSON,
		nullString(job.LogRef),
		job.StartedAt,
		job.FinishedAt,
		nullString(job.Error),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListQueued возвращает jobs в статусе QUEUED.
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, run_id, step_id, name, type, attempt, status, payload, outputs,
		       result_ref, started_at, finished_at, error, created_at
		FROM jobs
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByRunAndStatus возвращает количество jobs по статусу для run.
func (r *JobRepo) CountByRunAndStatus(ctx context.Context, runID uuid.UUID, status domain.JobStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM jobs WHERE run_id = $1 AND status = $2
	`, runID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// --- Helpers ---

func (r *JobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var payloadJSON, outputsJSON []byte
	var resultRef, jobError *string

	err := row.Scan(
		&job.ID,
		&job.RunID,
		&job.StepID,
		&job.Name,
		&job.Type,
		&job.Attempt,
		&job.Status,
		&payloadJSON,
		&outputsJSON,
		&resultRef,
		&job.StartedAt,
		&job.FinishedAt,
		&jobError,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if outputsJSON != nil {
		if err := json.Unmarshal(outputsJSON, &job.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	if resultRef != nil {
		job.LogRef = *resultRef
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

func (r *JobRepo) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	var job domain.Job
	var payloadJSON, outputsJSON []byte
	var resultRef, jobError *string

	err := rows.Scan(
		&job.ID,
		&job.RunID,
		&job.StepID,
		&job.Name,
		&job.Type,
		&job.Attempt,
		&job.Status,
		&payloadJSON,
		&outputsJSON,
		&resultRef,
		&job.StartedAt,
		&job.FinishedAt,
		&jobError,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if outputsJSON != nil {
		if err := json.Unmarshal(outputsJSON, &job.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	if resultRef != nil {
		job.LogRef = *resultRef
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}
