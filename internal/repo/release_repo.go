package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
)

// ReleaseRepo — репозиторий для работы с releases (записи о публикациях).
type ReleaseRepo struct {
	pool *pgxpool.Pool
}

// NewReleaseRepo создаёт новый ReleaseRepo.
func NewReleaseRepo(pool *pgxpool.Pool) *ReleaseRepo {
	return &ReleaseRepo{pool: pool}
}

// ReleaseFilter — фильтр для списка releases.
type ReleaseFilter struct {
	PipelineID *uuid.UUID
	Status     *domain.ReleaseStatus
	Limit      int
	Offset     int
}

// --- Базовые CRUD ---

// Create создаёт новый release.
func (r *ReleaseRepo) Create(ctx context.Context, rel *domain.Release) error {
	artifactsJSON, err := json.Marshal(rel.Artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}

	query := `
		INSERT INTO releases (
			id, pipeline_id, run_id, version, index_url, status,
			artifacts, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		rel.ID,
		rel.PipelineID,
		rel.RunID,
		rel.Version,
		rel.IndexURL,
		rel.Status.String(),
		artifactsJSON,
		rel.CreatedAt,
		rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

// GetByID возвращает release по ID.
func (r *ReleaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Release, error) {
	query := `
		SELECT id, pipeline_id, run_id, version, index_url, status,
		       artifacts, error, created_at, updated_at
		FROM releases
		WHERE id = $1
	`
	return r.scanRelease(r.pool.QueryRow(ctx, query, id))
}

// GetByPipelineVersion возвращает release по паре (pipeline, version).
// На пару допускается один релиз.
func (r *ReleaseRepo) GetByPipelineVersion(ctx context.Context, pipelineID uuid.UUID, version string) (*domain.Release, error) {
	query := `
		SELECT id, pipeline_id, run_id, version, index_url, status,
		       artifacts, error, created_at, updated_at
		FROM releases
		WHERE pipeline_id = $1 AND version = $2
	`
	return r.scanRelease(r.pool.QueryRow(ctx, query, pipelineID, version))
}

// List возвращает список releases с фильтрацией.
func (r *ReleaseRepo) List(ctx context.Context, filter ReleaseFilter) ([]domain.Release, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.PipelineID != nil {
		conditions = append(conditions, fmt.Sprintf("pipeline_id = $%d", argNum))
		args = append(args, *filter.PipelineID)
		argNum++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status.String())
		argNum++
	}

	query := `
		SELECT id, pipeline_id, run_id, version, index_url, status,
		       artifacts, error, created_at, updated_at
		FROM releases
	`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	return r.scanReleases(rows)
}

// ListByPipelineID возвращает releases конкретного pipeline.
func (r *ReleaseRepo) ListByPipelineID(ctx context.Context, pipelineID uuid.UUID) ([]domain.Release, error) {
	return r.List(ctx, ReleaseFilter{PipelineID: &pipelineID})
}

// Update обновляет release.
func (r *ReleaseRepo) Update(ctx context.Context, rel *domain.Release) error {
	artifactsJSON, err := json.Marshal(rel.Artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}

	query := `
		UPDATE releases
		SET status = $2, artifacts = $3, error = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		rel.ID,
		rel.Status.String(),
		artifactsJSON,
		nullString(rel.Error),
		rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update release: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPublished отмечает release как опубликованный (PENDING → PUBLISHED).
func (r *ReleaseRepo) MarkPublished(ctx context.Context, id uuid.UUID, artifacts []domain.Artifact) error {
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}

	query := `
		UPDATE releases
		SET status = 'PUBLISHED', artifacts = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, id, artifactsJSON)
	if err != nil {
		return fmt.Errorf("mark release published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// MarkFailed отмечает release как упавший (PENDING → FAILED).
func (r *ReleaseRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE releases
		SET status = 'FAILED', error = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, id, errMsg)
	if err != nil {
		return fmt.Errorf("mark release failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Delete удаляет release.
func (r *ReleaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM releases WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete release: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Вспомогательные методы ---

// scanRelease сканирует одну строку в Release.
func (r *ReleaseRepo) scanRelease(row pgx.Row) (*domain.Release, error) {
	var rel domain.Release
	var artifactsJSON []byte
	var statusStr string
	var relError *string

	err := row.Scan(
		&rel.ID,
		&rel.PipelineID,
		&rel.RunID,
		&rel.Version,
		&rel.IndexURL,
		&statusStr,
		&artifactsJSON,
		&relError,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan release: %w", err)
	}

	rel.Status = domain.ParseReleaseStatus(statusStr)

	if len(artifactsJSON) > 0 {
		if err := json.Unmarshal(artifactsJSON, &rel.Artifacts); err != nil {
			return nil, fmt.Errorf("unmarshal artifacts: %w", err)
		}
	}
	if relError != nil {
		rel.Error = *relError
	}

	return &rel, nil
}

// scanReleases сканирует несколько строк в []Release.
func (r *ReleaseRepo) scanReleases(rows pgx.Rows) ([]domain.Release, error) {
	var releases []domain.Release

	for rows.Next() {
		var rel domain.Release
		var artifactsJSON []byte
		var statusStr string
		var relError *string

		err := rows.Scan(
			&rel.ID,
			&rel.PipelineID,
			&rel.RunID,
			&rel.Version,
			&rel.IndexURL,
			&statusStr,
			&artifactsJSON,
			&relError,
			&rel.CreatedAt,
			&rel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}

		rel.Status = domain.ParseReleaseStatus(statusStr)

		if len(artifactsJSON) > 0 {
			if err := json.Unmarshal(artifactsJSON, &rel.Artifacts); err != nil {
				return nil, fmt.Errorf("unmarshal artifacts: %w", err)
			}
		}
		if relError != nil {
			rel.Error = *relError
		}

		releases = append(releases, rel)
	}

	return releases, rows.Err()
}
