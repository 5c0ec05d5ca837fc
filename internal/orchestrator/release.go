package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
)

// ensureRelease создаёт PENDING release при диспетчеризации publish шага.
//
// Release привязан к версии из триггера: для runs без версии (например,
// ручной запуск без тега) запись не создаётся. Если release для пары
// (pipeline, version) уже существует — это повторная публикация,
// новая запись не нужна.
func (o *Orchestrator) ensureRelease(ctx context.Context, state *RunState, config map[string]any) {
	if o.releaseRepo == nil {
		return
	}

	version := state.Run.Trigger.Version
	if version == "" {
		return
	}

	existing, err := o.releaseRepo.GetByPipelineVersion(ctx, state.PipelineID(), version)
	if err == nil {
		o.logger.Debug("release already recorded",
			"pipeline_id", state.PipelineID(),
			"version", version,
			"status", existing.Status,
		)
		return
	}
	if !errors.Is(err, repo.ErrNotFound) {
		o.logger.Error("failed to look up release",
			"pipeline_id", state.PipelineID(),
			"version", version,
			"error", err,
		)
		return
	}

	indexURL, _ := config["index_url"].(string)

	rel := &domain.Release{
		ID:         uuid.New(),
		PipelineID: state.PipelineID(),
		RunID:      state.RunID(),
		Version:    version,
		IndexURL:   indexURL,
		Status:     domain.ReleaseStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := o.releaseRepo.Create(ctx, rel); err != nil {
		o.logger.Error("failed to create release",
			"run_id", state.RunID(),
			"version", version,
			"error", err,
		)
		return
	}

	o.logger.Info("release pending",
		"release_id", rel.ID,
		"pipeline_id", rel.PipelineID,
		"version", version,
	)
}

// finalizeRelease переводит release в PUBLISHED или FAILED
// по итогам завершения publish шага.
func (o *Orchestrator) finalizeRelease(ctx context.Context, state *RunState, job *domain.Job, payload mq.JobCompletedPayload) {
	if o.releaseRepo == nil {
		return
	}

	version := state.Run.Trigger.Version
	if version == "" {
		return
	}

	rel, err := o.releaseRepo.GetByPipelineVersion(ctx, state.PipelineID(), version)
	if err != nil {
		o.logger.Error("failed to load release for finalization",
			"pipeline_id", state.PipelineID(),
			"version", version,
			"error", err,
		)
		return
	}

	if payload.Status == string(domain.JobStatusSucceeded) {
		err = o.releaseRepo.MarkPublished(ctx, rel.ID, artifactsFromOutputs(job.Outputs))
	} else {
		err = o.releaseRepo.MarkFailed(ctx, rel.ID, payload.Error)
	}

	if errors.Is(err, repo.ErrInvalidState) {
		// Release уже финализирован другим run этой версии
		return
	}
	if err != nil {
		o.logger.Error("failed to finalize release",
			"release_id", rel.ID,
			"version", version,
			"error", err,
		)
		return
	}

	o.logger.Info("release finalized",
		"release_id", rel.ID,
		"pipeline_id", rel.PipelineID,
		"version", version,
		"status", payload.Status,
	)
}

// artifactsFromOutputs извлекает список артефактов из outputs publish шага.
//
// Outputs приходят как свежими из runner ([]map[string]any), так и после
// JSONB round-trip через БД ([]any, числа как float64).
func artifactsFromOutputs(outputs map[string]any) []domain.Artifact {
	if outputs == nil {
		return nil
	}

	var items []any
	switch raw := outputs["artifacts"].(type) {
	case []any:
		items = raw
	case []map[string]any:
		items = make([]any, len(raw))
		for i, m := range raw {
			items[i] = m
		}
	default:
		return nil
	}

	var artifacts []domain.Artifact
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		var art domain.Artifact
		art.Name, _ = m["name"].(string)
		art.SHA256, _ = m["sha256"].(string)

		switch v := m["size_bytes"].(type) {
		case int64:
			art.SizeBytes = v
		case int:
			art.SizeBytes = int64(v)
		case float64:
			art.SizeBytes = int64(v)
		}

		artifacts = append(artifacts, art)
	}

	return artifacts
}
