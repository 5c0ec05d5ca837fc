package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/trigger"
)

// HandleEvent принимает webhook событие исходного кода и запускает
// подходящие pipelines.
// POST /api/v1/events
//
// Для tag событий формат версии проверяется ДО создания run: тег,
// не прошедший проверку, попадает в rejected с сообщением проверки,
// run для такого pipeline не создаётся.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev trigger.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := ev.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	candidates, err := h.loadCandidates(r)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	matches, rejections := trigger.MatchEvent(ev, candidates)

	resp := EventResponse{Runs: make([]RunResponse, 0, len(matches))}

	for _, rej := range rejections {
		h.logger.Warn("tag rejected by version check",
			"pipeline_id", rej.Pipeline.ID,
			"pipeline_name", rej.Pipeline.Name,
			"tag", ev.Tag,
			"reason", rej.Reason,
		)
		resp.Rejected = append(resp.Rejected, RejectionResponse{
			PipelineID:   rej.Pipeline.ID,
			PipelineName: rej.Pipeline.Name,
			Reason:       rej.Reason,
		})
	}

	for _, m := range matches {
		run, err := h.createRunForMatch(r, m)
		if err != nil {
			h.logger.Error("failed to create run for event",
				"pipeline_id", m.Pipeline.ID,
				"event", string(ev.Type),
				"error", err,
			)
			continue
		}
		resp.Runs = append(resp.Runs, RunFromDomain(*run))
	}

	Success(w, resp)
}

// loadCandidates собирает активные pipelines с их последними версиями.
func (h *Handler) loadCandidates(r *http.Request) ([]trigger.Candidate, error) {
	pipelines, err := h.pipelineRepo.List(r.Context())
	if err != nil {
		return nil, err
	}

	candidates := make([]trigger.Candidate, 0, len(pipelines))
	for _, p := range pipelines {
		if !p.IsActive {
			continue
		}

		version, err := h.pipelineRepo.GetLatestVersion(r.Context(), p.ID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Pipeline без версий не участвует в matching
				continue
			}
			return nil, err
		}

		candidates = append(candidates, trigger.Candidate{
			Pipeline: p,
			Version:  version.Version,
			Spec:     version.Spec,
		})
	}

	return candidates, nil
}

// createRunForMatch создаёт run для сработавшего pipeline.
// Повторная доставка того же события возвращает существующий run.
func (h *Handler) createRunForMatch(r *http.Request, m trigger.Match) (*domain.Run, error) {
	existing, err := h.runRepo.GetByIdempotencyKey(r.Context(), m.Pipeline.ID, m.IdempotencyKey)
	if err == nil && existing != nil {
		h.logger.Debug("event already processed (idempotency)",
			"pipeline_id", m.Pipeline.ID,
			"run_id", existing.ID,
			"idempotency_key", m.IdempotencyKey,
		)
		return existing, nil
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	run := &domain.Run{
		ID:             uuid.New(),
		PipelineID:     m.Pipeline.ID,
		Version:        m.Version,
		Status:         domain.RunStatusPending,
		Trigger:        m.Trigger,
		Inputs:         m.Inputs,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      time.Now(),
	}

	if err := h.runRepo.Create(r.Context(), run); err != nil {
		return nil, err
	}

	h.logger.Info("run created from event",
		"run_id", run.ID,
		"pipeline_id", m.Pipeline.ID,
		"pipeline_name", m.Pipeline.Name,
		"event", string(m.Trigger.Type),
	)

	if h.publisher != nil {
		if err := h.publisher.PublishRunPending(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.pending", "run_id", run.ID, "error", err)
		}
	}

	return run, nil
}
