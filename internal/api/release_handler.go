package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
)

// ListReleases возвращает список releases с фильтрацией.
// GET /api/v1/releases?pipeline_id=...&status=...&limit=...&offset=...
func (h *Handler) ListReleases(w http.ResponseWriter, r *http.Request) {
	filter := repo.ReleaseFilter{}

	if pipelineIDStr := r.URL.Query().Get("pipeline_id"); pipelineIDStr != "" {
		pipelineID, err := uuid.Parse(pipelineIDStr)
		if err != nil {
			BadRequest(w, "invalid pipeline_id")
			return
		}
		filter.PipelineID = &pipelineID
	}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.ParseReleaseStatus(statusStr)
		filter.Status = &status
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	releases, err := h.releaseRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ReleaseResponse, len(releases))
	for i, rel := range releases {
		result[i] = ReleaseFromDomain(rel)
	}

	List(w, result, len(result))
}

// ListPipelineReleases возвращает releases конкретного pipeline.
// GET /api/v1/pipelines/{id}/releases
func (h *Handler) ListPipelineReleases(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid pipeline id")
		return
	}

	// Проверяем, что pipeline существует
	_, err = h.pipelineRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	releases, err := h.releaseRepo.ListByPipelineID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ReleaseResponse, len(releases))
	for i, rel := range releases {
		result[i] = ReleaseFromDomain(rel)
	}

	List(w, result, len(result))
}

// GetRelease возвращает release по ID.
// GET /api/v1/releases/{id}
func (h *Handler) GetRelease(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid release id")
		return
	}

	rel, err := h.releaseRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "release not found") {
		return
	}

	Success(w, ReleaseFromDomain(*rel))
}
