package domain

import (
	"time"

	"github.com/google/uuid"
)

// Release — запись о публикации набора артефактов в индекс пакетов.
//
// Release создаётся publish шагом при начале загрузки и фиксирует,
// какая версия какого pipeline была опубликована, каким run'ом
// и из каких артефактов.
//
// Жизненный цикл:
//
//	PENDING → PUBLISHED
//	        ↘ FAILED
//
// На пару (pipeline, version) допускается один релиз: повторная
// публикация той же версии — конфликт, если publish шаг не был
// запущен с skip_existing.
type Release struct {
	// ID — уникальный идентификатор release.
	ID uuid.UUID `json:"id"`

	// PipelineID — ссылка на pipeline, который публиковал.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// RunID — ссылка на run, в рамках которого шла публикация.
	RunID uuid.UUID `json:"run_id"`

	// Version — опубликованная версия: "1.2.3", "2.0.0rc1".
	// Проходит проверку формата до создания release.
	Version string `json:"version"`

	// IndexURL — адрес индекса пакетов, куда шла загрузка.
	IndexURL string `json:"index_url"`

	// Status — текущий статус публикации.
	Status ReleaseStatus `json:"status"`

	// Artifacts — загруженные артефакты.
	Artifacts []Artifact `json:"artifacts,omitempty"`

	// Error — текст ошибки, если публикация упала.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания release.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact — один дистрибутив, собранный build шагом.
type Artifact struct {
	// Name — имя файла (например, "pkg-1.2.3.tar.gz").
	Name string `json:"name"`

	// SizeBytes — размер файла в байтах.
	SizeBytes int64 `json:"size_bytes"`

	// SHA256 — контрольная сумма содержимого (hex).
	SHA256 string `json:"sha256"`

	// URL — адрес артефакта в индексе после загрузки.
	URL string `json:"url,omitempty"`
}

// MarkPublished отмечает release как успешно опубликованный.
func (r *Release) MarkPublished(artifacts []Artifact) {
	r.Status = ReleaseStatusPublished
	r.Artifacts = artifacts
	r.UpdatedAt = time.Now()
}

// MarkFailed отмечает release как упавший с ошибкой.
func (r *Release) MarkFailed(err string) {
	r.Status = ReleaseStatusFailed
	r.Error = err
	r.UpdatedAt = time.Now()
}

// IsPublished возвращает true, если релиз уже опубликован.
func (r *Release) IsPublished() bool {
	return r.Status == ReleaseStatusPublished
}
