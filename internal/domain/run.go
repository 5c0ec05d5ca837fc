package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType — источник запуска run.
type TriggerType string

const (
	// TriggerPush — push в ветку.
	TriggerPush TriggerType = "push"

	// TriggerTag — push тега версии.
	TriggerTag TriggerType = "tag"

	// TriggerPullRequest — открытие/обновление pull request.
	TriggerPullRequest TriggerType = "pull_request"

	// TriggerManual — ручной запуск через API/CLI.
	TriggerManual TriggerType = "manual"

	// TriggerSchedule — запуск по расписанию.
	TriggerSchedule TriggerType = "schedule"
)

// TriggerInfo — метаданные события, запустившего run.
//
// Поля доступны шагам через шаблоны: {{ .Trigger.Tag }}, {{ .Trigger.Branch }}.
type TriggerInfo struct {
	// Type — источник запуска.
	Type TriggerType `json:"type"`

	// Repo — репозиторий, из которого пришло событие (например, "org/pkg").
	Repo string `json:"repo,omitempty"`

	// Branch — ветка (для push и pull_request).
	Branch string `json:"branch,omitempty"`

	// Tag — тег (для tag событий), как пришёл: "v1.2.3".
	Tag string `json:"tag,omitempty"`

	// Version — версия, извлечённая из тега проверкой формата: "1.2.3".
	// Пустая для не-tag событий.
	Version string `json:"version,omitempty"`

	// Commit — SHA коммита.
	Commit string `json:"commit,omitempty"`

	// Sender — кто инициировал событие.
	Sender string `json:"sender,omitempty"`
}

// Run — экземпляр выполнения pipeline.
//
// Run создаётся когда:
// - Приходит подходящее событие через webhook (push, tag, pull_request)
// - Пользователь запускает pipeline вручную (через API/CLI)
// - Scheduler создаёт run по расписанию
//
// Каждый run выполняет конкретную версию pipeline и имеет свой набор jobs.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// PipelineID — ссылка на pipeline, который выполняется.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — версия pipeline, которая выполняется.
	Version int `json:"version"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Trigger — метаданные события, запустившего run.
	Trigger TriggerInfo `json:"trigger"`

	// Inputs — входные параметры, переданные при запуске.
	// Для событий заполняются из события (branch, tag, version, commit).
	Inputs map[string]any `json:"inputs,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	// Nil, если run ещё не начался.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	// Nil, если run ещё выполняется.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Для событий: "{event_type}_{ref}_{commit}"
	// Для scheduled runs: "{schedule_id}_{next_due_at}"
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}
