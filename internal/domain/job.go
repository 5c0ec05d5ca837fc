package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — отдельная единица работы внутри run.
//
// Job создаётся Orchestrator'ом когда:
// - Run стартует (для шагов без зависимостей)
// - Зависимости шага удовлетворены (предыдущие jobs завершились)
//
// Job выполняется Runner'ом.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на родительский run.
	RunID uuid.UUID `json:"run_id"`

	// StepID — ID шага из PipelineSpec (соответствует StepDef.ID).
	StepID string `json:"step_id"`

	// Name — имя шага (для удобства, копия StepDef.Name).
	Name string `json:"name"`

	// Type — тип шага: "command", "lint", "build", "publish",
	// "http", "delay", "parallel".
	Type string `json:"type"`

	// Attempt — номер попытки (начиная с 1).
	// Увеличивается при retry.
	Attempt int `json:"attempt"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// Payload — входные данные для job (отрендеренная конфигурация шага
	// плюс данные из предыдущих шагов).
	// Это то, что Runner получает для выполнения.
	Payload map[string]any `json:"payload,omitempty"`

	// Outputs — результаты выполнения job.
	// Заполняется Runner'ом после успешного выполнения.
	// Используется следующими шагами через {{ .Steps.X.outputs.Y }}
	Outputs map[string]any `json:"outputs,omitempty"`

	// LogRef — ссылка на полный лог шага (если слишком большой для inline).
	// Например: "s3://bucket/runs/abc/jobs/xyz/log.txt"
	LogRef string `json:"log_ref,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если job завершён.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит job в статус RUNNING.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Attempt++
}

// MarkSucceeded переводит job в статус SUCCEEDED с результатами.
func (j *Job) MarkSucceeded(outputs map[string]any) {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.Outputs = outputs
}

// MarkFailed переводит job в статус FAILED с ошибкой.
func (j *Job) MarkFailed(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = err
}

// ResetForRetry подготавливает job для повторной попытки.
// Сбрасывает статус в QUEUED, очищает ошибку.
func (j *Job) ResetForRetry() {
	j.Status = JobStatusQueued
	j.StartedAt = nil
	j.FinishedAt = nil
	j.Error = ""
	// Attempt увеличится при следующем MarkRunning()
}

// CanRetry проверяет, можно ли сделать ещё одну попытку.
func (j *Job) CanRetry(maxAttempts int) bool {
	return j.Attempt < maxAttempts
}
