package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — run успешно завершён.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run завершился с ошибкой.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — run отменён пользователем.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED (может быть retry → обратно в QUEUED)
type JobStatus string

const (
	// JobStatusQueued — job в очереди, ожидает выполнения.
	JobStatusQueued JobStatus = "QUEUED"

	// JobStatusRunning — job выполняется runner'ом.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job успешно завершён.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой (после всех retry).
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// ReleaseStatus — статус публикации релиза.
//
// Жизненный цикл:
//
//	PENDING → PUBLISHED
//	        ↘ FAILED
type ReleaseStatus string

const (
	// ReleaseStatusPending — релиз создан, загрузка в процессе.
	ReleaseStatusPending ReleaseStatus = "PENDING"

	// ReleaseStatusPublished — все артефакты загружены в индекс.
	ReleaseStatusPublished ReleaseStatus = "PUBLISHED"

	// ReleaseStatusFailed — загрузка завершилась с ошибкой.
	ReleaseStatusFailed ReleaseStatus = "FAILED"
)

// String возвращает строковое представление ReleaseStatus.
func (s ReleaseStatus) String() string {
	return string(s)
}

// ParseReleaseStatus парсит строку в ReleaseStatus.
func ParseReleaseStatus(s string) ReleaseStatus {
	switch s {
	case "PUBLISHED":
		return ReleaseStatusPublished
	case "FAILED":
		return ReleaseStatusFailed
	default:
		return ReleaseStatusPending
	}
}
