package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline — определение конвейера сборки и публикации.
//
// Pipeline — это "рецепт" автоматизации релиза: какие шаги выполнять
// и на какие события исходного кода реагировать.
// Один pipeline может иметь множество версий (PipelineVersion).
// Каждый запуск (Run) выполняет конкретную версию pipeline.
type Pipeline struct {
	// ID — уникальный идентификатор pipeline.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя pipeline (например, "release", "nightly-build").
	// Используется для удобной идентификации пользователем.
	Name string `json:"name"`

	// IsActive — флаг активности. Неактивные pipelines не запускаются
	// ни по событиям, ни по расписанию.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания pipeline.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineVersion — версия pipeline с конкретной спецификацией.
//
// Версионирование позволяет:
// - Отслеживать историю изменений
// - Откатываться к предыдущим версиям
// - Воспроизводить старые сборки
type PipelineVersion struct {
	// PipelineID — ссылка на родительский pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — номер версии (1, 2, 3, ...).
	// Автоинкремент при создании новой версии.
	Version int `json:"version"`

	// Spec — спецификация pipeline в формате JSON.
	// Содержит триггеры, шаги, зависимости, настройки retry и т.д.
	Spec PipelineSpec `json:"spec"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineSpec — спецификация pipeline (содержимое JSONB поля spec).
//
// Это "программа" для Conveyor — описание того, что и когда выполнять.
// Через CLI спецификация пишется в YAML и конвертируется в этот формат.
type PipelineSpec struct {
	// Version — версия формата спецификации (для обратной совместимости).
	Version string `json:"version,omitempty"`

	// Name — имя pipeline (дублирует Pipeline.Name для удобства).
	Name string `json:"name,omitempty"`

	// Description — описание назначения pipeline.
	Description string `json:"description,omitempty"`

	// On — правила триггеров: какие события запускают pipeline.
	On *TriggerRules `json:"on,omitempty"`

	// Inputs — входные параметры pipeline (для ручного запуска).
	// Ключ — имя параметра, значение — его определение.
	Inputs map[string]InputDef `json:"inputs,omitempty"`

	// Env — переменные окружения по умолчанию для всех шагов.
	// Значения шагов переопределяют их.
	Env map[string]string `json:"env,omitempty"`

	// Defaults — настройки по умолчанию для всех шагов.
	Defaults *StepDefaults `json:"defaults,omitempty"`

	// Steps — список шагов для выполнения.
	Steps []StepDef `json:"steps"`

	// OnFailure — обработчик ошибок (выполняется при падении pipeline,
	// например, уведомление в чат через http шаг).
	OnFailure *StepDef `json:"on_failure,omitempty"`
}

// TriggerRules — правила запуска pipeline по событиям исходного кода.
//
// Расписания (cron/interval) хранятся отдельно, см. Schedule.
type TriggerRules struct {
	// Push — запуск при push в ветку.
	Push *PushRule `json:"push,omitempty"`

	// Tags — запуск при push тега.
	// Тег проходит проверку формата версии до создания run.
	Tags *TagRule `json:"tags,omitempty"`

	// PullRequest — запуск при открытии/обновлении pull request.
	PullRequest bool `json:"pull_request,omitempty"`

	// Manual — разрешён ли ручной запуск через API/CLI.
	Manual bool `json:"manual,omitempty"`
}

// PushRule — правило запуска по push в ветку.
type PushRule struct {
	// Branches — glob-шаблоны имён веток (например, "main", "release/*").
	// Пустой список означает любую ветку.
	Branches []string `json:"branches,omitempty"`
}

// TagRule — правило запуска по push тега.
type TagRule struct {
	// Patterns — glob-шаблоны имён тегов (например, "v*").
	// Пустой список означает любой тег.
	Patterns []string `json:"patterns,omitempty"`
}

// InputDef — определение входного параметра.
type InputDef struct {
	// Type — тип параметра: "string", "number", "boolean", "object".
	Type string `json:"type"`

	// Required — обязательный ли параметр.
	Required bool `json:"required,omitempty"`

	// Default — значение по умолчанию.
	Default any `json:"default,omitempty"`

	// Description — описание параметра.
	Description string `json:"description,omitempty"`
}

// StepDefaults — настройки по умолчанию для шагов.
type StepDefaults struct {
	// Retry — политика повторных попыток.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// TimeoutSec — таймаут выполнения в секундах.
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// StepDef — определение шага в pipeline.
type StepDef struct {
	// ID — уникальный идентификатор шага в рамках pipeline.
	// Используется в depends_on и для ссылок на результаты.
	ID string `json:"id"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name,omitempty"`

	// Type — тип шага: "command", "lint", "build", "publish",
	// "http", "delay", "parallel".
	Type string `json:"type"`

	// DependsOn — список ID шагов, от которых зависит этот шаг.
	// Шаг начнёт выполнение только после успешного завершения всех зависимостей.
	DependsOn []string `json:"depends_on,omitempty"`

	// Condition — условие выполнения (Go template, возвращающий bool).
	// Например: "{{ ne .Trigger.Tag \"\" }}"
	Condition string `json:"condition,omitempty"`

	// Config — конфигурация шага (зависит от типа).
	// Для command: command, workdir, env, timeout_sec
	// Для publish: index_url, username_env, password_env
	Config map[string]any `json:"config,omitempty"`

	// Outputs — маппинг результатов шага для использования в следующих шагах.
	// Ключ — имя output, значение — Go template для извлечения.
	Outputs map[string]string `json:"outputs,omitempty"`

	// Retry — политика повторных попыток для этого шага.
	// Переопределяет defaults.retry.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// TimeoutSec — таймаут для этого шага.
	// Переопределяет defaults.timeout_sec.
	TimeoutSec int `json:"timeout_sec,omitempty"`

	// Branches — ветки для параллельного выполнения (только для type="parallel").
	Branches []Branch `json:"branches,omitempty"`
}

// RetryPolicy — политика повторных попыток.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty"`

	// OnStatus — HTTP статусы, при которых делать retry
	// (для http и publish шагов).
	OnStatus []int `json:"on_status,omitempty"`
}

// Branch — ветка параллельного выполнения.
type Branch struct {
	// ID — идентификатор ветки.
	ID string `json:"id"`

	// Steps — шаги внутри ветки.
	Steps []StepDef `json:"steps"`
}
