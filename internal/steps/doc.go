// Package steps содержит реализации типов шагов pipeline.
//
// # Обзор
//
// Steps — это исполнители конкретных типов шагов. Каждый шаг:
//   - Получает конфигурацию (уже отрендеренную через engine.RenderConfig)
//   - Выполняет действие (команда, линтер, сборка, публикация, HTTP запрос)
//   - Возвращает outputs для использования в следующих шагах
//
// # Интерфейс Step
//
// Все шаги реализуют интерфейс Step:
//
//	type Step interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) (*Response, error)
//	}
//
// Request содержит:
//   - StepID — идентификатор шага
//   - Config — конфигурация (map[string]any)
//   - TemplateContext — контекст для дополнительного рендеринга
//   - Timeout — таймаут выполнения
//
// Response содержит:
//   - Outputs — результаты выполнения (map[string]any)
//   - Error — логическая ошибка шага (lint не прошёл, сборка без
//     артефактов, индекс отклонил загрузку); outputs сохраняются
//
// Инфраструктурные сбои (команда не запустилась, context отменён)
// возвращаются через error из Execute и подлежат retry.
//
// # Registry
//
// Registry — фабрика для получения Step по типу:
//
//	registry := steps.DefaultRegistry()  // command, lint, build, publish, http, delay, parallel
//	step, err := registry.Get("lint")
//	if err != nil {
//	    // неизвестный тип
//	}
//
// # Типы шагов
//
// ## Command (command.go)
//
// Выполняет произвольную shell-команду. Ненулевой код выхода —
// логическая ошибка шага, если не задан allow_failure.
//
// ## Lint (lint.go)
//
// Запускает линтер одним проходом без влияния на код выхода и сам
// решает, что блокирует pipeline: находки с кодами из fail_on
// (по умолчанию E9, F63, F7, F82 — синтаксические ошибки и
// неопределённые имена) превращаются в ошибку шага, остальные
// остаются предупреждениями в outputs.
//
// ## Build (build.go)
//
// Запускает сборочную команду и собирает дистрибутивные артефакты
// из artifact_dir по шаблону. Для каждого артефакта считается
// SHA-256. Сборка без артефактов — ошибка шага.
//
// ## Publish (publish.go)
//
// Загружает артефакты в индекс пакетов multipart-запросами с basic
// auth. Учётные данные читаются из переменных окружения, имена
// которых задаются в конфиге (username_env/password_env). Формат
// версии перепроверяется перед загрузкой.
//
// ## HTTP (http.go)
//
// Выполняет HTTP запросы к внешним API. Статус >= 400 — логическая
// ошибка шага с сохранением outputs.
//
// ## Delay (delay.go)
//
// Пауза между шагами.
//
// Конфигурация:
//
//	{"duration_sec": 5}   // или
//	{"duration_ms": 500}
//
// ## Parallel (parallel.go)
//
// Параллельное выполнение веток.
//
// ВАЖНО: ParallelStep сам не выполняет вложенные шаги.
// Orchestrator "разворачивает" parallel в DAG и выполняет
// шаги веток как отдельные jobs.
//
// Outputs (собираются через AggregateParallelOutputs):
//
//	{
//	    "branch_a": {"step1": {...}, "step2": {...}},
//	    "branch_b": {"step1": {...}}
//	}
//
// Вспомогательные функции:
//   - AggregateParallelOutputs — собирает outputs веток
//   - ExtractBranchOutputs — извлекает outputs ветки
//   - ExtractStepOutputs — извлекает outputs шага из ветки
//
// # Использование
//
// Типичный порядок вызова в Runner:
//
//	// 1. Получить Step из Registry
//	registry := steps.DefaultRegistry()
//	step, err := registry.Get(job.Type)
//
//	// 2. Подготовить Request
//	req := &steps.Request{
//	    StepID:  job.StepID,
//	    Config:  job.Payload,
//	    Timeout: 30 * time.Second,
//	}
//
//	// 3. Выполнить с context
//	ctx, cancel := context.WithTimeout(context.Background(), req.Timeout)
//	defer cancel()
//
//	resp, err := step.Execute(ctx, req)
//	if err != nil {
//	    // инфраструктурная ошибка, retry
//	}
//	if resp.Error != "" {
//	    // логическая ошибка, job падает без retry
//	}
//
//	// 4. Использовать outputs
//	job.Outputs = resp.Outputs
//
// Retry логика находится в Runner, шаги просто возвращают ошибки.
package steps
