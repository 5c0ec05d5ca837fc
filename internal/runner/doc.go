// Package runner выполняет отдельные jobs.
//
// # Обзор
//
// Runner — stateless компонент системы Conveyor, который выполняет
// отдельные задачи (jobs), созданные Orchestrator'ом. Runner отвечает за:
//
//   - Получение jobs из очереди RabbitMQ (event-driven)
//   - Периодическую проверку queued jobs в БД (polling fallback)
//   - Выполнение job в зависимости от типа шага
//   - Retry с exponential backoff при ошибках
//   - Отправку результата обратно в очередь jobs.completed
//
// Runners масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди jobs.ready.
//
// # Ключевые компоненты
//
// ## Runner
//
// Основная структура, управляющая жизненным циклом.
// Создаётся через New(cfg Config) и запускается методом Start(ctx).
//
//	r := runner.New(runner.Config{
//	    JobRepo:      jobRepo,
//	    RunRepo:      runRepo,
//	    PipelineRepo: pipelineRepo,
//	    Publisher:    publisher,
//	    Conn:         mqConn,
//	    Logger:       logger,
//	})
//
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Stop()
//
// ## Executor
//
// Интерфейс для выполнения конкретного типа шага:
//
//	type Executor interface {
//	    Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error)
//	}
//
// Реализации шагов живут в пакете steps (command, lint, build,
// publish, http, delay); StepExecutor адаптирует steps.Step
// к интерфейсу Executor.
//
// ## Registry
//
// Реестр executor'ов по типу шага. NewRegistry() строит реестр
// из steps.DefaultRegistry, исключая parallel — его разворачивает
// оркестратор, runner получает только leaf-jobs.
//
// # Обработка job
//
//  1. Получение job (из очереди или polling)
//  2. Загрузка job из БД, проверка статуса QUEUED
//  3. Перевод в RUNNING, инкремент Attempt
//  4. Загрузка RetryPolicy из PipelineVersion
//  5. Выполнение через executeWithRetry
//  6. Успех → MarkSucceeded, publish JobCompleted(SUCCEEDED)
//  7. Ошибка → MarkFailed, publish JobCompleted(FAILED)
//
// # Retry
//
// Retry выполняется в процессе (in-process), а не через requeue в RabbitMQ.
// Это даёт точный контроль над backoff и подсчётом попыток.
//
// Стратегии backoff:
//   - "exponential": delay = initialDelay * 2^(attempt-1), capped at maxDelay
//   - "fixed": delay = initialDelay
//
// Для HTTP-шагов можно указать OnStatus — список HTTP-кодов, при которых retry.
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - Инфраструктурные (error от Execute) — сеть упала, команда не запустилась
//   - Логические (ExecutionResult.Error) — lint не прошёл, HTTP 500, индекс отклонил загрузку
//
// Инфраструктурные всегда retriable. Логические — зависят от OnStatus.
package runner
