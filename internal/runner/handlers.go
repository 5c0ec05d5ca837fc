package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
)

// handleJobReady обрабатывает событие о новом job из очереди jobs.ready.
func (r *Runner) handleJobReady(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	payload, err := mq.ParsePayload[mq.JobReadyPayload](&delivery.Message)
	if err != nil {
		r.logger.Error("failed to parse job.ready payload", "error", err)
		return err
	}

	r.logger.Debug("received job.ready event",
		"job_id", payload.JobID,
		"run_id", payload.RunID,
	)

	// Обрабатываем job
	if err := r.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotQueued) {
			r.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		r.logger.Error("failed to process job", "job_id", payload.JobID, "error", err)
		return err
	}

	return nil
}

// processJob загружает job из БД, выполняет и обрабатывает результат.
func (r *Runner) processJob(ctx context.Context, jobID uuid.UUID) error {
	// 1. Загружаем job из БД
	job, err := r.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("get job: %w", err)
	}

	// 2. Проверяем статус
	if job.Status != domain.JobStatusQueued {
		return ErrJobNotQueued
	}

	// 3. Помечаем как running
	job.MarkRunning()
	if err := r.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to running: %w", err)
	}

	r.logger.Info("job started",
		"job_id", job.ID,
		"run_id", job.RunID,
		"step_id", job.StepID,
		"type", job.Type,
		"attempt", job.Attempt,
	)

	// 4. Загружаем RetryPolicy
	retryPolicy := r.getRetryPolicy(ctx, job)

	// 5. Выполняем с retry
	result, execErr := r.executeWithRetry(ctx, job, retryPolicy)

	// 6. Обрабатываем результат
	if execErr == nil && result.Error == "" {
		// Успех
		job.MarkSucceeded(result.Outputs)
		if err := r.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("update job to succeeded: %w", err)
		}

		r.logger.Info("job succeeded",
			"job_id", job.ID,
			"run_id", job.RunID,
			"step_id", job.StepID,
			"attempt", job.Attempt,
		)

		return r.publishCompletion(ctx, job, "")
	}

	// Ошибка
	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	} else {
		errMsg = result.Error
	}

	job.MarkFailed(errMsg)
	if err := r.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}

	r.logger.Warn("job failed",
		"job_id", job.ID,
		"run_id", job.RunID,
		"step_id", job.StepID,
		"attempt", job.Attempt,
		"error", errMsg,
	)

	return r.publishCompletion(ctx, job, errMsg)
}

// publishCompletion публикует событие job.completed.
func (r *Runner) publishCompletion(ctx context.Context, job *domain.Job, errMsg string) error {
	if r.publisher == nil {
		r.logger.Warn("publisher not available, skipping job.completed publish",
			"job_id", job.ID,
		)
		return nil
	}

	payload := mq.JobCompletedPayload{
		JobID:   job.ID,
		RunID:   job.RunID,
		StepID:  job.StepID,
		Status:  string(job.Status),
		Error:   errMsg,
		Attempt: job.Attempt,
	}

	if err := r.publisher.PublishJobCompleted(ctx, payload); err != nil {
		r.logger.Warn("failed to publish job.completed",
			"job_id", job.ID,
			"error", err,
		)
		// Не возвращаем ошибку — job обновлён в БД, оркестратор подхватит через polling
	}

	return nil
}

// executeWithRetry выполняет job с retry согласно RetryPolicy.
func (r *Runner) executeWithRetry(ctx context.Context, job *domain.Job, policy *domain.RetryPolicy) (*ExecutionResult, error) {
	// Получаем executor
	executor, err := r.registry.Get(job.Type)
	if err != nil {
		return nil, err
	}

	maxAttempts := 1
	if policy != nil && policy.MaxAttempts > 0 {
		maxAttempts = policy.MaxAttempts
	}

	var lastResult *ExecutionResult
	var lastErr error

	for {
		// Выполняем
		lastResult, lastErr = executor.Execute(ctx, job)

		// Успех — инфраструктурной ошибки нет и логической ошибки нет
		if lastErr == nil && (lastResult == nil || lastResult.Error == "") {
			return lastResult, nil
		}

		// Проверяем, можно ли делать retry
		if !job.CanRetry(maxAttempts) {
			break
		}

		// Для HTTP: проверяем OnStatus
		if !r.shouldRetry(lastResult, lastErr, policy) {
			break
		}

		// Считаем backoff
		delay := calculateBackoff(job.Attempt, policy)

		r.logger.Debug("retrying job",
			"job_id", job.ID,
			"attempt", job.Attempt,
			"delay", delay,
		)

		// Ждём с учётом context
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Сброс и новая попытка
		job.ResetForRetry()
		job.MarkRunning()
		if err := r.jobRepo.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("update job for retry: %w", err)
		}
	}

	return lastResult, lastErr
}

// shouldRetry определяет, нужно ли делать retry.
func (r *Runner) shouldRetry(result *ExecutionResult, execErr error, policy *domain.RetryPolicy) bool {
	// Инфраструктурная ошибка — всегда retry
	if execErr != nil {
		return true
	}

	// Нет policy — нет retry
	if policy == nil {
		return false
	}

	// Для HTTP: проверяем OnStatus
	if result != nil && result.Outputs != nil && len(policy.OnStatus) > 0 {
		if statusCode, ok := result.Outputs["status_code"]; ok {
			if code, ok := statusCode.(int); ok {
				return shouldRetryHTTPStatus(code, policy.OnStatus)
			}
		}
		// Если есть OnStatus но нет status_code — не retry
		return false
	}

	// Логическая ошибка без OnStatus — retry
	return true
}

// shouldRetryHTTPStatus проверяет, входит ли HTTP-код в список для retry.
func shouldRetryHTTPStatus(statusCode int, onStatus []int) bool {
	for _, code := range onStatus {
		if statusCode == code {
			return true
		}
	}
	return false
}

// calculateBackoff вычисляет задержку перед retry.
func calculateBackoff(attempt int, policy *domain.RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}

	initialDelay := time.Duration(policy.InitialDelayMs) * time.Millisecond
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch policy.Backoff {
	case "exponential":
		// delay = initialDelay * 2^(attempt-1)
		delay = initialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
				break
			}
		}
	default:
		// "fixed" или неизвестный — используем initialDelay
		delay = initialDelay
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}

// getRetryPolicy загружает RetryPolicy для job из PipelineVersion.
func (r *Runner) getRetryPolicy(ctx context.Context, job *domain.Job) *domain.RetryPolicy {
	// Загружаем run для PipelineID и Version
	run, err := r.runRepo.GetByID(ctx, job.RunID)
	if err != nil {
		r.logger.Debug("failed to load run for retry policy", "run_id", job.RunID, "error", err)
		return nil
	}

	// Загружаем PipelineVersion
	version, err := r.pipelineRepo.GetVersion(ctx, run.PipelineID, run.Version)
	if err != nil {
		r.logger.Debug("failed to load pipeline version for retry policy", "pipeline_id", run.PipelineID, "error", err)
		return nil
	}

	// Ищем StepDef по StepID
	stepDef := findStepDef(version.Spec.Steps, job.StepID)
	if stepDef != nil && stepDef.Retry != nil {
		return stepDef.Retry
	}

	// Fallback на defaults
	if version.Spec.Defaults != nil && version.Spec.Defaults.Retry != nil {
		return version.Spec.Defaults.Retry
	}

	return nil
}

// findStepDef ищет StepDef по ID, включая шаги внутри parallel-веток.
func findStepDef(steps []domain.StepDef, stepID string) *domain.StepDef {
	for i := range steps {
		step := &steps[i]
		if step.ID == stepID {
			return step
		}

		// Для parallel — ищем в ветках (с учётом prefix: parallel_id.branch_id.step_id)
		if step.Type == "parallel" {
			for _, branch := range step.Branches {
				for j := range branch.Steps {
					branchStep := &branch.Steps[j]
					// Проверяем как прямой ID, так и prefixed
					prefixedID := fmt.Sprintf("%s.%s.%s", step.ID, branch.ID, branchStep.ID)
					if branchStep.ID == stepID || prefixedID == stepID {
						return branchStep
					}
				}
			}
		}
	}
	return nil
}
