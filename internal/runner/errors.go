package runner

import "errors"

// Ошибки runner.
var (
	// ErrJobNotFound — job не найден в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotQueued — job не в статусе QUEUED.
	ErrJobNotQueued = errors.New("job is not in QUEUED status")

	// ErrUnknownStepType — нет executor'а для данного типа шага.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrExecutionTimeout — выполнение job превысило таймаут.
	ErrExecutionTimeout = errors.New("execution timeout")

	// ErrExecutionFailed — выполнение job завершилось ошибкой.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrRunnerStopped — runner остановлен.
	ErrRunnerStopped = errors.New("runner stopped")

	// ErrRetryExhausted — все попытки retry исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrStepDefNotFound — определение шага не найдено.
	ErrStepDefNotFound = errors.New("step definition not found")
)
