package runner

import (
	"context"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/steps"
)

// Executor — интерфейс для выполнения конкретного типа шага.
//
// job.Payload содержит отрендеренную конфигурацию шага.
// ctx может содержать таймаут, установленный из StepDef.TimeoutSec.
type Executor interface {
	Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error)
}

// ExecutionResult — результат выполнения job.
type ExecutionResult struct {
	// Outputs — выходные данные выполнения.
	Outputs map[string]any

	// Error — сообщение об ошибке (логическая ошибка выполнения).
	// Инфраструктурные ошибки возвращаются через error в Execute().
	Error string
}

// StepExecutor — адаптер steps.Step к интерфейсу Executor.
//
// Вся реальная работа шагов живёт в пакете steps; executor
// только упаковывает job в steps.Request.
type StepExecutor struct {
	step steps.Step
}

// NewStepExecutor создаёт executor поверх реализации шага.
func NewStepExecutor(step steps.Step) *StepExecutor {
	return &StepExecutor{step: step}
}

// Execute выполняет шаг для job.
func (e *StepExecutor) Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error) {
	req := steps.NewRequest(job.StepID, job.Payload, nil, 0)

	resp, err := e.step.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	return &ExecutionResult{
		Outputs: resp.Outputs,
		Error:   resp.Error,
	}, nil
}

// Registry — реестр executor'ов по типу шага.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry создаёт реестр с executor'ами по умолчанию.
//
// Регистрирует все исполняемые типы шагов из steps.DefaultRegistry.
// parallel обрабатывается оркестратором, runner получает только leaf-jobs.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[string]Executor)}

	stepRegistry := steps.DefaultRegistry()
	for _, stepType := range stepRegistry.Types() {
		if stepType == steps.StepTypeParallel {
			continue
		}
		step, err := stepRegistry.Get(stepType)
		if err != nil {
			continue
		}
		r.Register(stepType, NewStepExecutor(step))
	}

	return r
}

// Register добавляет executor для типа шага.
func (r *Registry) Register(stepType string, executor Executor) {
	r.executors[stepType] = executor
}

// Get возвращает executor для типа шага.
func (r *Registry) Get(stepType string) (Executor, error) {
	executor, ok := r.executors[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepType, stepType)
	}
	return executor, nil
}
