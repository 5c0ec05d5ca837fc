package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	// StepTypeCommand — тип шага выполнения команды.
	StepTypeCommand = "command"

	// Значения по умолчанию.
	defaultCommandTimeout = 10 * time.Minute

	// maxOutputTail — сколько байт хвоста stdout/stderr попадает в outputs.
	maxOutputTail = 8 * 1024
)

// Ключи конфигурации command шага.
const (
	configCommand      = "command"
	configWorkdir      = "workdir"
	configEnv          = "env"
	configAllowFailure = "allow_failure"
)

// CommandStep — шаг выполнения shell-команды.
//
// Используется для установки зависимостей и прочих произвольных
// команд сборочного окружения.
//
// Конфигурация:
//
//	{
//	    "command": "pip install -r requirements.txt",
//	    "workdir": "/workspace/pkg",
//	    "env": {"PIP_NO_CACHE_DIR": "1"},
//	    "timeout_sec": 600,
//	    "allow_failure": false
//	}
//
// Outputs:
//
//	{
//	    "exit_code": 0,
//	    "stdout_tail": "...",
//	    "stderr_tail": "...",
//	    "duration_ms": 1234
//	}
type CommandStep struct{}

// NewCommandStep создаёт новый CommandStep.
func NewCommandStep() *CommandStep {
	return &CommandStep{}
}

// Type возвращает тип шага.
func (s *CommandStep) Type() string {
	return StepTypeCommand
}

// Execute выполняет команду.
func (s *CommandStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	command := GetConfigString(req.Config, configCommand)
	if command == "" {
		return nil, fmt.Errorf("%w: %s: command is required", ErrInvalidConfig, StepTypeCommand)
	}

	timeout := commandTimeout(req, defaultCommandTimeout)

	res, err := runShell(ctx, shellSpec{
		Command: command,
		Workdir: GetConfigString(req.Config, configWorkdir),
		Env:     GetConfigMapString(req.Config, configEnv),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{
		"exit_code":   res.ExitCode,
		"stdout_tail": tail(res.Stdout, maxOutputTail),
		"stderr_tail": tail(res.Stderr, maxOutputTail),
		"duration_ms": res.Duration.Milliseconds(),
	}

	if res.ExitCode != 0 && !GetConfigBool(req.Config, configAllowFailure, false) {
		return FailedResponse(outputs, "command exited with code %d", res.ExitCode), nil
	}

	return &Response{Outputs: outputs}, nil
}

// shellSpec — параметры запуска shell-команды.
type shellSpec struct {
	Command string
	Workdir string
	Env     map[string]string
	Timeout time.Duration
}

// shellResult — результат выполнения shell-команды.
type shellResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// runShell запускает команду через "sh -c" и дожидается завершения.
//
// Ненулевой код выхода — не ошибка: он возвращается в ExitCode,
// решение принимает вызывающий шаг. Ошибка возвращается только
// когда команду не удалось запустить или контекст отменён.
func runShell(ctx context.Context, spec shellSpec) (*shellResult, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", spec.Command)
	cmd.Dir = spec.Workdir

	// Окружение шага поверх окружения процесса
	cmd.Env = os.Environ()
	for key, value := range spec.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run command: %w", err)
		}
	}

	return &shellResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

// commandTimeout определяет таймаут шага: Request.Timeout
// переопределяет timeout_sec из конфига.
func commandTimeout(req *Request, def time.Duration) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if sec := GetConfigInt(req.Config, configTimeoutSec); sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return def
}

// tail возвращает последние max байт строки.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
