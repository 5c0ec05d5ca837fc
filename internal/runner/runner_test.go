package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

// --- StepExecutor Tests ---

func TestStepExecutor_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	}))
	defer server.Close()

	registry := NewRegistry()
	executor, err := registry.Get("http")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := &domain.Job{
		ID: uuid.New(),
		Payload: map[string]any{
			"method": "GET",
			"url":    server.URL,
		},
	}

	result, err := executor.Execute(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}
	if result.Outputs["status_code"] != http.StatusOK {
		t.Errorf("expected status 200, got %v", result.Outputs["status_code"])
	}

	body, ok := result.Outputs["body"].(map[string]any)
	if !ok {
		t.Fatalf("body should be map, got %T", result.Outputs["body"])
	}
	if body["result"] != "ok" {
		t.Errorf("expected result=ok, got %v", body["result"])
	}
}

func TestStepExecutor_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal"}`))
	}))
	defer server.Close()

	registry := NewRegistry()
	executor, _ := registry.Get("http")

	job := &domain.Job{
		ID:      uuid.New(),
		Payload: map[string]any{"url": server.URL},
	}

	result, err := executor.Execute(context.Background(), job)
	if err != nil {
		t.Fatalf("HTTP errors should not be infrastructure errors: %v", err)
	}

	// Error должен быть заполнен
	if result.Error == "" {
		t.Error("expected execution error for 500")
	}

	// Outputs всё равно заполнены
	if result.Outputs["status_code"] != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %v", result.Outputs["status_code"])
	}
}

func TestStepExecutor_Command(t *testing.T) {
	registry := NewRegistry()
	executor, err := registry.Get("command")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := &domain.Job{
		ID:      uuid.New(),
		Payload: map[string]any{"command": "echo conveyor"},
	}

	result, err := executor.Execute(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}
	if !strings.Contains(result.Outputs["stdout_tail"].(string), "conveyor") {
		t.Errorf("unexpected stdout: %v", result.Outputs["stdout_tail"])
	}
}

func TestStepExecutor_CommandFailure(t *testing.T) {
	registry := NewRegistry()
	executor, _ := registry.Get("command")

	job := &domain.Job{
		ID:      uuid.New(),
		Payload: map[string]any{"command": "exit 1"},
	}

	result, err := executor.Execute(context.Background(), job)
	if err != nil {
		t.Fatalf("non-zero exit should be a logical error: %v", err)
	}
	if result.Error == "" {
		t.Error("expected execution error for exit 1")
	}
}

// --- Registry Tests ---

func TestNewRegistry_DefaultExecutors(t *testing.T) {
	r := NewRegistry()

	for _, stepType := range []string{"command", "lint", "build", "publish", "http", "delay"} {
		executor, err := r.Get(stepType)
		if err != nil {
			t.Errorf("expected executor for %s, got error: %v", stepType, err)
		}
		if executor == nil {
			t.Errorf("executor for %s should not be nil", stepType)
		}
	}

	// parallel разворачивается оркестратором, runner его не выполняет
	if _, err := r.Get("parallel"); err == nil {
		t.Error("parallel should not have an executor")
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("unknown")
	if err == nil {
		t.Error("expected error for unknown step type")
	}
}

// --- Backoff Tests ---

func TestCalculateBackoff_Exponential(t *testing.T) {
	policy := &domain.RetryPolicy{
		Backoff:        "exponential",
		InitialDelayMs: 1000,
		MaxDelayMs:     10000,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at max
		{6, 10 * time.Second}, // stays at max
	}

	for _, tt := range tests {
		got := calculateBackoff(tt.attempt, policy)
		if got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestCalculateBackoff_Fixed(t *testing.T) {
	policy := &domain.RetryPolicy{
		Backoff:        "fixed",
		InitialDelayMs: 2000,
		MaxDelayMs:     10000,
	}

	// Все попытки — одинаковая задержка
	for attempt := 1; attempt <= 5; attempt++ {
		got := calculateBackoff(attempt, policy)
		if got != 2*time.Second {
			t.Errorf("attempt %d: expected 2s, got %v", attempt, got)
		}
	}
}

func TestCalculateBackoff_NilPolicy(t *testing.T) {
	got := calculateBackoff(1, nil)
	if got != time.Second {
		t.Errorf("expected 1s default, got %v", got)
	}
}

func TestCalculateBackoff_ZeroValues(t *testing.T) {
	policy := &domain.RetryPolicy{
		Backoff: "exponential",
		// InitialDelayMs и MaxDelayMs = 0
	}

	got := calculateBackoff(1, policy)
	if got != time.Second {
		t.Errorf("expected 1s default for zero InitialDelayMs, got %v", got)
	}
}

func TestShouldRetryHTTPStatus(t *testing.T) {
	onStatus := []int{500, 502, 503}

	if !shouldRetryHTTPStatus(500, onStatus) {
		t.Error("500 should be retriable")
	}
	if !shouldRetryHTTPStatus(502, onStatus) {
		t.Error("502 should be retriable")
	}
	if shouldRetryHTTPStatus(400, onStatus) {
		t.Error("400 should not be retriable")
	}
	if shouldRetryHTTPStatus(404, onStatus) {
		t.Error("404 should not be retriable")
	}
}

// --- findStepDef Tests ---

func TestFindStepDef(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "lint", Type: "lint"},
		{
			ID:   "par",
			Type: "parallel",
			Branches: []domain.Branch{
				{ID: "a", Steps: []domain.StepDef{{ID: "build", Type: "build"}}},
			},
		},
	}

	if def := findStepDef(steps, "lint"); def == nil || def.ID != "lint" {
		t.Error("expected to find top-level step")
	}
	if def := findStepDef(steps, "build"); def == nil {
		t.Error("expected to find branch step by direct id")
	}
	if def := findStepDef(steps, "par.a.build"); def == nil {
		t.Error("expected to find branch step by prefixed id")
	}
	if def := findStepDef(steps, "missing"); def != nil {
		t.Error("expected nil for missing step")
	}
}

// --- Runner Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	r := New(Config{})

	if r.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", defaultPollInterval, r.pollInterval)
	}
	if r.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, r.batchSize)
	}
	if r.registry == nil {
		t.Error("registry should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	r := New(Config{
		PollInterval: 5 * time.Second,
		BatchSize:    25,
	})

	if r.pollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", r.pollInterval)
	}
	if r.batchSize != 25 {
		t.Errorf("expected batch size 25, got %d", r.batchSize)
	}
}

func TestRunner_IsStopped(t *testing.T) {
	r := New(Config{})

	if r.IsStopped() {
		t.Error("should not be stopped initially")
	}

	r.stoppedMu.Lock()
	r.stopped = true
	r.stoppedMu.Unlock()

	if !r.IsStopped() {
		t.Error("should be stopped")
	}
}
