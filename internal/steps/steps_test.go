package steps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Registry Tests

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	// Пустой реестр
	if r.Count() != 0 {
		t.Errorf("expected empty registry")
	}

	// Регистрация
	r.Register(NewDelayStep())
	if r.Count() != 1 {
		t.Errorf("expected 1 step, got %d", r.Count())
	}

	// Получение
	step, err := r.Get("delay")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if step.Type() != "delay" {
		t.Errorf("expected delay, got %s", step.Type())
	}

	// Несуществующий тип
	_, err = r.Get("unknown")
	if !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}

	// Has
	if !r.Has("delay") {
		t.Error("should have delay")
	}
	if r.Has("unknown") {
		t.Error("should not have unknown")
	}

	// Unregister
	r.Unregister("delay")
	if r.Has("delay") {
		t.Error("should not have delay after unregister")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	expectedTypes := []string{"build", "command", "delay", "http", "lint", "parallel", "publish"}
	for _, typ := range expectedTypes {
		if !r.Has(typ) {
			t.Errorf("default registry should have %s", typ)
		}
	}

	types := r.Types()
	if len(types) != len(expectedTypes) {
		t.Errorf("expected %d types, got %d", len(expectedTypes), len(types))
	}
}

// Command Step Tests

func TestCommandStep_Type(t *testing.T) {
	step := NewCommandStep()
	if step.Type() != "command" {
		t.Errorf("expected 'command', got %s", step.Type())
	}
}

func TestCommandStep_Execute(t *testing.T) {
	step := NewCommandStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"command": "echo hello",
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Errorf("unexpected step error: %s", resp.Error)
	}
	if resp.Outputs["exit_code"] != 0 {
		t.Errorf("expected exit_code 0, got %v", resp.Outputs["exit_code"])
	}
	if !strings.Contains(resp.Outputs["stdout_tail"].(string), "hello") {
		t.Errorf("expected stdout to contain hello, got %v", resp.Outputs["stdout_tail"])
	}
}

func TestCommandStep_NonZeroExit(t *testing.T) {
	step := NewCommandStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"command": "exit 3",
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error for non-zero exit")
	}
	if resp.Outputs["exit_code"] != 3 {
		t.Errorf("expected exit_code 3, got %v", resp.Outputs["exit_code"])
	}
}

func TestCommandStep_AllowFailure(t *testing.T) {
	step := NewCommandStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"command":       "exit 1",
			"allow_failure": true,
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Errorf("allow_failure should suppress step error, got %s", resp.Error)
	}
	if resp.Outputs["exit_code"] != 1 {
		t.Errorf("expected exit_code 1, got %v", resp.Outputs["exit_code"])
	}
}

func TestCommandStep_Env(t *testing.T) {
	step := NewCommandStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"command": "echo $GREETING",
			"env":     map[string]any{"GREETING": "privet"},
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Outputs["stdout_tail"].(string), "privet") {
		t.Errorf("expected env to be passed, got %v", resp.Outputs["stdout_tail"])
	}
}

func TestCommandStep_InvalidConfig(t *testing.T) {
	step := NewCommandStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{}, // Нет command
	}

	_, err := step.Execute(ctx, req)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestCommandStep_Cancellation(t *testing.T) {
	step := NewCommandStep()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"command": "sleep 5",
		},
	}

	_, err := step.Execute(ctx, req)
	if !errors.Is(err, ErrStepCancelled) {
		t.Errorf("expected ErrStepCancelled, got %v", err)
	}
}

func TestTail(t *testing.T) {
	if tail("hello", 10) != "hello" {
		t.Error("short string should be returned as is")
	}
	if tail("hello world", 5) != "world" {
		t.Errorf("expected last 5 bytes, got %q", tail("hello world", 5))
	}
}

// Lint Step Tests

// fakeLinter создаёт исполняемый скрипт, который печатает output
// и игнорирует аргументы.
func fakeLinter(t *testing.T, output string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakelint")
	script := "#!/bin/sh\nprintf '%b' \"" + output + "\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLintStep_Type(t *testing.T) {
	step := NewLintStep()
	if step.Type() != "lint" {
		t.Errorf("expected 'lint', got %s", step.Type())
	}
}

func TestLintStep_BlockingFindings(t *testing.T) {
	linter := fakeLinter(t, `app.py:1:1: E999 SyntaxError: invalid syntax\napp.py:2:80: E501 line too long (135 > 127 characters)\n`)

	step := NewLintStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "lint",
		Config: map[string]any{"linter": linter},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Error == "" {
		t.Fatal("E999 should block the pipeline")
	}
	if resp.Outputs["errors"] != 1 {
		t.Errorf("expected 1 error, got %v", resp.Outputs["errors"])
	}
	if resp.Outputs["warnings"] != 1 {
		t.Errorf("expected 1 warning, got %v", resp.Outputs["warnings"])
	}

	findings := resp.Outputs["findings"].([]map[string]any)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0]["code"] != "E999" || findings[0]["line"] != 1 {
		t.Errorf("unexpected first finding: %v", findings[0])
	}
}

func TestLintStep_WarningsOnly(t *testing.T) {
	linter := fakeLinter(t, `app.py:2:80: E501 line too long (135 > 127 characters)\napp.py:5:1: C901 too complex (12)\n`)

	step := NewLintStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "lint",
		Config: map[string]any{"linter": linter},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Error != "" {
		t.Errorf("style findings should not block, got error %q", resp.Error)
	}
	if resp.Outputs["errors"] != 0 {
		t.Errorf("expected 0 errors, got %v", resp.Outputs["errors"])
	}
	if resp.Outputs["warnings"] != 2 {
		t.Errorf("expected 2 warnings, got %v", resp.Outputs["warnings"])
	}
}

func TestLintStep_CleanOutput(t *testing.T) {
	linter := fakeLinter(t, "")

	step := NewLintStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "lint",
		Config: map[string]any{"linter": linter},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Errorf("clean output should pass, got %q", resp.Error)
	}
	if resp.Outputs["errors"] != 0 || resp.Outputs["warnings"] != 0 {
		t.Errorf("expected no findings, got %v", resp.Outputs)
	}
}

func TestLintStep_LinterMissing(t *testing.T) {
	step := NewLintStep()
	_, err := step.Execute(context.Background(), &Request{
		StepID: "lint",
		Config: map[string]any{"linter": "/nonexistent/linter"},
	})
	if err == nil {
		t.Fatal("expected infrastructure error for missing linter")
	}
}

func TestParseFindings(t *testing.T) {
	output := "src/a.py:12:1: F821 undefined name 'foo'\n" +
		"random noise line\n" +
		"src/b.py:3:5: E501 line too long\n"

	findings := parseFindings(output)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].File != "src/a.py" || findings[0].Line != 12 || findings[0].Code != "F821" {
		t.Errorf("unexpected finding: %+v", findings[0])
	}
	if findings[0].Text != "undefined name 'foo'" {
		t.Errorf("unexpected text: %q", findings[0].Text)
	}
}

func TestIsBlockingCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"E999", true},  // E9 префикс
		{"E901", true},
		{"F821", true},  // F82 префикс
		{"F701", true},  // F7 префикс
		{"F631", true},  // F63 префикс
		{"E501", false}, // стиль
		{"C901", false}, // сложность
		{"W605", false},
	}

	for _, tt := range tests {
		if got := isBlockingCode(tt.code, defaultFailOn); got != tt.want {
			t.Errorf("isBlockingCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFailOnCodes(t *testing.T) {
	// По умолчанию
	codes := failOnCodes(map[string]any{})
	if len(codes) != 4 {
		t.Errorf("expected 4 default codes, got %v", codes)
	}

	// Список
	codes = failOnCodes(map[string]any{"fail_on": []any{"E1", "W6"}})
	if len(codes) != 2 || codes[0] != "E1" {
		t.Errorf("unexpected codes: %v", codes)
	}

	// Строка через запятую
	codes = failOnCodes(map[string]any{"fail_on": "E9, F82"})
	if len(codes) != 2 || codes[1] != "F82" {
		t.Errorf("unexpected codes: %v", codes)
	}
}

// Build Step Tests

func TestBuildStep_Type(t *testing.T) {
	step := NewBuildStep()
	if step.Type() != "build" {
		t.Errorf("expected 'build', got %s", step.Type())
	}
}

func TestBuildStep_Execute(t *testing.T) {
	workdir := t.TempDir()

	step := NewBuildStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "build",
		Config: map[string]any{
			"command":          "mkdir -p dist && echo data > dist/pkg-1.0.0.tar.gz",
			"workdir":          workdir,
			"artifact_pattern": "*.tar.gz",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected step error: %s", resp.Error)
	}

	if resp.Outputs["count"] != 1 {
		t.Fatalf("expected 1 artifact, got %v", resp.Outputs["count"])
	}

	artifacts := resp.Outputs["artifacts"].([]map[string]any)
	art := artifacts[0]
	if art["name"] != "pkg-1.0.0.tar.gz" {
		t.Errorf("unexpected artifact name: %v", art["name"])
	}
	if art["size_bytes"].(int64) == 0 {
		t.Error("expected non-zero artifact size")
	}
	if len(art["sha256"].(string)) != 64 {
		t.Errorf("expected sha256 hex digest, got %v", art["sha256"])
	}
}

func TestBuildStep_NoArtifacts(t *testing.T) {
	step := NewBuildStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "build",
		Config: map[string]any{
			"command": "true",
			"workdir": t.TempDir(),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("build without artifacts should fail the step")
	}
}

func TestBuildStep_CommandFailed(t *testing.T) {
	step := NewBuildStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "build",
		Config: map[string]any{
			"command": "exit 2",
			"workdir": t.TempDir(),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error for failed build command")
	}
	if resp.Outputs["exit_code"] != 2 {
		t.Errorf("expected exit_code 2, got %v", resp.Outputs["exit_code"])
	}
}

// Publish Step Tests

// makeArtifact создаёт каталог с одним артефактом и возвращает workdir.
func makeArtifact(t *testing.T, name string) string {
	t.Helper()
	workdir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workdir, "dist"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workdir, "dist", name), []byte("artifact data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return workdir
}

func TestPublishStep_Type(t *testing.T) {
	step := NewPublishStep()
	if step.Type() != "publish" {
		t.Errorf("expected 'publish', got %s", step.Type())
	}
}

func TestPublishStep_Upload(t *testing.T) {
	var gotUser, gotFile string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if fhs := r.MultipartForm.File["content"]; len(fhs) == 1 {
			gotFile = fhs[0].Filename
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Setenv("INDEX_USERNAME", "__token__")
	t.Setenv("INDEX_PASSWORD", "pypi-secret")

	step := NewPublishStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": server.URL,
			"workdir":   makeArtifact(t, "pkg-1.2.3.whl"),
			"tag":       "v1.2.3",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected step error: %s", resp.Error)
	}

	if resp.Outputs["uploaded"] != 1 {
		t.Errorf("expected 1 uploaded, got %v", resp.Outputs["uploaded"])
	}
	if gotUser != "__token__" {
		t.Errorf("expected basic auth user, got %q", gotUser)
	}
	if gotFile != "pkg-1.2.3.whl" {
		t.Errorf("expected artifact filename, got %q", gotFile)
	}
}

func TestPublishStep_BadTag(t *testing.T) {
	// Проверка формата версии идёт до обращения к индексу и окружению
	step := NewPublishStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": "http://unused.invalid",
			"tag":       "vfoo",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error for bad tag")
	}
	if !strings.Contains(resp.Error, "vfoo") {
		t.Errorf("error should name the tag, got %q", resp.Error)
	}
}

func TestPublishStep_VerifyGatesUpload(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Setenv("INDEX_USERNAME", "user")
	t.Setenv("INDEX_PASSWORD", "pass")

	step := NewPublishStep()
	workdir := makeArtifact(t, "pkg-1.2.3.whl")

	// Тег задан (как после подстановки Orchestrator) — проверка
	// включена по умолчанию, плохой тег не доходит до индекса
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": server.URL,
			"workdir":   workdir,
			"tag":       "vfoo",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error for bad tag with default verify")
	}
	if hits != 0 {
		t.Fatalf("index was hit %d times before version check", hits)
	}

	// verify: false отключает проверку явно
	resp, err = step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": server.URL,
			"workdir":   workdir,
			"tag":       "vfoo",
			"verify":    false,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("verify=false should skip the check, got %q", resp.Error)
	}
	if hits != 1 {
		t.Errorf("expected 1 upload with verify disabled, got %d", hits)
	}
}

func TestPublishStep_MissingCredentials(t *testing.T) {
	t.Setenv("INDEX_USERNAME", "")
	t.Setenv("INDEX_PASSWORD", "")

	step := NewPublishStep()
	_, err := step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": "http://unused.invalid",
		},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPublishStep_SkipExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	t.Setenv("INDEX_USERNAME", "user")
	t.Setenv("INDEX_PASSWORD", "pass")

	step := NewPublishStep()
	workdir := makeArtifact(t, "pkg-1.2.3.whl")

	// Без skip_existing конфликт — ошибка
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url": server.URL,
			"workdir":   workdir,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error on 409 without skip_existing")
	}

	// Со skip_existing конфликт пропускается
	resp, err = step.Execute(context.Background(), &Request{
		StepID: "publish",
		Config: map[string]any{
			"index_url":     server.URL,
			"workdir":       workdir,
			"skip_existing": true,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "" {
		t.Errorf("skip_existing should tolerate 409, got %q", resp.Error)
	}
	if resp.Outputs["skipped"] != 1 {
		t.Errorf("expected 1 skipped, got %v", resp.Outputs["skipped"])
	}
}

// Delay Step Tests

func TestDelayStep_Type(t *testing.T) {
	step := NewDelayStep()
	if step.Type() != "delay" {
		t.Errorf("expected 'delay', got %s", step.Type())
	}
}

func TestDelayStep_Execute(t *testing.T) {
	step := NewDelayStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"duration_ms": 50,
		},
	}

	start := time.Now()
	resp, err := step.Execute(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("response should not be nil")
	}

	// Проверяем, что задержка была выполнена
	if elapsed < 50*time.Millisecond {
		t.Errorf("delay was too short: %v", elapsed)
	}

	// Проверяем outputs
	if resp.Outputs["duration_ms"] == nil {
		t.Error("outputs should contain duration_ms")
	}
}

func TestDelayStep_Execute_Seconds(t *testing.T) {
	step := NewDelayStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"duration_sec": 1,
		},
	}

	start := time.Now()

	// Отменяем через 100ms
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err := step.Execute(ctx, req)
	elapsed := time.Since(start)

	// Должна быть ошибка отмены
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, ErrStepCancelled) {
		t.Errorf("expected ErrStepCancelled, got %v", err)
	}

	// Проверяем, что отмена произошла быстро
	if elapsed > 200*time.Millisecond {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestDelayStep_InvalidConfig(t *testing.T) {
	step := NewDelayStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{}, // Нет duration
	}

	_, err := step.Execute(ctx, req)
	if err == nil {
		t.Fatal("expected error for missing duration")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// HTTP Step Tests

func TestHTTPStep_Type(t *testing.T) {
	step := NewHTTPStep()
	if step.Type() != "http" {
		t.Errorf("expected 'http', got %s", step.Type())
	}
}

func TestHTTPStep_GET(t *testing.T) {
	// Создаём тестовый сервер
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"data":   []int{1, 2, 3},
		})
	}))
	defer server.Close()

	step := NewHTTPStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"method": "GET",
			"url":    server.URL,
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем status_code
	if resp.Outputs["status_code"] != 200 {
		t.Errorf("expected status_code 200, got %v", resp.Outputs["status_code"])
	}

	// Проверяем body
	body, ok := resp.Outputs["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected body to be map, got %T", resp.Outputs["body"])
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
}

func TestHTTPStep_POST_JSON(t *testing.T) {
	var receivedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json")
		}

		json.NewDecoder(r.Body).Decode(&receivedBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 123})
	}))
	defer server.Close()

	step := NewHTTPStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"method": "POST",
			"url":    server.URL,
			"body": map[string]any{
				"name":  "test",
				"value": 42,
			},
		},
	}

	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем status_code
	if resp.Outputs["status_code"] != 201 {
		t.Errorf("expected status_code 201, got %v", resp.Outputs["status_code"])
	}

	// Проверяем, что body был отправлен
	if receivedBody["name"] != "test" {
		t.Errorf("expected name 'test', got %v", receivedBody["name"])
	}
}

func TestHTTPStep_WithHeaders(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	step := NewHTTPStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"method": "GET",
			"url":    server.URL,
			"headers": map[string]any{
				"Authorization": "Bearer secret123",
			},
		},
	}

	_, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer secret123" {
		t.Errorf("expected auth header, got %s", receivedAuth)
	}
}

func TestHTTPStep_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	step := NewHTTPStep()
	resp, err := step.Execute(context.Background(), &Request{
		StepID: "test",
		Config: map[string]any{"url": server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected step error for 404")
	}
	if resp.Outputs["status_code"] != 404 {
		t.Errorf("outputs should be preserved, got %v", resp.Outputs["status_code"])
	}
}

func TestHTTPStep_InvalidConfig(t *testing.T) {
	step := NewHTTPStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{}, // Нет URL
	}

	_, err := step.Execute(ctx, req)
	if err == nil {
		t.Fatal("expected error for missing URL")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHTTPStep_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	step := NewHTTPStep()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := &Request{
		StepID: "test",
		Config: map[string]any{
			"url": server.URL,
		},
	}

	_, err := step.Execute(ctx, req)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, ErrStepCancelled) {
		t.Errorf("expected ErrStepCancelled, got %v", err)
	}
}

// Parallel Step Tests

func TestParallelStep_Type(t *testing.T) {
	step := NewParallelStep()
	if step.Type() != "parallel" {
		t.Errorf("expected 'parallel', got %s", step.Type())
	}
}

func TestParallelStep_Execute(t *testing.T) {
	step := NewParallelStep()
	ctx := context.Background()

	req := &Request{
		StepID: "test",
		Config: map[string]any{},
	}

	// Parallel step просто возвращает пустой результат
	resp, err := step.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("response should not be nil")
	}
	if len(resp.Outputs) != 0 {
		t.Errorf("expected empty outputs, got %v", resp.Outputs)
	}
}

func TestAggregateParallelOutputs(t *testing.T) {
	branchOutputs := map[string]map[string]map[string]any{
		"branch_a": {
			"step1": {"data": "a1"},
			"step2": {"data": "a2"},
		},
		"branch_b": {
			"step1": {"data": "b1"},
		},
	}

	result := AggregateParallelOutputs(branchOutputs)

	// Проверяем структуру
	branchA, ok := result["branch_a"].(map[string]any)
	if !ok {
		t.Fatal("expected branch_a to be map")
	}
	if branchA["step1"].(map[string]any)["data"] != "a1" {
		t.Error("expected data 'a1'")
	}
	if branchA["step2"].(map[string]any)["data"] != "a2" {
		t.Error("expected data 'a2'")
	}

	branchB, ok := result["branch_b"].(map[string]any)
	if !ok {
		t.Fatal("expected branch_b to be map")
	}
	if branchB["step1"].(map[string]any)["data"] != "b1" {
		t.Error("expected data 'b1'")
	}
}

func TestExtractBranchOutputs(t *testing.T) {
	outputs := map[string]any{
		"branch_a": map[string]any{
			"step1": map[string]any{"data": "test"},
		},
	}

	// Существующая ветка
	branch := ExtractBranchOutputs(outputs, "branch_a")
	if branch == nil {
		t.Fatal("expected branch_a outputs")
	}

	// Несуществующая ветка
	branch = ExtractBranchOutputs(outputs, "nonexistent")
	if branch != nil {
		t.Error("expected nil for nonexistent branch")
	}
}

func TestExtractStepOutputs(t *testing.T) {
	outputs := map[string]any{
		"branch_a": map[string]any{
			"step1": map[string]any{"data": "test"},
		},
	}

	// Существующий шаг
	step := ExtractStepOutputs(outputs, "branch_a", "step1")
	if step == nil {
		t.Fatal("expected step1 outputs")
	}
	if step["data"] != "test" {
		t.Errorf("expected data 'test', got %v", step["data"])
	}

	// Несуществующий шаг
	step = ExtractStepOutputs(outputs, "branch_a", "nonexistent")
	if step != nil {
		t.Error("expected nil for nonexistent step")
	}
}

// Helper Functions Tests

func TestGetConfigHelpers(t *testing.T) {
	config := map[string]any{
		"string_val":     "test",
		"int_val":        42,
		"float_val":      3.14,
		"bool_val":       true,
		"map_val":        map[string]any{"key": "value"},
		"string_map_val": map[string]string{"key": "value"},
	}

	// GetConfigString
	if GetConfigString(config, "string_val") != "test" {
		t.Error("GetConfigString failed")
	}
	if GetConfigString(config, "missing") != "" {
		t.Error("GetConfigString should return empty for missing")
	}

	// GetConfigInt
	if GetConfigInt(config, "int_val") != 42 {
		t.Error("GetConfigInt failed for int")
	}
	if GetConfigInt(config, "float_val") != 3 {
		t.Error("GetConfigInt failed for float")
	}
	if GetConfigInt(config, "missing") != 0 {
		t.Error("GetConfigInt should return 0 for missing")
	}

	// GetConfigBool
	if !GetConfigBool(config, "bool_val", false) {
		t.Error("GetConfigBool failed")
	}
	if !GetConfigBool(config, "missing", true) {
		t.Error("GetConfigBool should return default for missing")
	}

	// GetConfigMap
	m := GetConfigMap(config, "map_val")
	if m == nil || m["key"] != "value" {
		t.Error("GetConfigMap failed")
	}

	// GetConfigMapString
	ms := GetConfigMapString(config, "string_map_val")
	if ms == nil || ms["key"] != "value" {
		t.Error("GetConfigMapString failed for string map")
	}

	// GetConfigMapString с map[string]any
	ms = GetConfigMapString(config, "map_val")
	if ms == nil || ms["key"] != "value" {
		t.Error("GetConfigMapString failed for any map")
	}
}
