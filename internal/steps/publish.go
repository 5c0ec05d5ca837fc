package steps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

const (
	// StepTypePublish — тип шага публикации в индекс пакетов.
	StepTypePublish = "publish"

	// Значения по умолчанию.
	defaultPublishTimeout = 10 * time.Minute

	// Имена переменных окружения с учётными данными индекса.
	defaultUsernameEnv = "INDEX_USERNAME"
	defaultPasswordEnv = "INDEX_PASSWORD"
)

// Ключи конфигурации publish шага.
//
// ConfigTag экспортируется: Orchestrator подставляет тег триггера
// в конфиг publish шага при постановке job.
const (
	ConfigTag = "tag"

	configIndexURL     = "index_url"
	configUsernameEnv  = "username_env"
	configPasswordEnv  = "password_env"
	configVerify       = "verify"
	configSkipExisting = "skip_existing"
)

// PublishStep — шаг загрузки артефактов в индекс пакетов.
//
// Учётные данные никогда не хранятся в спецификации pipeline:
// в конфиге задаются только ИМЕНА переменных окружения, значения
// читаются из окружения runner в момент выполнения.
//
// Перед загрузкой формат версии тега перепроверяется (verify).
// Для tag-триггеров проверка включена по умолчанию: Orchestrator
// подставляет тег триггера в конфиг, даже если автор pipeline его
// не пробросил сам. verify: false отключает проверку явно.
//
// Конфигурация:
//
//	{
//	    "index_url": "https://upload.pypi.org/legacy/",
//	    "username_env": "INDEX_USERNAME",
//	    "password_env": "INDEX_PASSWORD",
//	    "tag": "{{trigger.tag}}",
//	    "verify": true,
//	    "artifact_dir": "dist",
//	    "artifact_pattern": "*",
//	    "skip_existing": false
//	}
//
// Outputs:
//
//	{
//	    "index_url": "https://upload.pypi.org/legacy/",
//	    "uploaded": 2,
//	    "skipped": 0,
//	    "artifacts": [{"name": "...", "size_bytes": 1, "sha256": "...", "status": "uploaded"}]
//	}
type PublishStep struct {
	client *http.Client
}

// NewPublishStep создаёт новый PublishStep.
func NewPublishStep() *PublishStep {
	return &PublishStep{
		client: &http.Client{Timeout: defaultPublishTimeout},
	}
}

// Type возвращает тип шага.
func (s *PublishStep) Type() string {
	return StepTypePublish
}

// Execute загружает артефакты в индекс.
func (s *PublishStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	indexURL := GetConfigString(req.Config, configIndexURL)
	if indexURL == "" {
		return nil, fmt.Errorf("%w: %s: index_url is required", ErrInvalidConfig, StepTypePublish)
	}

	// Повторная проверка формата версии прямо перед публикацией.
	// Включена по умолчанию, если тег известен (tag-триггер).
	tag := GetConfigString(req.Config, ConfigTag)
	if GetConfigBool(req.Config, configVerify, tag != "") {
		if _, err := domain.ParseVersion(tag); err != nil {
			return FailedResponse(map[string]any{"index_url": indexURL}, "%s", err.Error()), nil
		}
	}

	username, password, err := indexCredentials(req.Config)
	if err != nil {
		return nil, err
	}

	workdir := GetConfigString(req.Config, configWorkdir)
	artifactDir := GetConfigString(req.Config, configArtifactDir)
	if artifactDir == "" {
		artifactDir = defaultArtifactDir
	}
	pattern := GetConfigString(req.Config, configArtifactPattern)
	if pattern == "" {
		pattern = defaultArtifactGlob
	}

	artifacts, err := collectArtifacts(workdir, artifactDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("collect artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		return FailedResponse(map[string]any{"index_url": indexURL},
			"nothing to publish: no artifacts matching %q in %s", pattern, artifactDir), nil
	}

	skipExisting := GetConfigBool(req.Config, configSkipExisting, false)

	uploaded := 0
	skipped := 0
	for _, art := range artifacts {
		path, _ := art["path"].(string)

		status, err := s.upload(ctx, indexURL, username, password, path)
		if err != nil {
			return nil, err
		}

		switch {
		case status < 300:
			art["status"] = "uploaded"
			uploaded++
		case skipExisting && (status == http.StatusBadRequest || status == http.StatusConflict):
			// Индексы отвечают 400 или 409 на повторную загрузку той же версии
			art["status"] = "skipped"
			skipped++
		default:
			art["status"] = "failed"
			outputs := map[string]any{
				"index_url": indexURL,
				"uploaded":  uploaded,
				"skipped":   skipped,
				"artifacts": artifacts,
			}
			return FailedResponse(outputs, "index rejected %s with status %d",
				filepath.Base(path), status), nil
		}
	}

	return &Response{Outputs: map[string]any{
		"index_url": indexURL,
		"uploaded":  uploaded,
		"skipped":   skipped,
		"artifacts": artifacts,
	}}, nil
}

// indexCredentials читает учётные данные из переменных окружения,
// имена которых заданы в конфиге.
func indexCredentials(config map[string]any) (string, string, error) {
	usernameEnv := GetConfigString(config, configUsernameEnv)
	if usernameEnv == "" {
		usernameEnv = defaultUsernameEnv
	}
	passwordEnv := GetConfigString(config, configPasswordEnv)
	if passwordEnv == "" {
		passwordEnv = defaultPasswordEnv
	}

	username := os.Getenv(usernameEnv)
	password := os.Getenv(passwordEnv)
	if username == "" || password == "" {
		return "", "", fmt.Errorf("%w: %s: credentials not set in %s/%s",
			ErrInvalidConfig, StepTypePublish, usernameEnv, passwordEnv)
	}

	return username, password, nil
}

// upload отправляет один файл в индекс multipart-запросом
// и возвращает HTTP статус ответа.
func (s *PublishStep) upload(ctx context.Context, indexURL, username, password, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("content", filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("read artifact: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, indexURL, &buf)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.SetBasicAuth(username, password)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return 0, fmt.Errorf("upload to index: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
