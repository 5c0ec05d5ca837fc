package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// StepTypeBuild — тип шага сборки дистрибутивов.
	StepTypeBuild = "build"

	// Значения по умолчанию.
	defaultBuildCommand = "python -m build"
	defaultArtifactDir  = "dist"
	defaultArtifactGlob = "*"
	defaultBuildTimeout = 15 * time.Minute
)

// Ключи конфигурации build шага.
const (
	configArtifactDir     = "artifact_dir"
	configArtifactPattern = "artifact_pattern"
)

// BuildStep — шаг сборки дистрибутивных артефактов.
//
// Запускает сборочную команду и собирает артефакты из каталога
// artifact_dir по шаблону artifact_pattern. Для каждого артефакта
// считается SHA-256. Сборка без единого артефакта считается
// неудавшейся.
//
// Конфигурация:
//
//	{
//	    "command": "python -m build",
//	    "workdir": "/workspace/pkg",
//	    "artifact_dir": "dist",
//	    "artifact_pattern": "*.whl"
//	}
//
// Outputs:
//
//	{
//	    "count": 2,
//	    "artifacts": [
//	        {"name": "pkg-1.2.3-py3-none-any.whl", "path": "dist/pkg-1.2.3-py3-none-any.whl",
//	         "size_bytes": 10240, "sha256": "..."}
//	    ]
//	}
type BuildStep struct{}

// NewBuildStep создаёт новый BuildStep.
func NewBuildStep() *BuildStep {
	return &BuildStep{}
}

// Type возвращает тип шага.
func (s *BuildStep) Type() string {
	return StepTypeBuild
}

// Execute запускает сборку и собирает артефакты.
func (s *BuildStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	command := GetConfigString(req.Config, configCommand)
	if command == "" {
		command = defaultBuildCommand
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

	res, err := runShell(ctx, shellSpec{
		Command: command,
		Workdir: workdir,
		Env:     GetConfigMapString(req.Config, configEnv),
		Timeout: commandTimeout(req, defaultBuildTimeout),
	})
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{
		"exit_code":   res.ExitCode,
		"stdout_tail": tail(res.Stdout, maxOutputTail),
		"stderr_tail": tail(res.Stderr, maxOutputTail),
	}

	if res.ExitCode != 0 {
		return FailedResponse(outputs, "build command exited with code %d", res.ExitCode), nil
	}

	artifacts, err := collectArtifacts(workdir, artifactDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("collect artifacts: %w", err)
	}

	outputs["count"] = len(artifacts)
	outputs["artifacts"] = artifacts

	if len(artifacts) == 0 {
		return FailedResponse(outputs, "build produced no artifacts matching %q in %s",
			pattern, artifactDir), nil
	}

	return &Response{Outputs: outputs}, nil
}

// collectArtifacts находит файлы по шаблону и считает их контрольные суммы.
func collectArtifacts(workdir, artifactDir, pattern string) ([]map[string]any, error) {
	dir := artifactDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workdir, artifactDir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad artifact pattern %q: %w", pattern, err)
	}

	artifacts := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}

		sum, err := fileSHA256(p)
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, map[string]any{
			"name":       filepath.Base(p),
			"path":       p,
			"size_bytes": info.Size(),
			"sha256":     sum,
		})
	}

	return artifacts, nil
}

// fileSHA256 считает SHA-256 файла.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
