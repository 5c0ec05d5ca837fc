package steps

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// StepTypeLint — тип шага статического анализа.
	StepTypeLint = "lint"

	// Значения по умолчанию.
	defaultLinter        = "flake8"
	defaultLintTarget    = "."
	defaultMaxLineLength = 127
	defaultMaxComplexity = 10
	defaultLintTimeout   = 5 * time.Minute
)

// Ключи конфигурации lint шага.
const (
	configLinter        = "linter"
	configTarget        = "target"
	configFailOn        = "fail_on"
	configMaxLineLength = "max_line_length"
	configMaxComplexity = "max_complexity"
)

// defaultFailOn — коды, при которых lint блокирует pipeline:
// синтаксические ошибки (E9) и неопределённые имена (F63, F7, F82).
var defaultFailOn = []string{"E9", "F63", "F7", "F82"}

// findingRe разбирает строку вывода линтера вида
// "src/app.py:12:1: F821 undefined name 'foo'".
var findingRe = regexp.MustCompile(`^(.+?):(\d+):(\d+):?\s+([A-Z]\d+)\s+(.*)$`)

// LintStep — шаг статического анализа исходного кода.
//
// Запускает линтер одним проходом без влияния на код выхода
// и сам решает, какие находки блокируют pipeline: коды из fail_on
// превращаются в ошибку шага, остальные остаются предупреждениями
// в outputs.
//
// Конфигурация:
//
//	{
//	    "linter": "flake8",
//	    "target": "src/",
//	    "fail_on": ["E9", "F63", "F7", "F82"],
//	    "max_line_length": 127,
//	    "max_complexity": 10,
//	    "workdir": "/workspace/pkg"
//	}
//
// Outputs:
//
//	{
//	    "errors": 1,
//	    "warnings": 4,
//	    "findings": [
//	        {"file": "src/app.py", "line": 12, "col": 1, "code": "F821", "text": "undefined name 'foo'"}
//	    ]
//	}
type LintStep struct{}

// NewLintStep создаёт новый LintStep.
func NewLintStep() *LintStep {
	return &LintStep{}
}

// Type возвращает тип шага.
func (s *LintStep) Type() string {
	return StepTypeLint
}

// Execute запускает линтер и разбирает его вывод.
func (s *LintStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	linter := GetConfigString(req.Config, configLinter)
	if linter == "" {
		linter = defaultLinter
	}
	target := GetConfigString(req.Config, configTarget)
	if target == "" {
		target = defaultLintTarget
	}

	maxLineLength := GetConfigInt(req.Config, configMaxLineLength)
	if maxLineLength == 0 {
		maxLineLength = defaultMaxLineLength
	}
	maxComplexity := GetConfigInt(req.Config, configMaxComplexity)
	if maxComplexity == 0 {
		maxComplexity = defaultMaxComplexity
	}

	failOn := failOnCodes(req.Config)

	command := fmt.Sprintf("%s %s --exit-zero --max-line-length=%d --max-complexity=%d",
		linter, target, maxLineLength, maxComplexity)

	res, err := runShell(ctx, shellSpec{
		Command: command,
		Workdir: GetConfigString(req.Config, configWorkdir),
		Env:     GetConfigMapString(req.Config, configEnv),
		Timeout: commandTimeout(req, defaultLintTimeout),
	})
	if err != nil {
		return nil, err
	}

	// Ненулевой код при --exit-zero означает, что линтер не смог
	// отработать (не установлен, битые аргументы)
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("linter failed with code %d: %s",
			res.ExitCode, tail(res.Stderr, maxOutputTail))
	}

	findings := parseFindings(res.Stdout)

	errorsCount := 0
	warningsCount := 0
	for _, f := range findings {
		if isBlockingCode(f.Code, failOn) {
			errorsCount++
		} else {
			warningsCount++
		}
	}

	outputs := map[string]any{
		"errors":   errorsCount,
		"warnings": warningsCount,
		"findings": findingsToOutputs(findings),
	}

	if errorsCount > 0 {
		return FailedResponse(outputs, "lint found %d blocking issue(s)", errorsCount), nil
	}

	return &Response{Outputs: outputs}, nil
}

// Finding — одна находка линтера.
type Finding struct {
	File string
	Line int
	Col  int
	Code string
	Text string
}

// parseFindings разбирает построчный вывод линтера.
// Строки, не похожие на находку, пропускаются.
func parseFindings(output string) []Finding {
	findings := make([]Finding, 0)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := findingRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		findings = append(findings, Finding{
			File: m[1],
			Line: line,
			Col:  col,
			Code: m[4],
			Text: m[5],
		})
	}

	return findings
}

// failOnCodes извлекает список блокирующих префиксов кодов из конфига.
func failOnCodes(config map[string]any) []string {
	raw, ok := config[configFailOn]
	if !ok {
		return defaultFailOn
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		codes := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				codes = append(codes, s)
			}
		}
		return codes
	case string:
		// Допускаем "E9,F63,F7,F82"
		parts := strings.Split(v, ",")
		codes := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				codes = append(codes, p)
			}
		}
		return codes
	default:
		return defaultFailOn
	}
}

// isBlockingCode проверяет код находки против блокирующих префиксов.
// "E9" блокирует и E901, и E999.
func isBlockingCode(code string, failOn []string) bool {
	for _, prefix := range failOn {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// findingsToOutputs преобразует находки в сериализуемый вид.
func findingsToOutputs(findings []Finding) []map[string]any {
	out := make([]map[string]any, 0, len(findings))
	for _, f := range findings {
		out = append(out, map[string]any{
			"file": f.File,
			"line": f.Line,
			"col":  f.Col,
			"code": f.Code,
			"text": f.Text,
		})
	}
	return out
}
