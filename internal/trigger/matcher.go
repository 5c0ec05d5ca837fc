package trigger

import (
	"fmt"
	"path"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Candidate — активный pipeline с его последней версией спецификации.
type Candidate struct {
	// Pipeline — сам pipeline.
	Pipeline domain.Pipeline

	// Version — номер последней версии.
	Version int

	// Spec — спецификация последней версии.
	Spec domain.PipelineSpec
}

// Match — pipeline, который нужно запустить по событию.
type Match struct {
	// Pipeline — pipeline для запуска.
	Pipeline domain.Pipeline

	// Version — версия спецификации для запуска.
	Version int

	// Trigger — метаданные триггера будущего run.
	Trigger domain.TriggerInfo

	// Inputs — входные параметры будущего run.
	Inputs map[string]any

	// IdempotencyKey — ключ идемпотентности будущего run.
	IdempotencyKey string
}

// Rejection — pipeline, чей запуск отклонён проверкой формата версии.
type Rejection struct {
	// Pipeline — pipeline, который подошёл по правилам, но не запущен.
	Pipeline domain.Pipeline

	// Reason — сообщение проверки (попадает в ответ webhook).
	Reason string
}

// MatchEvent сопоставляет событие с кандидатами.
//
// Возвращает pipelines для запуска и pipelines, отклонённые проверкой
// формата версии тега. Кандидаты с неподходящими правилами просто
// пропускаются.
func MatchEvent(ev Event, candidates []Candidate) ([]Match, []Rejection) {
	matches := make([]Match, 0)
	rejections := make([]Rejection, 0)

	for _, c := range candidates {
		if !rulesMatch(ev, c.Spec.On) {
			continue
		}

		info := ev.TriggerInfo()
		inputs := baseInputs(ev)

		// Тег проходит проверку формата до создания run
		if ev.Type == domain.TriggerTag {
			v, err := domain.ParseVersion(ev.Tag)
			if err != nil {
				rejections = append(rejections, Rejection{
					Pipeline: c.Pipeline,
					Reason:   err.Error(),
				})
				continue
			}

			info.Version = v.String()
			inputs["version"] = v.String()
			inputs["major"] = v.Major
			inputs["minor"] = v.Minor
			inputs["patch"] = v.Patch
			if v.IsPreRelease() {
				inputs["prerelease"] = fmt.Sprintf("%s%d", v.PreKind, v.PreNum)
			}
		}

		matches = append(matches, Match{
			Pipeline:       c.Pipeline,
			Version:        c.Version,
			Trigger:        info,
			Inputs:         inputs,
			IdempotencyKey: IdempotencyKey(ev),
		})
	}

	return matches, rejections
}

// IdempotencyKey строит ключ идемпотентности run для события.
// Формат: "{event_type}_{ref}_{commit}".
func IdempotencyKey(ev Event) string {
	return fmt.Sprintf("%s_%s_%s", ev.Type, ev.Ref(), ev.Commit)
}

// rulesMatch проверяет, подходит ли событие под правила триггеров.
func rulesMatch(ev Event, rules *domain.TriggerRules) bool {
	if rules == nil {
		return false
	}

	switch ev.Type {
	case domain.TriggerPush:
		if rules.Push == nil {
			return false
		}
		return matchAnyGlob(rules.Push.Branches, ev.Branch)

	case domain.TriggerTag:
		if rules.Tags == nil {
			return false
		}
		return matchAnyGlob(rules.Tags.Patterns, ev.Tag)

	case domain.TriggerPullRequest:
		return rules.PullRequest

	default:
		return false
	}
}

// matchAnyGlob проверяет имя против списка glob-шаблонов.
// Пустой список означает "любое имя".
func matchAnyGlob(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		// Шаблоны провалидированы при создании версии,
		// ошибка здесь означает несовпадение.
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// baseInputs строит входные параметры run из события.
func baseInputs(ev Event) map[string]any {
	inputs := map[string]any{
		"event": string(ev.Type),
	}
	if ev.Repo != "" {
		inputs["repo"] = ev.Repo
	}
	if ev.Branch != "" {
		inputs["branch"] = ev.Branch
	}
	if ev.Tag != "" {
		inputs["tag"] = ev.Tag
	}
	if ev.Commit != "" {
		inputs["commit"] = ev.Commit
	}
	return inputs
}
