package trigger

import (
	"errors"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Ошибки валидации событий.
var (
	// ErrUnknownEventType — неизвестный тип события.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrMissingBranch — push/pull_request событие без ветки.
	ErrMissingBranch = errors.New("event has no branch")

	// ErrMissingTag — tag событие без тега.
	ErrMissingTag = errors.New("event has no tag")
)

// Event — событие исходного кода, пришедшее через webhook.
type Event struct {
	// Type — тип события: push, tag, pull_request.
	Type domain.TriggerType `json:"type"`

	// Repo — репозиторий-источник (например, "org/pkg").
	Repo string `json:"repo,omitempty"`

	// Branch — ветка (для push и pull_request).
	Branch string `json:"branch,omitempty"`

	// Tag — тег (для tag событий), как пришёл: "v1.2.3".
	Tag string `json:"tag,omitempty"`

	// Commit — SHA коммита.
	Commit string `json:"commit,omitempty"`

	// Sender — кто инициировал событие.
	Sender string `json:"sender,omitempty"`
}

// Validate проверяет, что событие заполнено корректно для своего типа.
func (e Event) Validate() error {
	switch e.Type {
	case domain.TriggerPush:
		if e.Branch == "" {
			return ErrMissingBranch
		}
	case domain.TriggerTag:
		if e.Tag == "" {
			return ErrMissingTag
		}
	case domain.TriggerPullRequest:
		if e.Branch == "" {
			return ErrMissingBranch
		}
	default:
		return ErrUnknownEventType
	}
	return nil
}

// Ref возвращает ссылку события: тег для tag событий, иначе ветку.
func (e Event) Ref() string {
	if e.Type == domain.TriggerTag {
		return e.Tag
	}
	return e.Branch
}

// TriggerInfo конвертирует событие в метаданные триггера run.
// Version заполняется отдельно после проверки формата тега.
func (e Event) TriggerInfo() domain.TriggerInfo {
	return domain.TriggerInfo{
		Type:   e.Type,
		Repo:   e.Repo,
		Branch: e.Branch,
		Tag:    e.Tag,
		Commit: e.Commit,
		Sender: e.Sender,
	}
}
