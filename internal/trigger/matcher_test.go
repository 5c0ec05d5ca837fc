package trigger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

func makeCandidate(name string, rules *domain.TriggerRules) Candidate {
	return Candidate{
		Pipeline: domain.Pipeline{ID: uuid.New(), Name: name, IsActive: true},
		Version:  1,
		Spec: domain.PipelineSpec{
			Name: name,
			On:   rules,
			Steps: []domain.StepDef{
				{ID: "lint", Type: "lint"},
			},
		},
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{
			name:  "push with branch",
			event: Event{Type: domain.TriggerPush, Branch: "main"},
		},
		{
			name:  "tag with tag",
			event: Event{Type: domain.TriggerTag, Tag: "v1.0.0"},
		},
		{
			name:  "pull request with branch",
			event: Event{Type: domain.TriggerPullRequest, Branch: "feature/x"},
		},
		{
			name:    "push without branch",
			event:   Event{Type: domain.TriggerPush},
			wantErr: ErrMissingBranch,
		},
		{
			name:    "tag without tag",
			event:   Event{Type: domain.TriggerTag},
			wantErr: ErrMissingTag,
		},
		{
			name:    "unknown type",
			event:   Event{Type: "release"},
			wantErr: ErrUnknownEventType,
		},
		{
			name:    "manual is not a webhook event",
			event:   Event{Type: domain.TriggerManual},
			wantErr: ErrUnknownEventType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMatchEvent_Push(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Push: &domain.PushRule{Branches: []string{"main"}},
		}),
		makeCandidate("docs", &domain.TriggerRules{
			Push: &domain.PushRule{Branches: []string{"docs/*"}},
		}),
		makeCandidate("manual-only", &domain.TriggerRules{Manual: true}),
	}

	ev := Event{Type: domain.TriggerPush, Branch: "main", Commit: "abc123"}

	matches, rejections := MatchEvent(ev, candidates)
	if len(rejections) != 0 {
		t.Errorf("expected no rejections, got %d", len(rejections))
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.Pipeline.Name != "release" {
		t.Errorf("expected release pipeline, got %s", m.Pipeline.Name)
	}
	if m.Trigger.Type != domain.TriggerPush {
		t.Errorf("expected push trigger, got %s", m.Trigger.Type)
	}
	if m.Trigger.Branch != "main" {
		t.Errorf("expected branch main, got %s", m.Trigger.Branch)
	}
	if m.Inputs["branch"] != "main" {
		t.Errorf("expected branch input, got %v", m.Inputs["branch"])
	}
	if m.IdempotencyKey != "push_main_abc123" {
		t.Errorf("unexpected idempotency key: %s", m.IdempotencyKey)
	}
}

func TestMatchEvent_PushGlob(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Push: &domain.PushRule{Branches: []string{"release/*"}},
		}),
	}

	matched, _ := MatchEvent(Event{Type: domain.TriggerPush, Branch: "release/1.2"}, candidates)
	if len(matched) != 1 {
		t.Errorf("release/1.2 should match release/*, got %d matches", len(matched))
	}

	matched, _ = MatchEvent(Event{Type: domain.TriggerPush, Branch: "main"}, candidates)
	if len(matched) != 0 {
		t.Errorf("main should not match release/*, got %d matches", len(matched))
	}
}

func TestMatchEvent_AnyBranch(t *testing.T) {
	// Пустой список веток означает любую ветку
	candidates := []Candidate{
		makeCandidate("ci", &domain.TriggerRules{Push: &domain.PushRule{}}),
	}

	matched, _ := MatchEvent(Event{Type: domain.TriggerPush, Branch: "whatever"}, candidates)
	if len(matched) != 1 {
		t.Errorf("expected any branch to match, got %d matches", len(matched))
	}
}

func TestMatchEvent_TagValid(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Tags: &domain.TagRule{Patterns: []string{"v*"}},
		}),
	}

	ev := Event{Type: domain.TriggerTag, Tag: "v1.2.3", Commit: "def456"}

	matches, rejections := MatchEvent(ev, candidates)
	if len(rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(rejections))
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.Trigger.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", m.Trigger.Version)
	}
	if m.Inputs["version"] != "1.2.3" {
		t.Errorf("expected version input, got %v", m.Inputs["version"])
	}
	if m.Inputs["major"] != 1 || m.Inputs["minor"] != 2 || m.Inputs["patch"] != 3 {
		t.Errorf("unexpected version components: %v", m.Inputs)
	}
	if _, ok := m.Inputs["prerelease"]; ok {
		t.Error("final version should not have prerelease input")
	}
}

func TestMatchEvent_TagPreRelease(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Tags: &domain.TagRule{Patterns: []string{"v*"}},
		}),
	}

	ev := Event{Type: domain.TriggerTag, Tag: "v2.0.0rc1"}

	matches, _ := MatchEvent(ev, candidates)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Inputs["prerelease"] != "rc1" {
		t.Errorf("expected prerelease rc1, got %v", matches[0].Inputs["prerelease"])
	}
}

func TestMatchEvent_TagRejected(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Tags: &domain.TagRule{Patterns: []string{"v*"}},
		}),
	}

	ev := Event{Type: domain.TriggerTag, Tag: "vfoo"}

	matches, rejections := MatchEvent(ev, candidates)
	if len(matches) != 0 {
		t.Errorf("expected no matches for bad tag, got %d", len(matches))
	}
	if len(rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(rejections))
	}
	if rejections[0].Reason == "" {
		t.Error("rejection should carry the guard message")
	}
}

func TestMatchEvent_TagPatternMismatch(t *testing.T) {
	// Тег не подходит под шаблон — это не rejection, а просто пропуск
	candidates := []Candidate{
		makeCandidate("release", &domain.TriggerRules{
			Tags: &domain.TagRule{Patterns: []string{"v*"}},
		}),
	}

	matches, rejections := MatchEvent(Event{Type: domain.TriggerTag, Tag: "nightly"}, candidates)
	if len(matches) != 0 || len(rejections) != 0 {
		t.Errorf("expected no matches and no rejections, got %d/%d", len(matches), len(rejections))
	}
}

func TestMatchEvent_PullRequest(t *testing.T) {
	candidates := []Candidate{
		makeCandidate("pr-checks", &domain.TriggerRules{PullRequest: true}),
		makeCandidate("release", &domain.TriggerRules{
			Tags: &domain.TagRule{Patterns: []string{"v*"}},
		}),
	}

	matches, _ := MatchEvent(Event{Type: domain.TriggerPullRequest, Branch: "feature/x"}, candidates)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Pipeline.Name != "pr-checks" {
		t.Errorf("expected pr-checks, got %s", matches[0].Pipeline.Name)
	}
}

func TestMatchEvent_NoRules(t *testing.T) {
	// Pipeline без секции on не реагирует на события
	candidates := []Candidate{makeCandidate("manual", nil)}

	matches, rejections := MatchEvent(Event{Type: domain.TriggerPush, Branch: "main"}, candidates)
	if len(matches) != 0 || len(rejections) != 0 {
		t.Errorf("expected nothing, got %d/%d", len(matches), len(rejections))
	}
}
