package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestRelease_MarkPublished(t *testing.T) {
	rel := &Release{
		ID:         uuid.New(),
		PipelineID: uuid.New(),
		RunID:      uuid.New(),
		Version:    "1.2.3",
		Status:     ReleaseStatusPending,
	}

	artifacts := []Artifact{
		{Name: "pkg-1.2.3.tar.gz", SizeBytes: 2048, SHA256: "abc123"},
		{Name: "pkg-1.2.3-py3-none-any.whl", SizeBytes: 1024, SHA256: "def456"},
	}

	rel.MarkPublished(artifacts)

	if rel.Status != ReleaseStatusPublished {
		t.Errorf("status = %v, want PUBLISHED", rel.Status)
	}
	if !rel.IsPublished() {
		t.Error("IsPublished() = false, want true")
	}
	if len(rel.Artifacts) != 2 {
		t.Errorf("artifacts count = %d, want 2", len(rel.Artifacts))
	}
	if rel.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestRelease_MarkFailed(t *testing.T) {
	rel := &Release{
		ID:      uuid.New(),
		Version: "2.0.0rc1",
		Status:  ReleaseStatusPending,
	}

	rel.MarkFailed("upload rejected: version already exists")

	if rel.Status != ReleaseStatusFailed {
		t.Errorf("status = %v, want FAILED", rel.Status)
	}
	if rel.IsPublished() {
		t.Error("IsPublished() = true, want false")
	}
	if rel.Error == "" {
		t.Error("error message not recorded")
	}
}

func TestParseReleaseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ReleaseStatus
	}{
		{"PENDING", ReleaseStatusPending},
		{"PUBLISHED", ReleaseStatusPublished},
		{"FAILED", ReleaseStatusFailed},
		{"garbage", ReleaseStatusPending},
	}

	for _, tt := range tests {
		if got := ParseReleaseStatus(tt.in); got != tt.want {
			t.Errorf("ParseReleaseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
