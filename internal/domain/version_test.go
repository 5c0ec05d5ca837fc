package domain

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    Version
		wantErr bool
	}{
		{
			name: "plain version",
			tag:  "1.2.3",
			want: Version{Major: 1, Minor: 2, Patch: 3},
		},
		{
			name: "v prefix",
			tag:  "v1.2.3",
			want: Version{Major: 1, Minor: 2, Patch: 3},
		},
		{
			name: "release candidate",
			tag:  "v2.0.0rc1",
			want: Version{Major: 2, Minor: 0, Patch: 0, PreKind: "rc", PreNum: 1},
		},
		{
			name: "alpha",
			tag:  "1.0.0a2",
			want: Version{Major: 1, Minor: 0, Patch: 0, PreKind: "a", PreNum: 2},
		},
		{
			name: "beta",
			tag:  "0.9.1b10",
			want: Version{Major: 0, Minor: 9, Patch: 1, PreKind: "b", PreNum: 10},
		},
		{
			name:    "not a version",
			tag:     "vfoo",
			wantErr: true,
		},
		{
			name:    "missing patch",
			tag:     "1.2",
			wantErr: true,
		},
		{
			name:    "unknown prerelease kind",
			tag:     "1.2.3beta1",
			wantErr: true,
		},
		{
			name:    "prerelease without number",
			tag:     "1.2.3rc",
			wantErr: true,
		},
		{
			name:    "trailing garbage",
			tag:     "1.2.3.4",
			wantErr: true,
		},
		{
			name:    "empty tag",
			tag:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.tag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVersion(%q) = %v, want error", tt.tag, got)
				}
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("error = %v, want ErrInvalidVersion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) unexpected error: %v", tt.tag, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		v    Version
		want string
	}{
		{Version{Major: 1, Minor: 2, Patch: 3}, "1.2.3"},
		{Version{Major: 2, Minor: 0, Patch: 0, PreKind: "rc", PreNum: 1}, "2.0.0rc1"},
		{Version{Major: 1, Minor: 0, Patch: 0, PreKind: "a", PreNum: 2}, "1.0.0a2"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestVersionIsPreRelease(t *testing.T) {
	final := Version{Major: 1, Minor: 0, Patch: 0}
	if final.IsPreRelease() {
		t.Error("final version reported as pre-release")
	}

	rc := Version{Major: 1, Minor: 0, Patch: 0, PreKind: "rc", PreNum: 1}
	if !rc.IsPreRelease() {
		t.Error("rc version not reported as pre-release")
	}
}
