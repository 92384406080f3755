package cli

import (
	"runtime/debug"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: "devel"},
		{input: "(devel)", expected: "devel"},
		{input: "v1.2.3", expected: "v1.2.3"},
	}
	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.expected {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCurrentVersionInfoFromBuildInfo(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.23.0",
			Main: debug.Module{
				Path:    "github.com/klaboworld/marginalia",
				Version: "v0.3.0",
			},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	info := currentVersionInfo()
	if info.Version != "v0.3.0" {
		t.Errorf("expected version v0.3.0, got %q", info.Version)
	}
	if info.Commit != "abc123" {
		t.Errorf("expected commit abc123, got %q", info.Commit)
	}
	if !info.Modified {
		t.Error("expected modified build")
	}
	if info.ModulePath != defaultModulePath {
		t.Errorf("unexpected module path %q", info.ModulePath)
	}
}

func TestCurrentVersionInfoWithoutBuildInfo(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })

	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	info := currentVersionInfo()
	if info.Version != "devel" {
		t.Errorf("expected devel, got %q", info.Version)
	}
	if info.ModulePath != defaultModulePath {
		t.Errorf("unexpected module path %q", info.ModulePath)
	}
}
