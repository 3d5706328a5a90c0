package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labforge.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_Full(t *testing.T) {
	path := writeTemp(t, `
versions: ["3.11", "3.12", "3.13"]
package: heliopy
default_version: "3.12"
default_session: "tests(all)"
backend: venv
ci_var: BUILD_ID
env_passthrough: [SSH_AUTH_SOCK]
history: false
watch_paths: [heliopy]
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Package != "heliopy" {
		t.Errorf("package = %q, want heliopy", s.Package)
	}
	if s.MaxVersion() != "3.13" || s.MinVersion() != "3.11" {
		t.Errorf("version bounds = %s..%s, want 3.11..3.13", s.MinVersion(), s.MaxVersion())
	}
	if s.ResolveDefaultVersion() != "3.12" {
		t.Errorf("default version = %q, want 3.12", s.ResolveDefaultVersion())
	}
	if s.Backend != "venv" || s.CIVar != "BUILD_ID" {
		t.Errorf("backend=%q ci_var=%q", s.Backend, s.CIVar)
	}
	if s.History {
		t.Error("history should be disabled")
	}
	if len(s.WatchPaths) != 1 || s.WatchPaths[0] != "heliopy" {
		t.Errorf("watch_paths = %v", s.WatchPaths)
	}
}

func TestLoadSettings_PartialKeepsDefaults(t *testing.T) {
	path := writeTemp(t, "package: heliopy\n")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Package != "heliopy" {
		t.Errorf("package = %q, want heliopy", s.Package)
	}
	if s.Backend != "uv" || s.DefaultSession != "tests(skipslow)" || !s.History {
		t.Errorf("defaults not preserved: %+v", s)
	}
	if len(s.Versions) != 3 {
		t.Errorf("versions = %v, want defaults", s.Versions)
	}
}

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Package != defaults.Package || s.Backend != defaults.Backend {
		t.Errorf("got %+v, want defaults", s)
	}
}

func TestLoadSettings_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "versions: [unterminated\n")
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadSettings_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty versions", "versions: []\n", "versions must not be empty"},
		{"empty package", "package: \"\"\n", "package must not be empty"},
		{"bad backend", "backend: conda\n", "unknown backend"},
		{"default outside versions", "default_version: \"3.9\"\n", "not among versions"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSettings(writeTemp(t, tc.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestResolveDefaultVersion_FallsBackToMax(t *testing.T) {
	s := defaults
	if got := s.ResolveDefaultVersion(); got != "3.12" {
		t.Errorf("got %q, want 3.12", got)
	}
}

func TestOnCI(t *testing.T) {
	s := defaults

	t.Setenv("CI", "")
	if !s.OnCI() {
		t.Error("presence of CI (even empty) should count")
	}

	s.CIVar = "LABFORGE_TEST_CI_MARKER"
	if s.OnCI() {
		t.Error("unset marker variable should not count")
	}
	t.Setenv("LABFORGE_TEST_CI_MARKER", "1")
	if !s.OnCI() {
		t.Error("set marker variable should count")
	}
}
