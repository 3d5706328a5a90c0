package runner

import (
	"strings"
	"testing"
)

func TestSanitizeEnv(t *testing.T) {
	in := []string{
		"HOME=/home/u",
		"PATH=/usr/bin",
		"GH_TOKEN=abc",
		"GITHUB_TOKEN=def",
		"AWS_SECRET_ACCESS_KEY=xyz",
		"AWS_SESSION_TOKEN=xyz",
		"LABFORGE_INTERNAL=1",
		"API_KEY=k",
		"API_KEYRING=/keyring", // prefix matches only exact names
		"TWINE_PASSWORD=pw",
		"gh_token=lowercase",
	}

	got := sanitizeEnv(in)
	joined := strings.Join(got, "\n")

	for _, want := range []string{"HOME=/home/u", "PATH=/usr/bin", "API_KEYRING=/keyring"} {
		if !strings.Contains(joined, want) {
			t.Errorf("sanitized env missing %q: %v", want, got)
		}
	}
	for _, banned := range []string{"GH_TOKEN", "GITHUB_TOKEN", "AWS_SECRET", "AWS_SESSION", "LABFORGE_", "API_KEY=", "TWINE_PASSWORD", "gh_token"} {
		if strings.Contains(joined, banned) {
			t.Errorf("sensitive entry %q survived: %v", banned, got)
		}
	}
}

func TestSanitizeEnv_MalformedEntryKept(t *testing.T) {
	got := sanitizeEnv([]string{"NOEQUALS"})
	if len(got) != 1 || got[0] != "NOEQUALS" {
		t.Errorf("got %v, want [NOEQUALS]", got)
	}
}

func TestSetPath(t *testing.T) {
	got := setPath([]string{"HOME=/h", "PATH=/usr/bin:/bin"}, "/venv/bin")
	found := false
	for _, entry := range got {
		if strings.HasPrefix(entry, "PATH=") {
			found = true
			if !strings.HasPrefix(entry, "PATH=/venv/bin") {
				t.Errorf("venv bin not first on PATH: %q", entry)
			}
			if !strings.Contains(entry, "/usr/bin") {
				t.Errorf("existing PATH entries lost: %q", entry)
			}
		}
	}
	if !found {
		t.Fatal("no PATH entry in result")
	}
}

func TestSetPath_NoExistingPath(t *testing.T) {
	got := setPath([]string{"HOME=/h"}, "/venv/bin")
	if got[len(got)-1] != "PATH=/venv/bin" {
		t.Errorf("got %v, want trailing PATH=/venv/bin", got)
	}
}

func TestBaseEnviron_Passthrough(t *testing.T) {
	t.Setenv("GH_TOKEN", "secret")
	t.Setenv("SSH_AUTH_SOCK", "/tmp/agent.sock")

	env := baseEnviron(Options{Passthrough: []string{"GH_TOKEN"}, Dir: "/venv"})
	joined := strings.Join(env, "\n")

	// stripped by default, restored only via explicit passthrough
	if !strings.Contains(joined, "GH_TOKEN=secret") {
		t.Errorf("passthrough GH_TOKEN missing: %v", env)
	}
	if !strings.Contains(joined, "SSH_AUTH_SOCK=/tmp/agent.sock") {
		t.Errorf("benign variable missing: %v", env)
	}
	if !strings.Contains(joined, "VIRTUAL_ENV=/venv") {
		t.Errorf("VIRTUAL_ENV missing: %v", env)
	}
}

func TestPythonProgram(t *testing.T) {
	if got := pythonProgram(""); got != "python3" {
		t.Errorf("got %q, want python3", got)
	}
	if got := pythonProgram("3.12"); got != "python3.12" {
		t.Errorf("got %q, want python3.12", got)
	}
}
