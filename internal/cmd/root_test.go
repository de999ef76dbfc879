package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("X_TEST", "")
	if got := envOr("X_TEST", "fallback"); got != "fallback" {
		t.Fatalf("unexpected: %q", got)
	}
	t.Setenv("X_TEST", "value")
	if got := envOr("X_TEST", "fallback"); got != "value" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestExecute_Help(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("unexpected help output: %q", out)
	}
	if !strings.Contains(out, "config.json") || !strings.Contains(out, "keyring backend") {
		t.Fatalf("expected config info in help output: %q", out)
	}
	for _, want := range []string{"auth", "config", "sheets", "gmail"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q command in help: %q", want, out)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	isolate(t)
	_, errText, err := run(t, "no_such_cmd")
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != 2 {
		t.Fatalf("exit=%d", ExitCode(err))
	}
	if errText == "" {
		t.Fatalf("expected stderr output")
	}
}

func TestExecute_UnknownFlag(t *testing.T) {
	isolate(t)
	_, errText, err := run(t, "--definitely-nope")
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != 2 {
		t.Fatalf("exit=%d", ExitCode(err))
	}
	if errText == "" {
		t.Fatalf("expected stderr output")
	}
}

func TestExecute_JSONAndPlainConflict(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "--json", "--plain", "version")
	if err == nil || ExitCode(err) != 2 {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestExecute_InvalidColor(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "--color", "sometimes", "version")
	if err == nil || ExitCode(err) != 2 {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--version")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "gmailbot ") {
		t.Fatalf("unexpected: %q", out)
	}

	out, _, err = run(t, "--json", "version")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if parsed["version"] != version || parsed["go"] == "" {
		t.Fatalf("unexpected: %#v", parsed)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("nil")
	}
	if ExitCode(usage("x")) != 2 {
		t.Fatalf("usage")
	}
	if ExitCode(&ExitError{Code: 0}) != 1 {
		t.Fatalf("zero code should map to 1")
	}
}
