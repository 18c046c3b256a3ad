package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

// run executes the root command with args and returns combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// mustRun fails the test unless the command succeeds and prints want.
func mustRun(t *testing.T, want string, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("ct %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	if !strings.Contains(out, want) {
		t.Fatalf("ct %s: output missing %q:\n%s", strings.Join(args, " "), want, out)
	}
	return out
}

// writeConfig writes a sqlite-backed config into a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "caretaker.yaml")
	yaml := fmt.Sprintf(`site: test
database:
  driver: sqlite
  path: %s
log:
  level: error
roles:
  - name: cleaner
    capabilities: [worker]
  - name: lead
    capabilities: [worker, supervisor]
task_groups:
  - name: morning
    start: "06:00"
    end: "14:00"
`, filepath.Join(dir, "ct.db"))
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, "ct dev", "version")
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out := mustRun(t, "ct 1.0.0", "version")
	if !strings.Contains(out, "commit: abc123") || !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out := mustRun(t, "Caretaker", "--help")
	for _, sub := range []string{"db", "template", "generate", "task", "report", "serve", "daemon"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "asset", "list", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %v, want load config error", err)
	}
}

func TestEndToEnd(t *testing.T) {
	cfg := writeConfig(t)
	c := []string{"--config", cfg}
	with := func(args ...string) []string { return append(args, c...) }

	mustRun(t, "initialized successfully", with("db", "init")...)
	mustRun(t, "morning", with("group", "list")...)

	mustRun(t, "Created asset 1", with("asset", "add", "North Tower", "--address", "1 Main St")...)
	mustRun(t, "Created unit 1", with("asset", "unit-add", "1", "Lobby", "--floor", "G")...)
	mustRun(t, "1:Lobby", with("asset", "list")...)

	mustRun(t, "Created user 1", with("user", "add", "ana", "ana@example.test")...)
	mustRun(t, "Created user 2", with("user", "add", "sam", "sam@example.test")...)
	mustRun(t, "cleaner at asset 1", with("user", "assign", "1", "1", "cleaner")...)
	mustRun(t, "lead at asset 1", with("user", "assign", "2", "1", "lead")...)
	mustRun(t, "sam@example.test", with("user", "list")...)

	mustRun(t, "Created template 1", with("template", "add",
		"--name", "Morning Sweep", "--asset", "1", "--role", "1", "--schedule", "all 06:00")...)
	mustRun(t, "Created template 2", with("template", "add",
		"--name", "Sweep Check", "--asset", "1", "--role", "1", "--schedule", "all 06:30",
		"--order", "parent_first", "--requires-validation")...)
	mustRun(t, "child of 1", with("template", "link", "2", "1")...)
	if _, err := run(t, with("template", "link", "1", "2")...); err == nil {
		t.Error("expected cycle to be rejected")
	}
	out := mustRun(t, "all 06:00", with("template", "show", "1")...)
	if !strings.Contains(out, "Child:       2 Sweep Check") {
		t.Errorf("show missing child:\n%s", out)
	}
	mustRun(t, "Updated template 1", with("template", "set", "1", "duration_minutes=15")...)
	if _, err := run(t, with("template", "set", "1", "asset_id=7")...); err == nil {
		t.Error("expected non-updatable field to be rejected")
	}

	mustRun(t, "2 created", with("generate", "--date", "2025-06-01", "--quiet")...)
	mustRun(t, "0 created", with("generate", "--date", "2025-06-01", "--quiet")...)

	out = mustRun(t, "Morning Sweep", with("task", "list", "--date", "2025-06-01")...)
	if !strings.Contains(out, "pending") {
		t.Errorf("task list missing status:\n%s", out)
	}

	if _, err := run(t, with("task", "start", "1")...); err == nil || !strings.Contains(err.Error(), "--as") {
		t.Errorf("start without --as error = %v", err)
	}
	mustRun(t, "started", with("task", "start", "1", "--as", "1")...)
	mustRun(t, "started", with("task", "start", "2", "--as", "1")...)

	// Sweep Check waits for Morning Sweep.
	if _, err := run(t, with("task", "complete", "2", "--as", "1", "--evidence", "https://files.example/a.jpg")...); err == nil {
		t.Error("expected dependency error")
	}
	mustRun(t, "Note added", with("task", "note", "1", "mop bucket missing", "--as", "1")...)
	mustRun(t, "completed", with("task", "complete", "1", "--as", "1", "--note", "done")...)
	mustRun(t, "Attached photo evidence", with("task", "evidence", "2", "https://files.example/a.jpg", "--as", "1")...)
	mustRun(t, "completed", with("task", "complete", "2", "--as", "1")...)
	if _, err := run(t, with("task", "validate", "2", "--as", "1")...); err == nil {
		t.Error("expected worker validation to be denied")
	}
	mustRun(t, "validated", with("task", "validate", "2", "--as", "2", "--note", "ok")...)

	out = mustRun(t, "Morning Sweep", with("task", "show", "1")...)
	if !strings.Contains(out, "mop bucket missing") || !strings.Contains(out, "completed") {
		t.Errorf("show missing note or status:\n%s", out)
	}

	mustRun(t, "complete", with("audit", "user_task", "1")...)

	xlsx := filepath.Join(t.TempDir(), "day.xlsx")
	mustRun(t, "Wrote", with("report", "2025-06-01", "-o", xlsx)...)
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("report file: %v", err)
	}

	mustRun(t, "reset and re-initialized", with("db", "reset", "--yes")...)
	mustRun(t, "(none)", with("asset", "list")...)
}
