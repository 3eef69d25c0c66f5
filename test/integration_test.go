// ABOUTME: Integration tests for the wellness CLI.
// ABOUTME: Builds the binary and drives a full ingest, list, export workflow.
package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	projectRoot, _ := filepath.Abs("..")
	binary := filepath.Join(t.TempDir(), "wellness")

	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/wellness")
	buildCmd.Dir = projectRoot
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build: %v\n%s", err, output)
	}

	tmpDir := t.TempDir()
	env := []string{
		"HOME=" + tmpDir,
		"PATH=" + os.Getenv("PATH"),
		"XDG_CONFIG_HOME=" + filepath.Join(tmpDir, "config"),
		"WELLNESS_DATA_DIR=" + filepath.Join(tmpDir, "data"),
		"JWT_SECRET=integration-secret",
		"NO_COLOR=1",
	}

	run := func(stdin string, args ...string) (string, error) {
		cmd := exec.Command(binary, args...)
		cmd.Dir = tmpDir
		cmd.Env = env
		if stdin != "" {
			cmd.Stdin = strings.NewReader(stdin)
		}
		output, err := cmd.CombinedOutput()
		return string(output), err
	}

	output, err := run("", "user", "add", "ada@example.com", "--password", "correct-horse")
	if err != nil {
		t.Fatalf("Failed to add user: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Created ada@example.com") {
		t.Errorf("Expected 'Created ada@example.com' in output, got: %s", output)
	}

	payload := `{"biometricsData":[{"date":"2024-06-01","time":"08:00","step_count":1200,"avg_heart_rate":72}]}`
	output, err = run(payload, "ingest", "-", "--shape", "wide", "--user", "ada@example.com")
	if err != nil {
		t.Fatalf("Failed to ingest: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Stored 2 reading(s)") {
		t.Errorf("Expected 'Stored 2 reading(s)' in output, got: %s", output)
	}

	output, err = run(`{"biometricsData":[{"date":"2024-06-01","time":"09:00","step_count":"lots"}]}`,
		"ingest", "-", "--shape", "wide", "--user", "ada@example.com")
	if err == nil {
		t.Errorf("Expected invalid numeric payload to fail, got: %s", output)
	}

	output, err = run("", "export", "markdown", "--user", "ada@example.com")
	if err != nil {
		t.Fatalf("Failed to export: %v\n%s", err, output)
	}
	if !strings.Contains(output, "heart_rate") || !strings.Contains(output, "step") {
		t.Errorf("Expected both kinds in export, got: %s", output)
	}

	output, err = run("", "migrate", "status")
	if err != nil {
		t.Fatalf("Failed to read migration status: %v\n%s", err, output)
	}

	output, err = run("", "user", "token", "ada@example.com")
	if err != nil {
		t.Fatalf("Failed to issue token: %v\n%s", err, output)
	}
	if strings.Count(strings.TrimSpace(output), ".") != 2 {
		t.Errorf("Expected a JWT, got: %s", output)
	}
}
