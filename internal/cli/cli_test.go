package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestResolveTargetsDirectoryMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".github", "workflows", "b.yaml"), "on: {push: }\n")
	writeFile(t, filepath.Join(root, ".github", "workflows", "a.yml"), "on: {push: }\n")
	writeFile(t, filepath.Join(root, ".github", "workflows", "README.md"), "not a workflow\n")

	targets, resolvedRoot, err := resolveTargets(root)
	if err != nil {
		t.Fatalf("resolveTargets() error = %v", err)
	}
	if resolvedRoot != root {
		t.Errorf("root = %q, want %q", resolvedRoot, root)
	}
	want := []string{".github/workflows/a.yml", ".github/workflows/b.yaml"}
	if len(targets) != len(want) || targets[0] != want[0] || targets[1] != want[1] {
		t.Errorf("targets = %v, want %v (sorted, .md excluded)", targets, want)
	}
}

func TestResolveTargetsDirectoryModeMissingWorkflowsDir(t *testing.T) {
	root := t.TempDir()
	if _, _, err := resolveTargets(root); err == nil {
		t.Fatalf("err = nil, want error for missing .github/workflows")
	}
}

func TestResolveTargetsFileMode(t *testing.T) {
	root := t.TempDir()
	ciPath := filepath.Join(root, ".github", "workflows", "ci.yml")
	writeFile(t, ciPath, "on: {push: }\n")

	targets, resolvedRoot, err := resolveTargets(ciPath)
	if err != nil {
		t.Fatalf("resolveTargets() error = %v", err)
	}
	if len(targets) != 1 || targets[0] != ".github/workflows/ci.yml" {
		t.Errorf("targets = %v, want [.github/workflows/ci.yml]", targets)
	}
	absRoot, _ := filepath.Abs(root)
	absResolved, _ := filepath.Abs(resolvedRoot)
	if absResolved != absRoot {
		t.Errorf("root = %q, want %q", absResolved, absRoot)
	}
}

func TestResolveTargetsFileModeOutsideWorkflowsDir(t *testing.T) {
	root := t.TempDir()
	strayPath := filepath.Join(root, "ci.yml")
	writeFile(t, strayPath, "on: {push: }\n")

	if _, _, err := resolveTargets(strayPath); err == nil {
		t.Fatalf("err = nil, want error for a file outside .github/workflows")
	}
}

func TestResolveTargetsNonexistentPath(t *testing.T) {
	if _, _, err := resolveTargets(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("err = nil, want stat error")
	}
}

func TestMainValidatesDirectoryAndReportsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".github", "workflows", "good.yml"), "on: {push: }\njobs: {build: {runs-on: ubuntu-latest, steps: [{run: echo hi}]}}\n")
	writeFile(t, filepath.Join(root, ".github", "workflows", "bad.yml"), "jobs: {}\n")

	var stdout, stderr bytes.Buffer
	cmd := Command{Stdin: bytes.NewReader(nil), Stdout: &stdout, Stderr: &stderr}
	code := cmd.Main([]string{"actionvet", root})

	if code != ExitStatusValidationFailure {
		t.Errorf("exit code = %d, want %d", code, ExitStatusValidationFailure)
	}
	out := stdout.String()
	if !bytes.Contains([]byte(out), []byte("good.yml is valid")) {
		t.Errorf("stdout = %q, want it to report good.yml as valid", out)
	}
	if !bytes.Contains([]byte(out), []byte("bad.yml")) {
		t.Errorf("stdout = %q, want it to report bad.yml", out)
	}
}

func TestMainDebugFlagEmitsTraceOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".github", "workflows", "good.yml"), "on: {push: }\njobs: {build: {runs-on: ubuntu-latest, steps: [{run: echo hi}]}}\n")

	var stdout, stderr bytes.Buffer
	cmd := Command{Stdin: bytes.NewReader(nil), Stdout: &stdout, Stderr: &stderr}
	code := cmd.Main([]string{"actionvet", "-debug", root})

	if code != ExitStatusSuccess {
		t.Fatalf("exit code = %d, want %d; stderr = %s", code, ExitStatusSuccess, stderr.String())
	}
	if !bytes.Contains(stderr.Bytes(), []byte("[analyzer]")) {
		t.Errorf("stderr = %q, want analyzer debug trace", stderr.String())
	}
}

func TestMainRequiresExactlyOnePositional(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := Command{Stdin: bytes.NewReader(nil), Stdout: &stdout, Stderr: &stderr}
	if code := cmd.Main([]string{"actionvet"}); code != ExitStatusValidationFailure {
		t.Errorf("exit code = %d, want %d for zero positionals", code, ExitStatusValidationFailure)
	}
	if code := cmd.Main([]string{"actionvet", "a", "b"}); code != ExitStatusValidationFailure {
		t.Errorf("exit code = %d, want %d for two positionals", code, ExitStatusValidationFailure)
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	if got := resolveToken(); got != "" {
		t.Errorf("resolveToken() = %q, want empty with no env set", got)
	}

	t.Setenv("GH_TOKEN", "from-gh")
	if got := resolveToken(); got != "from-gh" {
		t.Errorf("resolveToken() = %q, want from-gh", got)
	}

	t.Setenv("GITHUB_TOKEN", "from-github")
	if got := resolveToken(); got != "from-github" {
		t.Errorf("resolveToken() = %q, want GITHUB_TOKEN to take priority", got)
	}
}
