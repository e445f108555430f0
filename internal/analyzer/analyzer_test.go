package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sisaku-security/actionvet/internal/doccache"
	"github.com/sisaku-security/actionvet/internal/lintererr"
	"github.com/sisaku-security/actionvet/internal/schema"
)

// fakeRepos is an in-memory ghfetch.RepoObjectFetching keyed by
// owner/repo/ref/path, standing in for the REST/GraphQL fetchers in tests.
type fakeRepos struct {
	byKey map[string][]byte
}

func (f *fakeRepos) Fetch(_ context.Context, owner, repo, ref, path string) ([]byte, error) {
	key := fmt.Sprintf("%s/%s@%s:%s", owner, repo, ref, path)
	data, ok := f.byKey[key]
	if !ok {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound}
	}
	return data, nil
}

// fakeFiles is an in-memory ghfetch.FileFetching backed by a map, letting
// analyzer tests exercise the real doccache/schema stack without touching
// a filesystem.
type fakeFiles struct {
	byPath map[string][]byte
	hits   map[string]int
}

func newFakeFiles(byPath map[string][]byte) *fakeFiles {
	return &fakeFiles{byPath: byPath, hits: map[string]int{}}
}

func (f *fakeFiles) Fetch(_ context.Context, path string) ([]byte, error) {
	f.hits[path]++
	data, ok := f.byPath[path]
	if !ok {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound}
	}
	return data, nil
}

func mustAnalyze(t *testing.T, topSource []byte, files map[string][]byte) error {
	t.Helper()
	wf, errs, err := schema.ReadWorkflow(topSource)
	if err != nil {
		t.Fatalf("ReadWorkflow(top) error = %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("ReadWorkflow(top) schema errs = %v", errs)
	}

	ff := newFakeFiles(files)
	cache := doccache.New(ff, nil)
	an := New(cache)
	return an.Analyze(context.Background(), wf, ".github/workflows/caller.yml")
}

// S1 — workflow_call missing.
func TestAnalyzeMissingWorkflowCall(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/verify.yml
`)
	callee := []byte(`
on: {pull_request: , push: }
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	err := mustAnalyze(t, caller, map[string][]byte{
		".github/workflows/verify.yml": callee,
	})
	want := "job `verify` using a workflow requires `on.workflow_call:` in the called workflow"
	if err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

// S2 — required input, no with.
func TestAnalyzeRequiredInputMissing(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/verify.yml
`)
	callee := []byte(`
on:
  workflow_call:
    inputs:
      run_tests:
        type: boolean
        required: true
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	err := mustAnalyze(t, caller, map[string][]byte{
		".github/workflows/verify.yml": callee,
	})
	want := "input `run_tests` is required to call workflow from job `verify`"
	if err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

// S3 — required input, wrong type.
func TestAnalyzeRequiredInputWrongType(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/verify.yml
    with:
      run_tests: "frequent flyer miles"
`)
	callee := []byte(`
on:
  workflow_call:
    inputs:
      run_tests:
        type: boolean
        required: true
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	err := mustAnalyze(t, caller, map[string][]byte{
		".github/workflows/verify.yml": callee,
	})
	want := "input `run_tests` is a `boolean` input and job `verify` cannot call workflow with a `string` value"
	if err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

// S4 — required input with default, no with: success.
func TestAnalyzeRequiredInputWithDefault(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/verify.yml
`)
	callee := []byte(`
on:
  workflow_call:
    inputs:
      run_tests:
        type: boolean
        required: true
        default: true
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	err := mustAnalyze(t, caller, map[string][]byte{
		".github/workflows/verify.yml": callee,
	})
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestAnalyzeExpressionElisionNotFlagged(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/verify.yml
    with:
      run_tests: "${{ inputs.flag }}"
`)
	callee := []byte(`
on:
  workflow_call:
    inputs:
      run_tests:
        type: boolean
        required: true
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	err := mustAnalyze(t, caller, map[string][]byte{
		".github/workflows/verify.yml": callee,
	})
	if err != nil {
		t.Errorf("err = %v, want nil (expression-valued input must not be flagged)", err)
	}
}

func TestAnalyzeCalleeNotFound(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  verify:
    uses: ./.github/workflows/missing.yml
`)
	err := mustAnalyze(t, caller, map[string][]byte{})
	if err == nil {
		t.Fatalf("err = nil, want not-found error")
	}
	var de *lintererr.DocumentError
	if !errors.As(err, &de) || de.Kind != lintererr.KindWorkflowNotFound {
		t.Errorf("err = %v, want a WORKFLOW_NOT_FOUND DocumentError", err)
	}
}

// S5 — required action input missing.
func TestAnalyzeRequiredActionInputMissing(t *testing.T) {
	caller := []byte(`
on: {push: }
jobs:
  verify:
    runs-on: ubuntu-latest
    steps:
      - uses: eighty4/l3/setup@v3
`)
	wf, errs, err := schema.ReadWorkflow(caller)
	if err != nil || len(errs) != 0 {
		t.Fatalf("ReadWorkflow(caller) = %v, %v", errs, err)
	}

	action := []byte(`
inputs:
  must_set:
    description: mandatory
    required: true
`)
	repos := &fakeRepos{byKey: map[string][]byte{
		"eighty4/l3@v3:setup/action.yml": action,
	}}
	cache := doccache.New(nil, repos)
	an := New(cache)
	err = an.Analyze(context.Background(), wf, ".github/workflows/caller.yml")

	want := "input `must_set` is required to call action `eighty4/l3/setup@v3` from `step[0]` in job `verify`"
	if err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

func TestAnalyzeAtMostOnceFetch(t *testing.T) {
	caller := []byte(`
on: {workflow_dispatch: }
jobs:
  job_a:
    uses: ./.github/workflows/shared.yml
  job_b:
    uses: ./.github/workflows/shared.yml
`)
	shared := []byte(`
on: {workflow_call: }
jobs:
  verify:
    runs-on: ubuntu-latest
    steps: [{run: echo verified}]
`)
	wf, errs, err := schema.ReadWorkflow(caller)
	if err != nil || len(errs) != 0 {
		t.Fatalf("ReadWorkflow(caller) = %v, %v", errs, err)
	}

	ff := newFakeFiles(map[string][]byte{
		".github/workflows/shared.yml": shared,
	})
	cache := doccache.New(ff, nil)
	an := New(cache)
	if err := an.Analyze(context.Background(), wf, ".github/workflows/caller.yml"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if ff.hits[".github/workflows/shared.yml"] != 1 {
		t.Errorf("fetch count for shared.yml = %d, want 1 (at-most-once)", ff.hits[".github/workflows/shared.yml"])
	}
}
