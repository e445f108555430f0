// Package analyzer implements C7: the cross-document workflow analyzer.
// Given a validated workflow, it walks its jobs and steps, dereferences
// every "uses:" target through internal/doccache, and checks that every
// required, default-less callee input is present and type-compatible at
// the call site.
//
// The fan-out below is grounded on the teacher's job-parallelism in
// pkg/core/run.go, generalized from a sync.WaitGroup over jobs to a
// first-error-wins cancellation via context, since none of the example
// repos import golang.org/x/sync/errgroup.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sisaku-security/actionvet/internal/doccache"
	"github.com/sisaku-security/actionvet/internal/lintererr"
	"github.com/sisaku-security/actionvet/internal/model"
)

// Analyzer resolves and checks the outgoing references of one workflow.
type Analyzer struct {
	cache    *doccache.Cache
	debugOut io.Writer
}

func New(cache *doccache.Cache) *Analyzer {
	return &Analyzer{cache: cache}
}

// EnableDebugOutput turns on trace logging of job dispatch and reference
// resolution to out, the way the teacher's BaseRule.EnableDebugOutput does
// for individual rules.
func (a *Analyzer) EnableDebugOutput(out io.Writer) {
	a.debugOut = out
}

func (a *Analyzer) debugf(format string, args ...interface{}) {
	if a.debugOut == nil {
		return
	}
	fmt.Fprintf(a.debugOut, "[analyzer] "+format+"\n", args...)
}

// Analyze validates every job of wf (loaded from path). Jobs are checked
// concurrently; a runtime error found in one job short-circuits only that
// job's further checking, but the first error to escape any job cancels
// the remaining jobs and is returned — Analyze never reports more than one
// error per run.
func (a *Analyzer) Analyze(ctx context.Context, wf *model.Workflow, path string) error {
	jobIDs := make([]string, 0, len(wf.Jobs))
	for id := range wf.Jobs {
		jobIDs = append(jobIDs, id)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		once    sync.Once
		firstErr error
	)

	a.debugf("dispatching %d job(s) for %s", len(jobIDs), path)

	for _, id := range jobIDs {
		id := id
		job := wf.Jobs[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				a.debugf("job `%s` skipped, analysis already cancelled", id)
				return
			}
			if err := a.checkJob(ctx, path, id, job); err != nil {
				a.debugf("job `%s` failed: %s", id, err)
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}()
	}
	wg.Wait()

	return firstErr
}

func (a *Analyzer) checkJob(ctx context.Context, path, jobID string, job *model.Job) error {
	if job.IsUses {
		return a.checkUsesKindJob(ctx, path, jobID, job)
	}
	return a.checkStepsKindJob(ctx, path, jobID, job)
}

// checkUsesKindJob implements spec.md §4.3 algorithm step 1.
func (a *Analyzer) checkUsesKindJob(ctx context.Context, path, jobID string, job *model.Job) error {
	callee, err := a.loadWorkflowCallee(ctx, path, job.Uses)
	if err != nil {
		return err
	}

	callEvent, ok := findWorkflowCallEvent(callee)
	if !ok {
		return lintererr.NewRuntime(fmt.Sprintf(
			"job `%s` using a workflow requires `on.workflow_call:` in the called workflow", jobID,
		))
	}

	for _, iid := range callEvent.Inputs.IDs() {
		input, _ := callEvent.Inputs.Get(iid)
		common := input.Common()
		if !common.Required || hasDefault(input) {
			continue
		}

		provided, present := job.With[iid]
		if !present {
			return lintererr.NewRuntime(fmt.Sprintf(
				"input `%s` is required to call workflow from job `%s`", iid, jobID,
			))
		}

		if !typeCompatible(input.Type(), provided) {
			return lintererr.NewRuntime(fmt.Sprintf(
				"input `%s` is a `%s` input and job `%s` cannot call workflow with a `%s` value",
				iid, input.Type(), jobID, scalarKindName(provided),
			))
		}
	}
	return nil
}

func (a *Analyzer) loadWorkflowCallee(ctx context.Context, callerPath string, spec model.WorkflowCallSpecifier) (*model.Workflow, error) {
	switch spec.Kind {
	case model.WorkflowCallFilesystem:
		return a.cache.WorkflowFromFilesystem(ctx, spec.Path, callerPath)
	default:
		return a.cache.WorkflowFromRepository(ctx, spec.Owner, spec.Repo, spec.Ref, spec.Filename, spec.Raw, callerPath)
	}
}

func findWorkflowCallEvent(wf *model.Workflow) (model.WorkflowCallEvent, bool) {
	for _, evt := range wf.On {
		if wc, ok := evt.(model.WorkflowCallEvent); ok {
			if wc.Inputs == nil {
				wc.Inputs = model.NewOrderedInputs()
			}
			return wc, true
		}
	}
	return model.WorkflowCallEvent{}, false
}

func hasDefault(input model.InputConfig) bool {
	switch v := input.(type) {
	case model.BooleanInput:
		return v.HasDefault
	case model.NumberInput:
		return v.HasDefault
	case model.StringInput:
		return v.HasDefault
	case model.ChoiceInput:
		return v.HasDefault
	case model.EnvironmentInput:
		return v.HasDefault
	default:
		return false
	}
}

// checkStepsKindJob implements spec.md §4.3 algorithm step 2.
func (a *Analyzer) checkStepsKindJob(ctx context.Context, path, jobID string, job *model.Job) error {
	for i, step := range job.Steps {
		if !step.IsUses || step.Uses.Kind != model.ActionRepository {
			continue
		}

		action, err := a.cache.ActionFromRepository(ctx, step.Uses.Owner, step.Uses.Repo, step.Uses.Subdirectory, step.Uses.Ref, step.Uses.Raw, path)
		if err != nil {
			return err
		}

		label := step.Label(i)
		for iid, input := range action.Inputs {
			if !input.Required || input.HasDefault {
				continue
			}
			if _, present := step.With[iid]; present {
				continue
			}
			return lintererr.NewRuntime(fmt.Sprintf(
				"input `%s` is required to call action `%s` from `%s` in job `%s`",
				iid, step.Uses.Raw, label, jobID,
			))
		}
	}
	return nil
}
