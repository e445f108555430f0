package schema

import (
	"fmt"

	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

// RootTypeError is raised when a document's root value is not a mapping;
// this is the one case ReadWorkflow/ReadAction raise rather than accumulate.
type RootTypeError struct {
	Kind yamltree.Kind
}

func (e *RootTypeError) Error() string {
	return fmt.Sprintf(
		"This %s YAML is simply the opportunity to begin again, this time with a valid workflow YAML",
		e.Kind,
	)
}

var workflowAllowedKeys = allowedSet(
	"name", "description", "on", "permissions", "env", "defaults",
	"concurrency", "jobs", "run-name",
)

// ReadWorkflow parses a workflow YAML document into a typed model plus the
// complete list of schema errors found in it. It returns a non-nil error
// only when the document's root is not a mapping (or the YAML itself is
// malformed); every other violation is reported through the error slice and
// the reader keeps going.
func ReadWorkflow(source []byte) (*model.Workflow, []*model.SchemaError, error) {
	root, err := yamltree.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	m, ok := yamltree.AsMap(root)
	if !ok {
		return nil, nil, &RootTypeError{Kind: yamltree.KindOf(root)}
	}

	r := &reader{}
	wf := &model.Workflow{}

	r.unexpectedKeys(model.ObjectWorkflow, "", m, workflowAllowedKeys, root.Pos)

	var hasOn, hasJobs bool
	for _, key := range m.Keys() {
		val, _ := m.Get(key)
		switch key {
		case "on":
			hasOn = true
			wf.On = r.parseOn(val)
		case "jobs":
			hasJobs = true
			wf.Jobs = r.parseJobs(val)
		case "defaults":
			r.checkDefaults(model.ObjectWorkflow, "defaults", val)
		default:
			// name/description/permissions/env/concurrency/run-name
			// are whitelisted above but otherwise unmodeled at this layer,
			// matching spec.md's scope (only "on" and "jobs" feed the
			// analyzer).
		}
	}

	if !hasOn {
		r.error(model.ObjectWorkflow, "on", "section is missing required key \"on\"", root.Pos)
	}
	if !hasJobs {
		r.error(model.ObjectWorkflow, "jobs", "section is missing required key \"jobs\"", root.Pos)
	} else if len(wf.Jobs) == 0 {
		r.error(model.ObjectWorkflow, "jobs", "No jobs defined in `jobs`", root.Pos)
	}

	return wf, r.errors, nil
}
