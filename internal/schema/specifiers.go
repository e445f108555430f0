package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var filesystemPrefix = regexp.MustCompile(`^\.?\./`)
var workflowFilenamePattern = regexp.MustCompile(`ya?ml$`)

// parseWorkflowCallSpecifier implements the bit-exact "uses:" grammar for a
// uses-kind job per spec.md §4.1.
func (r *reader) parseWorkflowCallSpecifier(path, raw string, pos yamltree.Position) model.WorkflowCallSpecifier {
	spec := model.WorkflowCallSpecifier{Raw: raw}

	if filesystemPrefix.MatchString(raw) {
		spec.Kind = model.WorkflowCallFilesystem
		spec.Path = raw
		return spec
	}

	spec.Kind = model.WorkflowCallRepository

	head, ref, hasRef := splitRef(raw)
	if !hasRef {
		r.error(model.ObjectJob, path, fmt.Sprintf("Must specify GitHub workflow ref in format `%s@{ref}`", head), pos)
		return spec
	}
	spec.Ref = ref

	segs := strings.Split(head, "/")
	if len(segs) != 5 || segs[2] != ".github" || segs[3] != "workflows" || !workflowFilenamePattern.MatchString(segs[4]) {
		r.error(model.ObjectJob, path, "uses must specify `owner/repo/.github/workflows/<file>.yml@ref`", pos)
		return spec
	}
	spec.Owner, spec.Repo, spec.Filename = segs[0], segs[1], segs[4]
	return spec
}

// parseActionSpecifier implements the bit-exact "uses:" grammar for a
// uses-kind step per spec.md §4.1.
func (r *reader) parseActionSpecifier(path, raw string, pos yamltree.Position) model.ActionSpecifier {
	spec := model.ActionSpecifier{Raw: raw}

	switch {
	case strings.HasPrefix(raw, "docker://"):
		spec.Kind = model.ActionDocker
		spec.URI = raw
		return spec
	case filesystemPrefix.MatchString(raw):
		spec.Kind = model.ActionFilesystem
		spec.Path = raw
		return spec
	}

	spec.Kind = model.ActionRepository
	head, ref, hasRef := splitRef(raw)
	if !hasRef {
		r.error(model.ObjectStep, path, fmt.Sprintf("Must specify GitHub action ref in format `%s@{ref}`", head), pos)
		return spec
	}
	spec.Ref = ref

	segs := strings.Split(head, "/")
	if len(segs) < 2 || segs[0] == "" || segs[1] == "" {
		r.error(model.ObjectStep, path, "uses must specify at least `owner/repo@ref`", pos)
		return spec
	}
	spec.Owner, spec.Repo = segs[0], segs[1]
	if len(segs) > 2 {
		spec.Subdirectory = strings.Join(segs[2:], "/")
	}
	return spec
}

// splitRef splits "head@ref" into (head, ref, true), or returns
// (raw, "", false) when no ref is present.
func splitRef(raw string) (head, ref string, ok bool) {
	parts := strings.SplitN(raw, "@", 2)
	if len(parts) != 2 || parts[1] == "" {
		return raw, "", false
	}
	return parts[0], parts[1], true
}
