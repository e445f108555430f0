package schema

import (
	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var stepAllowedKeys = allowedSet(
	"env", "continue-on-error", "id", "if", "name", "run", "shell",
	"timeout-minutes", "uses", "with", "working-directory",
)

func (r *reader) parseSteps(path string, n *yamltree.Node) []*model.Step {
	seq, ok := yamltree.AsSequence(n)
	if !ok {
		pos := yamltree.Position{}
		if n != nil {
			pos = n.Pos
		}
		r.error(model.ObjectStep, path, "steps must be an array", pos)
		return nil
	}

	steps := make([]*model.Step, 0, len(seq))
	for i, elem := range seq {
		stepPath := indexPath(path, i)
		step := r.parseStep(stepPath, elem)
		if step != nil {
			steps = append(steps, step)
		}
	}
	return steps
}

func (r *reader) parseStep(path string, n *yamltree.Node) *model.Step {
	m, ok := yamltree.AsMap(n)
	if !ok {
		pos := yamltree.Position{}
		if n != nil {
			pos = n.Pos
		}
		r.error(model.ObjectStep, path, "step must be a map", pos)
		return nil
	}
	r.unexpectedKeys(model.ObjectStep, path, m, stepAllowedKeys, n.Pos)

	step := &model.Step{Pos: n.Pos}

	if idNode, ok := m.Get("id"); ok {
		if s, ok := r.stringLike(model.ObjectStep, joinPath(path, "id"), idNode, "id must be string-like"); ok {
			if !idValid(s) {
				r.error(model.ObjectStep, joinPath(path, "id"), "step ID does not match required pattern `^[_a-z][_\\-a-z0-9]+$`", idNode.Pos)
			} else {
				step.ID = s
			}
		}
	}
	if ifNode, ok := m.Get("if"); ok {
		if s, ok := r.stringLike(model.ObjectStep, joinPath(path, "if"), ifNode, "if must be string-like"); ok {
			step.If = s
		}
	}
	if nameNode, ok := m.Get("name"); ok {
		if s, ok := r.stringLike(model.ObjectStep, joinPath(path, "name"), nameNode, "name must be string-like"); ok {
			step.Name = s
		}
	}

	runNode, hasRun := m.Get("run")
	usesNode, hasUses := m.Get("uses")

	switch {
	case hasRun && hasUses:
		r.error(model.ObjectStep, path, "step cannot define both `run` and `uses`", n.Pos)
		return nil
	case hasRun:
		if s, ok := r.stringLike(model.ObjectStep, joinPath(path, "run"), runNode, "run must be string-like"); ok {
			step.Run = s
		}
		if envNode, ok := m.Get("env"); ok {
			step.Env = r.parseEnv(joinPath(path, "env"), envNode)
		}
	case hasUses:
		step.IsUses = true
		if s, ok := r.stringLike(model.ObjectStep, joinPath(path, "uses"), usesNode, "uses must be string-like"); ok {
			step.Uses = r.parseActionSpecifier(joinPath(path, "uses"), s, usesNode.Pos)
		}
		if _, hasEnv := m.Get("env"); hasEnv {
			r.error(model.ObjectStep, joinPath(path, "env"), "`env` is not supported on a step that uses an action", n.Pos)
		}
		if withNode, ok := m.Get("with"); ok {
			step.With = r.parseWithMap(model.ObjectStep, joinPath(path, "with"), withNode)
		}
	default:
		r.error(model.ObjectStep, path, "step must define `run` or `uses`", n.Pos)
		return nil
	}

	return step
}
