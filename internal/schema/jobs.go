package schema

import (
	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var jobAllowedKeys = allowedSet(
	"name", "permissions", "needs", "if", "runs-on", "environment",
	"concurrency", "outputs", "env", "defaults", "steps", "timeout-minutes",
	"strategy", "continue-on-error", "container", "services", "uses", "with",
	"secrets",
)

func (r *reader) parseJobs(n *yamltree.Node) map[string]*model.Job {
	m := r.requireMap(model.ObjectJob, "jobs", n, "jobs must be a map")
	if m == nil {
		return nil
	}

	jobs := map[string]*model.Job{}
	for _, id := range m.Keys() {
		jobNode, _ := m.Get(id)
		path := joinPath("jobs", id)

		if !idValid(id) {
			r.error(model.ObjectJob, path, "job ID does not match required pattern `^[_a-z][_\\-a-z0-9]+$`", jobNode.Pos)
			continue
		}

		body, ok := yamltree.AsMap(jobNode)
		if !ok {
			r.error(model.ObjectJob, path, "job body must be a map", jobNode.Pos)
			continue
		}

		job := r.parseJob(path, id, body, jobNode.Pos)
		if job != nil {
			jobs[id] = job
		}
	}
	return jobs
}

func (r *reader) parseJob(path, id string, body *yamltree.OrderedMap, pos yamltree.Position) *model.Job {
	r.unexpectedKeys(model.ObjectJob, path, body, jobAllowedKeys, pos)

	_, hasSteps := body.Get("steps")
	_, hasUses := body.Get("uses")

	if hasSteps && hasUses {
		r.error(model.ObjectJob, path, "job cannot define both `steps` and `uses`", pos)
		return nil
	}

	job := &model.Job{ID: id, Pos: pos}
	r.parseJobCommon(path, body, job)

	switch {
	case hasSteps:
		r.parseStepsKindJob(path, body, job)
	case hasUses:
		job.IsUses = true
		r.parseUsesKindJob(path, body, job)
	default:
		r.error(model.ObjectJob, path, "job must define `steps` or `uses`", pos)
		return nil
	}
	return job
}

func (r *reader) parseJobCommon(path string, body *yamltree.OrderedMap, job *model.Job) {
	if n, ok := body.Get("if"); ok {
		if s, ok := r.stringLike(model.ObjectJob, joinPath(path, "if"), n, "if must be string-like"); ok {
			job.If = s
		}
	}
	if n, ok := body.Get("name"); ok {
		if s, ok := r.stringLike(model.ObjectJob, joinPath(path, "name"), n, "name must be string-like"); ok {
			job.Name = s
		}
	}
	if n, ok := body.Get("needs"); ok {
		job.Needs = r.parseStringLikeList(model.ObjectJob, joinPath(path, "needs"), n)
	}
}

// parseStringLikeList implements the "sequence-or-singleton" normalization:
// a bare string-like scalar or a sequence of string-likes, both producing a
// sequence.
func (r *reader) parseStringLikeList(object model.SchemaObject, path string, n *yamltree.Node) []string {
	if seq, ok := yamltree.AsSequence(n); ok {
		out := make([]string, 0, len(seq))
		for i, elem := range seq {
			if s, ok := r.stringLike(object, indexPath(path, i), elem, "element must be string-like"); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := r.stringLike(object, path, n, "must be string-like or an array of string-likes"); ok {
		return []string{s}
	}
	return nil
}

func (r *reader) parseStepsKindJob(path string, body *yamltree.OrderedMap, job *model.Job) {
	runsOnNode, hasRunsOn := body.Get("runs-on")
	if !hasRunsOn {
		r.error(model.ObjectJob, path, "steps-kind job must define `runs-on`", job.Pos)
		return
	}
	job.RunsOn = r.parseRunsOn(joinPath(path, "runs-on"), runsOnNode)

	if envNode, ok := body.Get("env"); ok {
		job.Env = r.parseEnv(joinPath(path, "env"), envNode)
	}
	if defaultsNode, ok := body.Get("defaults"); ok {
		r.checkDefaults(model.ObjectJob, joinPath(path, "defaults"), defaultsNode)
	}
	if containerNode, ok := body.Get("container"); ok {
		r.checkContainer(model.ObjectJob, joinPath(path, "container"), containerNode)
	}
	if servicesNode, ok := body.Get("services"); ok {
		r.checkServices(model.ObjectJob, joinPath(path, "services"), servicesNode)
	}
	if strategyNode, ok := body.Get("strategy"); ok {
		r.checkStrategy(model.ObjectJob, joinPath(path, "strategy"), strategyNode)
	}

	stepsNode, _ := body.Get("steps")
	job.Steps = r.parseSteps(joinPath(path, "steps"), stepsNode)
}

func (r *reader) parseRunsOn(path string, n *yamltree.Node) model.RunsOn {
	if s, ok := yamltree.ConvertStringLike(n); ok {
		return model.RunsOn{Label: s}
	}
	if seq, ok := yamltree.AsSequence(n); ok {
		if len(seq) == 0 {
			r.error(model.ObjectJob, path, "runs-on array must not be empty", n.Pos)
			return model.RunsOn{}
		}
		labels := make([]string, 0, len(seq))
		for i, elem := range seq {
			if s, ok := r.stringLike(model.ObjectJob, indexPath(path, i), elem, "label must be string-like"); ok {
				labels = append(labels, s)
			}
		}
		return model.RunsOn{Labels: labels}
	}
	if m, ok := yamltree.AsMap(n); ok {
		r.unexpectedKeys(model.ObjectJob, path, m, allowedSet("group", "labels"), n.Pos)
		out := model.RunsOn{}
		if g, ok := m.Get("group"); ok {
			if s, ok := r.stringLike(model.ObjectJob, joinPath(path, "group"), g, "group must be string-like"); ok {
				out.Group = s
			}
		}
		if l, ok := m.Get("labels"); ok {
			out.Labels = r.parseStringLikeList(model.ObjectJob, joinPath(path, "labels"), l)
		}
		return out
	}
	pos := yamltree.Position{}
	if n != nil {
		pos = n.Pos
	}
	r.error(model.ObjectJob, path, "runs-on must be a string, an array of strings, or a {group, labels} map", pos)
	return model.RunsOn{}
}

func (r *reader) parseEnv(path string, n *yamltree.Node) map[string]string {
	m := r.requireMap(model.ObjectJob, path, n, "env must be a map of string-likes")
	if m == nil {
		return nil
	}
	env := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if s, ok := r.stringLike(model.ObjectJob, joinPath(path, k), v, "env value must be string-like"); ok {
			env[k] = s
		}
	}
	return env
}

func (r *reader) parseUsesKindJob(path string, body *yamltree.OrderedMap, job *model.Job) {
	if _, hasEnv := body.Get("env"); hasEnv {
		r.error(model.ObjectJob, joinPath(path, "env"), "`env` is not supported on a job that uses a called workflow", job.Pos)
	}

	usesNode, _ := body.Get("uses")
	if s, ok := r.stringLike(model.ObjectJob, joinPath(path, "uses"), usesNode, "uses must be string-like"); ok {
		job.Uses = r.parseWorkflowCallSpecifier(joinPath(path, "uses"), s, usesNode.Pos)
	}

	if withNode, ok := body.Get("with"); ok {
		job.With = r.parseWithMap(model.ObjectJob, joinPath(path, "with"), withNode)
	}
}

func (r *reader) parseWithMap(object model.SchemaObject, path string, n *yamltree.Node) map[string]interface{} {
	m := r.requireMap(object, path, n, "with must be a map")
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		switch yamltree.KindOf(v) {
		case yamltree.KindBool:
			out[k] = v.Value.(bool)
		case yamltree.KindInt:
			out[k] = v.Value.(int64)
		case yamltree.KindFloat:
			out[k] = v.Value.(float64)
		case yamltree.KindString:
			out[k] = v.Value.(string)
		default:
			r.error(object, joinPath(path, k), "with value must be a boolean, number, or string", v.Pos)
		}
	}
	return out
}
