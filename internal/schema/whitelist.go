package schema

import (
	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

// These collections are presence-checked only, per spec.md §4.1 "Each
// collection has a fixed key whitelist; any deviation produces a scoped
// error. These rules apply only for field-presence checking and do not
// populate the model further."

var defaultsAllowedKeys = allowedSet("run")
var defaultsRunAllowedKeys = allowedSet("shell", "working-directory")
var containerAllowedKeys = allowedSet("image", "credentials", "env", "ports", "volumes", "options")
var strategyAllowedKeys = allowedSet("matrix", "fail-fast", "max-parallel")

func (r *reader) checkDefaults(object model.SchemaObject, path string, n *yamltree.Node) {
	m := r.requireMap(object, path, n, "defaults must be a map")
	if m == nil {
		return
	}
	r.unexpectedKeys(object, path, m, defaultsAllowedKeys, n.Pos)
	if run, ok := m.Get("run"); ok {
		if runMap, ok := yamltree.AsMap(run); ok {
			r.unexpectedKeys(object, joinPath(path, "run"), runMap, defaultsRunAllowedKeys, run.Pos)
		}
	}
}

func (r *reader) checkContainer(object model.SchemaObject, path string, n *yamltree.Node) {
	m, ok := yamltree.AsMap(n)
	if !ok {
		return
	}
	r.unexpectedKeys(object, path, m, containerAllowedKeys, n.Pos)
}

func (r *reader) checkServices(object model.SchemaObject, path string, n *yamltree.Node) {
	services, ok := yamltree.AsMap(n)
	if !ok {
		return
	}
	for _, name := range services.Keys() {
		svc, _ := services.Get(name)
		r.checkContainer(object, joinPath(path, name), svc)
	}
}

func (r *reader) checkStrategy(object model.SchemaObject, path string, n *yamltree.Node) {
	m, ok := yamltree.AsMap(n)
	if !ok {
		return
	}
	r.unexpectedKeys(object, path, m, strategyAllowedKeys, n.Pos)
}
