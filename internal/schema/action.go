package schema

import (
	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var actionInputAllowedKeys = allowedSet(
	"description", "required", "default", "deprecationMessage",
)

// ReadAction parses an action.yml/action.yaml document, modeling only its
// "inputs" section per spec.md §4.1: other keys (runs, outputs, branding,
// ...) are tolerated silently.
func ReadAction(source []byte) (*model.Action, []*model.SchemaError, error) {
	root, err := yamltree.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	m, ok := yamltree.AsMap(root)
	if !ok {
		return nil, nil, &RootTypeError{Kind: yamltree.KindOf(root)}
	}

	r := &reader{}
	action := &model.Action{}

	inputsNode, hasInputs := m.Get("inputs")
	if !hasInputs {
		return action, r.errors, nil
	}
	inputsMap := r.requireMap(model.ObjectAction, "inputs", inputsNode, "inputs must be a map")
	if inputsMap == nil {
		return action, r.errors, nil
	}

	action.Inputs = make(map[string]*model.ActionInput, inputsMap.Len())
	for _, id := range inputsMap.Keys() {
		inNode, _ := inputsMap.Get(id)
		path := joinPath("inputs", id)
		in := r.parseActionInput(path, inNode)
		if in != nil {
			action.Inputs[id] = in
		}
	}
	return action, r.errors, nil
}

func (r *reader) parseActionInput(path string, n *yamltree.Node) *model.ActionInput {
	m := r.requireMap(model.ObjectAction, path, n, "action input must be a map")
	if m == nil {
		return nil
	}
	r.unexpectedKeys(model.ObjectAction, path, m, actionInputAllowedKeys, n.Pos)

	in := &model.ActionInput{}

	descNode, hasDesc := m.Get("description")
	if !hasDesc {
		r.error(model.ObjectAction, joinPath(path, "description"), "action input is missing required key \"description\"", n.Pos)
	} else if s, ok := r.stringLike(model.ObjectAction, joinPath(path, "description"), descNode, "description must be string-like"); ok {
		in.Description = s
	}

	if reqNode, ok := m.Get("required"); ok {
		if b, ok := yamltree.AsBool(reqNode); ok {
			in.Required = b
		} else {
			r.error(model.ObjectAction, joinPath(path, "required"), "required must be a boolean", reqNode.Pos)
		}
	}

	if defNode, ok := m.Get("default"); ok {
		if yamltree.IsNull(defNode) {
			// default: null is explicitly permitted (no default).
		} else if s, ok := r.stringLike(model.ObjectAction, joinPath(path, "default"), defNode, "default must be string-like or null"); ok {
			in.Default, in.HasDefault = s, true
		}
	}

	if depNode, ok := m.Get("deprecationMessage"); ok {
		if s, ok := r.stringLike(model.ObjectAction, joinPath(path, "deprecationMessage"), depNode, "deprecationMessage must be string-like"); ok {
			in.DeprecationMessage = s
		}
	}

	return in
}
