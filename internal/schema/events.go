package schema

import (
	"fmt"

	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var recognizedEventNames = allowedSet(
	"pull_request", "push", "workflow_call", "workflow_dispatch",
)

// parseOn parses the "on:" section: a sequence of event names, or a mapping
// from event name to event config (or null). Any other shape is reported
// and the section is skipped (empty map returned).
func (r *reader) parseOn(n *yamltree.Node) map[string]model.EventConfig {
	events := map[string]model.EventConfig{}

	if seq, ok := yamltree.AsSequence(n); ok {
		for _, elem := range seq {
			name, ok := r.stringLike(model.ObjectEvent, "on", elem, "event name must be string-like")
			if !ok {
				continue
			}
			r.addRecognizedEvent(events, name, nil)
		}
		return events
	}

	m, ok := yamltree.AsMap(n)
	if !ok {
		pos := yamltree.Position{}
		if n != nil {
			pos = n.Pos
		}
		r.error(model.ObjectEvent, "on", "Must be an array or map of workflow triggering events", pos)
		return events
	}

	for _, name := range m.Keys() {
		val, _ := m.Get(name)
		r.addRecognizedEvent(events, name, val)
	}
	return events
}

func (r *reader) addRecognizedEvent(events map[string]model.EventConfig, name string, val *yamltree.Node) {
	if !recognizedEventNames[name] {
		pos := yamltree.Position{}
		if val != nil {
			pos = val.Pos
		}
		r.error(model.ObjectEvent, joinPath("on", name), fmt.Sprintf("`%s` is not a valid workflow trigger event name", name), pos)
		return
	}

	switch name {
	case "pull_request":
		events[name] = model.PullRequestEvent{}
	case "push":
		events[name] = model.PushEvent{}
	case "workflow_call":
		events[name] = model.WorkflowCallEvent{Inputs: r.parseEventInputs(joinPath("on", name), val, model.InputBoolean, model.InputNumber, model.InputString)}
	case "workflow_dispatch":
		events[name] = model.WorkflowDispatchEvent{Inputs: r.parseEventInputs(joinPath("on", name), val, model.InputBoolean, model.InputNumber, model.InputString, model.InputChoice, model.InputEnvironment)}
	}
}

var inputFieldsByType = map[model.InputType]map[string]bool{
	model.InputBoolean:     allowedSet("default", "description", "required", "type"),
	model.InputNumber:      allowedSet("default", "description", "required", "type"),
	model.InputString:      allowedSet("default", "description", "required", "type"),
	model.InputChoice:      allowedSet("default", "description", "options", "required", "type"),
	model.InputEnvironment: allowedSet("default", "description", "required", "type"),
}

// parseEventInputs parses "on.<event>.inputs", if present, restricted to the
// given allowed input types. A null event value (bare trigger) yields no
// inputs.
func (r *reader) parseEventInputs(eventPath string, val *yamltree.Node, allowedTypes ...model.InputType) *model.OrderedInputs {
	if yamltree.IsNull(val) {
		return nil
	}
	allowed := make(map[model.InputType]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}

	m := r.requireMap(model.ObjectEvent, eventPath, val, fmt.Sprintf("%s must be a map", eventPath))
	if m == nil {
		return nil
	}
	inputsNode, hasInputs := m.Get("inputs")
	if !hasInputs {
		return nil
	}
	inputsPath := joinPath(eventPath, "inputs")
	inputsMap := r.requireMap(model.ObjectInput, inputsPath, inputsNode, fmt.Sprintf("%s must be a map", inputsPath))
	if inputsMap == nil {
		return nil
	}

	inputs := model.NewOrderedInputs()
	for _, id := range inputsMap.Keys() {
		inNode, _ := inputsMap.Get(id)
		path := joinPath(inputsPath, id)
		cfg := r.parseInput(path, inNode, allowed)
		if cfg != nil {
			inputs.Set(id, cfg)
		}
	}
	return inputs
}

func (r *reader) parseInput(path string, n *yamltree.Node, allowedTypes map[model.InputType]bool) model.InputConfig {
	m := r.requireMap(model.ObjectInput, path, n, fmt.Sprintf("%s must be a map", path))
	if m == nil {
		return nil
	}

	typeNode, hasType := m.Get("type")
	typeStr, ok := yamltree.ConvertStringLike(typeNode)
	if !hasType || !ok {
		r.error(model.ObjectInput, joinPath(path, "type"), "input type is missing or malformed", n.Pos)
		return nil
	}
	it := model.InputType(typeStr)
	if !allowedTypes[it] {
		r.error(model.ObjectInput, joinPath(path, "type"), fmt.Sprintf("`%s` is not an allowed input type here", typeStr), typeNode.Pos)
		return nil
	}

	allowedFields := inputFieldsByType[it]
	r.unexpectedKeys(model.ObjectInput, path, m, allowedFields, n.Pos)

	common := model.InputCommon{Pos: n.Pos}
	if descNode, ok := m.Get("description"); ok {
		if s, ok := r.stringLike(model.ObjectInput, joinPath(path, "description"), descNode, "description must be string-like"); ok {
			common.Description = s
		}
	}
	if reqNode, ok := m.Get("required"); ok {
		if b, ok := yamltree.AsBool(reqNode); ok {
			common.Required = b
		} else {
			r.error(model.ObjectInput, joinPath(path, "required"), "required must be a boolean", reqNode.Pos)
		}
	}

	defaultNode, hasDefault := m.Get("default")

	switch it {
	case model.InputBoolean:
		in := model.BooleanInput{InputCommon: common}
		if hasDefault {
			if b, ok := yamltree.AsBool(defaultNode); ok {
				in.Default, in.HasDefault = &b, true
			} else {
				r.error(model.ObjectInput, joinPath(path, "default"), "default must be a boolean", defaultNode.Pos)
			}
		}
		return in
	case model.InputNumber:
		in := model.NumberInput{InputCommon: common}
		if hasDefault {
			switch v := defaultNode.Value.(type) {
			case int64:
				in.Default, in.HasDefault = float64(v), true
			case float64:
				in.Default, in.HasDefault = v, true
			default:
				r.error(model.ObjectInput, joinPath(path, "default"), "default must be a number", defaultNode.Pos)
			}
		}
		return in
	case model.InputString:
		in := model.StringInput{InputCommon: common}
		if hasDefault {
			if s, ok := r.stringLike(model.ObjectInput, joinPath(path, "default"), defaultNode, "default must be a string"); ok {
				in.Default, in.HasDefault = s, true
			}
		}
		return in
	case model.InputEnvironment:
		in := model.EnvironmentInput{InputCommon: common}
		if hasDefault {
			if s, ok := r.stringLike(model.ObjectInput, joinPath(path, "default"), defaultNode, "default must be a string"); ok {
				in.Default, in.HasDefault = s, true
			}
		}
		return in
	case model.InputChoice:
		return r.parseChoiceInput(path, common, m, defaultNode, hasDefault)
	}
	return nil
}

func (r *reader) parseChoiceInput(path string, common model.InputCommon, m *yamltree.OrderedMap, defaultNode *yamltree.Node, hasDefault bool) model.InputConfig {
	in := model.ChoiceInput{InputCommon: common}

	optsNode, hasOpts := m.Get("options")
	if !hasOpts {
		r.error(model.ObjectInput, path, "Choice input must have `options`", common.Pos)
		return in
	}
	optsSeq, ok := yamltree.AsSequence(optsNode)
	if !ok || len(optsSeq) == 0 {
		r.error(model.ObjectInput, joinPath(path, "options"), "options must be a non-empty array of strings", optsNode.Pos)
		return in
	}
	for i, elem := range optsSeq {
		s, ok := r.stringLike(model.ObjectInput, indexPath(joinPath(path, "options"), i), elem, "option must be string-like")
		if ok {
			in.Options = append(in.Options, s)
		}
	}

	if hasDefault {
		s, ok := r.stringLike(model.ObjectInput, joinPath(path, "default"), defaultNode, "default must be a string")
		if ok {
			in.Default, in.HasDefault = s, true
			if !containsString(in.Options, s) {
				r.error(model.ObjectInput, joinPath(path, "default"), fmt.Sprintf("`%s` is not an input option", s), defaultNode.Pos)
			}
		}
	}
	return in
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
