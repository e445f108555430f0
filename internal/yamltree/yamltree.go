// Package yamltree adapts a YAML document into a generic dynamic tree: nested
// maps, sequences, and scalars of heterogeneous Go types. It is the only
// package that imports gopkg.in/yaml.v3 directly; everything above it walks
// the dynamic tree produced here.
package yamltree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Position is the source location a tree node was decoded from. It is
// carried for diagnostics only; the canonical identity of a schema error is
// its dotted path, not its position.
type Position struct {
	Line int
	Col  int
}

// Node is one node of the parsed dynamic tree. Value holds exactly one of:
// *OrderedMap, []*Node, string, int64, float64, bool, or nil.
type Node struct {
	Value interface{}
	Pos   Position
}

// OrderedMap is a YAML mapping node: key order is preserved as written in
// the source, since some schema rules (on.*.inputs, unknown-key reporting)
// are order-sensitive.
type OrderedMap struct {
	keys    []string
	entries map[string]*Node
}

func newOrderedMap(n int) *OrderedMap {
	return &OrderedMap{entries: make(map[string]*Node, n)}
}

func (m *OrderedMap) set(key string, val *Node) {
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = val
}

// Get returns the value for key and whether it is present.
func (m *OrderedMap) Get(key string) (*Node, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the mapping's keys in source order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Kind classifies a Node's dynamic type.
type Kind int

const (
	KindNull Kind = iota
	KindMap
	KindSequence
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindMap:
		return "map"
	case KindSequence:
		return "sequence"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// KindOf classifies a node, treating a nil Node as KindNull.
func KindOf(n *Node) Kind {
	if n == nil {
		return KindNull
	}
	switch n.Value.(type) {
	case nil:
		return KindNull
	case *OrderedMap:
		return KindMap
	case []*Node:
		return KindSequence
	case string:
		return KindString
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case bool:
		return KindBool
	default:
		return KindNull
	}
}

// Parse decodes a YAML document into a generic Node tree. It returns an error
// only for malformed YAML syntax; shape mismatches (e.g. a scalar where a
// map was expected) are represented in the tree itself and are the schema
// reader's responsibility to report.
func Parse(source []byte) (*Node, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if raw.Kind == 0 {
		// Empty document.
		return &Node{Value: nil}, nil
	}
	if len(raw.Content) == 0 {
		return &Node{Value: nil}, nil
	}
	return fromYAMLNode(raw.Content[0]), nil
}

func fromYAMLNode(n *yaml.Node) *Node {
	pos := Position{Line: n.Line, Col: n.Column}
	switch n.Kind {
	case yaml.MappingNode:
		m := newOrderedMap(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			m.set(n.Content[i].Value, fromYAMLNode(n.Content[i+1]))
		}
		return &Node{Value: m, Pos: pos}
	case yaml.SequenceNode:
		s := make([]*Node, 0, len(n.Content))
		for _, c := range n.Content {
			s = append(s, fromYAMLNode(c))
		}
		return &Node{Value: s, Pos: pos}
	case yaml.AliasNode:
		if n.Alias != nil {
			child := fromYAMLNode(n.Alias)
			child.Pos = pos
			return child
		}
		return &Node{Value: nil, Pos: pos}
	case yaml.ScalarNode:
		return &Node{Value: scalarValue(n), Pos: pos}
	default:
		return &Node{Value: nil, Pos: pos}
	}
}

func scalarValue(n *yaml.Node) interface{} {
	var v interface{}
	if err := n.Decode(&v); err != nil {
		return n.Value
	}
	switch t := v.(type) {
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return v
	}
}
