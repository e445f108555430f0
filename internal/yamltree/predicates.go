package yamltree

import (
	"strconv"
	"strings"
)

// IsMap reports whether n is a mapping node.
func IsMap(n *Node) bool { return KindOf(n) == KindMap }

// IsSequence reports whether n is a sequence node.
func IsSequence(n *Node) bool { return KindOf(n) == KindSequence }

// IsNull reports whether n is absent or an explicit YAML null.
func IsNull(n *Node) bool { return KindOf(n) == KindNull }

// IsStringLike reports whether n is a scalar of type boolean, number, or
// string -- the "string-like" domain from the data model.
func IsStringLike(n *Node) bool {
	switch KindOf(n) {
	case KindString, KindInt, KindFloat, KindBool:
		return true
	default:
		return false
	}
}

// AsMap returns n's ordered entries and whether n is a map.
func AsMap(n *Node) (*OrderedMap, bool) {
	if n == nil {
		return nil, false
	}
	m, ok := n.Value.(*OrderedMap)
	return m, ok
}

// AsSequence returns n's elements and whether n is a sequence.
func AsSequence(n *Node) ([]*Node, bool) {
	if n == nil {
		return nil, false
	}
	s, ok := n.Value.([]*Node)
	return s, ok
}

// AsBool returns n's boolean value and whether n is a boolean.
func AsBool(n *Node) (bool, bool) {
	if n == nil {
		return false, false
	}
	b, ok := n.Value.(bool)
	return b, ok
}

// ConvertStringLike stringifies a string-like scalar using the host's
// shortest canonical representation: "true"/"false" for booleans, plain
// digits for integers, and a trimmed decimal for floats. It is idempotent:
// feeding its own output back in (as a KindString node) returns the same
// string.
func ConvertStringLike(n *Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch v := n.Value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			return s, true
		}
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
		return s, true
	default:
		return "", false
	}
}

