package analyzer

import (
	"regexp"
	"strings"

	"github.com/sisaku-security/actionvet/internal/model"
)

// expressionPattern matches a GitHub Actions expression context, "${{...}}".
// Greedy by design per spec.md §9 open question #2: this can swallow
// legitimate literal text between two expressions on one line, which is acknowledged as
// undecided production behavior rather than fixed here.
var expressionPattern = regexp.MustCompile(`\$\{\{.*\}\}`)

// scalarKind is the runtime kind of a With value, after YAML decoding.
type scalarKind string

const (
	scalarBoolean scalarKind = "boolean"
	scalarNumber  scalarKind = "number"
	scalarString  scalarKind = "string"
	scalarUnknown scalarKind = "unknown"
)

// typeCompatible reports whether value is an admissible caller scalar for a
// callee input of type calleeType, per the table in spec.md §4.3.
func typeCompatible(calleeType model.InputType, value interface{}) bool {
	kind := classify(value)
	if kind == scalarUnknown {
		return true
	}

	switch calleeType {
	case model.InputBoolean:
		return kind == scalarBoolean
	case model.InputNumber:
		return kind == scalarNumber
	case model.InputString, model.InputChoice:
		return kind == scalarBoolean || kind == scalarNumber || kind == scalarString
	case model.InputEnvironment:
		return kind == scalarString
	default:
		return true
	}
}

func classify(value interface{}) scalarKind {
	switch v := value.(type) {
	case bool:
		return scalarBoolean
	case int64, float64:
		return scalarNumber
	case string:
		if isUnknownAfterElision(v) {
			return scalarUnknown
		}
		return scalarString
	default:
		return scalarUnknown
	}
}

// isUnknownAfterElision implements spec.md §4.3's expression carve-out: a
// string containing "${{...}}" whose remaining trimmed content, after
// removing every such expression, is empty is an "unknown scalar kind" and
// must not be flagged as a mismatch.
func isUnknownAfterElision(s string) bool {
	if !strings.Contains(s, "${{") {
		return false
	}
	elided := expressionPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(elided) == ""
}

// scalarKindName renders the actual runtime kind for the "cannot call
// workflow with a `<actual>` value" message.
func scalarKindName(value interface{}) string {
	return string(classify(value))
}
