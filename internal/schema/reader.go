// Package schema implements C3 (action reader) and C4 (workflow reader): a
// recursive-descent walk over a yamltree.Node that produces a typed
// internal/model value plus a complete list of localized schema errors.
//
// The walk is grounded on the teacher's pkg/core/parse_main.go and
// parse_sub.go: a stateless-per-call parser struct accumulating errors,
// switching on mapping keys, with two recovery shapes ("skip-sub-tree":
// substitute an empty/zero value and keep going; "abort-parent": omit the
// enclosing object and report one error at its path) chosen per field as
// spec.md §4.1 directs.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/yamltree"
)

var idGrammar = regexp.MustCompile(`^[_a-z][_\-a-z0-9]+$`)

// reader accumulates schema errors while walking one document.
type reader struct {
	errors []*model.SchemaError
}

func (r *reader) error(object model.SchemaObject, path, message string, pos yamltree.Position) {
	r.errors = append(r.errors, &model.SchemaError{
		Object:  object,
		Path:    path,
		Message: message,
		Pos:     pos,
	})
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

// unexpectedKeys reports one composite error for any key in m not present
// in allowed, listing the offenders sorted alphabetically, as spec.md's
// "on" input-field whitelisting requires; it is reused for every other
// whitelist (workflow/job/step/defaults/container/services/strategy).
func (r *reader) unexpectedKeys(object model.SchemaObject, path string, m *yamltree.OrderedMap, allowed map[string]bool, pos yamltree.Position) {
	var extra []string
	for _, k := range m.Keys() {
		if !allowed[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return
	}
	sort.Strings(extra)
	r.error(object, path, fmt.Sprintf("unexpected key(s) %s", quoteJoin(extra)), pos)
}

func quoteJoin(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func allowedSet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// requireMap returns n's entries, emitting err at path and returning nil
// (callers then skip the sub-tree) when n is not a map.
func (r *reader) requireMap(object model.SchemaObject, path string, n *yamltree.Node, errMsg string) *yamltree.OrderedMap {
	m, ok := yamltree.AsMap(n)
	if !ok {
		pos := yamltree.Position{}
		if n != nil {
			pos = n.Pos
		}
		r.error(object, path, errMsg, pos)
		return nil
	}
	return m
}

// stringLike coerces a string-like scalar, emitting err at path and
// returning "" when n is not string-like.
func (r *reader) stringLike(object model.SchemaObject, path string, n *yamltree.Node, errMsg string) (string, bool) {
	s, ok := yamltree.ConvertStringLike(n)
	if !ok {
		pos := yamltree.Position{}
		if n != nil {
			pos = n.Pos
		}
		r.error(object, path, errMsg, pos)
		return "", false
	}
	return s, true
}

func idValid(s string) bool {
	return idGrammar.MatchString(s)
}
