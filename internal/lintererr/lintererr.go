// Package lintererr defines the uniform error taxonomy (C8) binding schema
// errors and fetcher failures to the outer document/call chain that
// referenced them. It is grounded on the teacher's LintingError
// (pkg/core/errorformatter.go), generalized from a single location
// (line/column) to the broader chain the cross-document analyzer needs.
package lintererr

import (
	"fmt"
	"strings"
	"time"

	"github.com/sisaku-security/actionvet/internal/model"
)

// Kind is the closed taxonomy of fatal document/analyzer errors.
type Kind string

const (
	KindWorkflowSchema   Kind = "WORKFLOW_SCHEMA"
	KindActionSchema     Kind = "ACTION_SCHEMA"
	KindWorkflowNotFound Kind = "WORKFLOW_NOT_FOUND"
	KindActionNotFound   Kind = "ACTION_NOT_FOUND"
	KindWorkflowRuntime  Kind = "WORKFLOW_RUNTIME"
)

// DocumentError is a fatal error produced while resolving or validating one
// document, optionally carrying the schema errors that caused it and the
// path of the document(s) that referenced it.
type DocumentError struct {
	Kind         Kind
	Target       string
	Message      string
	SchemaErrors []*model.SchemaError
	ReferencedBy []string
}

func (e *DocumentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Target != "" {
		fmt.Fprintf(&b, " (%s)", e.Target)
	}
	for _, ref := range e.ReferencedBy {
		fmt.Fprintf(&b, "\n  referenced by %s", ref)
	}
	for _, se := range e.SchemaErrors {
		fmt.Fprintf(&b, "\n  - %s\n      %s", se.Message, se.Path)
	}
	return b.String()
}

// WithReferencedBy returns a copy of e with an additional link prepended to
// the reference chain.
func (e *DocumentError) WithReferencedBy(path string) *DocumentError {
	cp := *e
	cp.ReferencedBy = append([]string{path}, e.ReferencedBy...)
	return &cp
}

func NewSchemaError(kind Kind, target string, errs []*model.SchemaError) *DocumentError {
	return &DocumentError{
		Kind:         kind,
		Target:       target,
		Message:      fmt.Sprintf("%d schema error(s) in %s", len(errs), target),
		SchemaErrors: errs,
	}
}

func NewNotFound(kind Kind, target string, referencedBy string) *DocumentError {
	e := &DocumentError{
		Kind:    kind,
		Target:  target,
		Message: fmt.Sprintf("could not be loaded: %s", target),
	}
	if referencedBy != "" {
		e.ReferencedBy = []string{referencedBy}
	}
	return e
}

func NewRuntime(message string) *DocumentError {
	return &DocumentError{Kind: KindWorkflowRuntime, Message: message}
}

// TransportCondition is a fetcher-level failure that is not itself a
// DocumentError but is surfaced distinctly to the caller per spec §4.4/§7.
type TransportCondition struct {
	Kind        TransportKind
	Cause       error
	ResetEpoch  int64
}

type TransportKind string

const (
	TransportNotFound     TransportKind = "not_found"
	TransportRateLimited  TransportKind = "rate_limited"
	TransportUnauthorized TransportKind = "unauthorized"
	TransportNetworkError TransportKind = "network_error"
)

func (e *TransportCondition) Error() string {
	switch e.Kind {
	case TransportRateLimited:
		reset := time.Unix(e.ResetEpoch, 0).Local().Format("15:04:05 MST")
		return fmt.Sprintf("rate limited, resets at %s", reset)
	case TransportUnauthorized:
		return "unauthorized"
	case TransportNotFound:
		return "not found"
	default:
		if e.Cause != nil {
			return fmt.Sprintf("network error: %s", e.Cause)
		}
		return "network error"
	}
}

func (e *TransportCondition) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a TransportCondition of kind not-found.
func IsNotFound(err error) bool {
	tc, ok := err.(*TransportCondition)
	return ok && tc.Kind == TransportNotFound
}
