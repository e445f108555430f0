// Package model defines the typed in-memory representation of a GitHub
// Actions workflow or action document, produced by internal/schema.
//
// Types below mirror the teacher's src/ast package: tagged variants are
// expressed as a small closed interface plus one struct per variant, with
// position info threaded through for diagnostics.
package model

import "github.com/sisaku-security/actionvet/internal/yamltree"

// Position is a source location, copied from the yamltree node a value was
// decoded from.
type Position = yamltree.Position

// Workflow is the root of a parsed workflow document.
type Workflow struct {
	// Path is the origin path, set by the reader after a successful parse
	// from the filesystem. Empty for workflows fetched from a repository.
	Path string
	On   map[string]EventConfig
	Jobs map[string]*Job
}

// EventConfig is a tagged variant over the closed trigger set this system
// recognizes.
type EventConfig interface {
	eventConfig()
	EventName() string
}

type PullRequestEvent struct{}

func (PullRequestEvent) eventConfig()        {}
func (PullRequestEvent) EventName() string   { return "pull_request" }

type PushEvent struct{}

func (PushEvent) eventConfig()      {}
func (PushEvent) EventName() string { return "push" }

type WorkflowCallEvent struct {
	Inputs *OrderedInputs
}

func (WorkflowCallEvent) eventConfig()      {}
func (WorkflowCallEvent) EventName() string { return "workflow_call" }

type WorkflowDispatchEvent struct {
	Inputs *OrderedInputs
}

func (WorkflowDispatchEvent) eventConfig()      {}
func (WorkflowDispatchEvent) EventName() string { return "workflow_dispatch" }

// OrderedInputs preserves the source order of an event's "inputs:" mapping.
type OrderedInputs struct {
	order []string
	byID  map[string]InputConfig
}

func NewOrderedInputs() *OrderedInputs {
	return &OrderedInputs{byID: map[string]InputConfig{}}
}

func (o *OrderedInputs) Set(id string, cfg InputConfig) {
	if _, exists := o.byID[id]; !exists {
		o.order = append(o.order, id)
	}
	o.byID[id] = cfg
}

func (o *OrderedInputs) Get(id string) (InputConfig, bool) {
	if o == nil {
		return nil, false
	}
	c, ok := o.byID[id]
	return c, ok
}

func (o *OrderedInputs) IDs() []string {
	if o == nil {
		return nil
	}
	return o.order
}

func (o *OrderedInputs) Len() int {
	if o == nil {
		return 0
	}
	return len(o.order)
}

// InputType is the closed set of input type discriminators.
type InputType string

const (
	InputBoolean     InputType = "boolean"
	InputNumber      InputType = "number"
	InputString      InputType = "string"
	InputChoice      InputType = "choice"
	InputEnvironment InputType = "environment"
)

// InputConfig is a tagged variant discriminated by Type().
type InputConfig interface {
	Type() InputType
	Common() InputCommon
}

// InputCommon holds the fields every input variant shares.
type InputCommon struct {
	Description string
	Required    bool
	Pos         Position
}

type BooleanInput struct {
	InputCommon
	Default    *bool
	HasDefault bool
}

func (BooleanInput) Type() InputType        { return InputBoolean }
func (i BooleanInput) Common() InputCommon  { return i.InputCommon }

type NumberInput struct {
	InputCommon
	Default    float64
	HasDefault bool
}

func (NumberInput) Type() InputType       { return InputNumber }
func (i NumberInput) Common() InputCommon { return i.InputCommon }

type StringInput struct {
	InputCommon
	Default    string
	HasDefault bool
}

func (StringInput) Type() InputType       { return InputString }
func (i StringInput) Common() InputCommon { return i.InputCommon }

type ChoiceInput struct {
	InputCommon
	Options    []string
	Default    string
	HasDefault bool
}

func (ChoiceInput) Type() InputType       { return InputChoice }
func (i ChoiceInput) Common() InputCommon { return i.InputCommon }

type EnvironmentInput struct {
	InputCommon
	Default    string
	HasDefault bool
}

func (EnvironmentInput) Type() InputType       { return InputEnvironment }
func (i EnvironmentInput) Common() InputCommon { return i.InputCommon }

// RunsOn is the tagged variant for a steps-kind job's "runs-on:".
type RunsOn struct {
	// Exactly one of Label or (Group/Labels) is set, discriminated by
	// whether Group is empty and Labels is nil.
	Label  string
	Group  string
	Labels []string
}

// Job is a tagged variant: exactly one of Steps or Uses is populated,
// discriminated by IsUses.
type Job struct {
	ID    string
	If    string
	Name  string
	Needs []string
	Pos   Position

	IsUses bool

	// Steps-kind fields.
	RunsOn RunsOn
	Env    map[string]string
	Steps  []*Step

	// Uses-kind fields.
	Uses WorkflowCallSpecifier
	With map[string]interface{}
}

// Step is a tagged variant: exactly one of Run or Uses is populated,
// discriminated by IsUses.
type Step struct {
	ID   string
	If   string
	Name string
	Pos  Position

	IsUses bool

	// Run-step fields.
	Run string
	Env map[string]string

	// Uses-step fields.
	Uses ActionSpecifier
	With map[string]interface{}
}

// Label returns the step's display label for error messages: id, else
// name, else "step[i]".
func (s *Step) Label(index int) string {
	if s.ID != "" {
		return s.ID
	}
	if s.Name != "" {
		return s.Name
	}
	return stepIndexLabel(index)
}

func stepIndexLabel(i int) string {
	return "step[" + itoa(i) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// WorkflowCallSpecifierKind discriminates a "uses:" value on a uses-kind job.
type WorkflowCallSpecifierKind int

const (
	WorkflowCallFilesystem WorkflowCallSpecifierKind = iota
	WorkflowCallRepository
)

type WorkflowCallSpecifier struct {
	Kind WorkflowCallSpecifierKind
	Raw  string

	// Filesystem
	Path string

	// Repository
	Owner    string
	Repo     string
	Ref      string
	Filename string
}

// ActionSpecifierKind discriminates a "uses:" value on a uses-kind step.
type ActionSpecifierKind int

const (
	ActionDocker ActionSpecifierKind = iota
	ActionFilesystem
	ActionRepository
)

type ActionSpecifier struct {
	Kind ActionSpecifierKind
	Raw  string

	// Docker
	URI string

	// Filesystem
	Path string

	// Repository
	Owner        string
	Repo         string
	Subdirectory string
	Ref          string
}

// ActionInput is an input declared by an action.yml/action.yaml.
type ActionInput struct {
	Description        string
	Required            bool
	Default             string
	HasDefault          bool
	DeprecationMessage  string
}

// Action is the typed model of an action metadata document.
type Action struct {
	Inputs map[string]*ActionInput
}

// SchemaObject classifies what kind of model object a schema error is
// anchored to.
type SchemaObject string

const (
	ObjectWorkflow SchemaObject = "workflow"
	ObjectEvent    SchemaObject = "event"
	ObjectJob      SchemaObject = "job"
	ObjectInput    SchemaObject = "input"
	ObjectStep     SchemaObject = "step"
	ObjectAction   SchemaObject = "action"
	ObjectOutput   SchemaObject = "output"
)

// SchemaError is one localized schema violation.
type SchemaError struct {
	Object  SchemaObject
	Path    string
	Message string
	Pos     Position
}

func (e *SchemaError) Error() string {
	return e.Path + ": " + e.Message
}
