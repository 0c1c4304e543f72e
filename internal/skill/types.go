// Package skill defines the agent capability contract: schema-declared,
// deterministic operations that workflows compose. Skill inputs and outputs
// are JSON-shaped values (nil, string, float64, bool, []any, map[string]any)
// validated against declared schemas at the skill boundary.
package skill

import (
	"context"
	"fmt"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeList    FieldType = "list"
	TypeRecord  FieldType = "record"
	TypeAny     FieldType = "any"
)

// FieldSpec declares one input or output field.
type FieldSpec struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Info is a skill's self-description.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Inputs      []FieldSpec `json:"inputs"`
	Outputs     []FieldSpec `json:"outputs"`

	// Requires names the host capabilities the skill depends on, e.g.
	// "search-engine" or "llm-session".
	Requires []string `json:"requires,omitempty"`
}

// OutputField returns the declared output field by name.
func (i Info) OutputField(name string) (FieldSpec, bool) {
	for _, f := range i.Outputs {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Skill is a deterministic capability with one asynchronous operation. An
// implementation must depend only on its declared inputs and host
// capabilities handed to it at construction.
type Skill interface {
	Info() Info
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ExecutionError is a typed skill failure carried into step records.
type ExecutionError struct {
	SkillName string
	Message   string
	Cause     error

	// SchemaViolation marks input schema failures, surfaced as 422.
	SchemaViolation bool
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("skill %s: %s: %v", e.SkillName, e.Message, e.Cause)
	}
	return fmt.Sprintf("skill %s: %s", e.SkillName, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// schemaErr builds a schema-violation execution error.
func schemaErr(skillName, format string, args ...any) *ExecutionError {
	return &ExecutionError{
		SkillName:       skillName,
		Message:         fmt.Sprintf(format, args...),
		SchemaViolation: true,
	}
}
