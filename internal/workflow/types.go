// Package workflow executes ordered compositions of skills. A workflow's
// steps run strictly sequentially; each step's input may reference workflow
// parameters and prior step outputs through {{ ... }} interpolation.
package workflow

import (
	"time"

	"github.com/seekspace/seekd/internal/skill"
)

// OnError is a step's failure policy.
type OnError string

const (
	// OnErrorStop aborts the workflow when the step fails.
	OnErrorStop OnError = "stop"

	// OnErrorContinue records the failure, marks the step's output absent,
	// and proceeds.
	OnErrorContinue OnError = "continue"
)

// Parameter declares one workflow input.
type Parameter struct {
	Name        string          `yaml:"name" json:"name"`
	Type        skill.FieldType `yaml:"type" json:"type"`
	Required    bool            `yaml:"required" json:"required"`
	Default     any             `yaml:"default,omitempty" json:"default,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
}

// Step is one skill invocation.
type Step struct {
	ID          string         `yaml:"id" json:"id"`
	Skill       string         `yaml:"skill" json:"skill"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Input       map[string]any `yaml:"input" json:"input"`
	OnError     OnError        `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Workflow is an ordered composition of skill steps. ID is the stable
// registry key; it defaults to Name when a definition omits it.
type Workflow struct {
	ID          string      `yaml:"id,omitempty" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string      `yaml:"category,omitempty" json:"category,omitempty"`
	Parameters  []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Steps       []Step      `yaml:"steps" json:"steps"`
}

// StepStatus is a step record's outcome.
type StepStatus string

const (
	StepStatusOK      StepStatus = "ok"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// StepRecord captures one executed step.
type StepRecord struct {
	StepID   string         `json:"step_id"`
	Skill    string         `json:"skill"`
	Input    map[string]any `json:"input,omitempty"`
	Output   map[string]any `json:"output,omitempty"`
	Status   StepStatus     `json:"status"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Execution is the full record of one workflow run. Output holds the final
// step's output as the workflow's primary result.
type Execution struct {
	ID         string         `json:"id"`
	Workflow   string         `json:"workflow"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Steps      []StepRecord   `json:"steps"`
	Status     string         `json:"status"` // ok or failed
	Output     map[string]any `json:"output,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
