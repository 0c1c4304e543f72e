package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seekspace/seekd/internal/skill"
)

// Engine executes workflows against a skill registry. Steps within one
// workflow run strictly sequentially; separate Execute calls are
// independent and may run concurrently.
type Engine struct {
	registry *skill.Registry
	logger   *slog.Logger
}

// NewEngine creates a workflow engine.
func NewEngine(registry *skill.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Execute validates and runs a workflow. Validation and parameter
// resolution failures return an error with no execution record; once steps
// start, failures are captured in the record and governed by each step's
// on_error policy.
func (e *Engine) Execute(ctx context.Context, wf *Workflow, params map[string]any) (*Execution, error) {
	if err := Validate(wf, e.registry); err != nil {
		return nil, err
	}
	resolved, err := ResolveParameters(wf, params)
	if err != nil {
		return nil, err
	}

	exec := &Execution{
		ID:         uuid.NewString(),
		Workflow:   wf.Name,
		Parameters: resolved,
		Status:     "ok",
		StartedAt:  time.Now(),
	}
	env := &scope{
		params:  resolved,
		outputs: make(map[string]map[string]any),
		absent:  make(map[string]bool),
	}

	aborted := false
	for _, step := range wf.Steps {
		if aborted {
			exec.Steps = append(exec.Steps, StepRecord{
				StepID: step.ID,
				Skill:  step.Skill,
				Status: StepStatusSkipped,
			})
			continue
		}

		record := e.runStep(ctx, env, step)
		exec.Steps = append(exec.Steps, record)

		if record.Status == StepStatusFailed {
			policy := step.OnError
			if policy == "" {
				policy = OnErrorStop
			}
			if policy == OnErrorStop {
				exec.Status = "failed"
				aborted = true
				continue
			}
			// continue: later references to this step fail at render time.
			env.absent[step.ID] = true
			continue
		}
		env.outputs[step.ID] = record.Output
	}

	// The final step's output is the workflow's primary result.
	if n := len(exec.Steps); n > 0 {
		exec.Output = exec.Steps[n-1].Output
	}
	exec.FinishedAt = time.Now()

	e.logger.Info("workflow finished",
		slog.String("execution_id", exec.ID),
		slog.String("workflow", wf.Name),
		slog.String("status", exec.Status),
		slog.Int("steps", len(exec.Steps)),
		slog.Duration("duration", exec.FinishedAt.Sub(exec.StartedAt)))

	return exec, nil
}

func (e *Engine) runStep(ctx context.Context, env *scope, step Step) StepRecord {
	record := StepRecord{StepID: step.ID, Skill: step.Skill}
	start := time.Now()
	defer func() { record.Duration = time.Since(start) }()

	input, err := env.render(step.Input)
	if err != nil {
		record.Status = StepStatusFailed
		record.Error = err.Error()
		return record
	}
	record.Input = input

	sk, err := e.registry.Get(step.Skill)
	if err != nil {
		record.Status = StepStatusFailed
		record.Error = err.Error()
		return record
	}

	output, err := sk.Execute(ctx, input)
	if err != nil {
		record.Status = StepStatusFailed
		record.Error = err.Error()
		e.logger.Warn("workflow step failed",
			slog.String("step", step.ID),
			slog.String("skill", step.Skill),
			slog.String("error", err.Error()))
		return record
	}

	record.Status = StepStatusOK
	record.Output = output
	return record
}
