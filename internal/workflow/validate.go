package workflow

import (
	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/skill"
)

// Validate checks a workflow's composition before any step runs: step ids
// unique, every referenced skill registered, and every interpolation
// reference resolvable against declared parameters or the declared outputs
// of an earlier step. Unresolvable references fail here, never mid-run.
func Validate(wf *Workflow, registry *skill.Registry) error {
	if wf.Name == "" {
		return seekerrors.InvalidInput("workflow name must not be empty")
	}
	if len(wf.Steps) == 0 {
		return seekerrors.InvalidInput("workflow %q has no steps", wf.Name)
	}

	params := make(map[string]bool, len(wf.Parameters))
	for _, p := range wf.Parameters {
		params[p.Name] = true
	}

	// Step id -> declared outputs of its skill.
	declared := make(map[string]skill.Info)

	for _, step := range wf.Steps {
		if step.ID == "" {
			return seekerrors.InvalidInput("workflow %q: step without id", wf.Name)
		}
		if _, dup := declared[step.ID]; dup {
			return seekerrors.InvalidInput("workflow %q: duplicate step id %q", wf.Name, step.ID)
		}
		if step.OnError != "" && step.OnError != OnErrorStop && step.OnError != OnErrorContinue {
			return seekerrors.InvalidInput("workflow %q step %q: unknown on_error %q", wf.Name, step.ID, step.OnError)
		}

		sk, err := registry.Get(step.Skill)
		if err != nil {
			return seekerrors.NotFound("workflow %q step %q: skill %q not registered", wf.Name, step.ID, step.Skill)
		}

		for _, ref := range references(step.Input) {
			if err := checkReference(wf.Name, step.ID, ref, params, declared); err != nil {
				return err
			}
		}

		declared[step.ID] = sk.Info()
	}
	return nil
}

// checkReference validates one reference against parameters and earlier
// steps. A bare step id captures that step's whole output record. With a
// path, the first field must be a declared output of the step's skill;
// deeper segments are dynamic and checked at render time.
func checkReference(wfName, stepID, ref string, params map[string]bool, declared map[string]skill.Info) error {
	path, err := parsePath(ref)
	if err != nil {
		return err
	}
	head := path[0].field

	if len(path) == 1 && params[head] {
		return nil
	}
	if info, ok := declared[head]; ok {
		if len(path) == 1 {
			return nil
		}
		if path[1].isIdx {
			return seekerrors.InvalidInput(
				"workflow %q step %q: reference %q indexes a step output record", wfName, stepID, ref)
		}
		if _, ok := info.OutputField(path[1].field); !ok {
			return seekerrors.InvalidInput(
				"workflow %q step %q: %q is not an output of step %q", wfName, stepID, path[1].field, head)
		}
		return nil
	}
	if params[head] {
		return nil
	}
	return seekerrors.InvalidInput(
		"workflow %q step %q: reference %q resolves to neither a parameter nor an earlier step", wfName, stepID, ref)
}

// ResolveParameters validates supplied parameters against the declared
// schema, applying defaults. Missing required parameters fail before any
// step runs.
func ResolveParameters(wf *Workflow, supplied map[string]any) (map[string]any, error) {
	specs := make([]skill.FieldSpec, len(wf.Parameters))
	for i, p := range wf.Parameters {
		specs[i] = skill.FieldSpec{
			Name:     p.Name,
			Type:     p.Type,
			Required: p.Required,
			Default:  p.Default,
		}
	}
	// Parameter resolution failures are plain input errors, not skill schema
	// violations, so the original error is not carried as a cause.
	resolved, err := skill.ValidateInput(wf.Name, specs, supplied)
	if err != nil {
		return nil, seekerrors.InvalidInput("resolve parameters for workflow %q: %v", wf.Name, err)
	}
	return resolved, nil
}
