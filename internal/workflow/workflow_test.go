package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/skill"
)

// stubSearchSkill mimics the search skill's declared surface without an
// engine behind it, returning canned results.
type stubSearchSkill struct {
	results []any
	fail    error
	calls   int
}

func (s *stubSearchSkill) Info() skill.Info {
	return skill.Info{
		Name:        "search",
		Description: "stub",
		Inputs: []skill.FieldSpec{
			{Name: "query", Type: skill.TypeString, Required: true},
			{Name: "mode", Type: skill.TypeString, Default: "hybrid"},
			{Name: "limit", Type: skill.TypeNumber, Default: float64(10)},
		},
		Outputs: []skill.FieldSpec{
			{Name: "results", Type: skill.TypeList},
			{Name: "total", Type: skill.TypeNumber},
			{Name: "degraded", Type: skill.TypeBoolean},
		},
	}
}

func (s *stubSearchSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	input, err := skill.ValidateInput("search", s.Info().Inputs, input)
	if err != nil {
		return nil, err
	}
	_ = input
	return map[string]any{
		"results":  s.results,
		"total":    float64(len(s.results)),
		"degraded": false,
	}, nil
}

func testRegistry(t *testing.T, stub *stubSearchSkill) *skill.Registry {
	t.Helper()
	r := skill.NewRegistry()
	require.NoError(t, r.Register(stub))
	require.NoError(t, r.Register(skill.NewReportSkill()))
	require.NoError(t, r.Register(skill.NewCodeAnalysisSkill()))
	return r
}

func findReportWorkflow() *Workflow {
	return &Workflow{
		Name: "find-and-report",
		Parameters: []Parameter{
			{Name: "query", Type: skill.TypeString, Required: true},
		},
		Steps: []Step{
			{
				ID:    "find",
				Skill: "search",
				Input: map[string]any{"query": "{{ query }}"},
			},
			{
				ID:    "rep",
				Skill: "report",
				Input: map[string]any{
					"title": "Results for {{ query }}",
					"sections": []any{
						map[string]any{"heading": "Matches", "items": "{{ find.results }}"},
					},
				},
			},
		},
	}
}

func TestRenderLoneReferencePreservesType(t *testing.T) {
	env := &scope{
		params: map[string]any{"limit": float64(5), "tags": []any{"a", "b"}},
	}
	out, err := env.render(map[string]any{
		"limit": "{{ limit }}",
		"tags":  "{{ tags }}",
		"label": "top {{ limit }} hits",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(5), out["limit"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Equal(t, "top 5 hits", out["label"])
}

func TestRenderStepOutputPath(t *testing.T) {
	env := &scope{
		params: map[string]any{},
		outputs: map[string]map[string]any{
			"find": {
				"results": []any{
					map[string]any{"path": "a.go", "score": 0.9},
					map[string]any{"path": "b.go", "score": 0.4},
				},
			},
		},
	}
	out, err := env.render(map[string]any{"first": "{{ find.results[0].path }}"})
	require.NoError(t, err)
	assert.Equal(t, "a.go", out["first"])

	_, err = env.render(map[string]any{"oops": "{{ find.results[9].path }}"})
	require.Error(t, err)
}

func TestRenderAbsentStepFails(t *testing.T) {
	env := &scope{
		params: map[string]any{},
		absent: map[string]bool{"find": true},
	}
	_, err := env.render(map[string]any{"v": "{{ find.results }}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed step")
}

func TestValidateCatchesBadReferences(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})

	wf := findReportWorkflow()
	wf.Steps[1].Input["sections"] = []any{
		map[string]any{"items": "{{ find.matches }}"},
	}
	err := Validate(wf, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an output")

	wf = findReportWorkflow()
	wf.Steps[0].Input["query"] = "{{ rep.report }}"
	err = Validate(wf, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a parameter nor an earlier step")
}

func TestValidateAcceptsWholeStepCapture(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})

	wf := findReportWorkflow()
	wf.Steps[1].Input["sections"] = []any{
		map[string]any{"heading": "Raw", "items": "{{ find }}"},
	}
	require.NoError(t, Validate(wf, registry))

	wf = findReportWorkflow()
	wf.Steps[1].Input["sections"] = []any{
		map[string]any{"items": "{{ find[0] }}"},
	}
	err := Validate(wf, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexes a step output record")
}

func TestRenderWholeStepCapture(t *testing.T) {
	env := &scope{
		params: map[string]any{},
		outputs: map[string]map[string]any{
			"find": {
				"results": []any{map[string]any{"path": "a.go"}},
				"total":   float64(1),
			},
		},
	}
	out, err := env.render(map[string]any{"everything": "{{ find }}"})
	require.NoError(t, err)

	captured, ok := out["everything"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), captured["total"])
	assert.Len(t, captured["results"], 1)
}

func TestValidateRejectsUnknownSkill(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})
	wf := &Workflow{
		Name:  "w",
		Steps: []Step{{ID: "a", Skill: "missing", Input: map[string]any{}}},
	}
	err := Validate(wf, registry)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindNotFound, seekerrors.KindOf(err))
}

func TestValidateRejectsDuplicateStepIDs(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})
	wf := &Workflow{
		Name: "w",
		Steps: []Step{
			{ID: "a", Skill: "report", Input: map[string]any{"title": "x", "sections": []any{}}},
			{ID: "a", Skill: "report", Input: map[string]any{"title": "x", "sections": []any{}}},
		},
	}
	require.Error(t, Validate(wf, registry))
}

func TestResolveParametersDefaultsAndRequired(t *testing.T) {
	wf := &Workflow{
		Name: "w",
		Parameters: []Parameter{
			{Name: "query", Type: skill.TypeString, Required: true},
			{Name: "limit", Type: skill.TypeNumber, Default: float64(10)},
		},
	}
	resolved, err := ResolveParameters(wf, map[string]any{"query": "auth"})
	require.NoError(t, err)
	assert.Equal(t, float64(10), resolved["limit"])

	_, err = ResolveParameters(wf, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindInvalidInput, seekerrors.KindOf(err))
}

func TestExecuteTwoStepWorkflowEmptyResults(t *testing.T) {
	stub := &stubSearchSkill{results: []any{}}
	registry := testRegistry(t, stub)
	engine := NewEngine(registry, nil)

	exec, err := engine.Execute(context.Background(), findReportWorkflow(), map[string]any{"query": "nothing here"})
	require.NoError(t, err)

	assert.Equal(t, "ok", exec.Status)
	require.Len(t, exec.Steps, 2)
	assert.Equal(t, StepStatusOK, exec.Steps[0].Status)
	assert.Equal(t, StepStatusOK, exec.Steps[1].Status)
	assert.NotEmpty(t, exec.ID)

	report := exec.Output["report"].(string)
	assert.Contains(t, report, "Results for nothing here")
	assert.Contains(t, report, "## Matches")
}

func TestExecuteOnErrorStopSkipsRemaining(t *testing.T) {
	stub := &stubSearchSkill{fail: seekerrors.DependencyFailed("index offline", nil)}
	registry := testRegistry(t, stub)
	engine := NewEngine(registry, nil)

	exec, err := engine.Execute(context.Background(), findReportWorkflow(), map[string]any{"query": "q"})
	require.NoError(t, err)

	assert.Equal(t, "failed", exec.Status)
	require.Len(t, exec.Steps, 2)
	assert.Equal(t, StepStatusFailed, exec.Steps[0].Status)
	assert.NotEmpty(t, exec.Steps[0].Error)
	assert.Equal(t, StepStatusSkipped, exec.Steps[1].Status)
	assert.Nil(t, exec.Output)
}

func TestExecuteOnErrorContinueMarksAbsent(t *testing.T) {
	stub := &stubSearchSkill{fail: seekerrors.DependencyFailed("index offline", nil)}
	registry := testRegistry(t, stub)
	engine := NewEngine(registry, nil)

	wf := findReportWorkflow()
	wf.Steps[0].OnError = OnErrorContinue
	wf.Steps[1].OnError = OnErrorContinue

	exec, err := engine.Execute(context.Background(), wf, map[string]any{"query": "q"})
	require.NoError(t, err)

	assert.Equal(t, "ok", exec.Status)
	assert.Equal(t, StepStatusFailed, exec.Steps[0].Status)
	// Second step references the absent first step, so it fails at render.
	assert.Equal(t, StepStatusFailed, exec.Steps[1].Status)
	assert.Contains(t, exec.Steps[1].Error, "failed step")
}

func TestExecuteValidationFailsBeforeAnyStep(t *testing.T) {
	stub := &stubSearchSkill{}
	registry := testRegistry(t, stub)
	engine := NewEngine(registry, nil)

	wf := findReportWorkflow()
	wf.Steps[1].Input["sections"] = []any{
		map[string]any{"items": "{{ find.nope }}"},
	}
	_, err := engine.Execute(context.Background(), wf, map[string]any{"query": "q"})
	require.Error(t, err)
	assert.Zero(t, stub.calls)
}

func TestTemplateRegistryBuiltins(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})
	templates, err := NewTemplateRegistry(registry)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, wf := range templates.List() {
		names = append(names, wf.Name)
	}
	assert.Contains(t, names, "code_search")
	assert.Contains(t, names, "code_review")

	_, err = templates.Get("nope")
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindNotFound, seekerrors.KindOf(err))
}

func TestCodeSearchTemplateExecutes(t *testing.T) {
	stub := &stubSearchSkill{results: []any{
		map[string]any{"path": "auth/token.go", "source": "repository", "score": 0.92, "snippet": "func Verify"},
	}}
	registry := testRegistry(t, stub)
	templates, err := NewTemplateRegistry(registry)
	require.NoError(t, err)

	wf, err := templates.Get("code_search")
	require.NoError(t, err)

	engine := NewEngine(registry, nil)
	exec, err := engine.Execute(context.Background(), wf, map[string]any{"query": "token verification"})
	require.NoError(t, err)

	assert.Equal(t, "ok", exec.Status)
	report := exec.Output["report"].(string)
	assert.Contains(t, report, "token verification")
	assert.Contains(t, report, "auth/token.go")
}

func TestTemplateIDDefaultsToName(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})
	templates, err := NewTemplateRegistry(registry)
	require.NoError(t, err)

	wf, err := templates.Get("code_search")
	require.NoError(t, err)
	assert.Equal(t, "code_search", wf.ID)

	doc := []byte(`
id: find-v2
name: quick_find
parameters:
  - name: query
    type: string
    required: true
steps:
  - id: find
    skill: search
    input:
      query: "{{ query }}"
`)
	registered, err := templates.RegisterYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, "find-v2", registered.ID)
	assert.Equal(t, "quick_find", registered.Name)

	got, err := templates.Get("find-v2")
	require.NoError(t, err)
	assert.Equal(t, "quick_find", got.Name)

	_, err = templates.RegisterYAML(doc)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindConflict, seekerrors.KindOf(err))
}

func TestTemplateRegisterYAML(t *testing.T) {
	registry := testRegistry(t, &stubSearchSkill{})
	templates, err := NewTemplateRegistry(registry)
	require.NoError(t, err)

	doc := []byte(`
name: quick_find
description: one-step search
parameters:
  - name: query
    type: string
    required: true
steps:
  - id: find
    skill: search
    input:
      query: "{{ query }}"
`)
	wf, err := templates.RegisterYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, "quick_find", wf.Name)

	_, err = templates.RegisterYAML(doc)
	require.Error(t, err)
	assert.Equal(t, seekerrors.KindConflict, seekerrors.KindOf(err))

	_, err = templates.RegisterYAML([]byte(`name: bad
steps:
  - id: a
    skill: nope
    input: {}
`))
	require.Error(t, err)
}
