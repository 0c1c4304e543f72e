package workflow

import (
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/skill"
)

// TemplateRegistry holds named workflow templates: the built-ins plus any
// registered at runtime. Templates are validated against the skill registry
// when registered, so a stored template is always executable.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*Workflow
	skills    *skill.Registry
}

// NewTemplateRegistry creates a template registry preloaded with the
// built-in templates.
func NewTemplateRegistry(skills *skill.Registry) (*TemplateRegistry, error) {
	r := &TemplateRegistry{
		templates: make(map[string]*Workflow),
		skills:    skills,
	}
	for _, wf := range builtinTemplates() {
		if err := r.Register(wf); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and stores a template under its id, which defaults to
// the name when the definition omits it. Registering an existing id is a
// conflict.
func (r *TemplateRegistry) Register(wf *Workflow) error {
	if err := Validate(wf, r.skills); err != nil {
		return err
	}
	if wf.ID == "" {
		wf.ID = wf.Name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[wf.ID]; exists {
		return seekerrors.Conflict("template %q already registered", wf.ID)
	}
	r.templates[wf.ID] = wf
	return nil
}

// RegisterYAML parses a YAML template definition and registers it.
func (r *TemplateRegistry) RegisterYAML(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, seekerrors.Wrap(seekerrors.KindInvalidInput, "parse workflow template", err)
	}
	if err := r.Register(&wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Get returns a template by id.
func (r *TemplateRegistry) Get(id string) (*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.templates[id]
	if !ok {
		return nil, seekerrors.NotFound("template %q not registered", id)
	}
	return wf, nil
}

// List returns all templates sorted by name.
func (r *TemplateRegistry) List() []*Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workflow, 0, len(r.templates))
	for _, wf := range r.templates {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// builtinTemplates returns the templates shipped with the server.
func builtinTemplates() []*Workflow {
	return []*Workflow{
		{
			Name:        "code_search",
			Description: "Search indexed sources and summarize the matches as a report",
			Category:    "search",
			Parameters: []Parameter{
				{Name: "query", Type: skill.TypeString, Required: true, Description: "Search query text"},
				{Name: "mode", Type: skill.TypeString, Default: "hybrid", Description: "keyword, semantic, or hybrid"},
				{Name: "limit", Type: skill.TypeNumber, Default: float64(10), Description: "Maximum results"},
			},
			Steps: []Step{
				{
					ID:    "find",
					Skill: "search",
					Input: map[string]any{
						"query": "{{ query }}",
						"mode":  "{{ mode }}",
						"limit": "{{ limit }}",
					},
				},
				{
					ID:    "summarize",
					Skill: "report",
					Input: map[string]any{
						"title": "Search results for {{ query }}",
						"sections": []any{
							map[string]any{
								"heading": "Matches",
								"items":   "{{ find.results }}",
							},
						},
					},
				},
			},
		},
		{
			Name:        "code_review",
			Description: "Analyze a code snippet and report its structure",
			Category:    "analysis",
			Parameters: []Parameter{
				{Name: "code", Type: skill.TypeString, Required: true, Description: "Source code to analyze"},
				{Name: "language", Type: skill.TypeString, Required: true, Description: "go, javascript, typescript, or python"},
			},
			Steps: []Step{
				{
					ID:    "analyze",
					Skill: "code-analysis",
					Input: map[string]any{
						"code":     "{{ code }}",
						"language": "{{ language }}",
					},
				},
				{
					ID:    "summarize",
					Skill: "report",
					Input: map[string]any{
						"title": "Code review",
						"sections": []any{
							map[string]any{
								"heading": "Functions",
								"items":   "{{ analyze.functions }}",
							},
							map[string]any{
								"heading": "Complexity",
								"content": "Cyclomatic complexity: {{ analyze.complexity }}",
							},
						},
					},
				},
			},
		},
	}
}
