package skill

import (
	"context"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// RelationalQuerySkill is a declared placeholder. Workflows may reference it
// before a database backend is configured; execution fails with a clear
// error until one is. The declared constraints (read-only, row cap, timeout)
// bind any future backend.
type RelationalQuerySkill struct{}

// NewRelationalQuerySkill creates the placeholder skill.
func NewRelationalQuerySkill() *RelationalQuerySkill {
	return &RelationalQuerySkill{}
}

func (s *RelationalQuerySkill) Info() Info {
	return Info{
		Name:        "relational-query",
		Description: "Read-only SQL query against a configured database (no backend configured)",
		Inputs: []FieldSpec{
			{Name: "query", Type: TypeString, Required: true, Description: "Read-only SQL statement"},
			{Name: "max_rows", Type: TypeNumber, Default: float64(100), Description: "Row cap"},
			{Name: "timeout_seconds", Type: TypeNumber, Default: float64(10)},
		},
		Outputs: []FieldSpec{
			{Name: "rows", Type: TypeList},
			{Name: "row_count", Type: TypeNumber},
		},
		Requires: []string{"relational-backend"},
	}
}

func (s *RelationalQuerySkill) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	if _, err := ValidateInput("relational-query", s.Info().Inputs, input); err != nil {
		return nil, err
	}
	return nil, &ExecutionError{
		SkillName: "relational-query",
		Message:   "not implemented: no relational backend configured",
		Cause:     seekerrors.Newf(seekerrors.KindDependencyUnavailable, "relational backend missing"),
	}
}
