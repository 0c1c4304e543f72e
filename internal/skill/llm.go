package skill

import (
	"context"

	"github.com/seekspace/seekd/internal/llm"
)

// LLMSkill invokes the currently active LLM provider. The provider is read
// from the session at execute time so provider switches take effect without
// re-registering the skill.
type LLMSkill struct {
	session *llm.Session
}

// NewLLMSkill creates the LLM skill.
func NewLLMSkill(session *llm.Session) *LLMSkill {
	return &LLMSkill{session: session}
}

func (s *LLMSkill) Info() Info {
	return Info{
		Name:        "llm",
		Description: "Generate text with the active LLM provider",
		Inputs: []FieldSpec{
			{Name: "prompt", Type: TypeString, Required: true},
			{Name: "context", Type: TypeString, Description: "Optional context prepended as a system message"},
			{Name: "temperature", Type: TypeNumber, Default: float64(0)},
			{Name: "max_tokens", Type: TypeNumber, Default: float64(0)},
		},
		Outputs: []FieldSpec{
			{Name: "response", Type: TypeString},
			{Name: "model", Type: TypeString},
		},
		Requires: []string{"llm-session"},
	}
}

func (s *LLMSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	input, err := ValidateInput("llm", s.Info().Inputs, input)
	if err != nil {
		return nil, err
	}

	provider, err := s.session.Current()
	if err != nil {
		return nil, &ExecutionError{SkillName: "llm", Message: "no provider available", Cause: err}
	}

	var messages []llm.Message
	if contextText, _ := input["context"].(string); contextText != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: contextText})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input["prompt"].(string)})

	response, err := provider.Generate(ctx, messages, llm.Options{
		Temperature: AsNumber(input["temperature"]),
		MaxTokens:   int(AsNumber(input["max_tokens"])),
	})
	if err != nil {
		return nil, &ExecutionError{SkillName: "llm", Message: "generation failed", Cause: err}
	}

	return map[string]any{
		"response": response,
		"model":    provider.Model(),
	}, nil
}
