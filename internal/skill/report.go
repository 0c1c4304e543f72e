package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ReportSkill formats a structured document as markdown, json, or plain
// text. It is pure: identical input always yields identical output.
type ReportSkill struct{}

// NewReportSkill creates the report skill.
func NewReportSkill() *ReportSkill { return &ReportSkill{} }

func (s *ReportSkill) Info() Info {
	return Info{
		Name:        "report",
		Description: "Format a title and ordered sections as markdown, json, or plain text",
		Inputs: []FieldSpec{
			{Name: "title", Type: TypeString, Required: true},
			{Name: "sections", Type: TypeList, Required: true,
				Description: "Sections with heading plus content (prose) or items (list)"},
			{Name: "format", Type: TypeString, Default: "markdown", Description: "markdown, json, or plain"},
		},
		Outputs: []FieldSpec{
			{Name: "report", Type: TypeString},
			{Name: "format", Type: TypeString},
		},
	}
}

func (s *ReportSkill) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	input, err := ValidateInput("report", s.Info().Inputs, input)
	if err != nil {
		return nil, err
	}

	title := input["title"].(string)
	sections := input["sections"].([]any)
	format := input["format"].(string)

	var report string
	switch format {
	case "markdown":
		report = renderMarkdown(title, sections)
	case "plain":
		report = renderPlain(title, sections)
	case "json":
		data, err := json.MarshalIndent(map[string]any{
			"title":    title,
			"sections": sections,
		}, "", "  ")
		if err != nil {
			return nil, &ExecutionError{SkillName: "report", Message: "encode report", Cause: err}
		}
		report = string(data)
	default:
		return nil, schemaErr("report", "unknown format %q", format)
	}

	return map[string]any{"report": report, "format": format}, nil
}

func renderMarkdown(title string, sections []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, raw := range sections {
		sec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if heading, _ := sec["heading"].(string); heading != "" {
			fmt.Fprintf(&b, "\n## %s\n", heading)
		}
		if content, _ := sec["content"].(string); content != "" {
			fmt.Fprintf(&b, "\n%s\n", content)
		}
		if items, ok := sec["items"].([]any); ok {
			b.WriteString("\n")
			for _, item := range items {
				fmt.Fprintf(&b, "- %s\n", renderItem(item))
			}
		}
	}
	return b.String()
}

func renderPlain(title string, sections []any) string {
	var b strings.Builder
	b.WriteString(title + "\n" + strings.Repeat("=", len(title)) + "\n")
	for _, raw := range sections {
		sec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if heading, _ := sec["heading"].(string); heading != "" {
			b.WriteString("\n" + heading + "\n" + strings.Repeat("-", len(heading)) + "\n")
		}
		if content, _ := sec["content"].(string); content != "" {
			b.WriteString(content + "\n")
		}
		if items, ok := sec["items"].([]any); ok {
			for _, item := range items {
				fmt.Fprintf(&b, "  * %s\n", renderItem(item))
			}
		}
	}
	return b.String()
}

// renderItem renders a list item: strings pass through, records render as
// JSON, which sorts keys and keeps the output deterministic.
func renderItem(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
