package skill

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// CodeAnalysisSkill extracts structure from source code: function and class
// names, imports, and a branch-count complexity heuristic.
type CodeAnalysisSkill struct {
	mu        sync.Mutex
	parser    *sitter.Parser
	languages map[string]*sitter.Language
}

// NewCodeAnalysisSkill creates the analysis skill.
func NewCodeAnalysisSkill() *CodeAnalysisSkill {
	return &CodeAnalysisSkill{
		parser: sitter.NewParser(),
		languages: map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"typescript": typescript.GetLanguage(),
			"python":     python.GetLanguage(),
		},
	}
}

func (s *CodeAnalysisSkill) Info() Info {
	return Info{
		Name:        "code-analysis",
		Description: "Structural extraction of functions, classes, imports, and complexity",
		Inputs: []FieldSpec{
			{Name: "code", Type: TypeString, Required: true, Description: "Source code to analyze"},
			{Name: "language", Type: TypeString, Required: true, Description: "go, javascript, typescript, or python"},
		},
		Outputs: []FieldSpec{
			{Name: "functions", Type: TypeList},
			{Name: "classes", Type: TypeList},
			{Name: "imports", Type: TypeList},
			{Name: "complexity", Type: TypeNumber},
			{Name: "lines", Type: TypeNumber},
		},
	}
}

// functionNodes, classNodes, importNodes, and branchNodes drive extraction
// per grammar.
var (
	functionNodes = map[string]bool{
		"function_declaration": true, "method_declaration": true,
		"function_definition": true, "method_definition": true,
		"arrow_function": true,
	}
	classNodes = map[string]bool{
		"class_declaration": true, "class_definition": true,
		"type_declaration": true, "interface_declaration": true,
	}
	importNodes = map[string]bool{
		"import_declaration": true, "import_statement": true,
		"import_from_statement": true, "import_spec": true,
	}
	branchNodes = map[string]bool{
		"if_statement": true, "for_statement": true, "while_statement": true,
		"switch_statement": true, "case_clause": true, "expression_case": true,
		"conditional_expression": true, "elif_clause": true,
	}
)

func (s *CodeAnalysisSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	input, err := ValidateInput("code-analysis", s.Info().Inputs, input)
	if err != nil {
		return nil, err
	}

	lang := strings.ToLower(input["language"].(string))
	language, ok := s.languages[lang]
	if !ok {
		return nil, schemaErr("code-analysis", "unsupported language %q", lang)
	}
	code := []byte(input["code"].(string))

	s.mu.Lock()
	s.parser.SetLanguage(language)
	tree, err := s.parser.ParseCtx(ctx, nil, code)
	s.mu.Unlock()
	if err != nil {
		return nil, &ExecutionError{SkillName: "code-analysis", Message: "parse failed", Cause: err}
	}
	defer tree.Close()

	var functions, classes, imports []any
	complexity := 1

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		nodeType := node.Type()
		switch {
		case functionNodes[nodeType]:
			if name := declarationName(node, code); name != "" {
				functions = append(functions, name)
			}
		case classNodes[nodeType]:
			if name := declarationName(node, code); name != "" {
				classes = append(classes, name)
			}
		case importNodes[nodeType]:
			imports = append(imports, strings.TrimSpace(node.Content(code)))
		}
		if branchNodes[nodeType] {
			complexity++
		}
		if nodeType == "binary_expression" {
			op := node.Content(code)
			if strings.Contains(op, "&&") || strings.Contains(op, "||") {
				complexity++
			}
		}

		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	return map[string]any{
		"functions":  functions,
		"classes":    classes,
		"imports":    imports,
		"complexity": float64(complexity),
		"lines":      float64(strings.Count(string(code), "\n") + 1),
	}, nil
}

// declarationName returns the identifier of a declaration node, searching
// the grammar's usual "name" field first.
func declarationName(node *sitter.Node, code []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(code)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		t := child.Type()
		if t == "identifier" || t == "field_identifier" || t == "type_identifier" {
			return child.Content(code)
		}
	}
	return ""
}
